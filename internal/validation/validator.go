// Package validation wraps a shared struct-tag validator and turns its
// errors into field/reason pairs.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "yaml"} {
			name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
}

// FieldError names the first field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Reason) }

// Struct validates v by its tags and returns a *FieldError for the first
// failing field.
func Struct(v any) error {
	if v == nil {
		return errors.New("validation target cannot be nil")
	}
	return formatValidationError(validate.Struct(v))
}

func formatValidationError(err error) error {
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	for _, e := range validationErrs {
		field := e.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		param := e.Param()
		switch e.Tag() {
		case "required":
			return &FieldError{field, "field is required"}
		case "min", "gte":
			return &FieldError{field, "must be at least " + param}
		case "max", "lte":
			return &FieldError{field, "must not exceed " + param}
		case "gt":
			return &FieldError{field, "must be greater than " + param}
		case "oneof":
			return &FieldError{field, fmt.Sprintf("must be one of [%s], got %q", param, fmt.Sprint(e.Value()))}
		default:
			return &FieldError{field, fmt.Sprintf("validation failed (%s)", e.Tag())}
		}
	}
	return err
}
