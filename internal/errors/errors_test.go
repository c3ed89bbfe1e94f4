package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"input", NewInputError("contractCode", "empty"), KindInput},
		{"timeout", NewTimeoutError("analyze", time.Second), KindTimeout},
		{"internal", NewInternalError("anomaly", io.EOF), KindInternal},
		{"wrapped", fmt.Errorf("engine: %w", NewInputError("contractCode", "too long")), KindInput},
		{"plain", io.EOF, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestInternalErrorUnwraps(t *testing.T) {
	err := NewInternalError("taint", io.EOF)
	assert.True(t, stderrors.Is(err, io.EOF))

	var ie *InternalError
	require.True(t, stderrors.As(err, &ie))
	assert.Equal(t, "taint", ie.Pass)
}

func TestFromPanic(t *testing.T) {
	err := FromPanic("formal", "index out of range")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Contains(t, err.Error(), "index out of range")

	err = FromPanic("formal", io.ErrUnexpectedEOF)
	assert.True(t, stderrors.Is(err, io.ErrUnexpectedEOF))
}

func TestMessages(t *testing.T) {
	assert.Equal(t, `invalid input "contractCode": empty`, NewInputError("contractCode", "empty").Error())
	assert.Equal(t, "analyze exceeded its time budget of 30s", NewTimeoutError("analyze", 30*time.Second).Error())
}
