package solidity

import (
	"regexp"
	"strings"
)

var (
	reCallable = regexp.MustCompile(`^\s*(?:(function)\s+([A-Za-z_]\w*)|(constructor|fallback|receive)\s*\(|(modifier)\s+([A-Za-z_]\w*))`)
	reStateVar = regexp.MustCompile(`^\s*(mapping\s*\(.*\)|[A-Za-z_][\w.]*(?:\s+payable)?(?:\[\d*\])*)\s+((?:(?:public|private|internal|constant|immutable|override|transient)\s+)*)([A-Za-z_]\w*)\s*(?:=[^;]*)?;`)
	rePayable  = regexp.MustCompile(`\bpayable\b`)

	notTypes = map[string]bool{"return": true, "emit": true, "using": true, "event": true, "error": true, "delete": true, "revert": true, "import": true}
)

// Function is one callable body found in the unit. Header runs from the
// keyword to the opening brace; Body is everything between the braces, one
// entry per source line.
type Function struct {
	Kind   string // function, constructor, fallback, receive or modifier
	Name   string
	Header string
	Body   []string
	Start  int
	End    int
}

// Payable reports whether the function itself is payable. A payable
// parameter type does not count.
func (f Function) Payable() bool {
	depth := 0
	for i := 0; i < len(f.Header); i++ {
		switch f.Header[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return rePayable.MatchString(f.Header[i+1:])
			}
		}
	}
	return false
}

// Functions splits the unit into callable bodies by brace matching over the
// comment-stripped lines. Declarations without a body are skipped.
func (u *SourceUnit) Functions() []Function {
	var out []Function
	for i := 0; i < len(u.code); i++ {
		m := reCallable.FindStringSubmatch(u.code[i])
		if m == nil {
			continue
		}
		fn := Function{Start: i + 1}
		switch {
		case m[1] != "":
			fn.Kind, fn.Name = m[1], m[2]
		case m[3] != "":
			fn.Kind, fn.Name = m[3], m[3]
		default:
			fn.Kind, fn.Name = m[4], m[5]
		}
		if !u.enclose(i, &fn) {
			continue
		}
		out = append(out, fn)
		i = fn.End - 1
	}
	return out
}

func (u *SourceUnit) enclose(from int, fn *Function) bool {
	var header, line strings.Builder
	depth := 0
	for i := from; i < len(u.code); i++ {
		l := u.code[i]
		for j := 0; j < len(l); j++ {
			c := l[j]
			switch {
			case depth == 0 && c == ';':
				return false
			case c == '{':
				depth++
				if depth == 1 {
					continue
				}
			case c == '}':
				depth--
				if depth == 0 {
					fn.Header = strings.TrimSpace(header.String())
					fn.Body = append(fn.Body, line.String())
					fn.End = i + 1
					return true
				}
			}
			if depth == 0 {
				header.WriteByte(c)
			} else {
				line.WriteByte(c)
			}
		}
		if depth == 0 {
			header.WriteByte(' ')
		} else {
			fn.Body = append(fn.Body, line.String())
			line.Reset()
		}
	}
	return false
}

// StateVariable is a declaration at contract level.
type StateVariable struct {
	Name string
	Type string
	Line int
	// Fixed is set for constant and immutable declarations.
	Fixed bool
}

// StateVariables lists declarations made directly inside a contract body.
func (u *SourceUnit) StateVariables() []StateVariable {
	var out []StateVariable
	depth := 0
	for i, l := range u.code {
		if depth == 1 {
			if m := reStateVar.FindStringSubmatch(l); m != nil && !notTypes[m[1]] {
				out = append(out, StateVariable{
					Name:  m[3],
					Type:  strings.Join(strings.Fields(m[1]), " "),
					Line:  i + 1,
					Fixed: strings.Contains(m[2], "constant") || strings.Contains(m[2], "immutable"),
				})
			}
		}
		depth += strings.Count(l, "{") - strings.Count(l, "}")
	}
	return out
}
