package solidity

import (
	"regexp"
	"strings"
)

// StripComments blanks // and /* */ comments and the contents of string
// literals, keeping one output line per input line so indices stay aligned.
func StripComments(lines []string) []string {
	out := make([]string, len(lines))
	inBlock := false
	for i, l := range lines {
		var b strings.Builder
		b.Grow(len(l))
		var quote byte
		for j := 0; j < len(l); j++ {
			c := l[j]
			switch {
			case inBlock:
				if c == '*' && j+1 < len(l) && l[j+1] == '/' {
					inBlock = false
					j++
				}
			case quote != 0:
				if c == '\\' {
					j++
					continue
				}
				if c == quote {
					quote = 0
					b.WriteByte(c)
				}
			case c == '/' && j+1 < len(l) && l[j+1] == '/':
				j = len(l)
			case c == '/' && j+1 < len(l) && l[j+1] == '*':
				inBlock = true
				j++
			case c == '"' || c == '\'':
				quote = c
				b.WriteByte(c)
			default:
				b.WriteByte(c)
			}
		}
		out[i] = b.String()
	}
	return out
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// assignmentOps returns the byte offsets of every assignment operator in a
// code line: '=' and compound forms, excluding ==, !=, <=, >= and =>.
func assignmentOps(line string) []int {
	var ops []int
	for i := 0; i < len(line); i++ {
		if line[i] != '=' {
			continue
		}
		if i+1 < len(line) && (line[i+1] == '=' || line[i+1] == '>') {
			i++
			continue
		}
		if i > 0 {
			switch line[i-1] {
			case '=', '!', '<', '>':
				continue
			}
		}
		ops = append(ops, i)
	}
	return ops
}

// CountAssignments counts assignment operators in a code line.
func CountAssignments(line string) int { return len(assignmentOps(line)) }

// HasAssignment reports whether a code line assigns anything.
func HasAssignment(line string) bool { return len(assignmentOps(line)) > 0 }

// AssignmentTargets returns the base identifier of each assignment on a code
// line: "balances" for `balances[msg.sender] = 0`, "total" for
// `uint total = 1`, "s" for `s.owner = x`. Tuple targets yield nothing.
func AssignmentTargets(line string) []string {
	var out []string
	for _, op := range assignmentOps(line) {
		j := op - 1
		if j >= 0 && strings.IndexByte("+-*/%|&^", line[j]) >= 0 {
			j--
		}
		for j >= 0 && (line[j] == ' ' || line[j] == '\t') {
			j--
		}
		for j >= 0 && line[j] == ']' {
			depth := 0
			for ; j >= 0; j-- {
				if line[j] == ']' {
					depth++
				} else if line[j] == '[' {
					depth--
					if depth == 0 {
						j--
						break
					}
				}
			}
		}
		end := j + 1
		for j >= 0 && (isIdentByte(line[j]) || line[j] == '.') {
			j--
		}
		expr := line[j+1 : end]
		if expr == "" {
			continue
		}
		if dot := strings.IndexByte(expr, '.'); dot >= 0 {
			expr = expr[:dot]
		}
		if expr == "" || (expr[0] >= '0' && expr[0] <= '9') {
			continue
		}
		out = append(out, expr)
	}
	return out
}

var reIdent = regexp.MustCompile(`[A-Za-z_$][A-Za-z0-9_$]*`)

// ContainsWord reports whether ident occurs in line as a whole identifier.
func ContainsWord(line, ident string) bool {
	for _, loc := range reIdent.FindAllStringIndex(line, -1) {
		if line[loc[0]:loc[1]] == ident {
			if loc[0] > 0 && line[loc[0]-1] == '.' {
				continue
			}
			return true
		}
	}
	return false
}

// CountArithmetic counts arithmetic operator sites in a code line: binary
// + - * / % **, increments, decrements and compound assignments.
func CountArithmetic(line string) int {
	n := 0
	for i := 0; i < len(line); i++ {
		c := line[i]
		if strings.IndexByte("+-*/%", c) < 0 {
			continue
		}
		if i+1 < len(line) {
			next := line[i+1]
			if (c == '+' || c == '-' || c == '*') && next == c {
				n++
				i++
				continue
			}
			if next == '=' {
				n++
				i++
				continue
			}
		}
		if isOperand(prevNonSpace(line, i), true) && isOperand(nextNonSpace(line, i), false) {
			n++
		}
	}
	return n
}

// HasArithmetic reports whether a code line contains an arithmetic operator.
func HasArithmetic(line string) bool { return CountArithmetic(line) > 0 }

func prevNonSpace(line string, i int) byte {
	for j := i - 1; j >= 0; j-- {
		if line[j] != ' ' && line[j] != '\t' {
			return line[j]
		}
	}
	return 0
}

func nextNonSpace(line string, i int) byte {
	for j := i + 1; j < len(line); j++ {
		if line[j] != ' ' && line[j] != '\t' {
			return line[j]
		}
	}
	return 0
}

func isOperand(c byte, left bool) bool {
	if c == 0 {
		return false
	}
	if isIdentByte(c) {
		return true
	}
	if left {
		return c == ')' || c == ']'
	}
	return c == '('
}
