package util

import (
	"fmt"
	"strings"
)

// Snippet returns the lines around 1-based line n, radius lines on either
// side, each prefixed with its line number. The focus line is marked with >.
func Snippet(lines []string, n, radius int) string {
	if n < 1 || n > len(lines) {
		return ""
	}
	if radius < 0 {
		radius = 0
	}
	s := max(1, n-radius)
	e := min(len(lines), n+radius)
	width := len(fmt.Sprint(e))
	var b strings.Builder
	for i := s; i <= e; i++ {
		mark := " "
		if i == n {
			mark = ">"
		}
		fmt.Fprintf(&b, "%s %*d | %s\n", mark, width, i, lines[i-1])
	}
	return strings.TrimRight(b.String(), "\n")
}
