package solidity

import (
	"regexp"
	"strconv"
	"strings"
)

const DefaultName = "Contract"

var (
	reContract = regexp.MustCompile(`\b(?:abstract\s+)?contract\s+([A-Za-z_]\w*)`)
	rePragma   = regexp.MustCompile(`pragma\s+solidity\s+([^;]+);?`)
	reVersion  = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)
)

// SourceUnit is the immutable view of one contract every pass reads from.
// Lines are 1-indexed through Line; the slices returned by Lines and
// CodeLines are shared and must not be modified.
type SourceUnit struct {
	name  string
	text  string
	lines []string
	code  []string
}

// NewSourceUnit splits code into lines and derives the contract name. A
// non-empty name overrides the one found in the text.
func NewSourceUnit(code, name string) *SourceUnit {
	lines := strings.Split(code, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	u := &SourceUnit{text: code, lines: lines, code: StripComments(lines)}
	u.name = strings.TrimSpace(name)
	if u.name == "" {
		u.name = DefaultName
		for _, l := range u.code {
			if m := reContract.FindStringSubmatch(l); m != nil {
				u.name = m[1]
				break
			}
		}
	}
	return u
}

func (u *SourceUnit) Name() string { return u.name }
func (u *SourceUnit) Text() string { return u.text }
func (u *SourceUnit) Len() int     { return len(u.lines) }

func (u *SourceUnit) Lines() []string { return u.lines }

// CodeLines holds the same lines with comments and string literal bodies blanked.
func (u *SourceUnit) CodeLines() []string { return u.code }

// Line returns the 1-based line n, or "" when n is out of range.
func (u *SourceUnit) Line(n int) string {
	if n < 1 || n > len(u.lines) {
		return ""
	}
	return u.lines[n-1]
}

// ValidLine reports whether n indexes a line of the unit.
func (u *SourceUnit) ValidLine(n int) bool { return n >= 1 && n <= len(u.lines) }

// FirstLine returns the first 1-based line whose text contains needle, or 0.
func (u *SourceUnit) FirstLine(needle string) int {
	for i, l := range u.lines {
		if strings.Contains(l, needle) {
			return i + 1
		}
	}
	return 0
}

func (u *SourceUnit) HasPragma() bool { return rePragma.MatchString(u.text) }

func (u *SourceUnit) HasContract() bool {
	for _, l := range u.code {
		if reContract.MatchString(l) {
			return true
		}
	}
	return false
}

type Version struct {
	Major, Minor, Patch int
}

func (v Version) String() string {
	return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Patch)
}

// Below reports whether v is older than major.minor.
func (v Version) Below(major, minor int) bool {
	if v.Major != major {
		return v.Major < major
	}
	return v.Minor < minor
}

// Version returns the first version named by a pragma solidity directive.
func (u *SourceUnit) Version() (Version, bool) {
	m := rePragma.FindStringSubmatch(u.text)
	if m == nil {
		return Version{}, false
	}
	return ParseVersion(m[1])
}

// ParseVersion reads the first dotted version out of a pragma constraint
// such as "^0.7.0" or ">=0.6.0 <0.9.0".
func ParseVersion(constraint string) (Version, bool) {
	m := reVersion.FindStringSubmatch(constraint)
	if m == nil {
		return Version{}, false
	}
	var v Version
	v.Major, _ = strconv.Atoi(m[1])
	v.Minor, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		v.Patch, _ = strconv.Atoi(m[3])
	}
	return v, true
}
