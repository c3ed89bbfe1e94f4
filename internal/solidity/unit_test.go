package solidity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vault = `// SPDX-License-Identifier: MIT
pragma solidity ^0.7.0;

contract Vault {
    mapping(address => uint256) public balances; /* per user */
    string note = "a - b // not a comment";

    function withdraw() public {
        (bool ok, ) = msg.sender.call{value: balances[msg.sender]}("");
        balances[msg.sender] = 0;
    }
}`

func TestNewSourceUnit(t *testing.T) {
	u := NewSourceUnit(vault, "")
	assert.Equal(t, "Vault", u.Name())
	assert.Equal(t, 12, u.Len())
	assert.Equal(t, "pragma solidity ^0.7.0;", u.Line(2))
	assert.Equal(t, "", u.Line(0))
	assert.Equal(t, "", u.Line(13))
	assert.True(t, u.ValidLine(12))
	assert.False(t, u.ValidLine(13))
	assert.True(t, u.HasPragma())
	assert.True(t, u.HasContract())
	assert.Equal(t, 9, u.FirstLine(".call{"))

	named := NewSourceUnit(vault, "  Custom ")
	assert.Equal(t, "Custom", named.Name())

	bare := NewSourceUnit("uint x = 1;", "")
	assert.Equal(t, DefaultName, bare.Name())
	assert.False(t, bare.HasPragma())
	assert.False(t, bare.HasContract())
}

func TestVersion(t *testing.T) {
	v, ok := NewSourceUnit(vault, "").Version()
	require.True(t, ok)
	assert.Equal(t, Version{0, 7, 0}, v)
	assert.True(t, v.Below(0, 8))

	v, ok = ParseVersion(">=0.8.19 <0.9.0")
	require.True(t, ok)
	assert.Equal(t, "0.8.19", v.String())
	assert.False(t, v.Below(0, 8))

	_, ok = ParseVersion("latest")
	assert.False(t, ok)
}

func TestStripComments(t *testing.T) {
	lines := []string{
		`uint a = 1; // trailing - comment`,
		`/* start`,
		`   still comment a - b`,
		`end */ uint b = 2;`,
		`string s = "x - y";`,
	}
	code := StripComments(lines)
	require.Len(t, code, len(lines))
	assert.Equal(t, "uint a = 1; ", code[0])
	assert.Equal(t, "", code[1])
	assert.Equal(t, "", code[2])
	assert.Equal(t, " uint b = 2;", code[3])
	assert.Equal(t, `string s = "";`, code[4])
}

func TestAssignmentTargets(t *testing.T) {
	testCases := []struct {
		line     string
		expected []string
	}{
		{"balances[msg.sender] = 0;", []string{"balances"}},
		{"uint256 total = a + b;", []string{"total"}},
		{"count += 1;", []string{"count"}},
		{"s.owner = newOwner;", []string{"s"}},
		{"(bool ok, ) = to.call(data);", nil},
		{"require(a == b && c != d && e <= f && g >= h);", nil},
		{"mapping(address => uint) m;", nil},
		{"x = y = 2;", []string{"x", "y"}},
	}
	for _, tc := range testCases {
		t.Run(tc.line, func(t *testing.T) {
			assert.Equal(t, tc.expected, AssignmentTargets(tc.line))
		})
	}
	assert.Equal(t, 2, CountAssignments("a = 1; b -= 2;"))
	assert.False(t, HasAssignment("if (a == b) {"))
}

func TestContainsWordAndArithmetic(t *testing.T) {
	assert.True(t, ContainsWord("total = total + 1", "total"))
	assert.False(t, ContainsWord("totalSupply = 1", "total"))
	assert.False(t, ContainsWord("msg.sender", "sender"))

	assert.True(t, HasArithmetic("x = a + b;"))
	assert.True(t, HasArithmetic("i++;"))
	assert.True(t, HasArithmetic("x -= 1;"))
	assert.False(t, HasArithmetic("pragma solidity ^0.7.0;"))
	assert.False(t, HasArithmetic("mapping(address => uint) m;"))
	assert.Equal(t, 2, CountArithmetic("z = a * b + c;"))
}
