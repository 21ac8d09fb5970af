package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExpand_Basic tests simple substitution.
func TestExpand_Basic(t *testing.T) {
	exp := NewExpander()
	result, err := exp.Expand("History:\n${messages}", map[string]any{
		"messages": "user: hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "History:\nuser: hello", result)
}

// TestExpand_MultipleVariables tests several placeholders in one string.
func TestExpand_MultipleVariables(t *testing.T) {
	exp := NewExpander()
	result, err := exp.Expand("${role} looking at ${ticker}", map[string]any{
		"role":   "analyst",
		"ticker": "BTC-USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "analyst looking at BTC-USD", result)
}

// TestExpand_MissingKeep tests the default missing policy.
func TestExpand_MissingKeep(t *testing.T) {
	exp := NewExpander()
	result, err := exp.Expand("keep ${absent}", nil)
	require.NoError(t, err)
	assert.Equal(t, "keep ${absent}", result)
}

// TestExpand_MissingEmpty tests empty substitution for absent variables.
func TestExpand_MissingEmpty(t *testing.T) {
	exp := NewExpander(WithMissingAction(MissingEmpty))
	result, err := exp.Expand("drop [${absent}]", nil)
	require.NoError(t, err)
	assert.Equal(t, "drop []", result)
}

// TestExpand_MissingError tests the strict missing policy.
func TestExpand_MissingError(t *testing.T) {
	exp := NewExpander(WithMissingAction(MissingError))
	_, err := exp.Expand("${a} and ${b}", map[string]any{"a": 1})
	require.Error(t, err)

	var undef *UndefinedVariableError
	require.ErrorAs(t, err, &undef)
	assert.Equal(t, []string{"b"}, undef.Names)
}

// TestExpand_NonStringValues tests formatting of non-string variables.
func TestExpand_NonStringValues(t *testing.T) {
	exp := NewExpander()
	result, err := exp.Expand("last ${days} days", map[string]any{"days": 90})
	require.NoError(t, err)
	assert.Equal(t, "last 90 days", result)
}

// TestMustExpand_PanicsOnMissing tests panic behavior under MissingError.
func TestMustExpand_PanicsOnMissing(t *testing.T) {
	exp := NewExpander(WithMissingAction(MissingError))
	assert.Panics(t, func() {
		exp.MustExpand("${nope}", nil)
	})
}
