package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPercentReturns tests the basic return calculation.
func TestPercentReturns(t *testing.T) {
	returns, err := PercentReturns([]float64{100, 110, 99})
	require.NoError(t, err)
	require.Len(t, returns, 3)

	assert.Equal(t, 0.0, returns[0])
	assert.InDelta(t, 10.0, returns[1], 1e-9)
	assert.InDelta(t, -10.0, returns[2], 1e-9)
}

// TestPercentReturns_ZeroPrevious tests division-by-zero guarding.
func TestPercentReturns_ZeroPrevious(t *testing.T) {
	returns, err := PercentReturns([]float64{0, 50})
	require.NoError(t, err)
	assert.Equal(t, 0.0, returns[1])
}

// TestPercentReturns_TooFew tests the minimum-length requirement.
func TestPercentReturns_TooFew(t *testing.T) {
	_, err := PercentReturns([]float64{42})
	assert.Error(t, err)

	_, err = PercentReturns(nil)
	assert.Error(t, err)
}

// TestFormatReturns_Short tests full rendering of short series.
func TestFormatReturns_Short(t *testing.T) {
	out := FormatReturns([]float64{0, 1.234, -2.5})
	assert.Equal(t, "Daily percentage returns: 0.00%, 1.23%, -2.50%", out)
}

// TestFormatReturns_Elided tests first/last-10 elision of long series.
func TestFormatReturns_Elided(t *testing.T) {
	series := make([]float64, 30)
	for i := range series {
		series[i] = float64(i)
	}
	out := FormatReturns(series)
	assert.Contains(t, out, "first 10 and last 10")
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "0.00%")
	assert.Contains(t, out, "29.00%")
	assert.NotContains(t, out, "15.00%")
}

// TestReturnsTool tests the agent-facing wrapper.
func TestReturnsTool(t *testing.T) {
	tl := NewReturnsTool()
	assert.Equal(t, "percent_returns", tl.Name())

	out, err := tl.Invoke(context.Background(), json.RawMessage(`{"prices":[100,110]}`))
	require.NoError(t, err)
	assert.Contains(t, out, "10.00%")

	_, err = tl.Invoke(context.Background(), json.RawMessage(`{"prices":["not","numbers"]}`))
	assert.Error(t, err)
}
