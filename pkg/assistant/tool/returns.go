package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// PercentReturns computes daily percentage returns for a price series.
// The first element is always 0 (no prior price); a zero previous price
// yields a 0 return rather than a division by zero.
func PercentReturns(prices []float64) ([]float64, error) {
	if len(prices) < 2 {
		return nil, fmt.Errorf("need at least 2 prices to compute returns, got %d", len(prices))
	}

	returns := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		if prev == 0 {
			returns[i] = 0
			continue
		}
		returns[i] = (prices[i] - prev) / prev * 100
	}
	return returns, nil
}

// FormatReturns renders a return series for the model. Series longer than
// 20 entries are elided to the first and last 10 to keep the prompt small.
func FormatReturns(returns []float64) string {
	format := func(vals []float64) []string {
		out := make([]string, len(vals))
		for i, r := range vals {
			out[i] = fmt.Sprintf("%.2f%%", r)
		}
		return out
	}

	if len(returns) > 20 {
		parts := append(format(returns[:10]), "...")
		parts = append(parts, format(returns[len(returns)-10:])...)
		return "Daily percentage returns (first 10 and last 10): " + strings.Join(parts, ", ")
	}
	return "Daily percentage returns: " + strings.Join(format(returns), ", ")
}

// NewReturnsTool exposes percentage-return computation as an agent tool.
func NewReturnsTool() Tool {
	return NewTool(
		"percent_returns",
		`Compute daily percentage returns from a numeric price series. Arguments: {"prices": [100.0, 102.5, 101.0]}. Returns a readable summary of the return series.`,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Prices []float64 `json:"prices"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("invalid arguments: prices must be numbers: %w", err)
			}
			returns, err := PercentReturns(in.Prices)
			if err != nil {
				return "", err
			}
			return FormatReturns(returns), nil
		})
}
