package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const coinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// validOHLCDays are the lookback windows the CoinGecko /ohlc endpoint
// accepts. Other values fall back to 30.
var validOHLCDays = map[int]bool{1: true, 7: true, 14: true, 30: true, 90: true, 180: true, 365: true}

// CoinGecko is an HTTP client for the CoinGecko v3 API.
type CoinGecko struct {
	baseURL    string
	httpClient *http.Client
}

// CoinGeckoOption configures the CoinGecko client.
type CoinGeckoOption func(*CoinGecko)

// WithCoinGeckoBaseURL overrides the API base URL (used in tests).
func WithCoinGeckoBaseURL(url string) CoinGeckoOption {
	return func(c *CoinGecko) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithCoinGeckoTimeout sets the per-request timeout.
func WithCoinGeckoTimeout(d time.Duration) CoinGeckoOption {
	return func(c *CoinGecko) { c.httpClient.Timeout = d }
}

// NewCoinGecko creates a CoinGecko client with a 10s default timeout.
func NewCoinGecko(opts ...CoinGeckoOption) *CoinGecko {
	c := &CoinGecko{
		baseURL:    coinGeckoBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AssetInfo holds descriptive metadata for an asset.
type AssetInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Launched    string `json:"launched"`
	LastUpdated string `json:"last_updated"`
}

// CoinInfo fetches name, description, genesis date, and last-updated
// timestamp for a coin by its CoinGecko id (e.g. "bitcoin").
func (c *CoinGecko) CoinInfo(ctx context.Context, coinID string) (*AssetInfo, error) {
	var payload struct {
		Name        string `json:"name"`
		Description struct {
			En string `json:"en"`
		} `json:"description"`
		GenesisDate string `json:"genesis_date"`
		LastUpdated string `json:"last_updated"`
	}
	if err := c.getJSON(ctx, "/coins/"+url.PathEscape(coinID), nil, &payload); err != nil {
		return nil, err
	}

	info := &AssetInfo{
		Name:        payload.Name,
		Description: strings.TrimSpace(payload.Description.En),
		Launched:    payload.GenesisDate,
		LastUpdated: payload.LastUpdated,
	}
	if info.Name == "" {
		info.Name = "Not available"
	}
	if info.Description == "" {
		info.Description = "No description."
	}
	info.Description = truncate(info.Description, 500)
	if info.Launched == "" {
		info.Launched = "Not available"
	}
	if info.LastUpdated == "" {
		info.LastUpdated = "Not available"
	}
	return info, nil
}

// CoinHistory fetches daily OHLC bars for the last `days` days. CoinGecko's
// OHLC endpoint carries no volume, so Volume is nil on every bar. Invalid
// windows snap to 30 days.
func (c *CoinGecko) CoinHistory(ctx context.Context, coinID string, days int) ([]Bar, error) {
	if !validOHLCDays[days] {
		days = 30
	}

	var raw [][]float64
	query := url.Values{"vs_currency": {"usd"}, "days": {fmt.Sprint(days)}}
	if err := c.getJSON(ctx, "/coins/"+url.PathEscape(coinID)+"/ohlc", query, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no history found for %q over the last %d days", coinID, days)
	}

	bars := make([]Bar, 0, len(raw))
	for _, row := range raw {
		if len(row) < 5 {
			continue
		}
		bars = append(bars, Bar{
			Date:  time.UnixMilli(int64(row[0])).UTC().Format("2006-01-02"),
			Open:  row[1],
			High:  row[2],
			Low:   row[3],
			Close: row[4],
		})
	}
	return bars, nil
}

// getJSON performs a GET and decodes the JSON response into out.
func (c *CoinGecko) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("coingecko request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("coingecko status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode coingecko response: %w", err)
	}
	return nil
}

// NewCoinInfoTool exposes CoinInfo as an agent tool.
func NewCoinInfoTool(client *CoinGecko) Tool {
	return NewTool(
		"coin_info",
		`Look up name, description, launch date, and last update of a cryptocurrency by its CoinGecko id. Arguments: {"coin_id": "bitcoin"}. Returns a JSON object.`,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				CoinID string `json:"coin_id"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if in.CoinID == "" {
				return "", fmt.Errorf("coin_id is required")
			}
			info, err := client.CoinInfo(ctx, in.CoinID)
			if err != nil {
				return "", err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return "", err
			}
			return string(out), nil
		})
}

// NewCoinHistoryTool exposes CoinHistory as an agent tool.
func NewCoinHistoryTool(client *CoinGecko) Tool {
	return NewTool(
		"coin_history",
		`Fetch daily OHLC history for a cryptocurrency by CoinGecko id. Arguments: {"coin_id": "ethereum", "days": 90}. Valid windows: 1, 7, 14, 30, 90, 180, 365 (others snap to 30). Returns a JSON array of bars; volume is not available.`,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				CoinID string `json:"coin_id"`
				Days   int    `json:"days"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if in.CoinID == "" {
				return "", fmt.Errorf("coin_id is required")
			}
			bars, err := client.CoinHistory(ctx, in.CoinID, in.Days)
			if err != nil {
				return "", err
			}
			out, err := json.Marshal(bars)
			if err != nil {
				return "", err
			}
			return string(out), nil
		})
}
