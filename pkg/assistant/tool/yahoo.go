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

const yahooBaseURL = "https://query1.finance.yahoo.com"

// Yahoo is an HTTP client for the Yahoo Finance v8 chart API.
// It serves both equities and crypto pairs addressed by ticker
// (e.g. "AAPL", "BTC-USD").
type Yahoo struct {
	baseURL    string
	httpClient *http.Client
}

// YahooOption configures the Yahoo client.
type YahooOption func(*Yahoo)

// WithYahooBaseURL overrides the API base URL (used in tests).
func WithYahooBaseURL(url string) YahooOption {
	return func(y *Yahoo) { y.baseURL = strings.TrimRight(url, "/") }
}

// WithYahooTimeout sets the per-request timeout.
func WithYahooTimeout(d time.Duration) YahooOption {
	return func(y *Yahoo) { y.httpClient.Timeout = d }
}

// NewYahoo creates a Yahoo Finance client with a 10s default timeout.
func NewYahoo(opts ...YahooOption) *Yahoo {
	y := &Yahoo{
		baseURL:    yahooBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// chartPayload mirrors the fields of the v8 chart response this package reads.
type chartPayload struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string  `json:"symbol"`
				ShortName            string  `json:"shortName"`
				LongName             string  `json:"longName"`
				FirstTradeDate       int64   `json:"firstTradeDate"`
				RegularMarketTime    int64   `json:"regularMarketTime"`
				RegularMarketPrice   float64 `json:"regularMarketPrice"`
				ExchangeTimezoneName string  `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// TickerInfo fetches descriptive metadata for a ticker: display name,
// first trade date, and last market update. The chart API carries no
// business summary, so Description falls back to a fixed notice.
func (y *Yahoo) TickerInfo(ctx context.Context, ticker string) (*AssetInfo, error) {
	payload, err := y.chart(ctx, ticker, "max", "1mo")
	if err != nil {
		return nil, err
	}
	meta := payload.Chart.Result[0].Meta

	info := &AssetInfo{
		Name:        meta.LongName,
		Description: "Not available.",
		Launched:    "Not available",
		LastUpdated: "Not available",
	}
	if info.Name == "" {
		info.Name = meta.ShortName
	}
	if info.Name == "" {
		info.Name = meta.Symbol
	}
	if meta.FirstTradeDate > 0 {
		info.Launched = time.Unix(meta.FirstTradeDate, 0).UTC().Format("2006-01-02")
	}
	if meta.RegularMarketTime > 0 {
		info.LastUpdated = time.Unix(meta.RegularMarketTime, 0).UTC().Format("2006-01-02")
	}
	return info, nil
}

// TickerHistory fetches the most recent `days` daily OHLCV bars.
func (y *Yahoo) TickerHistory(ctx context.Context, ticker string, days int) ([]Bar, error) {
	if days <= 0 {
		days = 30
	}

	payload, err := y.chart(ctx, ticker, rangeForDays(days), "1d")
	if err != nil {
		return nil, err
	}
	result := payload.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no history found for ticker %q", ticker)
	}

	quote := result.Indicators.Quote[0]
	var adj []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Yahoo pads series with nulls for halted days; skip them.
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		bar := Bar{
			Date:  time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Close: *quote.Close[i],
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			bar.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			bar.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			bar.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = quote.Volume[i]
		}
		if i < len(adj) && adj[i] != nil {
			bar.AdjClose = adj[i]
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no usable bars for ticker %q", ticker)
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// rangeForDays maps a lookback window onto the chart API's range values.
func rangeForDays(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	default:
		return "max"
	}
}

// chart performs a v8 chart request and validates the envelope.
func (y *Yahoo) chart(ctx context.Context, ticker, rng, interval string) (*chartPayload, error) {
	query := url.Values{"range": {rng}, "interval": {interval}}
	u := y.baseURL + "/v8/finance/chart/" + url.PathEscape(ticker) + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "finassist/1.0")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("yahoo status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload chartPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode yahoo response: %w", err)
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo error %s: %s", payload.Chart.Error.Code, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("ticker %q not found", ticker)
	}
	return &payload, nil
}

// NewTickerInfoTool exposes TickerInfo as an agent tool.
func NewTickerInfoTool(client *Yahoo) Tool {
	return NewTool(
		"ticker_info",
		`Look up name, first listed date, and last update for a stock or crypto pair by Yahoo Finance ticker. Arguments: {"ticker": "BTC-USD"}. Returns a JSON object.`,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Ticker string `json:"ticker"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if in.Ticker == "" {
				return "", fmt.Errorf("ticker is required")
			}
			info, err := client.TickerInfo(ctx, in.Ticker)
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

// NewTickerHistoryTool exposes TickerHistory as an agent tool.
func NewTickerHistoryTool(client *Yahoo) Tool {
	return NewTool(
		"ticker_history",
		`Fetch daily OHLCV history for a stock or crypto pair by Yahoo Finance ticker. Arguments: {"ticker": "AAPL", "days": 30}. Returns a JSON array of bars.`,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Ticker string `json:"ticker"`
				Days   int    `json:"days"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if in.Ticker == "" {
				return "", fmt.Errorf("ticker is required")
			}
			bars, err := client.TickerHistory(ctx, in.Ticker, in.Days)
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
