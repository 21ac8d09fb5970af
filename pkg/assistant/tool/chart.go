package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// unsafeFileChars strips anything that shouldn't end up in an artifact name.
var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ChartRenderer renders line charts to PNG files under a fixed directory.
type ChartRenderer struct {
	dir string
}

// NewChartRenderer creates a renderer writing into dir, creating it if needed.
func NewChartRenderer(dir string) (*ChartRenderer, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart directory: %w", err)
	}
	return &ChartRenderer{dir: dir}, nil
}

// RenderSeries plots values as a line chart and writes a PNG.
// labels, when non-empty, provides x-axis tick labels (one per value; at
// most 10 are shown). Returns the path of the written file.
func (r *ChartRenderer) RenderSeries(title, xLabel, yLabel, fileName string, values []float64, labels []string) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("no values to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return "", fmt.Errorf("build line: %w", err)
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.Color = color.RGBA{R: 0, G: 128, B: 128, A: 255}
	p.Add(line)

	if len(labels) == len(values) {
		p.X.Tick.Marker = dateTicks(labels)
	}

	name := unsafeFileChars.ReplaceAllString(fileName, "_")
	if !strings.HasSuffix(strings.ToLower(name), ".png") {
		name += ".png"
	}
	path := filepath.Join(r.dir, name)

	if err := p.Save(12*vg.Inch, 7*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save chart: %w", err)
	}
	return path, nil
}

// dateTicks labels the x axis with at most 10 evenly spaced entries.
type dateTicks []string

// Ticks implements plot.Ticker.
func (d dateTicks) Ticks(min, max float64) []plot.Tick {
	if len(d) == 0 {
		return nil
	}
	stride := len(d) / 10
	if stride < 1 {
		stride = 1
	}
	var ticks []plot.Tick
	for i := 0; i < len(d); i += stride {
		x := float64(i)
		if x < min || x > max {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: x, Label: d[i]})
	}
	return ticks
}

// NewPriceChartTool renders one price column of a ticker's recent history.
// History comes from the Yahoo client so the tool is self-contained: the
// model supplies only ticker, window, and column.
func NewPriceChartTool(client *Yahoo, renderer *ChartRenderer) Tool {
	return NewTool(
		"price_chart",
		`Fetch recent history for a ticker and render a PNG line chart of one column. Arguments: {"ticker": "ETH-USD", "days": 90, "column": "Close"}. Column is one of Open, High, Low, Close, Volume (default Close). Returns the chart file path.`,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Ticker string `json:"ticker"`
				Days   int    `json:"days"`
				Column string `json:"column"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if in.Ticker == "" {
				return "", fmt.Errorf("ticker is required")
			}
			if in.Days <= 0 {
				in.Days = 30
			}
			if in.Column == "" {
				in.Column = "Close"
			}

			bars, err := client.TickerHistory(ctx, in.Ticker, in.Days)
			if err != nil {
				return "", err
			}

			values := make([]float64, 0, len(bars))
			labels := make([]string, 0, len(bars))
			for _, b := range bars {
				v, err := barColumn(b, in.Column)
				if err != nil {
					return "", err
				}
				values = append(values, v)
				labels = append(labels, b.Date)
			}

			title := fmt.Sprintf("%s %s (last %d days)", in.Ticker, in.Column, in.Days)
			file := fmt.Sprintf("chart_%s_%s", in.Ticker, in.Column)
			return renderer.RenderSeries(title, "Date", in.Column+" (USD)", file, values, labels)
		})
}

// barColumn extracts a named column from a bar.
func barColumn(b Bar, column string) (float64, error) {
	switch strings.ToLower(column) {
	case "open":
		return b.Open, nil
	case "high":
		return b.High, nil
	case "low":
		return b.Low, nil
	case "close":
		return b.Close, nil
	case "volume":
		if b.Volume == nil {
			return 0, fmt.Errorf("volume not available for this series")
		}
		return float64(*b.Volume), nil
	default:
		return 0, fmt.Errorf("unknown column %q: use Open, High, Low, Close, or Volume", column)
	}
}

// NewReturnsChartTool renders a supplied return series as a PNG line chart.
func NewReturnsChartTool(renderer *ChartRenderer) Tool {
	return NewTool(
		"returns_chart",
		`Render a PNG line chart of a percentage-return series. Arguments: {"returns": [0.0, 1.2, -0.8], "title": "optional title"}. Returns the chart file path.`,
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Returns []float64 `json:"returns"`
				Title   string    `json:"title"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return "", fmt.Errorf("invalid arguments: returns must be numbers: %w", err)
			}
			if len(in.Returns) == 0 {
				return "", fmt.Errorf("returns series is empty")
			}
			if in.Title == "" {
				in.Title = "Percentage returns"
			}
			return renderer.RenderSeries(in.Title, "Period", "Return (%)", "chart_returns", in.Returns, nil)
		})
}
