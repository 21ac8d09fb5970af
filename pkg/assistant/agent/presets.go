package agent

import (
	"github.com/MattX76/finassist/pkg/assistant/llm"
	"github.com/MattX76/finassist/pkg/assistant/tool"
)

// Routing names of the stock agents.
const (
	AssetInfoName      = "asset_info_agent"
	HistoricalDataName = "historical_data_agent"
	AnalysisName       = "analysis_visualization_agent"
)

const assetInfoRole = `You are a financial asset information specialist. You answer questions
about what an asset is: its name, description, launch or first-listing
date, and when its data was last updated. Use coin_info for
cryptocurrencies identified by CoinGecko id (e.g. "bitcoin") and
ticker_info for stocks and tickers (e.g. "AAPL", "ETH-USD"). Do not
fetch price history and do not speculate about prices.`

const historicalDataRole = `You are a price history specialist. You fetch daily OHLC/OHLCV bars for
assets: coin_history for cryptocurrencies by CoinGecko id, ticker_history
for stocks and tickers. Report the data clearly. You do not produce
charts and you do not compute derived statistics; other specialists do.`

const analysisRole = `You are a market data analysis and visualization specialist. You compute
percentage returns from price series, render line charts of prices or
returns as PNG files, export records to JSON files, and persist daily
price bars to the historical prices database. When the user wants a
chart of an asset, use price_chart directly with the ticker.`

// NewAssetInfoAgent builds the asset metadata agent.
func NewAssetInfoAgent(model llm.Client, coingecko *tool.CoinGecko, yahoo *tool.Yahoo, opts ...Option) *Agent {
	return New(
		AssetInfoName,
		"Looks up what an asset is: name, description, launch date, last update. Handles both cryptocurrencies and stock tickers.",
		assetInfoRole,
		model,
		[]tool.Tool{
			tool.NewCoinInfoTool(coingecko),
			tool.NewTickerInfoTool(yahoo),
		},
		opts...,
	)
}

// NewHistoricalDataAgent builds the price history agent. It has no chart
// or analysis tools: it reports raw data only.
func NewHistoricalDataAgent(model llm.Client, coingecko *tool.CoinGecko, yahoo *tool.Yahoo, opts ...Option) *Agent {
	return New(
		HistoricalDataName,
		"Fetches daily OHLC/OHLCV price history for cryptocurrencies and stock tickers over a lookback window.",
		historicalDataRole,
		model,
		[]tool.Tool{
			tool.NewCoinHistoryTool(coingecko),
			tool.NewTickerHistoryTool(yahoo),
		},
		opts...,
	)
}

// NewAnalysisAgent builds the analysis and visualization agent. The
// price store is optional; without it the persistence tool is omitted.
func NewAnalysisAgent(model llm.Client, yahoo *tool.Yahoo, renderer *tool.ChartRenderer, store *tool.PriceStore, exportDir string, opts ...Option) *Agent {
	tools := []tool.Tool{
		tool.NewReturnsTool(),
		tool.NewPriceChartTool(yahoo, renderer),
		tool.NewReturnsChartTool(renderer),
		tool.NewExportJSONTool(exportDir),
	}
	if store != nil {
		tools = append(tools, tool.NewSaveHistoryTool(store))
	}
	return New(
		AnalysisName,
		"Computes percentage returns, renders price and return line charts to PNG, exports data to JSON, and saves price history to the database.",
		analysisRole,
		model,
		tools,
		opts...,
	)
}
