package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MattX76/finassist/pkg/assistant"
	"github.com/MattX76/finassist/pkg/assistant/agent"
	"github.com/MattX76/finassist/pkg/assistant/checkpoint"
	"github.com/MattX76/finassist/pkg/assistant/config"
	"github.com/MattX76/finassist/pkg/assistant/llm"
	"github.com/MattX76/finassist/pkg/assistant/observability"
	"github.com/MattX76/finassist/pkg/assistant/tool"
)

const rootLongDesc = `finassist is an interactive financial-data assistant.

A supervisor routes each request to a specialized agent:
  asset_info_agent              what an asset is (CoinGecko, Yahoo Finance)
  historical_data_agent         daily OHLC/OHLCV price history
  analysis_visualization_agent  returns, PNG charts, JSON export, database saves

Conversations are checkpointed per node, so a session survives restarts:
rerun with the same --session to continue where you left off.

Examples:
  finassist
  finassist --config finassist.yaml --session portfolio-review`

type rootCommander struct {
	configPath string
	sessionID  string
	debug      bool
}

func newRootCmd() *cobra.Command {
	cmder := &rootCommander{}

	cmd := &cobra.Command{
		Use:           "finassist",
		Short:         "Interactive multi-agent financial-data assistant",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Session id to continue (default: a new random session)")
	cmd.Flags().BoolVarP(&cmder.debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func (c *rootCommander) run(ctx context.Context) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	level := parseLevel(cfg.LogLevel)
	if c.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	apiKey := cfg.APIKey()
	if apiKey == "" {
		return fmt.Errorf("no API key: set %s", cfg.Model.APIKeyEnv)
	}

	modelOpts := []llm.OpenAIOption{
		llm.WithModel(cfg.Model.Name),
		llm.WithTimeout(time.Duration(cfg.Model.Timeout)),
	}
	if cfg.Model.BaseURL != "" {
		modelOpts = append(modelOpts, llm.WithBaseURL(cfg.Model.BaseURL))
	}
	model, err := llm.NewOpenAIClient(apiKey, modelOpts...)
	if err != nil {
		return err
	}

	store, err := checkpoint.NewSQLiteStore(cfg.SessionDB)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	renderer, err := tool.NewChartRenderer(cfg.ChartDir)
	if err != nil {
		return err
	}

	coingecko := tool.NewCoinGecko()
	yahoo := tool.NewYahoo()

	var priceStore *tool.PriceStore
	if cfg.PriceDB != "" {
		ps, db, err := tool.OpenPostgres(ctx, cfg.PriceDB)
		if err != nil {
			return err
		}
		defer db.Close()
		priceStore = ps
	}

	asst, err := assistant.New().
		WithModel(model).
		WithModelName(cfg.Model.Name).
		AddAgent(agent.NewAssetInfoAgent(model, coingecko, yahoo)).
		AddAgent(agent.NewHistoricalDataAgent(model, coingecko, yahoo)).
		AddAgent(agent.NewAnalysisAgent(model, yahoo, renderer, priceStore, cfg.ExportDir)).
		WithCheckpointStore(store).
		WithLogger(logger).
		WithMetrics(observability.NewMetricsRecorder()).
		WithSpans(observability.NewSpanManager()).
		WithMaxSteps(cfg.MaxSteps).
		Build()
	if err != nil {
		return err
	}

	sessionID := c.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return chatLoop(ctx, asst, sessionID, os.Stdin, os.Stdout)
}

// chatLoop reads utterances until EOF, /exit, or cancellation.
func chatLoop(ctx context.Context, asst *assistant.Assistant, sessionID string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "session: %s\n", sessionID)
	fmt.Fprintln(out, "Type your request and press Enter. /exit or Ctrl+D to quit.")
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		default:
		}

		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		result, err := asst.Process(ctx, sessionID, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		fmt.Fprintf(out, "assistant> %s\n", result.FinalText)
		for _, artifact := range result.Outputs {
			fmt.Fprintf(out, "  artifact: %s\n", artifact)
		}
		fmt.Fprintln(out)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	fmt.Fprintln(out)
	return nil
}

// parseLevel maps config log levels onto slog levels.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
