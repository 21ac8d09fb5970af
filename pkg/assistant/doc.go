/*
Package assistant implements the conversation core of the financial-data
assistant: a supervisor-routed graph of tool-using agents with durable
per-node checkpoints.

# Overview

A conversation is a state machine. The supervisor reads the transcript,
asks the model which registered agent should act next (or whether the
answer is already complete), and dispatches. Each agent appends exactly
one reply and hands control back to the supervisor. The turn ends when
the supervisor routes to the terminal node, at which point the newest
user-facing assistant reply becomes the final answer.

# Basic Usage

	model, err := llm.NewOpenAIClient(os.Getenv("OPENAI_API_KEY"))
	if err != nil {
	    log.Fatal(err)
	}

	coingecko := tool.NewCoinGecko()
	yahoo := tool.NewYahoo()

	asst, err := assistant.New().
	    WithModel(model).
	    AddAgent(agent.NewAssetInfoAgent(model, coingecko, yahoo)).
	    AddAgent(agent.NewHistoricalDataAgent(model, coingecko, yahoo)).
	    Build()
	if err != nil {
	    log.Fatal(err)
	}

	result, err := asst.Process(ctx, "session-1", "What is bitcoin?")
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(result.FinalText)

# Sessions and Checkpointing

Every session key maps to one durable conversation. State is snapshotted
after each node execution, so a crash mid-turn loses at most the node
that was running:

	store, err := checkpoint.NewSQLiteStore("./sessions.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

	asst, err := assistant.New().
	    WithModel(model).
	    AddAgent(infoAgent).
	    WithCheckpointStore(store).
	    Build()

Calling Process again with the same session key continues the stored
conversation. Snapshot persistence is load-bearing: a failed save aborts
the turn with a *CheckpointError.

# Routing

The model's routing output is validated before dispatch. A decision that
names no registered agent never reaches one; the turn terminates with a
diagnostic reply instead. Runaway routing loops are bounded by a per-turn
step limit (default 25, see WithMaxSteps).

# Error Handling

Errors carry typed context:

	result, err := asst.Process(ctx, key, utterance)
	var cpErr *assistant.CheckpointError
	if errors.As(err, &cpErr) {
	    log.Printf("persistence failed during %s: %v", cpErr.Op, cpErr.Err)
	}

Agent and provider failures are not Process failures: they surface as
transcript messages so the conversation can continue.

# Thread Safety

  - Builder is NOT safe for concurrent use during construction
  - Assistant IS safe for concurrent use; turns on the same session key
    are serialized, distinct keys run independently

# Subpackages

  - agent: tool-loop agents (asset info, price history, analysis/charts)
  - checkpoint: session snapshot storage (memory, SQLite)
  - config: YAML configuration with environment overrides
  - llm: model client interface and OpenAI-compatible implementation
  - observability: logging, metrics, and tracing helpers
  - prompt: ${var} prompt template expansion
  - registry: generic thread-safe registries for tools and agents
  - tool: market-data, analysis, chart, and persistence tools
*/
package assistant
