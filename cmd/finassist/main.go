// Command finassist is an interactive multi-agent financial-data
// assistant: asset lookups, price history, charts, and persistence,
// routed by a supervisor over a durable conversation.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
