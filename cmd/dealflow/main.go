// Package main provides the dealflow binary entry point.
// Dealflow is a pitch-analysis pipeline: submissions are ingested into
// structured memos, enriched and validated against public sources, run
// through due-diligence synthesis, and matched to an investor catalog.
package main

import (
	"fmt"
	"os"
	"runtime"

	// Register LLM providers via init()
	_ "github.com/c360studio/dealflow/llm/providers"

	"github.com/c360studio/dealflow/commands"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
