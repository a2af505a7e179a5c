// Package main provides the reelsmith command-line entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reelsmith",
	Short: "Reelsmith short-form video pipeline",
	Long:  "Reelsmith turns a text prompt into a platform-ready short video through a quality-gated, budget-aware generation pipeline, either as a one-shot CLI run or behind a REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
