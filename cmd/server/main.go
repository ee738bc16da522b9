// Package main is the entry point for the effect-runtime CLI
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "effect-runtime",
	Short: "Attribute and effect runtime",
	Long:  `effect-runtime hosts the attribute/effect rules engine: bounded combat attributes, timed and ongoing effects, and region-driven effect agents.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}
