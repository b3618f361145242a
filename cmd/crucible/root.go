// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "crucible",
	Short: "Crucible - LLM-driven business idea validation service",
	Long: `Crucible runs business ideas through a three-stage validation
pipeline: market research, experiment generation and marketing
campaign planning. Each stage is executed by an LLM agent and the
results are exposed over a REST API.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./crucible.yaml)")
}
