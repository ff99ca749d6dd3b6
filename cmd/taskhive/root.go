// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskhive Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Taskhive CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskhive",
		Short: "Taskhive - task management auth and session service",
		Long: `Taskhive runs the authentication and session lifecycle service:
user accounts in PostgreSQL, sessions and one-time codes in Redis,
and signed access tokens for the task API.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
