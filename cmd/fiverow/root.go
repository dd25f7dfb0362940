// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the fiverow CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fiverow",
		Short: "Fiverow - a five-in-a-row game server",
		Long: `Fiverow serves real-time two-player matches of five-in-a-row
over WebSocket, with token-based authentication backed by PostgreSQL.`,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
