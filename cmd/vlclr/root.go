// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/mfkl/vlclr/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the vlclr CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vlclr",
		Short: "vlclr - managed module bridge harness",
		Long: `vlclr loads a managed module the way a media player would and drives
it against an in-memory host: activation, playlist and player events,
variables, and video frames.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/vlclr/config.yaml)")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewActivateCmd(nil))
	cmd.AddCommand(NewFilterCmd(nil))
	cmd.AddCommand(NewModulesCmd())
	cmd.AddCommand(NewSchemaCmd())
	cmd.AddCommand(NewInitCmd())

	return cmd
}
