// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mfkl/vlclr/internal/config"
	"github.com/mfkl/vlclr/internal/xdg"
)

// NewInitCmd creates the init subcommand.
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the config file and modules directory",
		Long: `Init writes a starter config file (unless one exists) and creates the
modules directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configFile
			if path == "" {
				p, err := xdg.ConfigFile()
				if err != nil {
					return err
				}
				path = p
			}
			if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
				return err
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}

			modules, err := xdg.ModulesDir()
			if err != nil {
				return err
			}
			if err := xdg.EnsureDir(modules); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "config: %s\n", path)
			_, _ = fmt.Fprintf(out, "modules: %s\n", modules)
			return nil
		},
	}
}
