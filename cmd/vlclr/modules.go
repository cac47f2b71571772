// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mfkl/vlclr/internal/config"
	"github.com/mfkl/vlclr/internal/logging"
	"github.com/mfkl/vlclr/internal/plugin"
)

// NewModulesCmd creates the modules subcommand.
func NewModulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the modules found in the modules directory",
		Long: `Modules reads every module descriptor in the modules directory and lists
the valid ones in the order they are preferred: highest score first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			dir, err := cfg.ModulesDir()
			if err != nil {
				return err
			}
			logger := slog.New(logging.NewHandler(logging.HostModule, version, cfg.Log.Format, cfg.SlogLevel(), cmd.ErrOrStderr()))

			found, err := plugin.NewCatalog(dir, plugin.WithCatalogLogger(logger)).Discover(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(found) == 0 {
				_, _ = fmt.Fprintf(out, "no modules in %s\n", dir)
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tCAPABILITY\tSCORE\tLIBRARY\tSHORTCUTS")
			for _, m := range found {
				d := m.Descriptor
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
					d.Name, d.Capability, d.Score, d.Library, strings.Join(d.Shortcuts, ","))
			}
			return w.Flush()
		},
	}
}
