// wealthctl renders dashboard charts and reports from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/simplainvest/wealthboard/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "wealthctl",
		Short: "Wealth dashboard charts and reports",
		Long: `wealthctl computes the dashboard chart geometry from JSON input and
prints the current dashboard as a terminal report.

Settings come from flags, a config file (--config) or WEALTHCTL_* environment
variables, in that order of precedence.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().String("log-level", "warn", "log level (trace, debug, info, warn, error)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newRenderCmd())
	root.AddCommand(newSummaryCmd(opts))
	return root
}

type rootOptions struct {
	configFile string
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wealthctl %s\n", server.Version)
		},
	}
}
