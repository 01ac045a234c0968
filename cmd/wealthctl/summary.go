package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/simplainvest/wealthboard/internal/di"
	"github.com/simplainvest/wealthboard/pkg/logger"
)

var errNoDashboard = errors.New("no dashboard data could be loaded")

func newSummaryCmd(opts *rootOptions) *cobra.Command {
	var (
		plain bool
		style string
		width int
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Load the feed and print the dashboard as a report",
		Long: `Fetch the custody and weekly datasets, build every dashboard chart and
print KPI cards, broker distribution, inflow highlights, activity and funnel
conversion. Falls back to cached feed responses when the feed is unreachable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts.configFile)
			if err != nil {
				return err
			}

			log := logger.New(logger.Config{
				Level:  cfg.LogLevel,
				Pretty: true,
				Output: os.Stderr,
			})

			container, _, err := di.Wire(cfg, log)
			if err != nil {
				return err
			}
			defer container.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RefreshTimeout())
			defer cancel()

			if _, err := container.DashboardService.RefreshAll(ctx); err != nil {
				return fmt.Errorf("%w: %v", errNoDashboard, err)
			}

			view, err := container.DashboardService.Dashboard()
			if err != nil {
				return fmt.Errorf("%w: %v", errNoDashboard, err)
			}

			md := view.Markdown()
			if plain {
				_, err := fmt.Fprint(cmd.OutOrStdout(), md)
				return err
			}

			renderer, err := glamour.NewTermRenderer(
				glamour.WithStandardStyle(style),
				glamour.WithWordWrap(width),
			)
			if err != nil {
				return fmt.Errorf("failed to create renderer: %w", err)
			}
			out, err := renderer.Render(md)
			if err != nil {
				return fmt.Errorf("failed to render report: %w", err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}

	flags := cmd.Flags()
	flags.String("data-dir", "./data", "directory for the feed cache database")
	flags.String("feed-url", "", "wealth feed base URL")
	flags.Duration("feed-timeout", 0, "per-request feed timeout")
	flags.Float64("scale-divisor", 0, "unit divisor for monetary feed values")
	flags.String("activity-file", "", "JSON file with gauge and funnel figures")
	flags.BoolVar(&plain, "plain", false, "print raw markdown")
	flags.StringVar(&style, "style", "dark", "glamour style (dark, light, notty, ascii)")
	flags.IntVar(&width, "width", 100, "word wrap width")
	return cmd
}
