package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	chartshandlers "github.com/simplainvest/wealthboard/internal/modules/charts/handlers"
)

func newRenderCmd() *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "render <kind> [file]",
		Short: "Compute chart geometry from a JSON request",
		Long: fmt.Sprintf(`Compute chart geometry from a JSON request, the same body the
POST /api/charts/<kind> endpoint accepts. The request is read from file, or
from stdin when file is omitted or "-".

Kinds: %s

Examples:
  wealthctl render donut slices.json
  echo '{"value":847,"max":1000}' | wealthctl render gauge`, strings.Join(chartshandlers.Kinds(), ", ")),
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: chartshandlers.Kinds(),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 2 {
				input = args[1]
			}

			data, err := readInput(cmd, input)
			if err != nil {
				return err
			}

			result, err := chartshandlers.Render(args[0], data)
			if err != nil {
				return fmt.Errorf("render %s: %w", args[0], err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(result)
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "print JSON without indentation")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
