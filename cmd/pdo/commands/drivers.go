package commands

import (
	"github.com/koustreak/pdo/cmd/pdo/output"
	"github.com/spf13/cobra"
)

// driversCmd lists the drivers compiled into the binary
var driversCmd = &cobra.Command{
	Use:   "drivers",
	Short: "List available database drivers",
	Long: `List the database drivers available in this binary, in registration order.

Examples:
  pdo drivers
  pdo drivers --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDrivers(output.New(cmd.OutOrStdout()))
	},
}

func init() {
	rootCmd.AddCommand(driversCmd)
}

func runDrivers(p *output.Printer) error {
	names := registry.Drivers()

	if jsonOutput {
		return p.JSON(map[string]any{"drivers": names})
	}

	if len(names) == 0 {
		p.Warning("no drivers available")
		return nil
	}
	p.Section("Available drivers")
	for _, name := range names {
		p.Bullet(name)
	}
	return nil
}
