package commands

import (
	"github.com/koustreak/pdo/cmd/pdo/output"
	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables of a database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := output.New(cmd.OutOrStdout())

		c, mgr, err := openConn(cmd.Context())
		if err != nil {
			return err
		}
		defer mgr.Close()

		ctx, cancel := c.WithQueryTimeout(cmd.Context())
		defer cancel()

		tables, err := c.DB.ListTables(ctx)
		if err != nil {
			return err
		}

		if jsonOutput {
			return p.JSON(map[string]any{"connection": c.Name, "tables": tables})
		}
		if len(tables) == 0 {
			p.Warning("no tables in %s", c.Name)
			return nil
		}
		p.Section("Tables in " + c.Name)
		for _, t := range tables {
			p.Bullet(t)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	addConnFlags(tablesCmd)
}
