package commands

import (
	"time"

	"github.com/koustreak/pdo/cmd/pdo/output"
	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that a database is reachable",
	Long: `Open a connection and ping it.

Examples:
  pdo ping --conn main
  pdo ping --dsn "pgsql:host=localhost;dbname=app" -u app -p secret`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := output.New(cmd.OutOrStdout())

		start := time.Now()
		c, mgr, err := openConn(cmd.Context())
		if err != nil {
			return err
		}
		defer mgr.Close()

		if err := c.DB.Ping(cmd.Context()); err != nil {
			return err
		}
		elapsed := time.Since(start)

		if jsonOutput {
			return p.JSON(map[string]any{
				"connection": c.Name,
				"driver":     c.Driver.Name,
				"latency_ms": elapsed.Milliseconds(),
			})
		}
		p.Success("%s (%s) is reachable in %s", c.Name, c.Driver.Name, elapsed.Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
	addConnFlags(pingCmd)
}
