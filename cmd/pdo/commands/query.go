package commands

import (
	"sort"

	"github.com/koustreak/pdo/cmd/pdo/output"
	"github.com/koustreak/pdo/internal/database"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query SQL [ARGS...]",
	Short: "Run a query and print the rows",
	Long: `Run a query and print the result set. Extra arguments are bound to the
query's placeholders ($1 for pgsql, ? for mysql and sqlite).

Examples:
  pdo query "SELECT id, email FROM users WHERE id > ?" 10 --dsn sqlite:app.db
  pdo query "SELECT now()" --conn main --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := output.New(cmd.OutOrStdout())

		c, mgr, err := openConn(cmd.Context())
		if err != nil {
			return err
		}
		defer mgr.Close()

		ctx, cancel := c.WithQueryTimeout(cmd.Context())
		defer cancel()

		bind := make([]any, len(args)-1)
		for i, a := range args[1:] {
			bind[i] = a
		}

		rows, err := c.DB.Query(ctx, args[0], bind...)
		if err != nil {
			return err
		}
		columns, err := rows.Columns()
		if err != nil {
			rows.Close()
			return err
		}
		records, err := database.ScanRows(rows)
		if err != nil {
			return err
		}

		if jsonOutput {
			return p.JSON(records)
		}
		printRecords(p, columns, records)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	addConnFlags(queryCmd)
}

func printRecords(p *output.Printer, columns []string, records []map[string]any) {
	if len(columns) == 0 && len(records) > 0 {
		for col := range records[0] {
			columns = append(columns, col)
		}
		sort.Strings(columns)
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = output.Cell(rec[col])
		}
		rows[i] = row
	}
	_ = p.Table(columns, rows)
	p.Muted("(%d rows)", len(records))
}
