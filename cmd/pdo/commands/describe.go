package commands

import (
	"strconv"

	"github.com/koustreak/pdo/cmd/pdo/output"
	"github.com/koustreak/pdo/internal/schema"
	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe TABLE",
	Short: "Show the columns and foreign keys of a table",
	Long: `Show the columns and foreign keys of a table.

Examples:
  pdo describe users --conn main
  pdo describe users --dsn sqlite:app.db --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := output.New(cmd.OutOrStdout())

		c, mgr, err := openConn(cmd.Context())
		if err != nil {
			return err
		}
		defer mgr.Close()

		inspector, err := schema.For(c.DB)
		if err != nil {
			return err
		}
		ctx, cancel := c.WithQueryTimeout(cmd.Context())
		defer cancel()

		info, err := inspector.InspectTable(ctx, args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			return p.JSON(info)
		}
		printTableInfo(p, info)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	addConnFlags(describeCmd)
}

func printTableInfo(p *output.Printer, info *schema.TableInfo) {
	p.Section("Table " + info.Name)

	rows := make([][]string, 0, len(info.Columns))
	for _, col := range info.Columns {
		typ := col.DataType
		if col.MaxLength != nil {
			typ += "(" + strconv.FormatInt(*col.MaxLength, 10) + ")"
		}
		def := ""
		if col.Default != nil {
			def = *col.Default
		}
		rows = append(rows, []string{col.Name, typ, yesNo(col.Nullable), yesNo(col.PrimaryKey), def})
	}
	_ = p.Table([]string{"COLUMN", "TYPE", "NULL", "PK", "DEFAULT"}, rows)

	if len(info.ForeignKeys) == 0 {
		return
	}
	p.Section("Foreign keys")
	for _, fk := range info.ForeignKeys {
		p.Bullet(fk.Name + ": " + fk.Column + " → " + fk.RefTable + "." + fk.RefColumn)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
