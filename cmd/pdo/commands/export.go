package commands

import (
	"time"

	"github.com/koustreak/pdo/cmd/pdo/output"
	"github.com/koustreak/pdo/internal/errs"
	"github.com/koustreak/pdo/internal/export"
	"github.com/koustreak/pdo/internal/filestore/minio"
	"github.com/spf13/cobra"
)

var (
	// Export flags
	exportTable   string
	exportQuery   string
	exportLimit   int
	exportFormat  string
	exportKey     string
	exportBucket  string
	exportPresign time.Duration
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a table or query result to object storage",
	Long: `Run a query (or read a whole table) and upload the rows as JSON to the
configured object store.

Examples:
  pdo export --table users --conn main
  pdo export --query "SELECT * FROM orders WHERE total > 100" --format ndjson
  pdo export --table users --presign 15m --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := output.New(cmd.OutOrStdout())
		ctx := cmd.Context()

		fsCfg := cfg.FileStoreConfig()
		if !fsCfg.Enabled() {
			return errs.New(errs.ErrKindInvalidInput, "filestore is not configured (set filestore.endpoint or PDO_FILESTORE_ENDPOINT)")
		}
		if exportBucket != "" {
			fsCfg.Bucket = exportBucket
		}
		if err := fsCfg.Validate(); err != nil {
			return err
		}

		store, err := minio.New(ctx, fsCfg)
		if err != nil {
			return err
		}
		defer store.Close()

		c, mgr, err := openConn(ctx)
		if err != nil {
			return err
		}
		defer mgr.Close()

		res, err := export.New(c.DB, c.Driver.Dialect, store, fsCfg.Bucket).Export(ctx, export.Request{
			Table:      exportTable,
			Limit:      exportLimit,
			Query:      exportQuery,
			Format:     export.Format(exportFormat),
			Key:        exportKey,
			PresignTTL: exportPresign,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return p.JSON(res)
		}
		p.Success("exported %d rows to %s/%s (%d bytes)", res.Rows, res.Object.Bucket, res.Object.Key, res.Object.Size)
		if res.URL != "" {
			p.Info("download: %s", res.URL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	addConnFlags(exportCmd)

	exportCmd.Flags().StringVarP(&exportTable, "table", "t", "", "Table to export")
	exportCmd.Flags().StringVarP(&exportQuery, "query", "q", "", "Query to export instead of a table")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "Maximum rows for a table export (0 = all)")
	exportCmd.Flags().StringVar(&exportFormat, "format", string(export.FormatJSON), "Output format: json or ndjson")
	exportCmd.Flags().StringVar(&exportKey, "key", "", "Object key (default <driver>/<table>-<timestamp>.<format>)")
	exportCmd.Flags().StringVar(&exportBucket, "bucket", "", "Bucket override")
	exportCmd.Flags().DurationVar(&exportPresign, "presign", 0, "Also print a download URL valid for this long")
	exportCmd.MarkFlagsMutuallyExclusive("table", "query")
}
