package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/koustreak/pdo/cmd/pdo/output"
	"github.com/koustreak/pdo/internal/config"
	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/drivers"
	"github.com/koustreak/pdo/internal/logger"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	logLevel   string
	jsonOutput bool

	// Set up by PersistentPreRunE
	cfg      *config.Config
	registry *database.Registry
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pdo",
	Short: "pdo - one data-access layer for PostgreSQL, MySQL and SQLite",
	Long: `pdo talks to PostgreSQL, MySQL and SQLite through a single driver registry
using PDO-style data source names:

  pgsql:host=localhost;port=5432;dbname=app
  mysql:host=localhost;dbname=app;charset=utf8mb4
  sqlite:/var/lib/app.db   or   sqlite::memory:

Connections come from the config file (--config, --conn) or directly from
--dsn/--user/--password. Database errors report their SQLSTATE and driver
error info.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(output.New(os.Stderr), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

func setup() error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
		if err := c.Validate(); err != nil {
			return err
		}
	}
	logger.SetGlobal(logger.New(c.LoggerConfig()))

	r, err := drivers.Default()
	if err != nil {
		return err
	}

	cfg, registry = c, r
	return nil
}

// printError reports err, adding SQLSTATE and driver error info for
// database errors.
func printError(p *output.Printer, err error) {
	p.Error("%v", err)

	var dbErr *database.DBError
	if !errors.As(err, &dbErr) {
		return
	}
	if code := dbErr.Code(); !code.IsZero() {
		p.Muted("  code:       %s", code)
	}
	if info := dbErr.ErrorInfo(); info != nil {
		p.Muted("  error info: %s", formatInfo(info))
	}
}

func formatInfo(info database.ErrorInfo) string {
	return fmt.Sprintf("[%v, %v, %q]", info.SQLState(), info.DriverCode(), info.DriverMessage())
}
