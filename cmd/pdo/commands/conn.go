package commands

import (
	"context"

	"github.com/koustreak/pdo/internal/config"
	"github.com/koustreak/pdo/internal/connections"
	"github.com/koustreak/pdo/internal/database"
	"github.com/spf13/cobra"
)

var (
	// Connection flags, shared by every command that talks to a database
	connName string
	dsnFlag  string
	userFlag string
	passFlag string
)

func addConnFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&connName, "conn", "c", config.DefaultConnection, "Named connection from the config file")
	cmd.Flags().StringVar(&dsnFlag, "dsn", "", "Data source name, e.g. sqlite:/tmp/app.db (overrides --conn)")
	cmd.Flags().StringVarP(&userFlag, "user", "u", "", "Database user (with --dsn)")
	cmd.Flags().StringVarP(&passFlag, "password", "p", "", "Database password (with --dsn)")
}

// openConn opens the connection selected by the connection flags.
// The caller closes the returned manager.
func openConn(ctx context.Context) (*connections.Conn, *connections.Manager, error) {
	name, dbCfg, err := selectedConfig()
	if err != nil {
		return nil, nil, err
	}

	mgr := connections.NewManager(registry, map[string]*database.Config{name: dbCfg})
	c, err := mgr.Get(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return c, mgr, nil
}

func selectedConfig() (string, *database.Config, error) {
	if dsnFlag != "" {
		dbCfg := database.DefaultConfig(dsnFlag)
		dbCfg.User = userFlag
		dbCfg.Password = passFlag
		return "dsn", dbCfg, nil
	}
	dbCfg, err := cfg.Connection(connName)
	if err != nil {
		return "", nil, err
	}
	return connName, dbCfg, nil
}
