package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/koustreak/pdo/internal/connections"
	"github.com/koustreak/pdo/internal/database"
	"github.com/koustreak/pdo/internal/filestore/minio"
	"github.com/koustreak/pdo/internal/logger"
	"github.com/koustreak/pdo/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve drivers and configured connections over HTTP",
	Long: `Start the read-only JSON API:

  GET  /drivers
  GET  /healthz
  GET  /connections/
  GET  /connections/{name}/ping
  GET  /connections/{name}/tables
  GET  /connections/{name}/tables/{table}?limit=&offset=
  GET  /connections/{name}/tables/{table}/schema
  POST /connections/{name}/tables/{table}/export?format=&limit=&presign=

Connections are opened on first use and closed on shutdown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := logger.Global()

		configs := make(map[string]*database.Config, len(cfg.Connections))
		for _, name := range cfg.ConnectionNames() {
			configs[name] = cfg.Connections[name].Database()
		}
		mgr := connections.NewManager(registry, configs)
		defer mgr.Close()

		opts := server.Options{
			Registry:     registry,
			Connections:  mgr,
			Logger:       log,
			MaxRows:      cfg.Server.MaxRows,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		if fsCfg := cfg.FileStoreConfig(); fsCfg.Enabled() {
			store, err := minio.New(ctx, fsCfg)
			if err != nil {
				log.ErrorWith("object storage unavailable, exports disabled", err, map[string]any{"endpoint": fsCfg.Endpoint})
			} else {
				opts.Store = store
				opts.Bucket = fsCfg.Bucket
				defer store.Close()
			}
		}

		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		return server.New(opts).ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
}
