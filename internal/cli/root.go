// Package cli implements the catalogctl command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/arcade-catalog/internal/config"
	"github.com/arcade-catalog/internal/redis"
	"github.com/arcade-catalog/internal/service"
	"github.com/arcade-catalog/internal/storage"
)

// options holds the global flags shared by every command
type options struct {
	configPath string
	dataDir    string
	verbose    bool
}

// NewRootCmd builds the catalogctl command tree
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "catalogctl",
		Short: "Administer the arcade game catalog",
		Long: `catalogctl works directly against the catalog storage the server uses.

The backend is the database when DATABASE_URL (or storage.database_url) is
set, and the JSON files in the data directory otherwise.

Examples:
  catalogctl export -o backup.json
  catalogctl restore backup.json
  catalogctl redirects backfill old-backup.json
  catalogctl publish games.json --brokers localhost:9092`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (defaults apply when empty)")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "override storage.data_dir for the file backend")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newRestoreCmd(opts))
	cmd.AddCommand(newPublishCmd(opts))
	cmd.AddCommand(newRedirectsCmd(opts))
	cmd.AddCommand(newWipeCmd(opts))
	cmd.AddCommand(newSnapshotCmd(opts))

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig reads the config file when one is given and applies flag
// overrides
func (o *options) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if o.configPath == "" {
		if err := config.LoadDotEnv(); err != nil {
			return nil, err
		}
		cfg = config.DefaultConfig()
	} else {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.dataDir != "" {
		cfg.Storage.DataDir = o.dataDir
	}
	return cfg, nil
}

// newLogger logs JSON to w, warnings only unless verbose
func (o *options) newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// session is an opened catalog plus the resources behind it
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *storage.Store
	bus     *redis.EventBus
	service *service.CatalogService
}

func (s *session) Close() {
	if s.bus != nil {
		s.bus.Close()
	}
	s.store.Close()
}

// open loads config and storage. Mutations are announced over Redis when
// fan-out is enabled so running servers refresh their admin clients.
func (o *options) open(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := o.newLogger(cmd.ErrOrStderr())

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger, store: store}
	s.service = service.NewCatalogService(store, nil, &cfg.Catalog, logger)

	if cfg.Redis.Enabled {
		bus, err := redis.NewEventBus(&cfg.Redis, nil, logger)
		if err != nil {
			logger.Warn("redis unavailable, changes will not be announced", "error", err)
		} else {
			s.bus = bus
			s.service.SetNotifier(bus)
		}
	}
	return s, nil
}
