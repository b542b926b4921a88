package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:           "tableferry",
	Short:         "Copy a single table from Oracle, MySQL or SQLite into PostgreSQL",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST /migrate/{tableName}",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate <table>",
	Short: "Migrate one table and exit",
	Args:  cobra.ExactArgs(1),
	RunE:  runMigrate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionString())
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "tableferry.toml", "path to TOML config file")
	flags.String("source-dsn", "", "source DSN (overrides source.dsn)")
	flags.String("target-dsn", "", "PostgreSQL DSN (overrides target.dsn)")
	flags.String("log-level", "", "log level (overrides log.level)")
	serveCmd.Flags().String("listen", "", "listen address (overrides server.listen)")

	rootCmd.AddCommand(serveCmd, migrateCmd, versionCmd)

	v.SetEnvPrefix("TABLEFERRY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	bindFlags(flags)
	bindFlags(serveCmd.Flags())
}

func bindFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || slices.Contains(overrideKeys, f.Name) {
			_ = v.BindPFlag(f.Name, f)
		}
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is everything a command needs once config is loaded and both
// databases are reachable.
type app struct {
	cfg      *MigrationConfig
	log      zerolog.Logger
	registry *prometheus.Registry
	migrator *poolMigrator
	close    func()
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(v.GetString("config"), v)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	log.Info().Str("version", versionString()).Str("source", cfg.Source.Type).
		Str("schema", cfg.Schema).Bool("sync_sequences", cfg.SyncSequences).Msg("tableferry starting")

	src, err := newSourceDB(cfg.Source)
	if err != nil {
		return nil, err
	}
	db, pool, err := openConnections(ctx, src, cfg, log)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &app{
		cfg:      cfg,
		log:      log,
		registry: reg,
		migrator: &poolMigrator{
			engine: newEngine(src, cfg, log, newMetrics(reg)),
			source: db,
			target: pool,
		},
		close: func() {
			pool.Close()
			db.Close()
		},
	}, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.migrator.Migrate(ctx, args[0])
	if err != nil {
		return err
	}
	if res.Empty {
		fmt.Fprintf(cmd.OutOrStdout(), "table %s is empty; nothing migrated\n", res.Table)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migrated %s: %d rows in %s\n", res.Table, res.Rows, res.Duration.Round(time.Millisecond))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	srv := newHTTPServer(a.cfg.Server.Listen, newRouter(a.migrator, a.registry, a.log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().Str("listen", srv.Addr).Msg("serving")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
