package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/pipeline"
	"github.com/meikuraledutech/pipeline/api"
	"github.com/meikuraledutech/pipeline/backend"
	"github.com/meikuraledutech/pipeline/catalogfile"
	"github.com/meikuraledutech/pipeline/internal/config"
	"github.com/meikuraledutech/pipeline/internal/logging"
	"github.com/meikuraledutech/pipeline/postgres"
	"github.com/meikuraledutech/pipeline/upload"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var cfgFile string

	root := &cobra.Command{
		Use:          "pipeline",
		Short:        "Image pipeline editor service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	root.PersistentFlags().String("database-url", "", "postgres connection string")
	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("database_url", root.PersistentFlags().Lookup("database-url"))

	root.AddCommand(newServeCmd(v, &cfgFile), newCatalogCmd(v, &cfgFile))
	return root
}

func newServeCmd(v *viper.Viper, cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editor API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, *cfgFile)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().String("listen", ":3000", "listen address")
	cmd.Flags().String("catalog", "", "catalog source: builtin, file, postgres or backend")
	cmd.Flags().String("backend", "", "processing backend base URL")
	_ = v.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	_ = v.BindPFlag("catalog.source", cmd.Flags().Lookup("catalog"))
	_ = v.BindPFlag("backend.url", cmd.Flags().Lookup("backend"))
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec := backend.New(cfg.Backend.URL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithLogger(log.With("component", "backend")),
	)

	src, closeSrc, err := catalogSource(ctx, cfg, exec, log)
	if err != nil {
		return err
	}
	defer closeSrc()
	catalog, err := pipeline.LoadCatalog(ctx, src)
	if err != nil {
		return err
	}
	log.Info("catalog loaded", "source", cfg.Catalog.Source, "algorithms", catalog.Len())

	uploads, err := upload.New(cfg.Upload.Dir,
		upload.WithMaxBytes(cfg.Upload.MaxBytes),
		upload.WithPreviewEdge(cfg.Upload.PreviewEdge),
		upload.WithLogger(log.With("component", "upload")),
	)
	if err != nil {
		return err
	}

	editorLog := log.With("component", "editor")
	sessions := api.NewStore(cfg.Sessions.Max, cfg.Sessions.TTL, func() *pipeline.Editor {
		return pipeline.NewEditor(catalog, pipeline.WithLogger(editorLog))
	})
	stopCleanup := sessions.StartCleanup(cfg.Sessions.CleanupInterval)
	defer stopCleanup()

	srv := api.NewServer(catalog, sessions, exec,
		api.WithUploads(uploads),
		api.WithLogger(log.With("component", "api")),
	)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Listen(cfg.Listen)
	}()
	log.Info("listening", "addr", cfg.Listen, "backend", cfg.Backend.URL)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		return srv.Shutdown()
	}
}

// catalogSource picks where the algorithm list comes from. The returned func
// releases any connection it opened.
func catalogSource(ctx context.Context, cfg config.Config, exec *backend.Client, log *slog.Logger) (pipeline.CatalogSource, func(), error) {
	noop := func() {}
	switch cfg.Catalog.Source {
	case config.SourceFile:
		return catalogfile.New(cfg.Catalog.File, log), noop, nil
	case config.SourcePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		return postgres.New(pool), pool.Close, nil
	case config.SourceBackend:
		return exec, noop, nil
	default:
		return catalogfile.New("", log), noop, nil
	}
}

func newCatalogCmd(v *viper.Viper, cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the algorithm catalog stored in postgres",
	}

	withStore := func(ctx context.Context, fn func(*postgres.Store) error) error {
		cfg, err := config.Load(v, *cfgFile)
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is not set")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer pool.Close()
		return fn(postgres.New(pool))
	}

	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the stored catalog with a YAML or HCL file (built-in catalog when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var algs []pipeline.Algorithm
			if len(args) == 0 {
				algs = catalogfile.Default()
			} else {
				var err error
				if algs, err = catalogfile.Load(args[0]); err != nil {
					return err
				}
			}
			for _, a := range algs {
				if _, err := a.Schema(); err != nil {
					return fmt.Errorf("algorithm %q: %w", a.ID, err)
				}
			}
			return withStore(cmd.Context(), func(s *postgres.Store) error {
				if err := s.CreateSchema(cmd.Context()); err != nil {
					return err
				}
				if err := s.SaveAlgorithms(cmd.Context(), algs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d algorithms\n", len(algs))
				return nil
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print the stored catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(s *postgres.Store) error {
				algs, err := s.ListAlgorithms(cmd.Context())
				if err != nil {
					return err
				}
				for _, a := range algs {
					fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-24s %d params\n", a.ID, a.Name, len(a.Parameters))
				}
				return nil
			})
		},
	}

	dropCmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop the catalog tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(s *postgres.Store) error {
				return s.DropSchema(cmd.Context())
			})
		},
	}

	cmd.AddCommand(importCmd, listCmd, dropCmd)
	return cmd
}
