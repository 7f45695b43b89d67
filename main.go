// Package main is the entry point for the ClaimsPro progress claims bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"gitlab.com/yelinaung/claimspro/internal/auth"
	"gitlab.com/yelinaung/claimspro/internal/backup"
	"gitlab.com/yelinaung/claimspro/internal/bot"
	"gitlab.com/yelinaung/claimspro/internal/claims"
	"gitlab.com/yelinaung/claimspro/internal/config"
	"gitlab.com/yelinaung/claimspro/internal/database"
	"gitlab.com/yelinaung/claimspro/internal/gemini"
	"gitlab.com/yelinaung/claimspro/internal/logger"
	"gitlab.com/yelinaung/claimspro/internal/report"
	"gitlab.com/yelinaung/claimspro/internal/repository"
	"gitlab.com/yelinaung/claimspro/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// shutdownTimeout bounds telemetry flushing on exit.
const shutdownTimeout = 5 * time.Second

// store is everything the application persists through.
type store interface {
	claims.Gateway
	backup.Store
	auth.SettingsStore
}

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg      *config.Config
	store    store
	pool     *pgxpool.Pool
	shutdown telemetry.ShutdownFunc
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetLevel(cfg.LogLevel)
	logger.SetFormat(cfg.LogFormat)
	logger.InitHashSalt()

	shutdown, err := telemetry.Setup(ctx, telemetry.Options{
		Exporter:       cfg.OTelExporter,
		Endpoint:       cfg.OTelEndpoint,
		ServiceVersion: version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}

	a := &app{cfg: cfg, shutdown: shutdown}

	if cfg.DataBackend == config.BackendMemory {
		logger.Log.Warn().Msg("Using in-memory storage; data is lost on exit")
		a.store = repository.NewMemoryStore()
		return a, nil
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.pool = pool

	if err := database.RunMigrations(ctx, pool); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	var opts []repository.StoreOption
	if cfg.AttachmentStore == config.AttachmentStoreMinio {
		blobs, err := repository.NewMinioBlobStore(ctx, cfg.Minio, telemetry.Transport(nil))
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to open attachment store: %w", err)
		}
		opts = append(opts, repository.WithBlobStore(blobs))
	}
	a.store = repository.NewStore(pool, opts...)

	logger.Log.Info().Str("attachments", cfg.AttachmentStore).Msg("Database initialized successfully")
	return a, nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to flush telemetry")
	}
}

func (a *app) authManager() *auth.Manager {
	return auth.NewManager(a.store, auth.Defaults{
		Password:       a.cfg.AdminPassword,
		CompanyName:    a.cfg.CompanyName,
		CompanyABN:     a.cfg.CompanyABN,
		DefaultGSTRate: a.cfg.DefaultGSTRate,
		SessionTimeout: a.cfg.SessionTimeout,
	})
}

// requirePersistent rejects offline commands against the in-memory backend,
// where they would act on an empty store.
func (a *app) requirePersistent() error {
	if a.cfg.DataBackend == config.BackendMemory {
		return errors.New("this command needs DATA_BACKEND=postgres")
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:           "claimspro",
	Short:         "Progress claims for construction contracts, run from Telegram",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.cfg.ValidateBot(); err != nil {
			return err
		}

		manager := a.authManager()
		settings, err := manager.Initialize(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize settings: %w", err)
		}

		sessions := auth.NewSessions(settings.SessionTimeout)
		service := claims.NewService(a.store,
			claims.WithRenderer(report.NewRenderer(nil)),
			claims.WithMaxAttachmentBytes(a.cfg.MaxAttachmentBytes),
		)

		httpClient := telemetry.HTTPClient()
		deps := bot.Deps{
			Claims:     service,
			Auth:       manager,
			Sessions:   sessions,
			Store:      a.store,
			HTTPClient: httpClient,
		}
		if a.cfg.GeminiAPIKey != "" {
			reader, err := gemini.NewClient(ctx, a.cfg.GeminiAPIKey, httpClient)
			if err != nil {
				return err
			}
			deps.Reader = reader
		} else {
			logger.Log.Info().Msg("GEMINI_API_KEY not set; /suggest is disabled")
		}

		telegramBot, err := bot.New(a.cfg, deps)
		if err != nil {
			return err
		}

		telegramBot.Start(ctx)
		logger.Log.Info().Msg("Shutting down...")
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write a JSON backup of all contracts, claims and settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.requirePersistent(); err != nil {
			return err
		}

		doc, err := backup.Export(ctx, a.store, time.Now())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()
			out = f
		}
		if err := backup.Write(out, doc); err != nil {
			return err
		}

		logger.Log.Info().
			Int("contracts", len(doc.Contracts)).
			Int("claims", len(doc.Claims)).
			Msg("Backup exported")
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace all data with a JSON backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.requirePersistent(); err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer func() { _ = f.Close() }()

		doc, err := backup.Read(f)
		if err != nil {
			return err
		}
		if err := backup.Import(ctx, a.store, doc); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Restored %d contract(s) and %d claim(s).\n", len(doc.Contracts), len(doc.Claims))
		return nil
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd <new password>",
	Short: "Reset the admin password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.requirePersistent(); err != nil {
			return err
		}

		if err := a.authManager().ResetPassword(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Admin password updated.")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "claimspro %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func init() {
	// Bare invocation runs the bot.
	rootCmd.RunE = serveCmd.RunE

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(passwdCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
