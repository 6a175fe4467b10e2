package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Tyrowin/reddnotes/internal/auth"
	"github.com/Tyrowin/reddnotes/internal/dispatch"
	"github.com/Tyrowin/reddnotes/internal/handlers"
	"github.com/Tyrowin/reddnotes/internal/hub"
	"github.com/Tyrowin/reddnotes/internal/logging"
	"github.com/Tyrowin/reddnotes/internal/server"
	"github.com/Tyrowin/reddnotes/internal/store"
)

type rootOptions struct {
	configFile string
	port       string
	dbPath     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "reddnotes",
		Short:         "Run the ReddNotes WebSocket server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "path to a config file (yaml, json or toml)")
	flags.StringVar(&opts.port, "port", "", "listen address, overrides SERVER_PORT")
	flags.StringVar(&opts.dbPath, "db", "", "sqlite database path, overrides DB_PATH")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error; overrides LOG_LEVEL")

	return cmd
}

func loadConfig(opts *rootOptions) (*server.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	if opts.configFile != "" {
		v.SetConfigFile(opts.configFile)
	}
	cfg, err := server.LoadConfig(v)
	if err != nil {
		return nil, err
	}

	if opts.port != "" {
		cfg.Port = opts.port
	}
	if opts.dbPath != "" {
		cfg.DatabasePath = opts.dbPath
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	sanitized := server.Sanitize(*cfg)
	return &sanitized, nil
}

func run(ctx context.Context, cfg *server.Config) error {
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	logger.Info("starting ReddNotes server",
		zap.String("port", cfg.Port),
		zap.String("db_path", cfg.DatabasePath),
		zap.Int64("max_message_size", cfg.MaxMessageSize),
		zap.Int("rate_limit_burst", cfg.RateLimit.Burst),
		zap.Duration("rate_limit_refill", cfg.RateLimit.RefillInterval))

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("error closing store", zap.Error(err))
		}
	}()

	tokens, err := auth.NewJWT(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	h := hub.New(logger)
	svc := handlers.New(st, tokens, logger)
	table, err := dispatch.NewTable(svc.Routes()...)
	if err != nil {
		return err
	}
	d := dispatch.New(table, tokens, h, h, logger)
	srv := server.New(cfg, h, d, logger).WithDatabase(st)

	httpServer := server.CreateServer(cfg.Port, srv.SetupRoutes())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.StartServer(httpServer)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			_ = h.Shutdown(cfg.ShutdownTimeout)
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout); err != nil {
		logger.Error("HTTP server did not shut down cleanly", zap.Error(err))
	}
	if err := h.Shutdown(cfg.ShutdownTimeout); err != nil {
		logger.Error("hub shutdown timed out", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}
