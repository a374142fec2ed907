package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shinyyama/support-chat/internal/archive"
	"github.com/shinyyama/support-chat/internal/config"
	"github.com/shinyyama/support-chat/internal/db"
	"github.com/shinyyama/support-chat/internal/logging"
	"github.com/shinyyama/support-chat/internal/middleware"
	"github.com/shinyyama/support-chat/internal/server"
	"github.com/shinyyama/support-chat/internal/service"
)

// Set with -ldflags at build time.
var (
	gitSHA    = "dev"
	buildTime = ""
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", false)
		boot.Fatal().Err(err).Msg("config load")
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty)
	cfg.LogSummary(log)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(conn); err != nil {
			return err
		}
	}

	verifier, err := middleware.NewVerifier(ctx, cfg)
	if err != nil {
		return err
	}

	var archiver service.TranscriptArchiver = archive.Nop{}
	if cfg.TranscriptBucket != "" {
		gcs, err := archive.NewGCSArchiver(ctx, cfg.TranscriptBucket, cfg.TranscriptCredentialsFile)
		if err != nil {
			return err
		}
		defer gcs.Close()
		archiver = gcs
	}

	srv := server.New(server.Options{
		Config:    cfg,
		DB:        conn,
		Log:       log,
		Verifier:  verifier,
		Archiver:  archiver,
		SHA:       gitSHA,
		BuildTime: buildTime,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
