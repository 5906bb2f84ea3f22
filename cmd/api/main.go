package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/tally/internal/category"
	catStore "github.com/MrJamesThe3rd/tally/internal/category/store"
	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/database"
	tallyHttp "github.com/MrJamesThe3rd/tally/internal/http"
	catHandler "github.com/MrJamesThe3rd/tally/internal/http/category"
	importsHandler "github.com/MrJamesThe3rd/tally/internal/http/imports"
	txHandler "github.com/MrJamesThe3rd/tally/internal/http/transaction"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/logger"
	"github.com/MrJamesThe3rd/tally/internal/session"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	txStore "github.com/MrJamesThe3rd/tally/internal/transaction/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logger.WithContext(ctx, log)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid import timezone")
	}

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	var (
		transactionService = transaction.NewService(txStore.New(db))
		categoryService    = category.NewService(catStore.New(db))
		importService      = importer.NewService(loc)
		sessionService     = session.NewService(
			importService,
			categoryService,
			transactionService,
			session.NewStore(),
			cfg.Import.MaxFileSize,
		)
	)

	go sessionService.ExpireIdle(ctx, cfg.Import.SessionTTL, time.Hour)

	router := tallyHttp.New(
		log,
		tallyHttp.Options{AllowedOrigins: cfg.Server.AllowedOrigins, JWTSecret: cfg.Auth.JWTSecret},
		txHandler.NewHandler(transactionService),
		catHandler.NewHandler(categoryService),
		importsHandler.NewHandler(sessionService),
	)

	// No write timeout: progress streams stay open for the whole run.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting server")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
}
