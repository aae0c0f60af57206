package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"arena/internal/room"
	"arena/internal/server"
	"arena/internal/storage"
)

func main() {
	godotenv.Load()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	addr := ":8080"
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}
	dbPath := "arena.db"
	if p := os.Getenv("DB_PATH"); p != "" {
		dbPath = p
	}

	store, err := storage.New(dbPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer store.Close()

	mgr := room.NewManager(store, logger)
	if err := mgr.Restore(); err != nil {
		logger.Warn().Err(err).Msg("restore rooms")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Clear expired connection-lost slots across all rooms every second.
	go mgr.SweepLoop(ctx, time.Second)

	srv := &http.Server{Addr: addr, Handler: server.New(mgr, logger)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server")
	}

	mgr.SaveAll()
	logger.Info().Msg("state saved, bye")
}
