package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		os.Exit(configExitCode(err, os.Stderr))
	}

	logger, err := newLogger(cfg.Dev)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg Config, logger *zap.Logger) error {
	var (
		db       *DB
		history  *History
		recorder MatchRecorder
	)
	if cfg.DBPath != "" {
		var err error
		db, err = OpenDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		history = NewHistory(db, logger.Named("history"))
		recorder = history
		logger.Info("match history enabled", zap.String("db", cfg.DBPath))
	}

	var auth *Auth
	if cfg.AdminPassword != "" {
		hash, err := HashPassword(cfg.AdminPassword)
		if err != nil {
			return err
		}
		auth = NewAuth(hash, db, logger.Named("auth"))
	}

	game := NewGame(GameOptions{
		Logger:   logger.Named("game"),
		Seed:     cfg.Seed,
		Recorder: recorder,
	})

	stopHub := make(chan struct{})
	hub := NewHub(game, logger.Named("hub"))
	go hub.Run(stopHub)

	mux := SetupRoutes(&Server{
		Hub:       hub,
		Game:      game,
		Auth:      auth,
		DB:        db,
		ClientDir: cfg.ClientDir,
		PublicURL: cfg.PublicURL,
		Log:       logger.Named("http"),
	})

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: cfg.Addr, Handler: mux}
	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.Addr),
			zap.String("client_dir", cfg.ClientDir),
			zap.Uint64("seed", cfg.Seed),
			zap.Bool("admin", auth != nil))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errc:
		return err
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(ctx)
	game.Stop()
	close(stopHub)
	if history != nil {
		history.Stop()
		recorded, dropped := history.Counts()
		logger.Info("history flushed", zap.Int("recorded", recorded), zap.Int("dropped", dropped))
	}
	return nil
}
