package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/luckeedao/votecore/pkg/api"
	"github.com/luckeedao/votecore/pkg/config"
	"github.com/luckeedao/votecore/pkg/engine"
	"github.com/luckeedao/votecore/pkg/logging"
	"github.com/luckeedao/votecore/pkg/store"
)

const banner = `
  votecore — commit-reveal vote service
  listening on %s
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logging error:", err)
		os.Exit(1)
	}
	defer log.Sync()

	s, err := openStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open store", zap.Error(err))
	}

	e := engine.New(s)
	e.MinPhaseDuration = cfg.MinPhaseDuration
	e.MaxPhaseDuration = cfg.MaxPhaseDuration

	srv := api.NewServer(e, s, log)
	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: srv}

	fmt.Printf(banner, cfg.ListenAddr)

	go func() {
		log.Info("server starting", zap.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(databaseURL string) (store.Store, error) {
	if databaseURL == "" || databaseURL == "memory://" {
		return store.NewMemory(), nil
	}
	return store.NewPostgres(databaseURL)
}
