package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/liveset/internal/bus"
	"github.com/claude/liveset/internal/mirror"
	"github.com/claude/liveset/internal/transport"
	"github.com/claude/liveset/internal/wire"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	url := flag.String("url", "ws://localhost:8080/sync", "primary sync endpoint")
	listen := flag.String("listen", "localhost:8081", "local control API address")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("LiveSet watch starting", "version", Version, "url", *url)

	eventBus := bus.New()
	client := transport.NewClient(*url, log)

	m := mirror.New(client, eventBus, log)
	defer m.Close()

	eventBus.Subscribe(wire.KindSnapshot, func(wire.Event) {
		log.Info("session state", "title", m.Title(), "exercises", len(m.Exercises()))
	})
	eventBus.Subscribe(wire.KindSessionFinished, func(wire.Event) {
		log.Info("session finished")
	})
	eventBus.Subscribe(wire.KindSessionDiscarded, func(wire.Event) {
		log.Info("session discarded")
	})

	ctx, cancel := context.WithCancel(context.Background())
	go client.Run(ctx)

	ctrl := &http.Server{Addr: *listen, Handler: newControlRouter(m)}
	go func() {
		log.Info("control API listening", "addr", *listen)
		if err := ctrl.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("control API failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := ctrl.Shutdown(shutdownCtx); err != nil {
		log.Error("control API shutdown failed", "error", err)
	}
}
