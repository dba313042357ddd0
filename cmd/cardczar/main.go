package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"cardczar/internal/cards"
	"cardczar/internal/config"
	"cardczar/internal/lobby"
	"cardczar/internal/network"
)

const ConfigPath = "config/cardczar.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	// Operator console: typing "stop" shuts down like SIGINT would.
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			if strings.TrimSpace(sc.Text()) == "stop" {
				slog.Info("shutting down", "reason", "console stop")
				cancel()
				return
			}
		}
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("CARDCZAR_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("cardczar server starting", "bind", cfg.BindAddress, "port", cfg.Port, "pack_dir", cfg.PackDir)

	store, err := cards.NewStore(cfg.PackDir)
	if err != nil {
		return fmt.Errorf("opening pack store: %w", err)
	}
	slog.Info("pack store ready", "packs", len(store.Catalog()))

	clients := network.NewClientManager()
	router := network.NewRouter(clients, cfg.EventQueueSize)
	router.RegisterLobby(lobby.New(store))
	srv := network.NewServer(cfg, router, clients)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := router.Run(gctx); err != nil {
			return fmt.Errorf("router: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("starting websocket server")
		if err := srv.Run(gctx); err != nil {
			return fmt.Errorf("websocket server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
