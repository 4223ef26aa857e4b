package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/canvas-session/server/internal/config"
	"github.com/canvas-session/server/internal/logging"
	"github.com/canvas-session/server/internal/mock"
	"github.com/canvas-session/server/internal/procstats"
	"github.com/canvas-session/server/internal/session"
	"github.com/canvas-session/server/internal/ws"
)

const configEnv = "CANVAS_CONFIG"

func main() {
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	configPath := os.Getenv(configEnv)
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid port: %v\n", err)
			os.Exit(1)
		}
	}

	logger, err := logging.New("canvas-server", cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	actor := session.NewActor(session.Config{
		CommandBuffer: cfg.Session.CommandBuffer,
		Seed:          session.SeedRectangles(cfg.Session.SeedRectangles, cfg.Session.SeedSpread),
	}, logger)
	bridge := ws.NewBridge(actor, ws.OptionsFromConfig(cfg), logger)

	server := ws.NewServer(cfg, actor, bridge, logger)
	if sampler, err := procstats.NewSampler(); err == nil {
		server.SetSampler(sampler)
	} else {
		logger.Warn().Err(err).Msg("process stats unavailable")
	}

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	// Bind before anything else runs so a taken port fails fast.
	ln, err := ws.Listen(cfg.Addr())
	if err != nil {
		logger.Error().Err(err).Msg("failed to bind")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := actor.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("session actor stopped")
		}
	}()

	if cfg.Mock.Enabled {
		gen := mock.NewGenerator(actor, mock.Options{Movers: cfg.Mock.Movers, Interval: cfg.Mock.Interval}, logger)
		if err := gen.Start(ctx); err != nil {
			logger.Warn().Err(err).Msg("mock movement not started")
		}
	}

	logger.Info().
		Str("config", configPath).
		Int("rectangles", cfg.Session.SeedRectangles).
		Int("max_connections", cfg.Server.MaxConnections).
		Msg("starting canvas session server")

	if err := ws.Serve(ctx, ln, mux, logger); err != nil {
		logger.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	<-actor.Done()
	logger.Info().Msg("shut down")
}
