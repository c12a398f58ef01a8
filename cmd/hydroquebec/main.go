package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/raterudder/hydroquebec/pkg/homeassistant"
	"github.com/raterudder/hydroquebec/pkg/hydroquebec"
	"github.com/raterudder/hydroquebec/pkg/log"
	"github.com/raterudder/hydroquebec/pkg/sensor"
	"github.com/raterudder/hydroquebec/pkg/server"
	"github.com/raterudder/hydroquebec/pkg/types"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
)

func main() {
	// init packages
	cfg := sensor.Configured()
	portal := hydroquebec.Configured()
	bridge := homeassistant.Configured()
	srv := server.Configured(bridge)

	// parse flags
	lflag.Configure()

	// lflag automatically sets llog's level, but we need to set the slog level
	level, err := log.LevelFromLLog(llog.GetLevel())
	if err != nil {
		panic(err)
	}
	log.SetDefaultLogLevel(level)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = log.With(ctx, logger)

	if err := portal.Validate(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid portal options", slog.Any("error", err))
		os.Exit(1)
	}

	if err := bridge.Connect(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to connect to mqtt", slog.Any("error", err))
		os.Exit(1)
	}
	defer bridge.Close()

	newClient := func(username, password string) hydroquebec.Client {
		return hydroquebec.NewPortal(*portal, username, password)
	}
	account, err := sensor.Setup(ctx, *cfg, newClient, bridge)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrInvalidConfig):
			log.Ctx(ctx).ErrorContext(ctx, "invalid configuration", slog.Any("error", err))
		case errors.Is(err, sensor.ErrSetupAborted):
			// setup already logged why the portal refused us
		default:
			log.Ctx(ctx).ErrorContext(ctx, "failed to set up sensors", slog.Any("error", err))
		}
		bridge.Close()
		os.Exit(1)
	}
	srv.SetAccount(account)

	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "server failed", slog.Any("error", err))
			cancel()
		}
	}()

	// Run will block until context is canceled
	if err := bridge.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "bridge failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "exited cleanly")
}
