package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"gradeway-backend/lib/restyutil"
	"gradeway-backend/lib/scrapers/moe"
	"gradeway-backend/lib/scrapers/webtop"
	"gradeway-backend/lib/serviceutil"
	"gradeway-backend/lib/telemetry"

	"github.com/lmittmann/tint"
)

func initSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
}

func InitTelemetry(ctx context.Context, verbose bool) {
	initSlog(verbose)

	err := telemetry.SetupFromEnv(ctx, "server")
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("no telemetry.json5 found, running with logging only")
	} else if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	telemetry.InstrumentPerfStats(ctx)

	if !verbose {
		return
	}

	moe.SetRestyInstrumentOutput(
		restyutil.NewFilesystemOutput("data/resty_telemetry/moe"),
	)
	webtop.SetRestyInstrumentOutput(
		restyutil.NewFilesystemOutput("data/resty_telemetry/webtop"),
	)
}
