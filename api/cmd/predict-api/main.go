package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"fetal-health/api/internal/config"
	"fetal-health/api/internal/handle"
	"fetal-health/api/internal/httpserver"
	"fetal-health/api/internal/logger"
	"fetal-health/api/internal/model"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.Must(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	// Artifacts are loaded once; the service never starts without them.
	pred, err := model.Load(cfg.ScalerPath, cfg.ModelPath)
	if err != nil {
		log.Fatal("load model artifacts", zap.Error(err))
	}
	if err := pred.Check(); err != nil {
		log.Warn("artifact mismatch", zap.Error(err))
	}
	info := pred.Info()
	log.Info("model loaded",
		zap.String("scaler", cfg.ScalerPath),
		zap.String("model", cfg.ModelPath),
		zap.String("type", info.MLModel.Type),
		zap.String("version", info.MLModel.Version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := handle.New(pred, log)
	if err := httpserver.Run(ctx, ":"+cfg.Port, h.Routes(), log); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("serve", zap.Error(err))
	}
}
