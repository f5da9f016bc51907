package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"voiceforge/internal/config"
	"voiceforge/internal/daemon"
	"voiceforge/internal/jobs"
	"voiceforge/internal/logging"
	"voiceforge/internal/media/ffmpeg"
	"voiceforge/internal/transcripts"
)

func main() {
	configFlag := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, configPath, found, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	if found {
		logger.Info("loaded configuration", slog.String("path", configPath))
	} else {
		logger.Info("no config file found, using defaults")
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store", slog.String("error", err.Error()))
		return
	}

	transcriptStore, err := transcripts.NewStore(cfg.Paths.TranscriptsDir)
	if err != nil {
		logger.Error("open transcript store", slog.String("error", err.Error()))
		return
	}

	transcoder := ffmpeg.NewTranscoder(cfg.Media.FFmpegBinary)
	if !transcoder.Available() {
		logger.Warn("ffmpeg not found, generated audio will be exported as wav")
	}

	coordinator := jobs.NewCoordinator(cfg, store, transcriptStore, transcoder, logger)

	d, err := daemon.New(cfg, store, coordinator, transcriptStore, logger)
	if err != nil {
		logger.Error("create daemon", slog.String("error", err.Error()))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", slog.String("error", err.Error()))
		return
	}

	<-ctx.Done()
	logger.Info("voiceforged shutting down")
}
