package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"patient-record-sharing/internal/adapters/auth/atlas"
	"patient-record-sharing/internal/adapters/directory/atlasdir"
	"patient-record-sharing/internal/adapters/notify/webhook"
	"patient-record-sharing/internal/platform/logger"
	"patient-record-sharing/internal/ports/auth"
	"patient-record-sharing/internal/ports/directory"
	"patient-record-sharing/internal/ports/notify"
	"patient-record-sharing/internal/router"
)

// @title Patient Record Sharing API
// @version 1.0
// @description Control plane de acceso a fichas de pacientes entre organizaciones de salud.
// @BasePath /
func main() {
	// .env es opcional; en prod las vars vienen del entorno real.
	_ = godotenv.Load()

	log := logger.NewFromEnv()

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	var verifier auth.AuthVerifier
	atlasClient := atlas.NewClient(atlas.Config{
		BaseURL: os.Getenv("ATLAS_BASE_URL"),
		APIKey:  os.Getenv("ATLAS_API_KEY"),
	})
	if atlasClient.IsConfigured() {
		verifier = atlas.NewVerifier(atlasClient)
	} else {
		log.Warn("atlas not configured, running in dev auth mode", nil)
	}

	var dir directory.Directory
	dirClient, err := atlasdir.NewClient(atlasdir.Config{
		BaseURL: os.Getenv("ATLAS_DIRECTORY_URL"),
		APIKey:  os.Getenv("ATLAS_API_KEY"),
	})
	if err != nil {
		log.Warn("atlas directory client init failed", map[string]any{"error": err.Error()})
	} else if dirClient.IsConfigured() {
		dir = dirClient
	}

	var notifier notify.Notifier
	wh := webhook.New(webhook.Config{
		URL:    os.Getenv("NOTIFY_WEBHOOK_URL"),
		Secret: os.Getenv("NOTIFY_WEBHOOK_SECRET"),
	})
	if wh.IsConfigured() {
		notifier = wh
	}

	handler, grantsSvc := router.NewRouter(router.Options{
		AuthVerifier: verifier,
		Directory:    dir,
		Notifier:     notifier,
		Logger:       log,
	})

	// Barrido periódico de grants vencidos. HasAccess ya los ignora;
	// el sweep solo persiste el estado final.
	sweepEvery := time.Minute
	if v := os.Getenv("GRANTS_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			sweepEvery = d
		}
	}
	go func() {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := grantsSvc.SweepExpired(ctx)
			cancel()
			if err != nil {
				log.Error("grant sweep failed", map[string]any{"error": err.Error()})
				continue
			}
			if n > 0 {
				log.Info("expired grants swept", map[string]any{"count": n})
			}
		}
	}()

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info("starting server", map[string]any{"addr": addr})
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
