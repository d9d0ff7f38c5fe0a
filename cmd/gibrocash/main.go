package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"gibrocash/internal/cli"
	"gibrocash/internal/gateway"
	apphttp "gibrocash/internal/http"
	"gibrocash/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	sessions := cli.InitSessionStore(logger, cfg.SessionDBPath)
	defer sessions.Close()

	api := gateway.New(cfg.APIBaseURL, sessions,
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.APITimeout}),
		gateway.WithLogger(logger.WithComponent(log.ComponentGateway)))
	// Any 401/403 from the remote tears down the local session so the
	// next page load lands on /login.
	api.OnAuthFailure(sessions.Clear)

	srv := apphttp.NewServer(":"+cfg.Port, api, sessions, apphttp.Options{
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
	})

	logger.Info("Starting gibrocash server", "port", cfg.Port, "api", cfg.APIBaseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
