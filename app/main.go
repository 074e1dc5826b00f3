package main

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/lysyi3m/milestone-timeline/app/api"
	"github.com/lysyi3m/milestone-timeline/app/cfg"
	"github.com/lysyi3m/milestone-timeline/app/sheet"
	"github.com/lysyi3m/milestone-timeline/app/timeline"
)

func main() {
	// A missing .env file is the normal case in containers.
	_ = godotenv.Load()

	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	fallback, err := loadFallback(appCfg.FallbackFile)
	if err != nil {
		slog.Error("Failed to load fallback timeline", "path", appCfg.FallbackFile, "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: appCfg.HTTPTimeout}
	fetcher := sheet.NewFetcher(httpClient, appCfg.UserAgent)
	loader := timeline.NewLoader(fetcher, timeline.NewFallbackPolicy(fallback), appCfg.MilestonesURL, appCfg.ConfigURL)

	if appCfg.Once {
		os.Exit(runOnce(loader))
	}

	metrics := api.NewMetrics()
	loader.SetObserver(metrics)

	var limiter *rate.Limiter
	if appCfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(appCfg.RateLimit), max(appCfg.RateBurst, 1))
	}

	baseURL := cmp.Or(appCfg.BaseUrl, "http://localhost:"+appCfg.Port)
	generator := timeline.NewGenerator("Milestone Timeline", baseURL, appCfg.Version)
	handler := api.NewHandler(loader, generator, timeline.NewFilterer(), appCfg.Version)
	server := api.NewServer(handler, metrics, limiter)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: appCfg.HTTPTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server",
			"port", appCfg.Port,
			"version", appCfg.Version,
			"milestones_url", appCfg.MilestonesURL,
			"config_url", appCfg.ConfigURL,
			"rate_limit", appCfg.RateLimit)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Milestone Timeline shutdown complete")
}

func loadFallback(path string) (*timeline.Dataset, error) {
	if path == "" {
		return timeline.DefaultFallback(), nil
	}
	return timeline.LoadFallbackFile(path)
}

// runOnce performs a single load, prints the dataset and reports
// a fallback through the exit code.
func runOnce(loader *timeline.Loader) int {
	dataset, err := loader.Load(context.Background())

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if encodeErr := encoder.Encode(dataset); encodeErr != nil {
		slog.Error("Failed to encode timeline", "error", encodeErr)
		return 1
	}

	if err != nil {
		slog.Warn("Timeline served from fallback", "error", err)
		return 1
	}
	return 0
}
