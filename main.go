package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"resource-planner/logger"
	"resource-planner/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if ctx.Err() == context.Canceled {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// serveMetrics exposes the registry on addr until the process exits.
func serveMetrics(addr string) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
		logger.Info("metrics server listening", "addr", addr+"/metrics")
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics server error", "err", err)
		}
	}()
}

// pushMetrics sends the registry to a Pushgateway once the run is over.
func pushMetrics(url string) error {
	jobName := "resource_planner"
	if err := push.New(url, jobName).Gatherer(metrics.Registry).Push(); err != nil {
		return fmt.Errorf("push to Pushgateway: %w", err)
	}
	logger.Info("metrics pushed", "url", url, "job", jobName)
	return nil
}

// waitForScrape keeps the metrics endpoint alive after a batch run.
func waitForScrape(ctx context.Context, wait bool) {
	if wait {
		fmt.Fprintln(os.Stderr, "\nProcess kept alive for metric scraping. Press Ctrl+C to exit.")
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nExiting...")
		return
	}
	// Small delay to allow a final scrape; batch jobs should push or wait.
	time.Sleep(100 * time.Millisecond)
}
