package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/idscan/internal/simulate"
	"github.com/okian/idscan/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumScans     = 200
	defaultInvalidRatio = 0.1
	defaultRepeatRatio  = 0.2
	defaultTimeout      = 10 * time.Second
	defaultSettleWait   = 10 * time.Second
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numScans   = flag.Int("scans", defaultNumScans, "Number of detections to send")
		workers    = flag.Int("workers", 1, "Number of concurrent scanners")
		interval   = flag.Duration("interval", 0, "Pause between frames of one scanner")
		invalid    = flag.Float64("invalid", defaultInvalidRatio, "Share of malformed codes")
		repeat     = flag.Float64("repeat", defaultRepeatRatio, "Share of repeated codes")
		reset      = flag.Bool("reset", false, "Reset the session before sending")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", defaultSettleWait, "How long to wait for persistence")
		outputFile = flag.String("output", "", "Write the generated detections to this JSON file")
		verbose    = flag.Bool("verbose", false, "Log every detection")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:      *baseURL,
		NumScans:     *numScans,
		Workers:      *workers,
		Interval:     *interval,
		InvalidRatio: *invalid,
		RepeatRatio:  *repeat,
		Reset:        *reset,
		Timeout:      *timeout,
		SettleWait:   *settle,
		OutputFile:   *outputFile,
		Verbose:      *verbose,
	}

	if _, err := simulate.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		cancel()
		stop()
		os.Exit(1)
	}
}
