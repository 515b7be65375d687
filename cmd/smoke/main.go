package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okian/faceattr/internal/smoke"
)

// Default configuration constants.
const (
	defaultRequests = 20
	defaultWorkers  = 4
	defaultTimeout  = 60 * time.Second
	defaultRunLimit = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8000", "Base URL of the service")
		images   = flag.String("image", "", "Comma-separated image files to upload")
		requests = flag.Int("requests", defaultRequests, "Number of analyze-face calls")
		workers  = flag.Int("workers", defaultWorkers, "Number of concurrent workers")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		save     = flag.Bool("save", false, "Post each prediction to save-analysis")
		logFile  = flag.String("log", "", "Log file (default: smoke_log_TIMESTAMP.log)")
		verbose  = flag.Bool("verbose", false, "Log every prediction")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || *images == "" {
		smoke.ShowHelp()
		if !*help {
			os.Exit(2)
		}
		return
	}

	closeLog, err := smoke.SetupLogging(*logFile, *verbose)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := &smoke.Config{
		BaseURL:  strings.TrimRight(*baseURL, "/"),
		Images:   splitList(*images),
		Requests: *requests,
		Workers:  max(*workers, 1),
		Timeout:  *timeout,
		Save:     *save,
		LogFile:  *logFile,
		Verbose:  *verbose,
	}

	if _, err := smoke.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Smoke test failed: " + err.Error() + "\n")
		_ = closeLog()
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
