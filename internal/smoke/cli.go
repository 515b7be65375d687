package smoke

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/faceattr/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging sends log output to both stdout and a file. If logFile is
// empty, a timestamped filename is generated. The returned closer flushes
// and closes the file.
func SetupLogging(logFile string, verbose bool) (func() error, error) {
	if logFile == "" {
		logFile = "smoke_log_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return file.Close, nil
}

// ShowHelp prints usage information for the smoke tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`faceattr smoke test
===================

Uploads images concurrently to a running faceattr server and checks every
prediction: labels from the fixed sets, distributions summing to one, and
reported labels matching the arg-max.

Usage:
  go run ./cmd/smoke -image face.jpg[,other.jpg] [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8000")
  -image string
        Comma-separated image files, uploaded round-robin (required)
  -requests int
        Number of analyze-face calls (default 20)
  -workers int
        Number of concurrent workers (default 4)
  -timeout duration
        HTTP request timeout (default 60s)
  -save
        Post each prediction back to save-analysis
  -log string
        Log file (default: smoke_log_TIMESTAMP.log)
  -verbose
        Log every prediction
  -help
        Show this help message
`)
}
