package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bankclean/bankclean/internal/config"
)

const filePrefix = "bankclean-"

// Setup initializes the logger with file and stdout output.
func Setup(level, directory string) (*slog.Logger, error) {
	return SetupWriter(level, directory, os.Stdout)
}

// SetupWriter is Setup with the console writer replaced, so interactive
// runs can keep the terminal for the progress view.
func SetupWriter(level, directory string, console io.Writer) (*slog.Logger, error) {
	if directory == "" {
		directory = config.ExpandHome("~/.bankclean/logs/")
	} else {
		directory = config.ExpandHome(directory)
	}

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	filename := fmt.Sprintf("%s%s.log", filePrefix, time.Now().Format("2006-01-02"))
	logPath := filepath.Join(directory, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	writer := io.Writer(file)
	if console != nil {
		writer = io.MultiWriter(console, file)
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})

	return slog.New(handler), nil
}

// ParseLevel maps a config level name to a slog level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRun tags every record with the run id.
func WithRun(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With("run_id", runID)
}

// Prune removes log files older than retentionDays. It returns the number
// of files removed.
func Prune(directory string, retentionDays int, now time.Time) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	directory = config.ExpandHome(directory)
	entries, err := os.ReadDir(directory)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading log directory: %w", err)
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		day, err := time.Parse("2006-01-02", strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".log"))
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			if err := os.Remove(filepath.Join(directory, name)); err != nil {
				return removed, fmt.Errorf("removing %s: %w", name, err)
			}
			removed++
		}
	}
	return removed, nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
