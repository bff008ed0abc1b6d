package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// StderrLogFile selects console logging instead of a rotated file.
const StderrLogFile = "-"

// InitLogger builds the process logger from cfg and installs it as the slog
// default. An empty cfg.File logs to playcore.log under the state directory.
func InitLogger(cfg *LoggingConfig) (*slog.Logger, error) {
	if cfg.File == "" {
		cfg.File = filepath.Join(getStateDir(), "playcore", "playcore.log")
	}

	writer, console, err := logWriter(cfg)
	if err != nil {
		return nil, err
	}

	logger := slog.New(newHandler(writer, cfg, console))
	slog.SetDefault(logger)
	return logger, nil
}

func logWriter(cfg *LoggingConfig) (w io.Writer, console bool, err error) {
	if cfg.File == StderrLogFile {
		return os.Stderr, true, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, false, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}, false, nil
}

func newHandler(w io.Writer, cfg *LoggingConfig, console bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	// Colour codes only make sense on a terminal.
	if cfg.Color && console {
		w = &colorWriter{w: w}
	}
	return slog.NewTextHandler(w, opts)
}

var levelColors = []struct {
	token []byte
	code  string
}{
	{[]byte("level=DEBUG"), "90"},
	{[]byte("level=INFO"), "32"},
	{[]byte("level=WARN"), "33"},
	{[]byte("level=ERROR"), "31"},
}

// colorWriter highlights the level attribute of each text record. The text
// handler writes one record per Write call.
type colorWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *colorWriter) Write(p []byte) (int, error) {
	out := p
	for _, lc := range levelColors {
		if i := bytes.Index(p, lc.token); i >= 0 {
			var buf bytes.Buffer
			buf.Grow(len(p) + 12)
			buf.Write(p[:i])
			fmt.Fprintf(&buf, "\033[%sm%s\033[0m", lc.code, lc.token)
			buf.Write(p[i+len(lc.token):])
			out = buf.Bytes()
			break
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

func parseLogLevel(level string) slog.Level {
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
