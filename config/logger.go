package config

import (
	"io"
	"log/slog"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

func parseLevel(value string, def slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	switch level {
	case "":
		return def
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	// numeric levels, e.g. -4 for debug
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return def
}

// NewLogger returns a text logger writing to the rotating file named in l,
// and the writer so the caller can close it. Verbose forces debug level.
func NewLogger(l Log) (*slog.Logger, io.Closer) {
	level := l.Level
	if l.Verbose {
		level = slog.LevelDebug
	}
	name := l.Filename
	if strings.TrimSpace(name) == "" {
		name = defaultLogFilename
	}

	w := &lumberjack.Logger{
		Filename:   name,
		MaxSize:    l.MaxSize,
		MaxBackups: l.MaxBackups,
		MaxAge:     l.MaxAge,
		Compress:   l.Compress,
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{AddSource: true, Level: level})

	return slog.New(h), w
}
