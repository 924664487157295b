package command

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joeycumines/behave/internal/config"
	"github.com/joeycumines/behave/internal/storage"
)

// logConfig holds resolved logging configuration.
type logConfig struct {
	level   slog.Level
	logFile io.WriteCloser // nil if no file logging
}

// resolveLogConfig resolves log configuration. Flags take precedence, then
// the environment, then the config file, then defaults. verbose only applies
// when no level was given explicitly. The log file rolls over by size. The
// caller must Close logFile when it is non-nil.
func resolveLogConfig(flagPath, flagLevel string, verbose bool, cfg *config.Config) (logConfig, error) {
	schema := config.DefaultSchema()
	var lc logConfig

	levelStr := flagLevel
	if levelStr == "" && !verbose {
		v, err := schema.ResolveBool(cfg, "", config.KeyVerbose)
		if err != nil {
			return lc, err
		}
		verbose = v
	}
	if levelStr == "" {
		levelStr = schema.Resolve(cfg, "", config.KeyLogLevel)
		if verbose {
			levelStr = "debug"
		}
	}
	level, err := parseLevel(levelStr)
	if err != nil {
		return lc, err
	}
	lc.level = level

	logPath := flagPath
	if logPath == "" {
		logPath = schema.Resolve(cfg, "", config.KeyLogFile)
	}
	if logPath != "" {
		sizeMB, err := schema.ResolveInt(cfg, "", config.KeyLogMaxSize)
		if err != nil {
			return lc, err
		}
		keep, err := schema.ResolveInt(cfg, "", config.KeyLogMaxFiles)
		if err != nil {
			return lc, err
		}
		f, err := storage.OpenRotating(logPath, int64(sizeMB)<<20, keep)
		if err != nil {
			return lc, err
		}
		lc.logFile = f
	}

	return lc, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
}

// logger returns a JSON logger writing to the log file, or a text logger
// writing to stderr when there is none.
func (lc logConfig) logger(stderr io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lc.level}
	if lc.logFile != nil {
		return slog.New(slog.NewJSONHandler(lc.logFile, opts))
	}
	return slog.New(slog.NewTextHandler(stderr, opts))
}

func (lc logConfig) Close() error {
	if lc.logFile == nil {
		return nil
	}
	return lc.logFile.Close()
}
