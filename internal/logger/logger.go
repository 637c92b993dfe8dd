package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/habitloop/internal/constants"
)

// Logger is the process-wide logger. Nil until Init.
var Logger *log.Logger

type Config struct {
	Debug bool
	// Dir holds the rotating log file. Empty logs to stderr only.
	Dir string
	// Format is "text" (default), "json" or "logfmt".
	Format string
}

func formatter(name string) (log.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	}
	return 0, fmt.Errorf("unknown log format %q (want text, json or logfmt)", name)
}

// Init installs the global logger. With a Dir, output goes to a rotating
// file and is mirrored to stderr only in debug mode.
func Init(cfg Config) error {
	f, err := formatter(cfg.Format)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stderr
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return err
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, constants.AppName+".log"),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		w = file
		if cfg.Debug {
			w = io.MultiWriter(os.Stderr, file)
		}
	}

	Logger = New(w, cfg.Debug)
	Logger.SetFormatter(f)
	return nil
}

// New builds a text logger at info level, or debug level with caller info.
func New(w io.Writer, debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportCaller:    debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          constants.AppName,
	})
}

func Debug(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Helper()
		Logger.Debug(msg, keyvals...)
	}
}

func Info(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Helper()
		Logger.Info(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Helper()
		Logger.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Helper()
		Logger.Error(msg, keyvals...)
	}
}

// Fatal logs and exits even when Init was never called.
func Fatal(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Fatal(msg, keyvals...)
	}
	os.Exit(1)
}
