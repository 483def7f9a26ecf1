package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/m-mizutani/masq"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/fivetwenty-io/gdsapi/internal/constants"
)

const (
	logFormatJSON = "json"

	logFileMaxSizeMB  = 10
	logFileMaxBackups = 3
	logFileMaxAgeDays = 28
)

var bearerPattern = regexp.MustCompile(`(?i)^bearer\s+.+$`)

// cliLogger adapts slog to gdsapi.Logger.
type cliLogger struct {
	logger *slog.Logger
	closer io.Closer

	// run-scoped resources released on Close
	release []func()
}

// newLogger writes to stderr, or to a rotated --log-file. Only warnings and
// errors are shown unless --verbose is set.
func newLogger(stderr io.Writer) *cliLogger {
	var (
		w      = stderr
		closer io.Closer
	)

	if path := viper.GetString(KeyLogFile); path != "" {
		// lumberjack creates missing directories world-readable.
		_ = os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)

		file := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
			MaxAge:     logFileMaxAgeDays,
		}
		w, closer = file, file
	}

	level := slog.LevelWarn
	if viper.GetBool(KeyVerbose) {
		level = slog.LevelDebug
	}

	return &cliLogger{logger: slog.New(newHandler(w, level)), closer: closer}
}

func newHandler(w io.Writer, level slog.Level) slog.Handler {
	if strings.EqualFold(viper.GetString(KeyLogFormat), logFormatJSON) {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: masq.New(redactOptions()...),
		})
	}

	return log.NewWithOptions(w, log.Options{
		Level:           log.Level(level),
		ReportTimestamp: true,
		Prefix:          "gdsapi",
	})
}

func redactOptions() []masq.Option {
	return []masq.Option{
		masq.WithFieldName("authorization"),
		masq.WithFieldName("password"),
		masq.WithFieldName("token"),
		masq.WithFieldName("bearer_token"),
		masq.WithFieldPrefix("secret"),
		masq.WithRegex(bearerPattern),
	}
}

func (l *cliLogger) Debug(msg string, fields map[string]interface{}) {
	l.log(slog.LevelDebug, msg, fields)
}

func (l *cliLogger) Info(msg string, fields map[string]interface{}) {
	l.log(slog.LevelInfo, msg, fields)
}

func (l *cliLogger) Warn(msg string, fields map[string]interface{}) {
	l.log(slog.LevelWarn, msg, fields)
}

func (l *cliLogger) Error(msg string, fields map[string]interface{}) {
	l.log(slog.LevelError, msg, fields)
}

func (l *cliLogger) onClose(fn func()) {
	l.release = append(l.release, fn)
}

// Close releases run-scoped resources and the log file, if any.
func (l *cliLogger) Close() error {
	for _, fn := range l.release {
		fn()
	}

	l.release = nil

	if l.closer == nil {
		return nil
	}

	return l.closer.Close()
}

func (l *cliLogger) log(level slog.Level, msg string, fields map[string]interface{}) {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	args := make([]any, 0, len(keys))
	for _, key := range keys {
		args = append(args, slog.Any(key, fields[key]))
	}

	l.logger.Log(context.Background(), level, msg, args...)
}
