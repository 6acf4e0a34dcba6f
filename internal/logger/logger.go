// Package logger provides structured logging using zerolog.
package logger

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const commandIDKey contextKey = "command_id"

const milliTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// maxBodyLog bounds how much of an HTTP body ends up in a debug line.
const maxBodyLog = 1000

// Options controls logger initialization.
type Options struct {
	Level string
	File  string
	Dev   bool
	// Out defaults to stderr so logs never interleave with the rendered board.
	Out io.Writer
}

// Init initializes the global logger.
func Init(opts Options) {
	zerolog.TimeFieldFormat = milliTimeFormat
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }

	const callerWidth = 30
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		path := fmt.Sprintf("%s:%d", filepath.Base(file), line)
		if len(path) >= callerWidth {
			return path[len(path)-callerWidth:]
		}
		return path + strings.Repeat(" ", callerWidth-len(path))
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	var output io.Writer = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: milliTimeFormat,
		NoColor:    !opts.Dev,
	}

	if opts.File != "" {
		f, ferr := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if ferr == nil {
			output = io.MultiWriter(output, f)
		}
	}

	log.Logger = log.Output(output).With().Caller().Logger()

	log.Debug().
		Str("level", level.String()).
		Bool("dev", opts.Dev).
		Msg("Logger initialized")
}

// NewCommandID generates a random 8-character alphanumeric correlation id.
func NewCommandID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("cmd%05d", time.Now().UnixNano()%100000)
	}
	for i := range b {
		b[i] = charset[b[i]%byte(len(charset))]
	}
	return string(b)
}

// WithCommandID returns a new context carrying the given command id.
func WithCommandID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, commandIDKey, id)
}

// CommandIDFromContext extracts the command id from context, or empty string.
func CommandIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(commandIDKey).(string)
	return id
}

// ForCommand returns a logger enriched with the command id from context.
func ForCommand(ctx context.Context) zerolog.Logger {
	id := CommandIDFromContext(ctx)
	if id == "" {
		return log.Logger
	}
	return log.Logger.With().Str("commandId", id).Logger()
}

// LogBody logs an HTTP body at debug level under key, truncating long payloads.
func LogBody(logger zerolog.Logger, key string, body []byte) {
	if len(body) == 0 {
		return
	}
	if len(body) > maxBodyLog {
		logger.Debug().Str(key, string(body[:maxBodyLog])).Bool("truncated", true).Msg("HTTP body")
		return
	}
	logger.Debug().Str(key, string(body)).Msg("HTTP body")
}
