package api

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/galactic-conquest/internal/logger"
)

// loggingTransport logs each request with its command id, method, path, status and duration.
// Bodies are only captured at debug level.
type loggingTransport struct {
	base http.RoundTripper
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	l := logger.ForCommand(req.Context()).With().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Logger()

	debug := zerolog.GlobalLevel() <= zerolog.DebugLevel
	if debug && req.GetBody != nil {
		if rc, err := req.GetBody(); err == nil {
			body, _ := io.ReadAll(rc)
			rc.Close()
			logger.LogBody(l, "request_body", body)
		}
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		l.Warn().Err(err).Dur("durationMs", time.Since(start)).Msg("Request failed")
		return nil, err
	}

	if debug && resp.Body != nil {
		body, rerr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if rerr != nil {
			return nil, rerr
		}
		logger.LogBody(l, "response", body)
		resp.Body = io.NopCloser(bytes.NewReader(body))
	}

	l.Debug().
		Int("status", resp.StatusCode).
		Dur("durationMs", time.Since(start)).
		Msg("Request completed")
	return resp, nil
}
