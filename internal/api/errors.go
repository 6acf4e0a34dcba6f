package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error classes for failed calls. Compare with errors.Is.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotFound         = errors.New("not found")
	ErrRejected         = errors.New("rejected by server")
	ErrServer           = errors.New("server error")
	ErrTransport        = errors.New("transport failure")
)

// Error is a non-2xx reply from the game server.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
}

// Error returns the server's message, which is meant for display.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// Is maps the status code onto the error classes.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotAuthenticated:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrServer:
		return e.Status >= 500
	case ErrRejected:
		return e.Status >= 400 && e.Status < 500 &&
			e.Status != http.StatusUnauthorized && e.Status != http.StatusForbidden && e.Status != http.StatusNotFound
	}
	return false
}

type transportError struct {
	op  string
	err error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("could not reach the game server (%s): %v", e.op, e.err)
}

func (e *transportError) Unwrap() error { return e.err }

func (e *transportError) Is(target error) bool { return target == ErrTransport }
