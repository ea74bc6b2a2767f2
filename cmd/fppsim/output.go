package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Run failure or replay hash mismatch
	ExitCommandError = 2 // Bad flags, missing files, invalid scenario
)

// ExitError carries the exit code a command failed with.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError without an underlying error.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps err with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that are not an
// ExitError map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// outputFormatter writes command results as text or JSON.
type outputFormatter struct {
	format string
	w      io.Writer
}

type response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (f *outputFormatter) json() bool { return f.format == "json" }

// Success emits data as a JSON response. In text mode the text callback
// renders it instead.
func (f *outputFormatter) Success(data any, text func(w io.Writer)) error {
	if f.json() {
		return json.NewEncoder(f.w).Encode(response{Status: "ok", Data: data})
	}
	text(f.w)
	return nil
}

// Printf writes progress output in text mode only.
func (f *outputFormatter) Printf(format string, args ...any) {
	if !f.json() {
		fmt.Fprintf(f.w, format, args...)
	}
}
