// Package faults defines coded domain errors shared by the fulfillment core.
package faults

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error is a domain failure with a stable code and structured context.
type Error struct {
	Code    string
	Message string
	Meta    map[string]any
	Err     error
}

// Error renders "CODE: message (k=v ...)" so the stable code survives into
// plain-text sinks such as a line's recorded error message.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	switch {
	case msg == "":
		msg = e.Code
	case e.Code != "":
		msg = e.Code + ": " + msg
	}
	if len(e.Meta) == 0 {
		return msg
	}
	keys := make([]string, 0, len(e.Meta))
	for k := range e.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.Meta[k]))
	}
	return msg + " (" + strings.Join(parts, " ") + ")"
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so callers can compare
// contextualized errors against package sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code != "" && e.Code == other.Code
}

// New builds a sentinel error for a code.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// With returns a copy of the sentinel enriched with context fields.
func (e *Error) With(meta map[string]any) *Error {
	clone := &Error{Code: e.Code, Message: e.Message, Err: e.Err}
	if len(meta) > 0 {
		clone.Meta = make(map[string]any, len(meta))
		for k, v := range meta {
			clone.Meta[k] = v
		}
	}
	return clone
}

// Wrap returns a copy of the sentinel keeping the underlying cause.
func (e *Error) Wrap(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Meta: e.Meta, Err: err}
}

// Code extracts the stable code from err, or empty when err is not a domain error.
func Code(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
