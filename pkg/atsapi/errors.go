package atsapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrUnauthorized   = errors.New("authentication required")
	ErrNotFound       = errors.New("not found")
	ErrAlreadyApplied = errors.New("already applied for this position")
	ErrResumeTooLarge = errors.New("resume too large")
)

// Messages shown for the mapped business errors.
const (
	MsgAlreadyApplied = "You have already applied for this position."
	MsgResumeTooLarge = "File too large. Maximum size is 10MB."
)

// APIError is a non-2xx answer from the collaborator. Message carries the
// server's own wording when it sent any; Fields holds per-field validation
// messages.
type APIError struct {
	Status  int
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == code
}

func parseError(status int, body []byte) *APIError {
	e := &APIError{Status: status}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"error", "detail", "message"} {
			if s, ok := payload[key].(string); ok && s != "" {
				e.Message = s
				break
			}
		}
		if e.Message == "" {
			e.Fields = fieldErrors(payload)
			e.Message = joinFields(e.Fields)
		}
	}

	switch {
	case status == http.StatusUnauthorized:
		e.Err = ErrUnauthorized
	case status == http.StatusNotFound:
		e.Err = ErrNotFound
	case status == http.StatusConflict,
		status == http.StatusBadRequest && strings.Contains(strings.ToLower(e.Message), "already applied"):
		e.Err = ErrAlreadyApplied
		e.Message = MsgAlreadyApplied
	case status == http.StatusRequestEntityTooLarge:
		e.Err = ErrResumeTooLarge
		e.Message = MsgResumeTooLarge
	}
	return e
}

func fieldErrors(payload map[string]any) map[string][]string {
	out := map[string][]string{}
	for k, v := range payload {
		switch val := v.(type) {
		case string:
			out[k] = []string{val}
		case []any:
			for _, item := range val {
				if s, ok := item.(string); ok {
					out[k] = append(out[k], s)
				}
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func joinFields(fields map[string][]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(fields[k], " ")))
	}
	return strings.Join(parts, "; ")
}
