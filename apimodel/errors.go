package apimodel

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/jrsteele09/wbcms-session/internal/errors"
)

// ServerError is a non-2xx response with the message the backend reported.
type ServerError struct {
	Status  int
	Message string
	Details []string
}

var _ error = (*ServerError)(nil)

func (e *ServerError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, msg)
}

func (e *ServerError) Unwrap() error {
	return errors.ErrServer
}

// UserMessage is the message suitable for showing to a user. It is empty
// when the body carried no message and no fallback was given.
func (e *ServerError) UserMessage() string {
	if e.Message == "" || len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, ". ")
}

// NewServerError builds a ServerError from a response body, falling back to
// fallback when the body carries no recognizable message.
func NewServerError(status int, body []byte, fallback string) *ServerError {
	msg, details := ExtractMessage(body)
	if msg == "" {
		msg = fallback
	}
	return &ServerError{Status: status, Message: msg, Details: details}
}

// ExtractMessage understands the error shapes the backend produces:
// {"error": "...", "details": [...]}, {"detail": "..."} and serializer
// field errors {"field": ["..."]}.
func ExtractMessage(body []byte) (string, []string) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", nil
	}

	details := stringList(raw["details"])
	for _, key := range []string{"error", "detail", "message"} {
		if msg := stringValue(raw[key]); msg != "" {
			return msg, details
		}
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fieldErrors []string
	for _, k := range keys {
		for _, m := range stringList(raw[k]) {
			fieldErrors = append(fieldErrors, k+": "+m)
		}
	}
	if len(fieldErrors) == 0 {
		return "", nil
	}
	return strings.Join(fieldErrors, ". "), nil
}

func stringValue(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return list
	}
	if s := stringValue(raw); s != "" {
		return []string{s}
	}
	return nil
}
