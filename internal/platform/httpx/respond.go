// Package httpx provides HTTP response utilities for the dashboard API.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/odyssey-erp/commissiondesk/internal/shared"
)

// ErrorBody is the JSON body of failed requests.
type ErrorBody struct {
	Notification *shared.Notification `json:"notification"`
	Fields       shared.FieldErrors   `json:"fields,omitempty"`
	Back         string               `json:"back,omitempty"`
	Form         any                  `json:"form,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Notify sends a bare notification.
func Notify(w http.ResponseWriter, status int, n *shared.Notification) {
	JSON(w, status, ErrorBody{Notification: n})
}

// DecodeJSON decodes JSON request body into the target struct. An empty body leaves target untouched.
func DecodeJSON(r *http.Request, target any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return shared.NewValidationError("body", "request body is not valid JSON")
	}
	return nil
}
