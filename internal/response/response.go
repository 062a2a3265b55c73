// Package response renders workflow outcomes as the JSON envelope returned
// by the CLI and the HTTP surface.
package response

import (
	"encoding/json"
	"errors"

	"github.com/evanofslack/adsmutate/internal/apierr"
)

type success struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

type failure struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// Details is attached to failures produced from a typed error.
type Details struct {
	Kind     string                    `json:"kind"`
	Category apierr.Category           `json:"category"`
	Hint     string                    `json:"hint"`
	Codes    []string                  `json:"codes,omitempty"`
	Failures []apierr.OperationFailure `json:"failures,omitempty"`
	Result   any                       `json:"result,omitempty"`
}

func Success(data any, message string) string {
	return encode(success{Status: "success", Message: message, Data: data})
}

func Error(msg string, details any) string {
	return encode(failure{Status: "error", Error: msg, Details: details})
}

// Failure classifies err and renders it. result, when non-nil, carries
// whatever the workflow committed before it failed.
func Failure(err error, result any) string {
	category, hint := apierr.Classify(err)
	d := Details{
		Kind:     apierr.KindOf(err).String(),
		Category: category,
		Hint:     hint,
		Result:   result,
	}
	var e *apierr.Error
	if errors.As(err, &e) {
		d.Codes = e.Codes
		d.Failures = e.Failures
	}
	return Error(err.Error(), d)
}

func encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(failure{Status: "error", Error: "encode response: " + err.Error()})
	}
	return string(b)
}
