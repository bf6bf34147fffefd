package uploader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrParse        = errors.New("response is not valid JSON")
	ErrMissingField = errors.New("response has no text field")
	ErrAPI          = errors.New("transcription API error")
)

type Result struct {
	Text string
}

// ResponseError keeps the raw body of a reply that could not be turned
// into a transcription.
type ResponseError struct {
	Err    error
	Detail string
	Raw    []byte
}

func (e *ResponseError) Error() string {
	if e.Detail != "" {
		return e.Err.Error() + ": " + e.Detail
	}
	return e.Err.Error()
}

func (e *ResponseError) Unwrap() error { return e.Err }

// ParseResponse extracts the "text" field from a transcription reply.
func ParseResponse(raw []byte) (Result, error) {
	body := bytes.TrimSpace(raw)
	if len(body) == 0 {
		return Result{}, &ResponseError{Err: ErrParse, Detail: "empty body", Raw: raw}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Result{}, &ResponseError{Err: ErrParse, Detail: err.Error(), Raw: raw}
	}

	if apiErr, ok := fields["error"]; ok && string(apiErr) != "null" {
		return Result{}, &ResponseError{Err: ErrAPI, Detail: apiMessage(apiErr), Raw: raw}
	}

	text, ok := fields["text"]
	if !ok {
		return Result{}, &ResponseError{Err: ErrMissingField, Raw: raw}
	}
	var s *string
	if err := json.Unmarshal(text, &s); err != nil || s == nil {
		return Result{}, &ResponseError{Err: ErrMissingField, Detail: fmt.Sprintf("text is %s", kind(text)), Raw: raw}
	}
	return Result{Text: *s}, nil
}

func apiMessage(raw json.RawMessage) string {
	var obj struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Type != "" {
			return obj.Type
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	return string(raw)
}

func kind(raw json.RawMessage) string {
	switch b := bytes.TrimSpace(raw); {
	case len(b) == 0:
		return "empty"
	case b[0] == '{':
		return "an object"
	case b[0] == '[':
		return "an array"
	case b[0] == 'n':
		return "null"
	case b[0] == 't' || b[0] == 'f':
		return "a boolean"
	default:
		return "a number"
	}
}
