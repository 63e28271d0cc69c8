package jsonfix

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// DecodeError reports output that could not be parsed as JSON even after repair.
// It is distinct from provider errors so callers can apply a different retry policy.
type DecodeError struct {
	Raw       string
	Repaired  bool // repair produced valid JSON that still did not fit the target
	Truncated bool // output ended inside a string or with unclosed brackets
	Cause     error
}

func (e *DecodeError) Error() string {
	state := "malformed"
	if e.Truncated {
		state = "truncated"
	}
	if e.Cause != nil {
		return fmt.Sprintf("decode error: %s JSON: %v", state, e.Cause)
	}
	return fmt.Sprintf("decode error: %s JSON", state)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// IsDecodeError reports whether err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Result describes how a document was decoded.
type Result struct {
	JSON     string // the document that was finally unmarshaled
	Repaired bool
}

// Decode parses raw model output into v, repairing structure if needed.
func Decode(raw string, v any) error {
	_, err := DecodeWithResult(raw, v)
	return err
}

// DecodeWithResult parses raw model output into v and reports whether repair was needed.
func DecodeWithResult(raw string, v any) (*Result, error) {
	cleaned := CleanJSONBlock(raw)
	if cleaned == "" {
		return nil, &DecodeError{Raw: raw, Cause: errors.New("empty response")}
	}

	if gjson.Valid(cleaned) {
		if err := json.Unmarshal([]byte(cleaned), v); err != nil {
			return nil, &DecodeError{Raw: raw, Cause: err}
		}
		return &Result{JSON: cleaned}, nil
	}

	truncated := IsTruncated(cleaned)
	repaired, ok := Repair(cleaned)
	if !ok {
		return nil, &DecodeError{
			Raw:       raw,
			Truncated: truncated,
			Cause:     errors.New("repair did not produce valid JSON"),
		}
	}

	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return nil, &DecodeError{Raw: raw, Repaired: true, Truncated: truncated, Cause: err}
	}
	return &Result{JSON: repaired, Repaired: true}, nil
}
