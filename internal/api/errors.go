package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of failure categories a caller can branch on.
type Kind int

const (
	// KindNetwork covers transport failures, 5xx answers and bodies we could not decode.
	KindNetwork Kind = iota
	// KindValidation is a request the server (or the client, for missing ids) refused as malformed.
	KindValidation
	// KindRejected is a well-formed request the server refused, e.g. insufficient funds.
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Error is returned by every Client method that fails.
type Error struct {
	Kind    Kind
	Op      string // e.g. "POST /brokers/b1/buy"
	Status  int    // HTTP status, 0 when no response was received
	Message string // server-provided message, if any
	Err     error  // underlying transport or decode error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	default:
		return e.Op + ": " + e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the Kind of err. Errors that did not come from this package count as network.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindNetwork
}

// ServerMessage returns the message the backend put in its error body, or "".
func ServerMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// errorBody is the backend's error envelope. message is either a string (business rule
// failures) or a list of strings (payload validation failures).
type errorBody struct {
	StatusCode int             `json:"statusCode"`
	Message    json.RawMessage `json:"message"`
	Error      string          `json:"error"`
}

// classify builds an Error from a non-2xx response.
func classify(op string, status int, body []byte) *Error {
	e := &Error{Op: op, Status: status}

	var eb errorBody
	listMessage := false
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil && len(eb.Message) > 0 {
		var single string
		var list []string
		if err := json.Unmarshal(eb.Message, &single); err == nil {
			e.Message = single
		} else if err := json.Unmarshal(eb.Message, &list); err == nil {
			e.Message = strings.Join(list, "; ")
			listMessage = true
		}
	}
	if e.Message == "" && eb.Error != "" {
		e.Message = eb.Error
	}

	switch {
	case status >= 500:
		e.Kind = KindNetwork
	case status == 400 && listMessage, status == 422:
		e.Kind = KindValidation
	default:
		e.Kind = KindRejected
	}
	return e
}
