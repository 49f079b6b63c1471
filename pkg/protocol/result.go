package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnreachable matches failures where the service could not be reached.
	ErrUnreachable = errors.New("service unreachable")
	// ErrRejected matches failures reported by the service itself.
	ErrRejected = errors.New("service reported an error")
)

// Kind classifies the outcome of a remote command.
type Kind int

const (
	KindOK Kind = iota
	// KindTransport covers connection failures and timeouts.
	KindTransport
	// KindEnvelope is a non-2xx reply, a missing result or an error at the
	// outer layer.
	KindEnvelope
	// KindCommand is success=false or an error inside the add-on response.
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindTransport:
		return "transport"
	case KindEnvelope:
		return "envelope"
	case KindCommand:
		return "command"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the decoded outcome of one remote command. Data holds the raw
// add-on response whenever one was present.
type Result struct {
	Kind    Kind
	Message string
	Data    json.RawMessage
}

// OK reports whether both response layers signalled success.
func (r Result) OK() bool { return r.Kind == KindOK }

// Err returns nil for a successful result and an *Error otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Kind: r.Kind, Message: r.Message}
}

// Describe renders a message that tells an unreachable service apart from
// one that rejected the command.
func (r Result) Describe() string {
	if r.OK() {
		return "ok"
	}
	return r.Err().Error()
}

// Decode unmarshals the add-on response into v.
func (r Result) Decode(v any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("decode response: no command response")
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// RequireSuccess fails an OK result whose add-on response does not set
// success=true. Marker commands are only trusted on an explicit success.
func (r Result) RequireSuccess() Result {
	if !r.OK() {
		return r
	}
	var status commandStatus
	if err := json.Unmarshal(r.Data, &status); err != nil || status.Success == nil || !*status.Success {
		return CommandFailure(r.Data, "command did not report success")
	}
	return r
}

// Error is a failed Result as an error value.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Kind == KindTransport {
		return fmt.Sprintf("%s: %s", ErrUnreachable, e.Message)
	}
	return fmt.Sprintf("%s: %s", ErrRejected, e.Message)
}

// Is matches ErrUnreachable for transport failures and ErrRejected for the rest.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnreachable:
		return e.Kind == KindTransport
	case ErrRejected:
		return e.Kind == KindEnvelope || e.Kind == KindCommand
	}
	return false
}

// TransportFailure wraps a message describing why the service was not reached.
func TransportFailure(msg string) Result {
	return Result{Kind: KindTransport, Message: msg}
}

// EnvelopeFailure reports a reply that never reached the command layer.
func EnvelopeFailure(msg string) Result {
	return Result{Kind: KindEnvelope, Message: msg}
}

// CommandFailure marks an otherwise successful response as failed, e.g.
// when a required field is missing.
func CommandFailure(data json.RawMessage, msg string) Result {
	return Result{Kind: KindCommand, Message: msg, Data: data}
}

const unknownError = "Unknown error"

// Decode interprets a response body. Success requires a result with no
// outer error, and an add-on response that neither sets success=false nor
// carries its own error.
func Decode(body []byte) Result {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Result{Kind: KindEnvelope, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	var data json.RawMessage
	if env.Result != nil && !isNull(env.Result.Response) {
		data = env.Result.Response
	}

	if env.Error != nil {
		return Result{Kind: KindEnvelope, Message: messageOr(env.Error, nestedMessage(data)), Data: data}
	}
	if env.Result == nil {
		return Result{Kind: KindEnvelope, Message: "response has no result"}
	}
	if data == nil {
		return Result{Kind: KindEnvelope, Message: "response has no command result"}
	}

	var status commandStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return Result{Kind: KindCommand, Message: fmt.Sprintf("malformed command response: %v", err), Data: data}
	}
	if status.Error != nil {
		return Result{Kind: KindCommand, Message: messageOr(status.Error, ""), Data: data}
	}
	if status.Success != nil && !*status.Success {
		return Result{Kind: KindCommand, Message: "command returned success=false", Data: data}
	}
	return Result{Kind: KindOK, Data: data}
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func nestedMessage(data json.RawMessage) string {
	if data == nil {
		return ""
	}
	var status commandStatus
	if json.Unmarshal(data, &status) != nil || status.Error == nil {
		return ""
	}
	return status.Error.Message
}

func messageOr(e *ErrorBody, fallback string) string {
	if e != nil && e.Message != "" {
		return e.Message
	}
	if fallback != "" {
		return fallback
	}
	return unknownError
}
