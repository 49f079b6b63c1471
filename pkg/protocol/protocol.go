// Package protocol implements the remote add-on command protocol: the
// request envelope, the two-layer response envelope, and the typed result
// every call site gets back.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Command is the fixed top-level command of every request.
const Command = "API.ExecuteAddOnCommand"

// DefaultNamespace is the add-on namespace commands are sent to.
const DefaultNamespace = "DimensionGh"

// Request is the wire form of one add-on command call.
type Request struct {
	Command    string     `json:"command"`
	Parameters Parameters `json:"parameters"`
}

// Parameters carries the add-on command id and its parameters.
type Parameters struct {
	ID     CommandID `json:"addOnCommandId"`
	Params any       `json:"addOnCommandParameters"`
}

// CommandID names an add-on command.
type CommandID struct {
	Namespace string `json:"commandNamespace"`
	Name      string `json:"commandName"`
}

// NewRequest builds a request for name in namespace. A nil params encodes as
// an empty object.
func NewRequest(namespace, name string, params any) Request {
	if params == nil {
		params = struct{}{}
	}
	return Request{
		Command: Command,
		Parameters: Parameters{
			ID:     CommandID{Namespace: namespace, Name: name},
			Params: params,
		},
	}
}

// Encode marshals the request body.
func (r Request) Encode() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.Parameters.ID.Name, err)
	}
	return b, nil
}

// Envelope is the outer response layer.
type Envelope struct {
	Result *EnvelopeResult `json:"result,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

// EnvelopeResult wraps the add-on command's own response.
type EnvelopeResult struct {
	Response json.RawMessage `json:"addOnCommandResponse,omitempty"`
}

// ErrorBody is an error object at either response layer.
type ErrorBody struct {
	Message string `json:"message"`
}

// commandStatus is the part of an add-on response the decoder inspects.
type commandStatus struct {
	Success *bool      `json:"success"`
	Error   *ErrorBody `json:"error"`
}
