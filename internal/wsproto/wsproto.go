// Package wsproto holds the message envelope of the graphql-transport-ws
// subprotocol shared by the subscription client and the test server.
package wsproto

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
)

// Subprotocol is the Sec-WebSocket-Protocol value both sides negotiate.
const Subprotocol = "graphql-transport-ws"

const (
	ConnectionInit = "connection_init"
	ConnectionAck  = "connection_ack"
	Ping           = "ping"
	Pong           = "pong"
	Subscribe      = "subscribe"
	Next           = "next"
	Error          = "error"
	Complete       = "complete"
)

// Message is one frame of the protocol.
type Message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubscribePayload is the payload of a Subscribe message.
type SubscribePayload struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode marshals a frame with the given payload. A nil payload is omitted.
func Encode(id, typ string, payload any) ([]byte, error) {
	m := Message{ID: id, Type: typ}
	if payload != nil {
		raw, err := codec.Marshal(payload)
		if err != nil {
			return nil, err
		}
		m.Payload = raw
	}
	return codec.Marshal(m)
}

// Decode unmarshals a frame.
func Decode(data []byte) (Message, error) {
	var m Message
	err := codec.Unmarshal(data, &m)
	return m, err
}

// Unmarshal decodes a payload into v.
func Unmarshal(payload json.RawMessage, v any) error {
	return codec.Unmarshal(payload, v)
}
