package events

import "time"

// OperationStart is emitted before a typed operation is executed or sent.
type OperationStart struct {
	// Transport names the entry point: "execute", "client" or "server".
	Transport     string
	OperationName string
	OperationType string
	Query         string
}

// OperationFinish is emitted after a typed operation completes.
type OperationFinish struct {
	Transport     string
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
}
