package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted before the client sends a request.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the round trip. Status is zero when Err is set.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Err      error
	Duration time.Duration
}
