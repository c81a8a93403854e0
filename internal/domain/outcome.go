package domain

import "time"

// Status is the terminal state of one relay sequence.
type Status string

const (
	// Delivered means a server answered HTTP 200.
	Delivered Status = "delivered"
	// Exhausted means every server was tried without a 200.
	Exhausted Status = "exhausted"
)

// Attempt records one POST to one server.
type Attempt struct {
	Server     string
	StatusCode int // 0 when the request failed before a response arrived
	Err        error
	Duration   time.Duration
}

// Outcome summarizes a relay sequence. Callers are free to ignore it.
type Outcome struct {
	Status   Status
	Server   string // server that accepted the report, empty if exhausted
	Attempts []Attempt
}

// Servers returns the servers contacted, in order.
func (o Outcome) Servers() []string {
	out := make([]string, len(o.Attempts))
	for i, a := range o.Attempts {
		out[i] = a.Server
	}
	return out
}
