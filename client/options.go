package client

import "time"

// CallOption adjusts a single operation.
type CallOption func(*callConfig)

type callConfig struct {
	policy FetchPolicy
	raw    map[string]any
	opName string
	poll   time.Duration
}

func newCallConfig(opts []CallOption) callConfig {
	var cfg callConfig
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// WithPolicy overrides the client's fetch policy.
func WithPolicy(p FetchPolicy) CallOption { return func(c *callConfig) { c.policy = p } }

// WithVariableValues sends vars instead of the typed variables argument,
// after checking them against the variables type exactly. It serves
// variables that arrive as decoded JSON.
func WithVariableValues(vars map[string]any) CallOption {
	return func(c *callConfig) { c.raw = vars }
}

// WithOperationName selects another operation of a multi-operation document.
func WithOperationName(name string) CallOption { return func(c *callConfig) { c.opName = name } }

// WithPollInterval makes WatchQuery refetch from the network periodically.
func WithPollInterval(d time.Duration) CallOption { return func(c *callConfig) { c.poll = d } }
