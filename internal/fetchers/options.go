package fetchers

import "time"

// Default fetch limits.
const (
	DefaultMaxCandidates     = 100
	DefaultRequestsPerSecond = 1.0
	DefaultTimeout           = 30 * time.Second
	DefaultMaxRetries        = 2
)

// Options bounds the behaviour of every fetcher.
type Options struct {
	// MaxCandidates caps the number of records a fetcher emits.
	MaxCandidates int

	// RequestsPerSecond throttles outbound requests per source.
	RequestsPerSecond float64

	// Timeout is the per-request deadline.
	Timeout time.Duration

	// MaxRetries is how many times a failed request is retried with
	// exponential backoff before the failure is reported.
	MaxRetries int
}

// DefaultOptions returns the default fetch limits.
func DefaultOptions() Options {
	return Options{
		MaxCandidates:     DefaultMaxCandidates,
		RequestsPerSecond: DefaultRequestsPerSecond,
		Timeout:           DefaultTimeout,
		MaxRetries:        DefaultMaxRetries,
	}
}

// withDefaults fills zero fields with defaults.
func (o Options) withDefaults() Options {
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = DefaultMaxCandidates
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	return o
}
