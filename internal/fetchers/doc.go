// Package fetchers provides the shared plumbing for the source fetcher
// implementations in its subpackages: per-source rate limiting and the
// retrying HTTP client.
//
// Each fetcher streams candidates over a channel pair and isolates
// failures to one page or one record; a bad page never kills the source.
// Every fetcher enforces its own candidate cap, because unbounded
// crawling is the most dangerous failure mode of this subsystem.
package fetchers
