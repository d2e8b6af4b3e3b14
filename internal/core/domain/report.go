package domain

import "time"

// ItemError records one per-item failure inside a batch.
type ItemError struct {
	// SourceID is the source the item came from.
	SourceID string `json:"sourceId"`

	// URL identifies the failed item, when known.
	URL string `json:"url"`

	// Stage is where the failure occurred: fetch, normalise or store.
	Stage string `json:"stage"`

	// Reason is the error message.
	Reason string `json:"reason"`
}

// Rejection records one document the validator turned away.
// Rejections are audit data, distinct from errors: the document was
// fetched and normalised fine, it just failed the acceptance rules.
type Rejection struct {
	// SourceID is the source the document came from.
	SourceID string `json:"sourceId"`

	// URL is the document's source URL.
	URL string `json:"url"`

	// Reasons lists every violated rule.
	Reasons []string `json:"reasons"`

	// Score is the fraction of rules the document passed.
	Score float64 `json:"score"`
}

// BatchReport is the machine-readable result of one pipeline invocation.
// A batch always completes with a full report, even when every item
// failed; per-item failures never abort the batch.
type BatchReport struct {
	// BatchID uniquely identifies this invocation.
	BatchID string `json:"batchId"`

	// StartedAt and FinishedAt bound the batch wall-clock time.
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// Accepted counts documents written to the store in this run.
	// Upsert is "set", not "insert-if-absent": a re-run writes the same
	// documents again and counts them again.
	Accepted int `json:"accepted"`

	// Rejected counts documents the validator turned away.
	Rejected int `json:"rejected"`

	// Errors lists per-item failures in completion order.
	// Tests must not assume submission order.
	Errors []ItemError `json:"errors"`

	// Rejections lists validator outcomes for rejected documents.
	Rejections []Rejection `json:"rejections,omitempty"`
}
