// Package classify partitions a recipient batch against send history.
package classify

import "github.com/mailpilot/mailpilot/internal/model"

// Outcome is the bucket a recipient falls into
type Outcome int

const (
	Sendable Outcome = iota
	AlreadySent
	Invalid
)

// String returns the outcome name
func (o Outcome) String() string {
	switch o {
	case Sendable:
		return "sendable"
	case AlreadySent:
		return "already_sent"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// KeySet is a set of deduplication keys
type KeySet map[string]struct{}

// NewKeySet builds a set from keys
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports membership
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Add inserts a key
func (s KeySet) Add(key string) {
	s[key] = struct{}{}
}

// Result holds the three buckets, each in input order
type Result struct {
	Sendable    []model.Recipient
	AlreadySent []model.Recipient
	Invalid     []model.Recipient
}

// Counts is the pre-send confirmation view of a Result
type Counts struct {
	New         int `json:"new"`
	AlreadySent int `json:"alreadySent"`
	Invalid     int `json:"invalid"`
	Total       int `json:"total"`
}

// Counts summarizes the result
func (r Result) Counts() Counts {
	return Counts{
		New:         len(r.Sendable),
		AlreadySent: len(r.AlreadySent),
		Invalid:     len(r.Invalid),
		Total:       len(r.Sendable) + len(r.AlreadySent) + len(r.Invalid),
	}
}

// Recipient classifies a single record
func Recipient(rec model.Record, history KeySet) Outcome {
	if rec.Email() == "" {
		return Invalid
	}
	if history.Has(rec.EmailKey()) {
		return AlreadySent
	}
	return Sendable
}

// Batch is a stable partition of recipients. It performs no I/O.
func Batch(recipients []model.Recipient, history KeySet) Result {
	var res Result
	for _, r := range recipients {
		switch Recipient(r.Fields, history) {
		case Invalid:
			res.Invalid = append(res.Invalid, r)
		case AlreadySent:
			res.AlreadySent = append(res.AlreadySent, r)
		default:
			res.Sendable = append(res.Sendable, r)
		}
	}
	return res
}
