// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Stats holds the aggregate counters for one processing run.
type Stats struct {
	Fetched  int `json:"fetched" yaml:"fetched"`
	Enhanced int `json:"enhanced" yaml:"enhanced"`
	Saved    int `json:"saved" yaml:"saved"`
	Failed   int `json:"failed" yaml:"failed"`
	Skipped  int `json:"skipped" yaml:"skipped"`
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Fetched += other.Fetched
	s.Enhanced += other.Enhanced
	s.Saved += other.Saved
	s.Failed += other.Failed
	s.Skipped += other.Skipped
}

// ProcessError records a recovered per-paper failure. Batch-level
// failures carry an empty PaperID.
type ProcessError struct {
	PaperID string
	Stage   string
	Err     error
}

func (e ProcessError) Error() string {
	if e.PaperID == "" {
		return e.Stage + ": " + e.Err.Error()
	}
	return e.Stage + " " + e.PaperID + ": " + e.Err.Error()
}

func (e ProcessError) Unwrap() error { return e.Err }

// Result is the outcome of a processing run. Per-paper failures never
// abort a run; they are recorded here instead.
type Result struct {
	Papers []Paper
	Stats  Stats
	Errors []ProcessError
}

// InsertStatus is the typed outcome of a sink insert. Callers branch
// on the status instead of inspecting error strings; "already exists"
// is a distinct condition so the processor can classify it as success.
type InsertStatus int

const (
	StatusInserted InsertStatus = iota
	StatusExists
	StatusFailed
)

// String returns the status label used in progress output.
func (s InsertStatus) String() string {
	switch s {
	case StatusInserted:
		return "inserted"
	case StatusExists:
		return "exists"
	default:
		return "failed"
	}
}

// InsertResult is a sink's report for one insert attempt.
type InsertResult struct {
	Status  InsertStatus `json:"status" yaml:"status"`
	Message string       `json:"message,omitempty" yaml:"message,omitempty"`
}

// OK reports whether the paper ended up stored in the sink, either by
// this insert or a previous one.
func (r InsertResult) OK() bool {
	return r.Status == StatusInserted || r.Status == StatusExists
}
