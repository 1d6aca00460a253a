// internal/audit/types.go
package audit

import (
	"fmt"
	"sort"
)

// Kind names a class of consistency problem.
type Kind string

const (
	KindMissingField        Kind = "missing-field"
	KindBannerMismatch      Kind = "banner-mismatch"
	KindIdentityDrift       Kind = "identity-drift"
	KindSlotConflict        Kind = "slot-conflict"
	KindSharedIdentity      Kind = "shared-identity"
	KindMasterMismatch      Kind = "master-mismatch"
	KindUnknownIndex        Kind = "unknown-index"
	KindMainIndexUnassigned Kind = "main-index-unassigned"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// SeverityOf returns the fixed severity of a finding kind.
func SeverityOf(k Kind) Severity {
	switch k {
	case KindMissingField, KindBannerMismatch, KindSlotConflict:
		return SeverityError
	default:
		return SeverityWarning
	}
}

// Finding is one reported inconsistency. Findings are never corrected.
type Finding struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Index    int      `json:"r_index"`
	Path     string   `json:"path,omitempty"`
	Message  string   `json:"message"`
}

func (f Finding) String() string {
	loc := f.Path
	if loc == "" {
		loc = "master"
	}
	return fmt.Sprintf("%-7s %-21s index=%d %s: %s", f.Severity, f.Kind, f.Index, loc, f.Message)
}

// Report is the sorted result of one audit run.
type Report struct {
	Findings []Finding `json:"findings"`
	Files    int       `json:"files"`
	Skipped  []string  `json:"skipped,omitempty"`
}

// Errors counts error-severity findings.
func (r Report) Errors() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Warnings counts warning-severity findings.
func (r Report) Warnings() int {
	return len(r.Findings) - r.Errors()
}

func (r *Report) add(k Kind, index int, path, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{
		Kind:     k,
		Severity: SeverityOf(k),
		Index:    index,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (r *Report) sort() {
	sort.SliceStable(r.Findings, func(i, j int) bool {
		a, b := r.Findings[i], r.Findings[j]
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Message < b.Message
	})
}
