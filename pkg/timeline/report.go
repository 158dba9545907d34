package timeline

import "fmt"

// Severity classifies how a diagnostic affects processing.
type Severity int

const (
	// SeverityWarning marks a recoverable data-integrity problem.
	// Processing continues with a best-effort partial graph.
	SeverityWarning Severity = iota
	// SeverityError marks a problem fatal to the affected timeline.
	// Other timelines in the same document are unaffected.
	SeverityError
)

// String returns "warning" or "error".
func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic codes emitted by the builder and the document loader.
const (
	// DiagDuplicateID reports a node ID appearing more than once.
	// The last occurrence wins.
	DiagDuplicateID = "duplicate_id"
	// DiagUnresolvedRef reports a default-next, branch, or timing reference
	// that does not resolve to a node. The edge is dropped.
	DiagUnresolvedRef = "unresolved_reference"
	// DiagCycle reports a chain walk revisiting an already-visited node.
	// The walk stops; the partial chain is retained.
	DiagCycle = "cycle"
	// DiagUnreachable reports a node not reachable from the entry by any path.
	// The node is excluded from layout.
	DiagUnreachable = "unreachable_node"
	// DiagUnknownKind reports an unrecognized instance type in the source
	// document. The node is loaded as an activity.
	DiagUnknownKind = "unknown_kind"
	// DiagNoEntry reports a timeline whose entry reference does not resolve.
	// The timeline is skipped.
	DiagNoEntry = "no_entry"
	// DiagBadReference reports embedded usdm:ref/usdm:tag markup that could
	// not be fully resolved in display text.
	DiagBadReference = "bad_reference"
)

// Diagnostic is one collected finding with enough context to locate the
// offending input.
type Diagnostic struct {
	Severity Severity `json:"severity" bson:"severity"`
	Code     string   `json:"code" bson:"code"`
	NodeID   string   `json:"node_id,omitempty" bson:"node_id,omitempty"`
	Message  string   `json:"message" bson:"message"`
}

// String formats the diagnostic for logs and warning panels.
func (d Diagnostic) String() string {
	if d.NodeID != "" {
		return fmt.Sprintf("%s [%s] %s: %s", d.Severity, d.Code, d.NodeID, d.Message)
	}
	return fmt.Sprintf("%s [%s] %s", d.Severity, d.Code, d.Message)
}

// Report collects diagnostics during graph building so one malformed
// timeline never prevents processing of the others. The zero value is ready
// to use.
type Report struct {
	Diagnostics []Diagnostic `json:"diagnostics,omitempty" bson:"diagnostics,omitempty"`
}

// Warnf records a warning-severity diagnostic.
func (r *Report) Warnf(code, nodeID, format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		NodeID:   nodeID,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Errorf records an error-severity diagnostic.
func (r *Report) Errorf(code, nodeID, format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Severity: SeverityError,
		Code:     code,
		NodeID:   nodeID,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Merge appends all diagnostics from other into r.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Diagnostics = append(r.Diagnostics, other.Diagnostics...)
}

// Empty reports whether no diagnostics were collected.
func (r *Report) Empty() bool { return len(r.Diagnostics) == 0 }

// HasErrors reports whether any error-severity diagnostic was collected.
func (r *Report) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Count returns the number of diagnostics with the given code.
func (r *Report) Count(code string) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Code == code {
			n++
		}
	}
	return n
}

// Messages returns the formatted diagnostics, suitable for a warnings panel.
func (r *Report) Messages() []string {
	msgs := make([]string, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		msgs[i] = d.String()
	}
	return msgs
}
