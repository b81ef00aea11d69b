package domain

// FailurePolicy decides what a duplication does when a copy cannot be persisted.
type FailurePolicy string

const (
	// FailureSkipBranch drops the failed record's subtree, keeps duplicating
	// sibling branches, and reports the failure alongside the partial result.
	FailureSkipBranch FailurePolicy = "skip_branch"
	// FailureAbort stops the whole traversal at the first failure.
	FailureAbort FailurePolicy = "abort"
)

// DuplicateOptions configures a duplication.
//
// Include and Exclude select relationships of the record they are passed
// with; Include wins when both are set. Validate is off by default so copies
// are saved without running validation rules.
type DuplicateOptions struct {
	AttributeOverrides Attributes
	Include            []string
	Exclude            []string
	Validate           bool
	FailurePolicy      FailurePolicy
}

// Policy returns the effective failure policy.
func (o DuplicateOptions) Policy() FailurePolicy {
	if o.FailurePolicy == "" {
		return FailureSkipBranch
	}
	return o.FailurePolicy
}

// DuplicationEntry pairs a source record with the copy created for it.
type DuplicationEntry struct {
	Source RecordRef `json:"source"`
	Clone  Record    `json:"clone"`
	Depth  int       `json:"depth"`
}

// Duplication is the ordered set of copies produced by one duplication,
// root first, parents before children.
type Duplication struct {
	Entries  []DuplicationEntry `json:"entries"`
	Failures []error            `json:"-"`
}

// Root returns the copy of the record the duplication started from.
func (d Duplication) Root() (Record, bool) {
	if len(d.Entries) == 0 || d.Entries[0].Depth != 0 {
		return Record{}, false
	}
	return d.Entries[0].Clone, true
}

// Clones returns every copy in creation order.
func (d Duplication) Clones() []Record {
	out := make([]Record, 0, len(d.Entries))
	for _, e := range d.Entries {
		out = append(out, e.Clone)
	}
	return out
}

// CloneOf returns the copy created for the given source record.
func (d Duplication) CloneOf(source RecordRef) (Record, bool) {
	for _, e := range d.Entries {
		if e.Source == source {
			return e.Clone, true
		}
	}
	return Record{}, false
}

// Partial reports whether some branches were skipped.
func (d Duplication) Partial() bool { return len(d.Failures) > 0 }
