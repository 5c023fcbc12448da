package snapshot

// FieldChange is a single top-level field whose value differs from the last
// emitted snapshot.
type FieldChange struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// Differ tracks the previously emitted snapshot for one streaming session.
// It is not safe for concurrent use; a session owns exactly one Differ.
type Differ struct {
	previous Snapshot
}

// NewDiffer returns a Differ whose previous snapshot is empty.
func NewDiffer() *Differ {
	return &Differ{previous: New()}
}

// Diff compares candidate against the previous snapshot and returns one
// FieldChange per key that is new or no longer deep-equal, in candidate
// encounter order. Keys missing from candidate are never reported. The
// previous snapshot becomes the union of itself and candidate.
func (d *Differ) Diff(candidate Snapshot) []FieldChange {
	var changes []FieldChange
	for _, k := range candidate.keys {
		next := candidate.values[k]
		if prev, ok := d.previous.values[k]; ok && Equal(prev, next) {
			continue
		}
		changes = append(changes, FieldChange{Field: k, Value: next})
	}

	d.previous = d.previous.Merge(candidate)
	return changes
}

// Previous returns the union of every snapshot passed to Diff so far.
func (d *Differ) Previous() Snapshot {
	return d.previous
}
