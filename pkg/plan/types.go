// Package plan turns a user-edited snapshot of entries into a safe,
// ordered sequence of primitive storage operations.
//
// Identity, not path, is the ground truth: an entry whose path changed
// under a stable ID is a move, and a new ID appearing at an existing
// path is a duplication (copy), not new content.
package plan

import (
	"github.com/google/uuid"

	"github.com/omnistor/omnistor/pkg/provider"
)

// OperationType names a primitive operation the executor can dispatch.
type OperationType string

const (
	OpCreate   OperationType = "create"
	OpDelete   OperationType = "delete"
	OpMove     OperationType = "move"
	OpCopy     OperationType = "copy"
	OpRename   OperationType = "rename"
	OpDownload OperationType = "download"
	OpUpload   OperationType = "upload"
)

// PendingOperation is one unit of work awaiting confirmation/execution.
// Produced either by direct user action or by the planner.
type PendingOperation struct {
	// ID correlates the operation through progress events and reports.
	ID string `json:"id"`

	// Type selects the primitive to dispatch.
	Type OperationType `json:"type"`

	// Source is the origin path, where the operation has one.
	Source string `json:"source,omitempty"`

	// Destination is the target path, where the operation has one.
	Destination string `json:"destination,omitempty"`

	// Recursive marks directory-subtree operations.
	Recursive bool `json:"recursive,omitempty"`

	// Entry is the snapshot the operation was derived from, when the
	// planner produced it. Direct user operations may leave it zero.
	Entry provider.Entry `json:"entry,omitzero"`
}

// NewOperation builds a PendingOperation with a fresh correlation ID.
func NewOperation(typ OperationType, source, destination string, recursive bool) PendingOperation {
	return PendingOperation{
		ID:          uuid.NewString(),
		Type:        typ,
		Source:      source,
		Destination: destination,
		Recursive:   recursive,
	}
}

// ChangeSet is the classified diff between two entry snapshots keyed by
// identity. Every entry in the union of the two snapshots lands in
// exactly one category (or is unchanged).
type ChangeSet struct {
	// Creates are entries present only in the edited snapshot.
	Creates []provider.Entry

	// Deletes are entries present only in the original snapshot.
	Deletes []provider.Entry

	// Moves maps original entry ID to its new path.
	Moves map[string]Move

	// Copies are duplications of existing content under a new ID.
	Copies []Copy
}

// Move records a path change under a stable identity. It covers both
// relocation and pure rename.
type Move struct {
	Entry   provider.Entry // original snapshot entry
	NewPath string
}

// Copy records a duplication: an edited entry with a new ID whose path
// collides with an entry already present in the original snapshot.
type Copy struct {
	Source      provider.Entry // the original entry at the collided path
	Destination string         // resolved, collision-free destination
}

// Empty reports whether the change set contains no work.
func (cs *ChangeSet) Empty() bool {
	return len(cs.Creates) == 0 && len(cs.Deletes) == 0 && len(cs.Moves) == 0 && len(cs.Copies) == 0
}

// Summary counts planned operations per kind.
type Summary struct {
	Creates int `json:"creates"`
	Copies  int `json:"copies"`
	Moves   int `json:"moves"`
	Deletes int `json:"deletes"`
	Total   int `json:"total"`
}

// Plan is an ordered, safety-sequenced list of operations derived from
// a ChangeSet. Ordering is fixed: creates, copies, moves, deletes.
type Plan struct {
	Operations []PendingOperation `json:"operations"`
	Summary    Summary            `json:"summary"`
}
