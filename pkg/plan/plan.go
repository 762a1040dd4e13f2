package plan

import (
	"sort"

	"github.com/omnistor/omnistor/pkg/provider"
)

// Build sequences a change set into an executable plan.
//
// Ordering is fixed: creates, then copies, then moves, then deletes.
// Creates and copies run before deletes so that a delete freeing up a
// path cannot invalidate an existence check for a creation that has
// not executed yet; deletes run last so no move or copy is starved of
// residual source data by an earlier delete of an unrelated sibling.
func Build(cs *ChangeSet) *Plan {
	p := &Plan{}

	for _, e := range sortedByPath(cs.Creates) {
		op := NewOperation(OpCreate, "", e.Path, e.IsDir())
		op.Entry = e
		p.Operations = append(p.Operations, op)
	}

	for _, c := range cs.Copies {
		op := NewOperation(OpCopy, c.Source.Path, c.Destination, c.Source.IsDir())
		op.Entry = c.Source
		p.Operations = append(p.Operations, op)
	}

	for _, id := range sortedMoveIDs(cs.Moves) {
		mv := cs.Moves[id]
		op := NewOperation(OpMove, mv.Entry.Path, mv.NewPath, mv.Entry.IsDir())
		op.Entry = mv.Entry
		p.Operations = append(p.Operations, op)
	}

	for _, e := range sortedByPath(cs.Deletes) {
		op := NewOperation(OpDelete, e.Path, "", e.IsDir())
		op.Entry = e
		p.Operations = append(p.Operations, op)
	}

	p.Summary = Summary{
		Creates: len(cs.Creates),
		Copies:  len(cs.Copies),
		Moves:   len(cs.Moves),
		Deletes: len(cs.Deletes),
	}
	p.Summary.Total = p.Summary.Creates + p.Summary.Copies + p.Summary.Moves + p.Summary.Deletes

	return p
}

// sortedByPath copies and orders entries for deterministic plans.
// Parent directories sort before their children, so directory creates
// happen before file creates inside them.
func sortedByPath(entries []provider.Entry) []provider.Entry {
	out := make([]provider.Entry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func sortedMoveIDs(moves map[string]Move) []string {
	ids := make([]string, 0, len(moves))
	for id := range moves {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return moves[ids[i]].Entry.Path < moves[ids[j]].Entry.Path })
	return ids
}
