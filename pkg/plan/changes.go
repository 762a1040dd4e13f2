package plan

import (
	"fmt"
	"strings"

	"github.com/omnistor/omnistor/pkg/provider"
)

// DetectChanges diffs an original entry snapshot against a user-edited
// one, keyed by entry ID.
//
// Classification:
//   - present in original, absent from edited  -> delete
//   - present in edited, absent from original  -> create, unless the
//     edited path collides with a path in the original snapshot, which
//     is a duplication of existing content -> copy
//   - same ID, different path                  -> move (covers renames)
//   - same ID, same path                       -> unchanged
//
// Each entry classifies into exactly one category.
func DetectChanges(original, edited []provider.Entry) *ChangeSet {
	originalByID := make(map[string]provider.Entry, len(original))
	originalByPath := make(map[string]provider.Entry, len(original))
	for _, e := range original {
		originalByID[e.ID] = e
		originalByPath[e.Path] = e
	}
	editedByID := make(map[string]provider.Entry, len(edited))
	editedPaths := make(map[string]struct{}, len(edited))
	for _, e := range edited {
		editedByID[e.ID] = e
		editedPaths[e.Path] = struct{}{}
	}

	cs := &ChangeSet{Moves: make(map[string]Move)}

	for _, e := range original {
		if _, ok := editedByID[e.ID]; !ok {
			cs.Deletes = append(cs.Deletes, e)
		}
	}

	for _, e := range edited {
		orig, known := originalByID[e.ID]
		if known {
			if orig.Path != e.Path {
				cs.Moves[orig.ID] = Move{Entry: orig, NewPath: e.Path}
			}
			continue
		}

		if src, collides := originalByPath[e.Path]; collides {
			// A new ID at an existing path duplicates that object rather
			// than introducing new content. The raw destination equals the
			// source path, which is not executable; resolve a free name
			// within the edited snapshot.
			cs.Copies = append(cs.Copies, Copy{
				Source:      src,
				Destination: resolveCopyDestination(e.Path, editedPaths),
			})
			continue
		}

		cs.Creates = append(cs.Creates, e)
	}

	return cs
}

// resolveCopyDestination picks a collision-free destination for a
// duplicated entry: " (copy)" before the extension, then " (copy 2)",
// " (copy 3)", ... The chosen name is reserved in taken so repeated
// duplications of one path do not collide with each other.
func resolveCopyDestination(path string, taken map[string]struct{}) string {
	stem, ext := splitExtension(path)
	for n := 1; ; n++ {
		candidate := stem + " (copy)" + ext
		if n > 1 {
			candidate = fmt.Sprintf("%s (copy %d)%s", stem, n, ext)
		}
		if _, exists := taken[candidate]; !exists {
			taken[candidate] = struct{}{}
			return candidate
		}
	}
}

func splitExtension(path string) (stem, ext string) {
	trailing := strings.HasSuffix(path, "/")
	p := strings.TrimSuffix(path, "/")

	base := p
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		base = p[idx+1:]
	}
	if dot := strings.LastIndex(base, "."); dot > 0 && !trailing {
		cut := len(p) - (len(base) - dot)
		return p[:cut], p[cut:]
	}
	if trailing {
		return p, "/"
	}
	return p, ""
}
