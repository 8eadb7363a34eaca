package repo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/b-vitamins/bibliography/internal/biblio"
)

// UpdatePair holds the before and after versions of an updated record.
type UpdatePair struct {
	Old biblio.Record
	New biblio.Record
}

// FileOp records a pending filesystem operation. Dst is empty for deletes.
type FileOp struct {
	Op  string // "copy", "move", "delete"
	Src string
	Dst string
}

// ChangeSet accumulates mutations recorded during a dry-run session. It is
// never persisted and is discarded when the session ends.
type ChangeSet struct {
	ID      string
	Added   []biblio.Record
	Removed []biblio.Record
	Updated []UpdatePair
	FileOps []FileOp
}

func newChangeSet() *ChangeSet {
	return &ChangeSet{ID: uuid.NewString()}
}

// Empty reports whether the changeset records no mutations.
func (c *ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Updated) == 0 && len(c.FileOps) == 0
}

// Summary renders a deterministic textual report of the recorded changes.
// Field diffs within an update are listed in sorted order.
func (c *ChangeSet) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== Change Summary [%s] ===", shortID(c.ID))

	if len(c.Added) > 0 {
		fmt.Fprintf(&b, "\n\nAdded %d entries:", len(c.Added))
		for _, rec := range c.Added {
			fmt.Fprintf(&b, "\n  + %s (%s)", rec.Key, rec.Type)
		}
	}

	if len(c.Removed) > 0 {
		fmt.Fprintf(&b, "\n\nRemoved %d entries:", len(c.Removed))
		for _, rec := range c.Removed {
			fmt.Fprintf(&b, "\n  - %s (%s)", rec.Key, rec.Type)
		}
	}

	if len(c.Updated) > 0 {
		fmt.Fprintf(&b, "\n\nUpdated %d entries:", len(c.Updated))
		for _, pair := range c.Updated {
			fmt.Fprintf(&b, "\n  ~ %s", pair.Old.Key)
			writeFieldDiff(&b, pair.Old.Fields, pair.New.Fields)
		}
	}

	if len(c.FileOps) > 0 {
		fmt.Fprintf(&b, "\n\nFile operations (%d):", len(c.FileOps))
		for _, op := range c.FileOps {
			switch op.Op {
			case "copy":
				fmt.Fprintf(&b, "\n  Copy: %s → %s", op.Src, op.Dst)
			case "move":
				fmt.Fprintf(&b, "\n  Move: %s → %s", op.Src, op.Dst)
			case "delete":
				fmt.Fprintf(&b, "\n  Delete: %s", op.Src)
			}
		}
	}

	return b.String()
}

func writeFieldDiff(b *strings.Builder, old, new map[string]string) {
	var added, removed, changed []string
	for name := range new {
		if _, ok := old[name]; !ok {
			added = append(added, name)
		}
	}
	for name := range old {
		if _, ok := new[name]; !ok {
			removed = append(removed, name)
		} else if old[name] != new[name] {
			changed = append(changed, name)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	sort.Strings(changed)

	for _, name := range added {
		fmt.Fprintf(b, "\n    + %s: %s", name, new[name])
	}
	for _, name := range removed {
		fmt.Fprintf(b, "\n    - %s: %s", name, old[name])
	}
	for _, name := range changed {
		fmt.Fprintf(b, "\n    ~ %s: %s → %s", name, old[name], new[name])
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
