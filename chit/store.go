/*
store.go - Storage collaborator interface

PURPOSE:
  The engine never touches storage. The surrounding application reads the
  whole fund collection once at startup, keeps it in memory, and writes the
  whole collection back after every mutation the engine returns.

CONTRACT:
  - LoadAll(): every stored fund; an empty store is not an error
  - SaveAll(): atomic replace of the whole collection. Either every fund
    in the slice is stored and nothing else remains, or the previous
    collection is untouched.

IMPLEMENTATIONS:
  - chit/store/memory.go: In-memory for testing
  - store/sqlite/sqlite.go: SQLite snapshot table
  - store/jsonfile/jsonfile.go: Single JSON document on disk
*/
package chit

import "context"

type Storage interface {
	LoadAll(ctx context.Context) ([]Fund, error)
	SaveAll(ctx context.Context, funds []Fund) error
}

// CloneAll deep-copies a collection.
func CloneAll(funds []Fund) []Fund {
	out := make([]Fund, len(funds))
	for i, f := range funds {
		out[i] = f.Clone()
	}
	return out
}
