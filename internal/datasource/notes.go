package datasource

import (
	"context"
	"sync"
)

// Notes collects informational messages a store emits while serving a call,
// such as a wildcard on an undirected graph falling back to incident edges.
type Notes struct {
	mu   sync.Mutex
	msgs []string
}

type notesKey struct{}

// WithNotes returns a context whose store calls append their notes to n.
func WithNotes(ctx context.Context, n *Notes) context.Context {
	return context.WithValue(ctx, notesKey{}, n)
}

// AddNote appends msg to the collector in ctx, if any.
func AddNote(ctx context.Context, msg string) {
	if ctx == nil {
		return
	}
	if n, ok := ctx.Value(notesKey{}).(*Notes); ok && n != nil {
		n.mu.Lock()
		n.msgs = append(n.msgs, msg)
		n.mu.Unlock()
	}
}

// List returns the collected notes in arrival order.
func (n *Notes) List() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}
