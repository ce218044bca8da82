// Package dedupe remembers the outcome of submissions by client-supplied ID
// so retried submissions are answered without writing twice.
package dedupe

import (
	"context"
	"sync"

	"github.com/okian/mjledger/internal/domain/model"
)

// DefaultMaxSize bounds the number of remembered submissions.
const DefaultMaxSize = 1024

// Deduper records the result of accepted submissions.
type Deduper interface {
	// Lookup returns the stored result for id, if any.
	Lookup(ctx context.Context, id string) (model.AppendResult, bool)

	// Record stores the result for id. Recording an existing id refreshes it.
	Record(ctx context.Context, id string, res model.AppendResult)

	// Forget drops id so the submission can be accepted again.
	Forget(ctx context.Context, id string)

	Size() int
}

// node is one entry of the recency list; head is the newest entry.
type node struct {
	id         string
	res        model.AppendResult
	prev, next *node
}

// inMemoryDeduper keeps at most maxSize results and evicts the oldest first.
// maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*node
	head    *node
	tail    *node
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: DefaultMaxSize,
		seen:    make(map[string]*node),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) Lookup(_ context.Context, id string) (model.AppendResult, bool) {
	if id == "" {
		return model.AppendResult{}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.seen[id]
	if !ok {
		return model.AppendResult{}, false
	}
	return n.res, true
}

func (d *inMemoryDeduper) Record(_ context.Context, id string, res model.AppendResult) {
	if id == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.seen[id]; ok {
		n.res = res
		d.unlink(n)
		d.pushFront(n)
		return
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	n := &node{id: id, res: res}
	d.pushFront(n)
	d.seen[id] = n
}

func (d *inMemoryDeduper) Forget(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n, ok := d.seen[id]; ok {
		d.unlink(n)
		delete(d.seen, id)
	}
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// Must be called with d.mu held.
func (d *inMemoryDeduper) pushFront(n *node) {
	n.prev = nil
	n.next = d.head
	if d.head != nil {
		d.head.prev = n
	}
	d.head = n
	if d.tail == nil {
		d.tail = n
	}
}

// Must be called with d.mu held.
func (d *inMemoryDeduper) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

// Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	if d.tail == nil {
		return
	}
	n := d.tail
	d.unlink(n)
	delete(d.seen, n.id)
}
