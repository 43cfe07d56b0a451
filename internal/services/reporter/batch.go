package reporter

import (
	"sync"

	"github.com/vshulcz/Golastic/internal/domain"
)

// Collector hands out one batch per report cycle.
type Collector struct {
	sizeHint int
}

// Open starts a new batch, presized from the largest batch seen so far.
func (c *Collector) Open() *Batch {
	return &Batch{docs: make([]domain.Document, 0, c.sizeHint)}
}

// Close seals b and returns its documents. Closing a sealed batch returns nil.
func (c *Collector) Close(b *Batch) []domain.Document {
	docs := b.seal()
	if len(docs) > c.sizeHint {
		c.sizeHint = len(docs)
	}
	return docs
}

// Batch accumulates the documents of a single cycle.
type Batch struct {
	docs   []domain.Document
	mu     sync.Mutex
	closed bool
}

// Append adds documents in order. Appends to a closed batch are dropped and
// reported as false.
func (b *Batch) Append(docs ...domain.Document) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.docs = append(b.docs, docs...)
	return true
}

// Len returns the number of documents appended so far.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.docs)
}

func (b *Batch) seal() []domain.Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	docs := b.docs
	b.docs = nil
	return docs
}
