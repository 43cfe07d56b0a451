package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vshulcz/Golastic/internal/domain"
	"github.com/vshulcz/Golastic/internal/misc"
	"github.com/vshulcz/Golastic/internal/ports"
)

// maxPooledBuffer bounds the capacity of bulk buffers kept for reuse.
const maxPooledBuffer = 1 << 20

var bufferPool = misc.NewPool(
	func() *bytes.Buffer { return new(bytes.Buffer) },
	func(b *bytes.Buffer) bool { return b.Cap() <= maxPooledBuffer },
)

type bulkAction struct {
	Index bulkMeta `json:"index"`
}

type bulkMeta struct {
	Index string `json:"_index"`
	Type  string `json:"_type"`
}

// EncodeBulk writes docs in the bulk wire format: an action line followed by
// the document line, each newline-terminated.
func EncodeBulk(w io.Writer, docs []domain.Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range docs {
		d := &docs[i]
		if err := enc.Encode(bulkAction{Index: bulkMeta{Index: d.Index, Type: string(d.Type)}}); err != nil {
			return fmt.Errorf("encode action %d: %w", i, err)
		}
		if err := enc.Encode(d.Fields); err != nil {
			return fmt.Errorf("encode document %d: %w", i, err)
		}
	}
	return nil
}

// BulkPublisher submits a whole batch as one bulk request.
type BulkPublisher struct {
	indexer ports.Indexer
}

// NewBulkPublisher returns a publisher sending through indexer.
func NewBulkPublisher(indexer ports.Indexer) *BulkPublisher {
	return &BulkPublisher{indexer: indexer}
}

// Publish encodes docs and sends them in a single request. An empty batch
// sends nothing. The batch is not retried on failure.
func (p *BulkPublisher) Publish(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	buf := bufferPool.Get()
	defer bufferPool.Put(buf)

	if err := EncodeBulk(buf, docs); err != nil {
		return err
	}
	if err := p.indexer.Bulk(ctx, buf.Bytes()); err != nil {
		return asTransportError("bulk", err)
	}
	return nil
}

func asTransportError(op string, err error) error {
	var te *domain.TransportError
	if errors.As(err, &te) {
		return err
	}
	return &domain.TransportError{Op: op, Err: err}
}
