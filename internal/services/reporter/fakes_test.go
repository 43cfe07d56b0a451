package reporter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type templateCall struct {
	name string
	body []byte
}

type fakeIndexer struct {
	bulkErr     error
	templateErr error
	block       chan struct{}
	bulks       [][]byte
	templates   []templateCall
	mu          sync.Mutex
}

func (f *fakeIndexer) Bulk(ctx context.Context, body []byte) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulks = append(f.bulks, append([]byte(nil), body...))
	return f.bulkErr
}

func (f *fakeIndexer) PutTemplate(_ context.Context, name string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templates = append(f.templates, templateCall{name: name, body: append([]byte(nil), body...)})
	return f.templateErr
}

func (f *fakeIndexer) bulkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bulks)
}

func (f *fakeIndexer) lastBulk() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bulks) == 0 {
		return nil
	}
	return f.bulks[len(f.bulks)-1]
}

type bulkItem struct {
	Doc   map[string]any
	Index string
	Type  string
}

// parseBulk splits an NDJSON bulk body into action/document pairs.
func parseBulk(t *testing.T, body []byte) []bulkItem {
	t.Helper()
	var lines [][]byte
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, append([]byte(nil), sc.Bytes()...))
	}
	require.NoError(t, sc.Err())
	require.Zero(t, len(lines)%2, "bulk body must have an even number of lines")

	items := make([]bulkItem, 0, len(lines)/2)
	for i := 0; i < len(lines); i += 2 {
		var action struct {
			Index struct {
				Index string `json:"_index"`
				Type  string `json:"_type"`
			} `json:"index"`
		}
		require.NoError(t, json.Unmarshal(lines[i], &action))
		dec := json.NewDecoder(bytes.NewReader(lines[i+1]))
		dec.UseNumber()
		var doc map[string]any
		require.NoError(t, dec.Decode(&doc))
		items = append(items, bulkItem{Index: action.Index.Index, Type: action.Index.Type, Doc: doc})
	}
	return items
}

func num(t *testing.T, doc map[string]any, field string) int64 {
	t.Helper()
	v, ok := doc[field]
	require.Truef(t, ok, "field %q missing in %v", field, doc)
	n, ok := v.(json.Number)
	require.Truef(t, ok, "field %q is %T, not a number", field, v)
	i, err := n.Int64()
	require.NoError(t, err)
	return i
}
