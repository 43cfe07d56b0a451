package reporter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vshulcz/Golastic/internal/domain"
)

func TestCollector_BatchPerCycle(t *testing.T) {
	var c Collector
	doc := domain.Document{Index: "i", Type: domain.Gauge}

	b1 := c.Open()
	assert.True(t, b1.Append(doc, doc))
	assert.Equal(t, 2, b1.Len())

	docs := c.Close(b1)
	assert.Len(t, docs, 2)
	assert.False(t, b1.Append(doc), "appends after close are dropped")
	assert.Nil(t, c.Close(b1), "closing twice yields nothing")

	b2 := c.Open()
	assert.Zero(t, b2.Len(), "next cycle starts empty")
	assert.True(t, b2.Append(doc))
	assert.Len(t, docs, 2, "previous cycle documents are untouched")
}

func TestCollector_EmptyBatch(t *testing.T) {
	var c Collector
	assert.Empty(t, c.Close(c.Open()))
}
