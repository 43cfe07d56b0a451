package reporter

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vshulcz/Golastic/internal/domain"
)

var cycleTS = time.Date(2024, time.January, 15, 10, 20, 30, 0, time.UTC)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	b := NewBuilder(NewDeltaTracker(0), "metrics-tests", "yyyyMMdd")
	require.NoError(t, b.SetTimestamp(cycleTS))
	return b
}

func field(t *testing.T, d domain.Document, name string) any {
	t.Helper()
	v, ok := d.Fields.Get(name)
	require.Truef(t, ok, "field %q missing in %v", name, d.Fields.Names())
	return v
}

func counterValue(items ...domain.CounterItem) domain.CounterValue {
	var total int64
	for _, it := range items {
		total += it.Count
	}
	return domain.CounterValue{Count: total, Items: items}
}

func meterValue(items ...domain.MeterItem) domain.MeterValue {
	var total int64
	for _, it := range items {
		total += it.Value.Count
	}
	return domain.MeterValue{Count: total, Items: items}
}

func TestBuilder_CommonFields(t *testing.T) {
	b := newTestBuilder(t)
	docs := b.Gauge("cpu", 0.5, "Percent", domain.NewTags("host", "a", "dc", "eu"))
	require.Len(t, docs, 1)

	d := docs[0]
	assert.Equal(t, "metrics-tests-20240115", d.Index)
	assert.Equal(t, domain.Gauge, d.Type)
	assert.Equal(t, []string{"Timestamp", "Type", "Name", "Unit", "Tags", "Value"}, d.Fields.Names())
	assert.Equal(t, "2024-01-15T10:20:30.0000Z", field(t, d, "Timestamp"))
	assert.Equal(t, "Gauge", field(t, d, "Type"))
	assert.Equal(t, "cpu", field(t, d, "Name"))
	assert.Equal(t, "Percent", field(t, d, "Unit"))
	assert.Equal(t, 0.5, field(t, d, "Value"))

	raw, err := d.Fields.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"Tags":{"host":"a","dc":"eu"}`)
}

func TestBuilder_NilTagsEncodeAsObject(t *testing.T) {
	b := newTestBuilder(t)
	docs := b.Gauge("g", 1, "", nil)
	require.Len(t, docs, 1)

	raw, err := docs[0].Fields.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"Tags":{}`)
}

func TestBuilder_GaugeNonFiniteDropped(t *testing.T) {
	b := newTestBuilder(t)
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.Empty(t, b.Gauge("g", v, "", nil), "value %v", v)
	}
}

func TestBuilder_CounterScenario(t *testing.T) {
	b := newTestBuilder(t)

	first := b.Counter("test", domain.CounterValue{Count: 3}, "Calls", nil)
	require.Len(t, first, 2)
	assert.Equal(t, domain.Counter, first[0].Type)
	assert.Equal(t, domain.CounterDiff, first[1].Type)
	assert.Equal(t, int64(3), field(t, first[0], "Count"))
	assert.Equal(t, int64(3), field(t, first[1], "Count"))

	second := b.Counter("test", domain.CounterValue{Count: 8}, "Calls", nil)
	require.Len(t, second, 2)
	assert.Equal(t, int64(8), field(t, second[0], "Count"))
	assert.Equal(t, int64(5), field(t, second[1], "Count"))

	third := b.Counter("test", domain.CounterValue{Count: 8}, "Calls", nil)
	require.Len(t, third, 2, "zero delta still produces a diff document")
	assert.Equal(t, int64(0), field(t, third[1], "Count"))
}

func TestBuilder_TaggedCounterScenario(t *testing.T) {
	b := newTestBuilder(t)
	tags := domain.NewTags("env", "test")

	b.Counter("test1", counterValue(
		domain.CounterItem{Item: "item1", Count: 3, Percent: 3.0 / 7 * 100},
		domain.CounterItem{Item: "item2", Count: 4, Percent: 4.0 / 7 * 100},
	), "Items", tags)

	docs := b.Counter("test1", counterValue(
		domain.CounterItem{Item: "item1", Count: 8, Percent: 8.0 / 19 * 100},
		domain.CounterItem{Item: "item2", Count: 4, Percent: 4.0 / 19 * 100},
		domain.CounterItem{Item: "item3", Count: 7, Percent: 7.0 / 19 * 100},
	), "Items", tags)
	require.Len(t, docs, 2)

	raw, diff := docs[0], docs[1]
	assert.Equal(t, int64(19), field(t, raw, "Count"))
	assert.Equal(t, int64(8), field(t, raw, "item1-Count"))
	assert.Equal(t, int64(4), field(t, raw, "item2-Count"))
	assert.Equal(t, int64(7), field(t, raw, "item3-Count"))
	assert.InDelta(t, 8.0/19*100, field(t, raw, "item1-Percent"), 1e-9)

	assert.Equal(t, int64(12), field(t, diff, "Count"))
	assert.Equal(t, int64(5), field(t, diff, "item1-Count"))
	assert.Equal(t, int64(7), field(t, diff, "item3-Count"))
	assert.Equal(t, int64(0), field(t, diff, "item2-Count"))
	_, hasPercent := diff.Fields.Get("item1-Percent")
	assert.False(t, hasPercent, "percent is never diffed")
}

func TestBuilder_MeterScenario(t *testing.T) {
	b := newTestBuilder(t)
	item := func(name string, count int64) domain.MeterItem {
		return domain.MeterItem{Item: name, Value: domain.MeterValue{Count: count, MeanRate: 0.5}}
	}

	b.Meter("test2", meterValue(item("item1", 1), item("item2", 2)), "Requests", nil)
	docs := b.Meter("test2", meterValue(item("item1", 4), item("item2", 2), item("item3", 2)), "Requests", nil)
	require.Len(t, docs, 2)

	raw, diff := docs[0], docs[1]
	assert.Equal(t, domain.Meter, raw.Type)
	assert.Equal(t, domain.MeterDiff, diff.Type)

	assert.Equal(t, int64(8), field(t, raw, "Count"))
	assert.Equal(t, int64(4), field(t, raw, "item1-Count"))
	assert.Equal(t, int64(2), field(t, raw, "item2-Count"))
	assert.Equal(t, int64(2), field(t, raw, "item3-Count"))
	assert.Equal(t, 0.5, field(t, raw, "item1-Mean Rate"))
	for _, f := range []string{"Mean-Rate", "1-Min-Rate", "5-Min-Rate", "15-Min-Rate", "item3-Percent", "item3-1 Min Rate", "item3-5 Min Rate", "item3-15 Min Rate"} {
		field(t, raw, f)
	}

	assert.Equal(t, int64(5), field(t, diff, "Count"))
	assert.Equal(t, int64(3), field(t, diff, "item1-Count"))
	assert.Equal(t, int64(2), field(t, diff, "item3-Count"))
	assert.Equal(t, int64(0), field(t, diff, "item2-Count"))
	assert.Equal(t, 5+1+3, diff.Fields.Len(), "diff carries only counts")
}

func TestBuilder_CounterAndMeterWithSameNameTrackedSeparately(t *testing.T) {
	b := newTestBuilder(t)
	b.Counter("shared", domain.CounterValue{Count: 10}, "", nil)
	docs := b.Meter("shared", domain.MeterValue{Count: 4}, "", nil)
	assert.Equal(t, int64(4), field(t, docs[1], "Count"))
}

func TestBuilder_SanitizedItemCollisionLastWriteWins(t *testing.T) {
	b := newTestBuilder(t)
	docs := b.Counter("c", counterValue(
		domain.CounterItem{Item: "a.b", Count: 1},
		domain.CounterItem{Item: "a_b", Count: 2},
	), "", nil)

	raw := docs[0]
	assert.Equal(t, int64(2), field(t, raw, "a_b-Count"))
	assert.Equal(t, 5+1+2, raw.Fields.Len())
}

func TestBuilder_Histogram(t *testing.T) {
	b := newTestBuilder(t)
	docs := b.Histogram("h", domain.HistogramValue{
		Count: 10, LastValue: 4, LastUserValue: "u1", Min: 1, Max: 9,
		Mean: 5, Percentile999: 8.9, SampleSize: 10,
	}, "ms", nil)
	require.Len(t, docs, 1)

	d := docs[0]
	assert.Equal(t, []string{
		"Timestamp", "Type", "Name", "Unit", "Tags",
		"Total-Count", "Last", "Last-User-Value", "Min", "Min-User-Value", "Mean",
		"Max", "Max-User-Value", "StdDev", "Median", "Percentile-75", "Percentile-95",
		"Percentile-98", "Percentile-99", "Percentile-99_9", "Sample-Size",
	}, d.Fields.Names())
	assert.Equal(t, int64(10), field(t, d, "Total-Count"))
	assert.Equal(t, "u1", field(t, d, "Last-User-Value"))
	assert.Equal(t, 8.9, field(t, d, "Percentile-99_9"))
	assert.Equal(t, 10, field(t, d, "Sample-Size"))
}

func TestBuilder_Timer(t *testing.T) {
	b := newTestBuilder(t)
	docs := b.Timer("t", domain.TimerValue{
		Rate:           domain.MeterValue{Count: 42, MeanRate: 1.5},
		Histogram:      domain.HistogramValue{Count: 40, Median: 3},
		ActiveSessions: 2,
	}, "Requests", nil)
	require.Len(t, docs, 1)

	d := docs[0]
	assert.Equal(t, domain.Timer, d.Type)
	names := d.Fields.Names()
	assert.Equal(t, []string{"Total-Count", "Active-Sessions", "Mean-Rate", "1-Min-Rate", "5-Min-Rate", "15-Min-Rate", "Last"}, names[5:12])
	assert.Equal(t, int64(42), field(t, d, "Total-Count"), "timer count comes from the rate")
	assert.Equal(t, int64(2), field(t, d, "Active-Sessions"))
	assert.Equal(t, 3.0, field(t, d, "Median"))
	assert.Equal(t, "Sample-Size", names[len(names)-1])
}

func TestBuilder_NonFiniteRatesEncodeAsNull(t *testing.T) {
	b := newTestBuilder(t)
	docs := b.Meter("m", domain.MeterValue{Count: 1, MeanRate: math.NaN()}, "", nil)

	raw, err := docs[0].Fields.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"Mean-Rate":null`)
}
