package reporter

import (
	"math"
	"time"

	"github.com/vshulcz/Golastic/internal/domain"
)

const commonFields = 5

// Builder turns metric snapshots into documents for the current cycle.
type Builder struct {
	deltas     *DeltaTracker
	prefix     string
	dateFormat string

	index     string
	timestamp string
}

// NewBuilder returns a builder that derives diff documents from deltas.
func NewBuilder(deltas *DeltaTracker, prefix, dateFormat string) *Builder {
	return &Builder{deltas: deltas, prefix: prefix, dateFormat: dateFormat}
}

// SetTimestamp fixes the cycle time used for the index name and the Timestamp field.
func (b *Builder) SetTimestamp(ts time.Time) error {
	index, err := ResolveIndexName(b.prefix, ts, b.dateFormat)
	if err != nil {
		return err
	}
	b.index = index
	b.timestamp = FormatTimestamp(ts)
	return nil
}

// Index returns the index name of the current cycle.
func (b *Builder) Index() string {
	return b.index
}

func (b *Builder) pack(kind domain.MetricKind, name string, unit domain.Unit, tags domain.Tags, extra int) domain.Document {
	f := domain.NewFields(commonFields + extra)
	f.Set("Timestamp", b.timestamp)
	f.Set("Type", string(kind))
	f.Set("Name", name)
	f.Set("Unit", string(unit))
	if tags == nil {
		tags = domain.Tags{}
	}
	f.Set("Tags", tags)
	return domain.Document{Index: b.index, Type: kind, Fields: f}
}

// Gauge returns one document for a finite value and none otherwise.
func (b *Builder) Gauge(name string, value float64, unit domain.Unit, tags domain.Tags) []domain.Document {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	doc := b.pack(domain.Gauge, name, unit, tags, 1)
	doc.Fields.Set("Value", value)
	return []domain.Document{doc}
}

// Counter returns the raw Counter document followed by its CounterDiff.
func (b *Builder) Counter(name string, value domain.CounterValue, unit domain.Unit, tags domain.Tags) []domain.Document {
	raw := b.pack(domain.Counter, name, unit, tags, 1+2*len(value.Items))
	raw.Fields.Set("Count", value.Count)
	for _, it := range value.Items {
		s := Sanitize(it.Item)
		raw.Fields.Set(s+"-Count", it.Count)
		raw.Fields.Set(s+"-Percent", it.Percent)
	}

	diff := b.pack(domain.CounterDiff, name, unit, tags, 1+len(value.Items))
	d, _ := b.deltas.Delta(TotalKey(domain.Counter, name), value.Count)
	diff.Fields.Set("Count", d)
	for _, it := range value.Items {
		d, _ := b.deltas.Delta(ItemKey(domain.Counter, name, it.Item), it.Count)
		diff.Fields.Set(Sanitize(it.Item)+"-Count", d)
	}
	return []domain.Document{raw, diff}
}

// Meter returns the raw Meter document followed by its MeterDiff.
func (b *Builder) Meter(name string, value domain.MeterValue, unit domain.Unit, tags domain.Tags) []domain.Document {
	raw := b.pack(domain.Meter, name, unit, tags, 5+6*len(value.Items))
	raw.Fields.Set("Count", value.Count)
	raw.Fields.Set("Mean-Rate", value.MeanRate)
	raw.Fields.Set("1-Min-Rate", value.OneMinuteRate)
	raw.Fields.Set("5-Min-Rate", value.FiveMinuteRate)
	raw.Fields.Set("15-Min-Rate", value.FifteenMinuteRate)
	for _, it := range value.Items {
		s := Sanitize(it.Item)
		raw.Fields.Set(s+"-Count", it.Value.Count)
		raw.Fields.Set(s+"-Percent", it.Percent)
		raw.Fields.Set(s+"-Mean Rate", it.Value.MeanRate)
		raw.Fields.Set(s+"-1 Min Rate", it.Value.OneMinuteRate)
		raw.Fields.Set(s+"-5 Min Rate", it.Value.FiveMinuteRate)
		raw.Fields.Set(s+"-15 Min Rate", it.Value.FifteenMinuteRate)
	}

	diff := b.pack(domain.MeterDiff, name, unit, tags, 1+len(value.Items))
	d, _ := b.deltas.Delta(TotalKey(domain.Meter, name), value.Count)
	diff.Fields.Set("Count", d)
	for _, it := range value.Items {
		d, _ := b.deltas.Delta(ItemKey(domain.Meter, name, it.Item), it.Value.Count)
		diff.Fields.Set(Sanitize(it.Item)+"-Count", d)
	}
	return []domain.Document{raw, diff}
}

// Histogram returns a single Histogram document.
func (b *Builder) Histogram(name string, value domain.HistogramValue, unit domain.Unit, tags domain.Tags) []domain.Document {
	doc := b.pack(domain.Histogram, name, unit, tags, 16)
	doc.Fields.Set("Total-Count", value.Count)
	setHistogram(doc.Fields, value)
	return []domain.Document{doc}
}

// Timer returns a single Timer document merging rate and histogram fields.
func (b *Builder) Timer(name string, value domain.TimerValue, unit domain.Unit, tags domain.Tags) []domain.Document {
	doc := b.pack(domain.Timer, name, unit, tags, 21)
	doc.Fields.Set("Total-Count", value.Rate.Count)
	doc.Fields.Set("Active-Sessions", value.ActiveSessions)
	doc.Fields.Set("Mean-Rate", value.Rate.MeanRate)
	doc.Fields.Set("1-Min-Rate", value.Rate.OneMinuteRate)
	doc.Fields.Set("5-Min-Rate", value.Rate.FiveMinuteRate)
	doc.Fields.Set("15-Min-Rate", value.Rate.FifteenMinuteRate)
	setHistogram(doc.Fields, value.Histogram)
	return []domain.Document{doc}
}

func setHistogram(f *domain.Fields, h domain.HistogramValue) {
	f.Set("Last", h.LastValue)
	f.Set("Last-User-Value", h.LastUserValue)
	f.Set("Min", h.Min)
	f.Set("Min-User-Value", h.MinUserValue)
	f.Set("Mean", h.Mean)
	f.Set("Max", h.Max)
	f.Set("Max-User-Value", h.MaxUserValue)
	f.Set("StdDev", h.StdDev)
	f.Set("Median", h.Median)
	f.Set("Percentile-75", h.Percentile75)
	f.Set("Percentile-95", h.Percentile95)
	f.Set("Percentile-98", h.Percentile98)
	f.Set("Percentile-99", h.Percentile99)
	f.Set("Percentile-99_9", h.Percentile999)
	f.Set("Sample-Size", h.SampleSize)
}
