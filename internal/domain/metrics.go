package domain

import "bytes"

// MetricKind names the document type produced for a metric snapshot.
type MetricKind string

const (
	// Gauge is an instantaneous floating-point value.
	Gauge MetricKind = "Gauge"
	// Counter is a cumulative integer, optionally split by item.
	Counter MetricKind = "Counter"
	// CounterDiff carries counter deltas since the previous cycle.
	CounterDiff MetricKind = "CounterDiff"
	// Meter is a cumulative count with moving rates.
	Meter MetricKind = "Meter"
	// MeterDiff carries meter count deltas since the previous cycle.
	MeterDiff MetricKind = "MeterDiff"
	// Histogram is a distribution summary.
	Histogram MetricKind = "Histogram"
	// Timer combines a meter rate and a histogram of durations.
	Timer MetricKind = "Timer"
)

// MappedKinds lists every document type the index template declares.
var MappedKinds = []MetricKind{Meter, MeterDiff, Gauge, Counter, CounterDiff, Histogram, Timer}

// Unit is the free-form unit a metric is measured in, e.g. "Calls".
type Unit string

// TimeUnit is the unit of a rate or duration.
type TimeUnit string

const (
	Nanoseconds  TimeUnit = "ns"
	Microseconds TimeUnit = "us"
	Milliseconds TimeUnit = "ms"
	Seconds      TimeUnit = "s"
	Minutes      TimeUnit = "min"
	Hours        TimeUnit = "h"
)

// Tag is a single key/value label attached to a metric.
type Tag struct {
	Key   string
	Value string
}

// Tags is an ordered tag mapping with unique keys.
type Tags []Tag

// NewTags builds Tags from alternating key/value pairs. A trailing key
// without a value is ignored.
func NewTags(kv ...string) Tags {
	var t Tags
	for i := 0; i+1 < len(kv); i += 2 {
		t = t.Set(kv[i], kv[i+1])
	}
	return t
}

// Set returns tags with key bound to value. An existing key keeps its position.
func (t Tags) Set(key, value string) Tags {
	for i := range t {
		if t[i].Key == key {
			t[i].Value = value
			return t
		}
	}
	return append(t, Tag{Key: key, Value: value})
}

// Get returns the value bound to key.
func (t Tags) Get(key string) (string, bool) {
	for _, tg := range t {
		if tg.Key == key {
			return tg.Value, true
		}
	}
	return "", false
}

// MarshalJSON encodes tags as a JSON object in insertion order.
func (t Tags) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, tg := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, tg.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, tg.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CounterItem is the per-item share of a counter.
type CounterItem struct {
	Item    string
	Count   int64
	Percent float64
}

// CounterValue is a counter snapshot.
type CounterValue struct {
	Items []CounterItem
	Count int64
}

// MeterValue is a meter snapshot. Rates are expressed in the meter's rate unit.
type MeterValue struct {
	Items             []MeterItem
	Count             int64
	MeanRate          float64
	OneMinuteRate     float64
	FiveMinuteRate    float64
	FifteenMinuteRate float64
}

// MeterItem is the per-item share of a meter.
type MeterItem struct {
	Item    string
	Value   MeterValue
	Percent float64
}

// HistogramValue is a histogram snapshot.
type HistogramValue struct {
	LastUserValue string
	MinUserValue  string
	MaxUserValue  string
	Count         int64
	LastValue     float64
	Min           float64
	Mean          float64
	Max           float64
	StdDev        float64
	Median        float64
	Percentile75  float64
	Percentile95  float64
	Percentile98  float64
	Percentile99  float64
	Percentile999 float64
	SampleSize    int
}

// TimerValue is a timer snapshot.
type TimerValue struct {
	Rate           MeterValue
	Histogram      HistogramValue
	ActiveSessions int64
}

// HealthResult is the outcome of a single health check.
type HealthResult struct {
	Name    string
	Message string
	Healthy bool
}

// HealthStatus aggregates health check results.
type HealthStatus struct {
	Results   []HealthResult
	IsHealthy bool
}
