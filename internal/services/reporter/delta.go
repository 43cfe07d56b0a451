package reporter

import "github.com/vshulcz/Golastic/internal/domain"

// DeltaKey identifies a tracked cumulative value. Aggregate keys carry the
// metric total; item keys carry the sanitized item label.
type DeltaKey struct {
	Kind      domain.MetricKind
	Metric    string
	Item      string
	Aggregate bool
}

// TotalKey returns the key of a metric's aggregate count.
func TotalKey(kind domain.MetricKind, metric string) DeltaKey {
	return DeltaKey{Kind: kind, Metric: metric, Aggregate: true}
}

// ItemKey returns the key of one item of a metric.
func ItemKey(kind domain.MetricKind, metric, item string) DeltaKey {
	return DeltaKey{Kind: kind, Metric: metric, Item: Sanitize(item)}
}

type deltaEntry struct {
	value int64
	seen  uint64
}

// DeltaTracker remembers the last observed cumulative value per key and
// turns new observations into period-over-period deltas. It is not safe for
// concurrent use; the reporter serializes whole cycles.
type DeltaTracker struct {
	state   map[DeltaKey]deltaEntry
	cycle   uint64
	maxIdle int
}

// NewDeltaTracker returns an empty tracker. With maxIdleCycles > 0, Sweep
// drops keys that were not observed for that many cycles.
func NewDeltaTracker(maxIdleCycles int) *DeltaTracker {
	if maxIdleCycles < 0 {
		maxIdleCycles = 0
	}
	return &DeltaTracker{
		state:   make(map[DeltaKey]deltaEntry),
		maxIdle: maxIdleCycles,
	}
}

// Delta returns current minus the previously stored value (0 when the key
// is new) and stores current. Decreasing values yield negative deltas.
func (t *DeltaTracker) Delta(key DeltaKey, current int64) (delta int64, first bool) {
	prev, ok := t.state[key]
	t.state[key] = deltaEntry{value: current, seen: t.cycle}
	if !ok {
		return current, true
	}
	return current - prev.value, false
}

// Sweep closes the current cycle and evicts idle keys. It returns the number
// of evicted keys.
func (t *DeltaTracker) Sweep() int {
	evicted := 0
	if t.maxIdle > 0 {
		for k, e := range t.state {
			if t.cycle-e.seen >= uint64(t.maxIdle) {
				delete(t.state, k)
				evicted++
			}
		}
	}
	t.cycle++
	return evicted
}

// Reset forgets all tracked values.
func (t *DeltaTracker) Reset() {
	clear(t.state)
	t.cycle = 0
}

// Len returns the number of tracked keys.
func (t *DeltaTracker) Len() int {
	return len(t.state)
}
