package runtime

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/vshulcz/Golastic/internal/domain"
)

type gauge struct {
	unit  domain.Unit
	value float64
}

type stats struct {
	gauges  map[string]gauge
	polls   map[string]int64
	gc      *rate
	sample  *rate
	pauses  distribution
	latency distribution
	numGC   uint32
	mu      sync.RWMutex
}

func newStats(now time.Time) *stats {
	return &stats{
		gauges: make(map[string]gauge),
		polls:  make(map[string]int64),
		gc:     newRate(now),
		sample: newRate(now),
	}
}

func (s *stats) SetGauge(name string, v float64, unit domain.Unit) {
	s.mu.Lock()
	s.gauges[name] = gauge{value: v, unit: unit}
	s.mu.Unlock()
}

func (s *stats) AddPoll(item string, d int64) {
	s.mu.Lock()
	s.polls[item] += d
	s.mu.Unlock()
}

// ObserveGC records GC cycles completed since the previous call together
// with their pause times taken from the runtime's circular buffer.
func (s *stats) ObserveGC(numGC uint32, pauseNs *[256]uint64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if numGC <= s.numGC {
		return
	}
	from := s.numGC + 1
	if numGC-s.numGC > uint32(len(pauseNs)) {
		from = numGC - uint32(len(pauseNs)) + 1
	}
	for k := from; k <= numGC; k++ {
		ns := pauseNs[(k+255)%256]
		s.pauses.Add(float64(ns) / float64(time.Millisecond))
	}
	s.gc.Mark(int64(numGC-s.numGC), now)
	s.numGC = numGC
}

func (s *stats) ObserveSample(d time.Duration, now time.Time) {
	s.mu.Lock()
	s.latency.Add(float64(d) / float64(time.Millisecond))
	s.sample.Mark(1, now)
	s.mu.Unlock()
}

type snapshot struct {
	gauges  map[string]gauge
	polls   domain.CounterValue
	gc      domain.MeterValue
	pauses  domain.HistogramValue
	latency domain.TimerValue
}

// Snapshot advances the rate averages to now, so it takes the write lock.
func (s *stats) Snapshot(now time.Time) snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := snapshot{
		gauges:  maps.Clone(s.gauges),
		gc:      s.gc.Snapshot(now),
		pauses:  s.pauses.Snapshot(),
		latency: domain.TimerValue{Rate: s.sample.Snapshot(now), Histogram: s.latency.Snapshot()},
	}
	for _, item := range slices.Sorted(maps.Keys(s.polls)) {
		out.polls.Count += s.polls[item]
		out.polls.Items = append(out.polls.Items, domain.CounterItem{Item: item, Count: s.polls[item]})
	}
	for i := range out.polls.Items {
		if out.polls.Count > 0 {
			out.polls.Items[i].Percent = float64(out.polls.Items[i].Count) / float64(out.polls.Count) * 100
		}
	}
	return out
}
