package runtime

import (
	"math"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"
	metrics "github.com/rcrowley/go-metrics"

	"github.com/vshulcz/Golastic/internal/domain"
)

// relativeAccuracy bounds the relative error of reported quantiles.
const relativeAccuracy = 0.01

var histogramQuantiles = []float64{0.5, 0.75, 0.95, 0.98, 0.99, 0.999}

// distribution summarizes every observed value in a DDSketch. Mean and
// standard deviation are tracked exactly with Welford's update since the
// sketch keeps no second moment.
type distribution struct {
	sketch *ddsketch.DDSketch
	last   float64
	mean   float64
	m2     float64
}

// Add records v. Values the sketch cannot index are dropped.
func (d *distribution) Add(v float64) {
	if d.sketch == nil {
		sk, err := ddsketch.NewDefaultDDSketch(relativeAccuracy)
		if err != nil {
			return
		}
		d.sketch = sk
	}
	if err := d.sketch.Add(v); err != nil {
		return
	}
	n := d.sketch.GetCount()
	delta := v - d.mean
	d.mean += delta / n
	d.m2 += delta * (v - d.mean)
	d.last = v
}

// Snapshot returns the histogram view of everything added so far.
func (d *distribution) Snapshot() domain.HistogramValue {
	if d.sketch == nil || d.sketch.IsEmpty() {
		return domain.HistogramValue{}
	}
	n := d.sketch.GetCount()
	h := domain.HistogramValue{
		Count:      int64(n),
		SampleSize: int(n),
		LastValue:  d.last,
		Mean:       d.mean,
		StdDev:     math.Sqrt(d.m2 / n),
	}
	h.Min, _ = d.sketch.GetMinValue()
	h.Max, _ = d.sketch.GetMaxValue()

	qs, err := d.sketch.GetValuesAtQuantiles(histogramQuantiles)
	if err != nil {
		return h
	}
	h.Median, h.Percentile75, h.Percentile95 = qs[0], qs[1], qs[2]
	h.Percentile98, h.Percentile99, h.Percentile999 = qs[3], qs[4], qs[5]
	return h
}

// tickInterval is the update period the moving averages are calibrated for.
const tickInterval = 5 * time.Second

// rate is a meter with 1, 5 and 15 minute exponentially weighted averages.
type rate struct {
	start    time.Time
	lastTick time.Time
	ewma     [3]metrics.EWMA
	count    int64
}

func newRate(now time.Time) *rate {
	return &rate{
		start:    now,
		lastTick: now,
		ewma:     [3]metrics.EWMA{metrics.NewEWMA1(), metrics.NewEWMA5(), metrics.NewEWMA15()},
	}
}

// Mark records n events observed at now.
func (r *rate) Mark(n int64, now time.Time) {
	r.advance(now)
	r.count += n
	for _, e := range r.ewma {
		e.Update(n)
	}
}

// advance ticks the averages once for every interval that ended by now.
func (r *rate) advance(now time.Time) {
	for now.Sub(r.lastTick) >= tickInterval {
		for _, e := range r.ewma {
			e.Tick()
		}
		r.lastTick = r.lastTick.Add(tickInterval)
	}
}

// Snapshot returns per-second rates as of now.
func (r *rate) Snapshot(now time.Time) domain.MeterValue {
	r.advance(now)
	m := domain.MeterValue{
		Count:             r.count,
		OneMinuteRate:     r.ewma[0].Rate(),
		FiveMinuteRate:    r.ewma[1].Rate(),
		FifteenMinuteRate: r.ewma[2].Rate(),
	}
	if el := now.Sub(r.start).Seconds(); el > 0 {
		m.MeanRate = float64(r.count) / el
	}
	return m
}
