package reporter

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vshulcz/Golastic/internal/config"
	"github.com/vshulcz/Golastic/internal/domain"
	obs "github.com/vshulcz/Golastic/pkg/observer"
)

func testConfig() config.ReporterConfig {
	cfg := config.DefaultReporterConfig()
	cfg.HostName = "localhost"
	cfg.IndexPrefix = "metrics-tests"
	cfg.IndexSuffixDateFormat = "yyyyMMdd"
	cfg.Aliases = []string{"metrics"}
	cfg.PublishTimeout = time.Second
	return cfg
}

func newInitialized(t *testing.T, idx *fakeIndexer, opts ...Option) *Reporter {
	t.Helper()
	r, err := New(testConfig(), idx, opts...)
	require.NoError(t, err)
	require.NoError(t, r.Init(context.Background()))
	return r
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.HostName = ""
	cfg.Aliases = nil

	r, err := New(cfg, &fakeIndexer{})
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Nil(t, r)

	var ce *domain.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Len(t, ce.Problems, 2)
}

func TestReporter_Lifecycle(t *testing.T) {
	idx := &fakeIndexer{}
	r, err := New(testConfig(), idx)
	require.NoError(t, err)
	assert.Equal(t, StateValidated, r.State())

	require.ErrorIs(t, r.StartReport(cycleTS), domain.ErrNotInitialized)

	require.NoError(t, r.Init(context.Background()))
	assert.Equal(t, StateInitialized, r.State())
	require.Len(t, idx.templates, 1)
	assert.Equal(t, "metricsreportstemplate", idx.templates[0].name)

	require.NoError(t, r.Init(context.Background()), "init is idempotent")
	assert.Len(t, idx.templates, 1)

	require.NoError(t, r.StartReport(cycleTS))
	assert.Equal(t, StateReporting, r.State())
	r.ReportGauge("g", 1, "", nil)
	require.NoError(t, r.EndReport(context.Background()))
	assert.Equal(t, 1, idx.bulkCount())

	r.Stop()
	r.Stop()
	assert.Equal(t, StateStopped, r.State())
	assert.Equal(t, "stopped", r.State().String())

	require.NoError(t, r.StartReport(cycleTS), "cycles after stop are ignored")
	r.ReportGauge("g", 2, "", nil)
	require.NoError(t, r.EndReport(context.Background()))
	assert.Equal(t, 1, idx.bulkCount())
	require.ErrorIs(t, r.Init(context.Background()), domain.ErrStopped)
}

func TestReporter_InitFailureKeepsValidated(t *testing.T) {
	idx := &fakeIndexer{templateErr: errors.New("connection refused")}
	r, err := New(testConfig(), idx)
	require.NoError(t, err)

	err = r.Init(context.Background())
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, StateValidated, r.State())
	require.ErrorIs(t, r.StartReport(cycleTS), domain.ErrNotInitialized)

	idx.mu.Lock()
	idx.templateErr = nil
	idx.mu.Unlock()
	require.NoError(t, r.Init(context.Background()))
	assert.Equal(t, StateInitialized, r.State())
}

func TestReporter_EmptyCycleMakesNoRequest(t *testing.T) {
	idx := &fakeIndexer{}
	r := newInitialized(t, idx)

	require.NoError(t, r.StartReport(cycleTS))
	r.ReportGauge("nan", math.NaN(), "", nil)
	r.ReportHealth(domain.HealthStatus{IsHealthy: true})
	require.NoError(t, r.EndReport(context.Background()))
	assert.Zero(t, idx.bulkCount())
}

func TestReporter_CounterCyclesOverWire(t *testing.T) {
	idx := &fakeIndexer{}
	r := newInitialized(t, idx)

	cycle := func(ts time.Time, v domain.CounterValue) []bulkItem {
		require.NoError(t, r.StartReport(ts))
		r.ReportCounter("test1", v, "Items", domain.NewTags("env", "test"))
		require.NoError(t, r.EndReport(context.Background()))
		return parseBulk(t, idx.lastBulk())
	}

	first := cycle(cycleTS, counterValue(
		domain.CounterItem{Item: "item1", Count: 3},
		domain.CounterItem{Item: "item2", Count: 4},
	))
	require.Len(t, first, 2)
	assert.Equal(t, int64(7), num(t, first[1].Doc, "Count"))

	second := cycle(cycleTS.Add(24*time.Hour), counterValue(
		domain.CounterItem{Item: "item1", Count: 8},
		domain.CounterItem{Item: "item2", Count: 4},
		domain.CounterItem{Item: "item3", Count: 7},
	))
	require.Len(t, second, 2)
	raw, diff := second[0], second[1]

	assert.Equal(t, "metrics-tests-20240116", raw.Index)
	assert.Equal(t, "Counter", raw.Type)
	assert.Equal(t, int64(19), num(t, raw.Doc, "Count"))
	assert.Equal(t, int64(8), num(t, raw.Doc, "item1-Count"))
	assert.Equal(t, int64(4), num(t, raw.Doc, "item2-Count"))
	assert.Equal(t, int64(7), num(t, raw.Doc, "item3-Count"))
	assert.Equal(t, map[string]any{"env": "test"}, raw.Doc["Tags"])
	assert.Equal(t, "2024-01-16T10:20:30.0000Z", raw.Doc["Timestamp"])

	assert.Equal(t, "CounterDiff", diff.Type)
	assert.Equal(t, int64(12), num(t, diff.Doc, "Count"))
	assert.Equal(t, int64(5), num(t, diff.Doc, "item1-Count"))
	assert.Equal(t, int64(7), num(t, diff.Doc, "item3-Count"))
	assert.Equal(t, int64(0), num(t, diff.Doc, "item2-Count"))
}

func TestReporter_PublishFailureIsNotFatal(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	idx := &fakeIndexer{bulkErr: errors.New("connection reset")}
	r := newInitialized(t, idx, WithLogger(zap.New(core)))

	require.NoError(t, r.StartReport(cycleTS))
	r.ReportCounter("test", domain.CounterValue{Count: 3}, "", nil)
	err := r.EndReport(context.Background())
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, 1, logs.FilterMessage("bulk publish failed, batch dropped").Len())

	idx.mu.Lock()
	idx.bulkErr = nil
	idx.mu.Unlock()

	require.NoError(t, r.StartReport(cycleTS.Add(time.Minute)))
	r.ReportCounter("test", domain.CounterValue{Count: 8}, "", nil)
	require.NoError(t, r.EndReport(context.Background()))

	items := parseBulk(t, idx.lastBulk())
	require.Len(t, items, 2)
	assert.Equal(t, int64(5), num(t, items[1].Doc, "Count"), "deltas survive a dropped batch")
	assert.Equal(t, 1, logs.FilterMessage("report cycle published").Len())
}

func TestReporter_PublishTimeout(t *testing.T) {
	idx := &fakeIndexer{block: make(chan struct{})}
	defer close(idx.block)

	cfg := testConfig()
	cfg.PublishTimeout = 20 * time.Millisecond
	r, err := New(cfg, idx)
	require.NoError(t, err)
	require.NoError(t, r.Init(context.Background()))

	require.NoError(t, r.StartReport(cycleTS))
	r.ReportGauge("g", 1, "", nil)

	start := time.Now()
	err = r.EndReport(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestReporter_CycleEvents(t *testing.T) {
	var mu sync.Mutex
	var events []CycleEvent
	record := obs.ObserverFunc[CycleEvent](func(_ context.Context, e CycleEvent) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
		return nil
	})

	now := cycleTS
	clock := func() time.Time {
		now = now.Add(50 * time.Millisecond)
		return now
	}

	r := newInitialized(t, &fakeIndexer{}, WithObserver(record), WithClock(clock))
	require.NoError(t, r.StartReport(cycleTS))
	r.ReportGauge("a", 1, "", nil)
	r.ReportMeter("m", domain.MeterValue{Count: 2}, "", domain.Seconds, nil)
	r.ReportHistogram("h", domain.HistogramValue{Count: 1}, "", nil)
	r.ReportTimer("t", domain.TimerValue{}, "", domain.Seconds, domain.Milliseconds, nil)
	require.NoError(t, r.EndReport(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, 5, e.Documents)
	assert.Equal(t, "metrics-tests-20240115", e.Index)
	assert.Equal(t, cycleTS, e.Timestamp)
	assert.Equal(t, 50*time.Millisecond, e.Duration)
	assert.NoError(t, e.Err)
}

func TestReporter_UnendedCycleIsDropped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	idx := &fakeIndexer{}
	r := newInitialized(t, idx, WithLogger(zap.New(core)))

	require.NoError(t, r.StartReport(cycleTS))
	r.ReportGauge("stale", 1, "", nil)

	require.NoError(t, r.StartReport(cycleTS.Add(time.Minute)))
	r.ReportGauge("fresh", 1, "", nil)
	require.NoError(t, r.EndReport(context.Background()))

	items := parseBulk(t, idx.lastBulk())
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].Doc["Name"])
	assert.Equal(t, 1, logs.FilterMessage("previous cycle was not ended, dropping its documents").Len())
}

func TestReporter_StopDropsOpenCycle(t *testing.T) {
	idx := &fakeIndexer{}
	r := newInitialized(t, idx)

	require.NoError(t, r.StartReport(cycleTS))
	r.ReportGauge("g", 1, "", nil)
	r.Stop()
	require.NoError(t, r.EndReport(context.Background()))
	assert.Zero(t, idx.bulkCount())
}

func TestReporter_DeltaResetIndependentOfBackend(t *testing.T) {
	run := func(r *Reporter) {
		for i, v := range []int64{3, 8} {
			require.NoError(t, r.StartReport(cycleTS.Add(time.Duration(i)*time.Minute)))
			r.ReportCounter("c", domain.CounterValue{Count: v, Items: []domain.CounterItem{{Item: "i.1", Count: v}}}, "", nil)
			require.NoError(t, r.EndReport(context.Background()))
		}
	}

	idx := &fakeIndexer{}
	r := newInitialized(t, idx)
	run(r)
	firstRun := parseBulk(t, idx.lastBulk())

	r.deltas.Reset()
	idx.mu.Lock()
	idx.bulks = nil
	idx.mu.Unlock()
	run(r)
	secondRun := parseBulk(t, idx.lastBulk())

	assert.Equal(t, num(t, firstRun[1].Doc, "Count"), num(t, secondRun[1].Doc, "Count"))
	assert.Equal(t, num(t, firstRun[1].Doc, "i_1-Count"), num(t, secondRun[1].Doc, "i_1-Count"))
	assert.Equal(t, int64(5), num(t, secondRun[1].Doc, "i_1-Count"))
}
