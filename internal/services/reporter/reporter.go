// Package reporter turns metric snapshots into search documents and ships
// them to the indexing backend once per report cycle.
package reporter

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/Golastic/internal/config"
	"github.com/vshulcz/Golastic/internal/domain"
	"github.com/vshulcz/Golastic/internal/ports"
	"github.com/vshulcz/Golastic/pkg/observer"
)

// State is the reporter lifecycle stage.
type State int

const (
	StateUnconfigured State = iota
	StateValidated
	StateInitialized
	StateReporting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateValidated:
		return "validated"
	case StateInitialized:
		return "initialized"
	case StateReporting:
		return "reporting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// CycleEvent describes a finished report cycle.
type CycleEvent struct {
	Timestamp time.Time
	Err       error
	Index     string
	Documents int
	Duration  time.Duration
}

type Options struct {
	Logger    *zap.Logger
	Clock     func() time.Time
	Observers []observer.Observer[CycleEvent]
}

type Option func(*Options)

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Clock = now
	}
}

// WithObserver subscribes obs to cycle events.
func WithObserver(obs observer.Observer[CycleEvent]) Option {
	return func(o *Options) {
		o.Observers = append(o.Observers, obs)
	}
}

// Reporter implements ports.Sink on top of an Indexer.
type Reporter struct {
	log       *zap.Logger
	now       func() time.Time
	events    *observer.Subject[CycleEvent]
	templates *TemplateInitializer
	publisher *BulkPublisher
	deltas    *DeltaTracker
	builder   *Builder
	batch     *Batch
	cycleTS   time.Time
	started   time.Time
	cfg       config.ReporterConfig
	collector Collector
	mu        sync.Mutex
	state     State
}

var _ ports.Sink = (*Reporter)(nil)

// New validates cfg and returns a reporter in the Validated state.
func New(cfg config.ReporterConfig, indexer ports.Indexer, opts ...Option) (*Reporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}

	deltas := NewDeltaTracker(cfg.DeltaMaxIdleCycles)
	return &Reporter{
		cfg:       cfg,
		log:       o.Logger,
		now:       o.Clock,
		events:    observer.NewSubject(o.Observers...),
		templates: NewTemplateInitializer(indexer),
		publisher: NewBulkPublisher(indexer),
		deltas:    deltas,
		builder:   NewBuilder(deltas, cfg.IndexPrefix, cfg.IndexSuffixDateFormat),
		state:     StateValidated,
	}, nil
}

// State returns the current lifecycle stage.
func (r *Reporter) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Init applies the index template. It must succeed before the first cycle;
// on failure the reporter stays Validated and Init may be retried.
func (r *Reporter) Init(ctx context.Context) error {
	r.mu.Lock()
	switch r.state {
	case StateStopped:
		r.mu.Unlock()
		return domain.ErrStopped
	case StateInitialized, StateReporting:
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.PublishTimeout)
	defer cancel()

	name := r.cfg.TemplateName
	if err := r.templates.Ensure(ctx, r.cfg.IndexPrefix, r.cfg.Aliases, name); err != nil {
		r.log.Error("apply index template", zap.String("template", name), zap.Error(err))
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateStopped {
		return domain.ErrStopped
	}
	r.state = StateInitialized
	r.log.Info("index template applied",
		zap.String("template", name),
		zap.String("pattern", r.cfg.IndexPrefix+"*"),
		zap.Strings("aliases", r.cfg.Aliases),
	)
	return nil
}

// StartReport opens the batch of a new cycle. It is a no-op once stopped.
func (r *Reporter) StartReport(ts time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateStopped:
		return nil
	case StateInitialized, StateReporting:
	default:
		return domain.ErrNotInitialized
	}

	if r.batch != nil {
		dropped := r.collector.Close(r.batch)
		r.log.Warn("previous cycle was not ended, dropping its documents", zap.Int("documents", len(dropped)))
		r.batch = nil
	}
	if err := r.builder.SetTimestamp(ts); err != nil {
		return err
	}
	r.batch = r.collector.Open()
	r.cycleTS = ts
	r.started = r.now()
	r.state = StateReporting
	return nil
}

func (r *Reporter) append(build func(*Builder) []domain.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.batch == nil {
		return
	}
	r.batch.Append(build(r.builder)...)
}

func (r *Reporter) ReportGauge(name string, value float64, unit domain.Unit, tags domain.Tags) {
	r.append(func(b *Builder) []domain.Document { return b.Gauge(name, value, unit, tags) })
}

func (r *Reporter) ReportCounter(name string, value domain.CounterValue, unit domain.Unit, tags domain.Tags) {
	r.append(func(b *Builder) []domain.Document { return b.Counter(name, value, unit, tags) })
}

func (r *Reporter) ReportMeter(name string, value domain.MeterValue, unit domain.Unit, _ domain.TimeUnit, tags domain.Tags) {
	r.append(func(b *Builder) []domain.Document { return b.Meter(name, value, unit, tags) })
}

func (r *Reporter) ReportHistogram(name string, value domain.HistogramValue, unit domain.Unit, tags domain.Tags) {
	r.append(func(b *Builder) []domain.Document { return b.Histogram(name, value, unit, tags) })
}

func (r *Reporter) ReportTimer(name string, value domain.TimerValue, unit domain.Unit, _, _ domain.TimeUnit, tags domain.Tags) {
	r.append(func(b *Builder) []domain.Document { return b.Timer(name, value, unit, tags) })
}

// ReportHealth accepts health results without producing documents.
func (r *Reporter) ReportHealth(domain.HealthStatus) {}

// EndReport closes the cycle batch and publishes it. Publish failures are
// returned but leave the reporter ready for the next cycle.
func (r *Reporter) EndReport(ctx context.Context) error {
	r.mu.Lock()
	b := r.batch
	if b == nil {
		r.mu.Unlock()
		return nil
	}
	r.batch = nil
	docs := r.collector.Close(b)
	if n := r.deltas.Sweep(); n > 0 {
		r.log.Debug("evicted idle delta state", zap.Int("keys", n))
	}
	ts, started, index := r.cycleTS, r.started, r.builder.Index()
	r.mu.Unlock()

	pctx, cancel := context.WithTimeout(ctx, r.cfg.PublishTimeout)
	err := r.publisher.Publish(pctx, docs)
	cancel()

	took := r.now().Sub(started)
	if err != nil {
		r.log.Warn("bulk publish failed, batch dropped",
			zap.String("index", index),
			zap.Int("documents", len(docs)),
			zap.Error(err),
		)
	} else {
		r.log.Debug("report cycle published",
			zap.String("index", index),
			zap.Int("documents", len(docs)),
			zap.Duration("took", took),
		)
	}

	evt := CycleEvent{Timestamp: ts, Index: index, Documents: len(docs), Duration: took, Err: err}
	if oerr := r.events.Publish(ctx, evt); oerr != nil {
		r.log.Warn("cycle observer failed", zap.Error(oerr))
	}
	return err
}

// Stop moves the reporter to the terminal Stopped state and drops any open
// batch. A publish already in flight is not interrupted.
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateStopped {
		return
	}
	if r.batch != nil {
		r.collector.Close(r.batch)
		r.batch = nil
	}
	r.state = StateStopped
	r.log.Info("reporter stopped")
}
