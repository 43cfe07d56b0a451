package ports

import (
	"context"
	"time"

	"github.com/vshulcz/Golastic/internal/domain"
)

// Visitor receives per-metric snapshots within a report cycle.
type Visitor interface {
	ReportGauge(name string, value float64, unit domain.Unit, tags domain.Tags)
	ReportCounter(name string, value domain.CounterValue, unit domain.Unit, tags domain.Tags)
	ReportMeter(name string, value domain.MeterValue, unit domain.Unit, rateUnit domain.TimeUnit, tags domain.Tags)
	ReportHistogram(name string, value domain.HistogramValue, unit domain.Unit, tags domain.Tags)
	ReportTimer(name string, value domain.TimerValue, unit domain.Unit, rateUnit, durationUnit domain.TimeUnit, tags domain.Tags)
	ReportHealth(status domain.HealthStatus)
}

// Sink is the contract a host metrics framework drives once per cycle:
// StartReport, any number of Visitor calls, then EndReport. Calls for one
// sink are never concurrent.
type Sink interface {
	Visitor
	StartReport(ts time.Time) error
	EndReport(ctx context.Context) error
}

// Source owns metric state and replays its snapshots into a Visitor.
type Source interface {
	Start(ctx context.Context, interval time.Duration) error
	Stop()
	Visit(v Visitor)
}

// Indexer is the transport to the indexing backend.
type Indexer interface {
	// Bulk submits a newline-delimited bulk body as one request.
	Bulk(ctx context.Context, body []byte) error
	// PutTemplate creates or replaces the named index template.
	PutTemplate(ctx context.Context, name string, body []byte) error
}
