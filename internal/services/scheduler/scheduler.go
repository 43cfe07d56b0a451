// Package scheduler drives report cycles: it replays a metrics source into a
// sink on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/Golastic/internal/config"
	"github.com/vshulcz/Golastic/internal/ports"
)

// Service runs one report cycle per tick until its context is done.
type Service struct {
	source ports.Source
	sink   ports.Sink
	log    *zap.Logger
	now    func() time.Time
	cfg    config.ReporterConfig
	mu     sync.Mutex
}

// New wires together the reporter configuration, metrics source, and sink.
func New(cfg config.ReporterConfig, src ports.Source, sink ports.Sink, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{cfg: cfg, source: src, sink: sink, log: log, now: time.Now}
}

// Run starts sampling, reports on every ReportInterval tick and blocks until
// ctx is done. Failed cycles are logged and do not stop the loop.
func (s *Service) Run(ctx context.Context) error {
	if err := s.source.Start(ctx, s.cfg.PollInterval); err != nil {
		return fmt.Errorf("start source: %w", err)
	}
	defer s.source.Stop()

	ticker := time.NewTicker(s.cfg.ReportInterval)
	defer ticker.Stop()

	s.log.Info("scheduler started",
		zap.Duration("poll", s.cfg.PollInterval),
		zap.Duration("report", s.cfg.ReportInterval),
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.RunCycle(ctx, s.now()); err != nil {
				s.log.Warn("report cycle failed", zap.Error(err))
			}
		}
	}
}

// RunCycle performs a single cycle stamped with ts. Cycles never overlap.
func (s *Service) RunCycle(ctx context.Context, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sink.StartReport(ts); err != nil {
		return fmt.Errorf("start report: %w", err)
	}
	s.source.Visit(s.sink)
	return s.sink.EndReport(ctx)
}
