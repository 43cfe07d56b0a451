package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/vshulcz/Golastic/internal/adapters/collector/runtime"
	"github.com/vshulcz/Golastic/internal/adapters/indexer/elastic"
	"github.com/vshulcz/Golastic/internal/config"
	"github.com/vshulcz/Golastic/internal/domain"
	"github.com/vshulcz/Golastic/internal/services/reporter"
	"github.com/vshulcz/Golastic/internal/services/scheduler"
	"github.com/vshulcz/Golastic/pkg/util"
)

// run applies the index template, then reports runtime metrics until ctx is done.
func run(ctx context.Context, args []string, newLogger func(debug bool) (*zap.Logger, error), info util.BuildInfo) error {
	cfg, err := config.LoadReporterConfig(args, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	logger.Info("reporter starting", append(info.Fields(),
		zap.String("backend", cfg.BaseURL()),
		zap.String("prefix", cfg.IndexPrefix),
		zap.Strings("aliases", cfg.Aliases),
	)...)

	client, err := elastic.New(cfg.BaseURL(),
		elastic.WithGzip(cfg.Gzip),
		elastic.WithLogger(logger.Named("elastic")),
	)
	if err != nil {
		return err
	}

	rep, err := reporter.New(cfg, client, reporter.WithLogger(logger.Named("reporter")))
	if err != nil {
		return err
	}
	defer rep.Stop()

	if err := rep.Init(ctx); err != nil {
		return err
	}

	var tags domain.Tags
	if host, err := os.Hostname(); err == nil {
		tags = domain.NewTags("host", host)
	}
	src := runtime.New(tags)

	return scheduler.New(cfg, src, rep, logger.Named("scheduler")).Run(ctx)
}
