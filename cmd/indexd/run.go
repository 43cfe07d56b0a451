package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vshulcz/Golastic/internal/adapters/http/ginserver"
	"github.com/vshulcz/Golastic/internal/adapters/http/ginserver/middlewares"
	"github.com/vshulcz/Golastic/internal/config"
	"github.com/vshulcz/Golastic/internal/services/indexd"
	"github.com/vshulcz/Golastic/pkg/util"
)

const shutdownTimeout = 5 * time.Second

type serveFunc func(ctx context.Context, addr string, h http.Handler) error

func run(ctx context.Context, args []string, serve serveFunc) error {
	cfg, err := config.LoadIndexdConfig(args, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	logger, err := util.NewLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	repo, closeRepo := buildRepo(ctx, cfg, logger)
	defer closeRepo()

	svc := indexd.New(repo, logger.Named("indexd"))
	h := ginserver.NewHandler(svc)
	r := ginserver.NewRouter(h, logger,
		middlewares.ProductHeader(),
		middlewares.ZapLogger(logger),
		middlewares.GzipRequest(),
		middlewares.GzipResponse(),
	)

	logger.Info("index server started", zap.String("addr", cfg.Address), zap.Bool("postgres", cfg.DSN != ""))
	return serve(ctx, cfg.Address, r)
}

// serveHTTP listens on addr until ctx is done, then shuts down gracefully.
func serveHTTP(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
