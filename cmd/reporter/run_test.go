package main

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/Golastic/internal/adapters/http/ginserver"
	"github.com/vshulcz/Golastic/internal/adapters/http/ginserver/middlewares"
	"github.com/vshulcz/Golastic/internal/adapters/repository/memory"
	"github.com/vshulcz/Golastic/internal/domain"
	"github.com/vshulcz/Golastic/internal/services/indexd"
	"github.com/vshulcz/Golastic/pkg/util"
)

func nopLogger(bool) (*zap.Logger, error) { return zap.NewNop(), nil }

func startBackend(t *testing.T) (*memory.Repo, *net.TCPAddr) {
	t.Helper()
	repo := memory.New()
	h := ginserver.NewHandler(indexd.New(repo, nil))
	srv := httptest.NewServer(ginserver.NewRouter(h, zap.NewNop(), middlewares.ProductHeader(), middlewares.GzipRequest()))
	t.Cleanup(srv.Close)
	return repo, srv.Listener.Addr().(*net.TCPAddr)
}

func setBackendEnv(t *testing.T, addr *net.TCPAddr) {
	t.Helper()
	t.Setenv("ES_HOST", addr.IP.String())
	t.Setenv("ES_PORT", strconv.Itoa(addr.Port))
	t.Setenv("ES_ALIASES", "runtime-all")
	t.Setenv("ES_INDEX_PREFIX", "runtime")
	t.Setenv("REPORT_INTERVAL", "50ms")
	t.Setenv("POLL_INTERVAL", "10ms")
	t.Setenv("ES_GZIP", "true")
}

func Test_run_ReportsUntilCanceled(t *testing.T) {
	repo, addr := startBackend(t)
	setBackendEnv(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	if err := run(ctx, nil, nopLogger, util.BuildInfo{Version: "test"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	tpls, _ := repo.Templates(context.Background())
	if len(tpls) != 1 || tpls[0].Name != "metricsreportstemplate" {
		t.Fatalf("templates = %+v", tpls)
	}

	for _, kind := range []domain.MetricKind{domain.Gauge, domain.Counter, domain.CounterDiff, domain.Meter, domain.Histogram, domain.Timer} {
		docs, _ := repo.Search(context.Background(), domain.SearchQuery{Type: string(kind), Patterns: []string{"runtime-*"}})
		if len(docs) == 0 {
			t.Errorf("no %s documents published", kind)
		}
	}
}

func Test_run_Errors(t *testing.T) {
	t.Run("bad flag", func(t *testing.T) {
		if err := run(context.Background(), []string{"-nope"}, nopLogger, util.BuildInfo{}); err == nil {
			t.Fatal("expected flag error")
		}
	})

	t.Run("logger", func(t *testing.T) {
		_, addr := startBackend(t)
		setBackendEnv(t, addr)
		boom := errors.New("boom")
		err := run(context.Background(), nil, func(bool) (*zap.Logger, error) { return nil, boom }, util.BuildInfo{})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}
	})

	t.Run("missing host", func(t *testing.T) {
		t.Setenv("ES_HOST", "")
		t.Setenv("ES_ALIASES", "a")
		err := run(context.Background(), nil, nopLogger, util.BuildInfo{})
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Fatalf("err = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("backend down", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		addr := ln.Addr().(*net.TCPAddr)
		_ = ln.Close()
		setBackendEnv(t, addr)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := run(ctx, nil, nopLogger, util.BuildInfo{}); !errors.Is(err, domain.ErrTransport) {
			t.Fatalf("err = %v, want ErrTransport", err)
		}
	})
}
