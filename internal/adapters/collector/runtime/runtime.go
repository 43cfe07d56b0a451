// Package runtime implements a metrics source that samples Go runtime stats and host CPU/RAM usage.
package runtime

import (
	"context"
	"fmt"
	"maps"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/vshulcz/Golastic/internal/domain"
	"github.com/vshulcz/Golastic/internal/ports"
)

const (
	unitBytes   domain.Unit = "Bytes"
	unitPercent domain.Unit = "Percent"
	unitItems   domain.Unit = "Items"
)

// Collector periodically samples Go runtime stats plus host CPU/RAM metrics
// and replays them into a visitor on demand.
type Collector struct {
	st   *stats
	now  func() time.Time
	stop chan struct{}
	tags domain.Tags
	wg   sync.WaitGroup
	once sync.Once
}

var _ ports.Source = (*Collector)(nil)

// New creates a Collector whose snapshots carry tags.
func New(tags domain.Tags) *Collector {
	return &Collector{
		st:   newStats(time.Now()),
		now:  time.Now,
		stop: make(chan struct{}),
		tags: tags,
	}
}

// Start launches background goroutines that sample runtime and host metrics at the given interval.
func (c *Collector) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be > 0, got %v", interval)
	}

	c.loop(ctx, interval, c.sampleRuntime)
	c.loop(ctx, interval, c.sampleHost)
	return nil
}

func (c *Collector) loop(ctx context.Context, interval time.Duration, sample func()) {
	t := time.NewTicker(interval)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-t.C:
				sample()
			}
		}
	}()
}

func (c *Collector) sampleRuntime() {
	var ms runtime.MemStats
	begin := c.now()
	runtime.ReadMemStats(&ms)
	now := c.now()

	for name, v := range map[string]uint64{
		MAlloc: ms.Alloc, MBuckHashSys: ms.BuckHashSys, MGCSys: ms.GCSys,
		MHeapAlloc: ms.HeapAlloc, MHeapIdle: ms.HeapIdle, MHeapInuse: ms.HeapInuse,
		MHeapReleased: ms.HeapReleased, MHeapSys: ms.HeapSys, MMCacheInuse: ms.MCacheInuse,
		MMCacheSys: ms.MCacheSys, MMSpanInuse: ms.MSpanInuse, MMSpanSys: ms.MSpanSys,
		MNextGC: ms.NextGC, MOtherSys: ms.OtherSys, MStackInuse: ms.StackInuse,
		MStackSys: ms.StackSys, MSys: ms.Sys, MTotalAlloc: ms.TotalAlloc,
	} {
		c.st.SetGauge(name, float64(v), unitBytes)
	}
	for name, v := range map[string]uint64{
		MFrees: ms.Frees, MHeapObjects: ms.HeapObjects, MLastGC: ms.LastGC,
		MLookups: ms.Lookups, MMallocs: ms.Mallocs,
	} {
		c.st.SetGauge(name, float64(v), "")
	}
	c.st.SetGauge(MGCCPUFraction, ms.GCCPUFraction, "")
	c.st.SetGauge(MNumGoroutine, float64(runtime.NumGoroutine()), "")

	c.st.ObserveGC(ms.NumGC, &ms.PauseNs, now)
	c.st.ObserveSample(now.Sub(begin), now)
	c.st.AddPoll(ItemRuntime, 1)
}

func (c *Collector) sampleHost() {
	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		c.st.SetGauge(TotalMemory, float64(vm.Total), unitBytes)
		c.st.SetGauge(FreeMemory, float64(vm.Free), unitBytes)
	}
	if pct, err := cpu.Percent(0, true); err == nil {
		for i, p := range pct {
			c.st.SetGauge(fmt.Sprintf("%s%d", CPUutilization, i+1), p, unitPercent)
		}
	}
	c.st.AddPoll(ItemHost, 1)
}

// Stop signals every collector goroutine to halt and waits for them to finish.
func (c *Collector) Stop() {
	c.once.Do(func() {
		close(c.stop)
	})
	c.wg.Wait()
}

// Visit reports the latest samples: gauges in name order, then the poll
// counter, the GC meter, the GC pause histogram and the sampling timer.
func (c *Collector) Visit(v ports.Visitor) {
	snap := c.st.Snapshot(c.now())

	for _, name := range slices.Sorted(maps.Keys(snap.gauges)) {
		g := snap.gauges[name]
		v.ReportGauge(name, g.value, g.unit, c.tags)
	}
	v.ReportCounter(MPollCount, snap.polls, unitItems, c.tags)
	v.ReportMeter(MGC, snap.gc, "Collections", domain.Seconds, c.tags)
	v.ReportHistogram(MGCPause, snap.pauses, "ms", c.tags)
	v.ReportTimer(MSample, snap.latency, "Samples", domain.Seconds, domain.Milliseconds, c.tags)
}
