package runtime

// Gauge names mirror the runtime.MemStats fields they are read from.
const (
	MAlloc         = "Alloc"
	MBuckHashSys   = "BuckHashSys"
	MFrees         = "Frees"
	MGCCPUFraction = "GCCPUFraction"
	MGCSys         = "GCSys"
	MHeapAlloc     = "HeapAlloc"
	MHeapIdle      = "HeapIdle"
	MHeapInuse     = "HeapInuse"
	MHeapObjects   = "HeapObjects"
	MHeapReleased  = "HeapReleased"
	MHeapSys       = "HeapSys"
	MLastGC        = "LastGC"
	MLookups       = "Lookups"
	MMCacheInuse   = "MCacheInuse"
	MMCacheSys     = "MCacheSys"
	MMSpanInuse    = "MSpanInuse"
	MMSpanSys      = "MSpanSys"
	MMallocs       = "Mallocs"
	MNextGC        = "NextGC"
	MNumGoroutine  = "NumGoroutine"
	MOtherSys      = "OtherSys"
	MStackInuse    = "StackInuse"
	MStackSys      = "StackSys"
	MSys           = "Sys"
	MTotalAlloc    = "TotalAlloc"

	TotalMemory    = "TotalMemory"
	FreeMemory     = "FreeMemory"
	CPUutilization = "CPUutilization"
)

const (
	// MPollCount counts sampler ticks, split by sampler item.
	MPollCount = "PollCount"
	// MGC is a meter over completed GC cycles.
	MGC = "GC"
	// MGCPause is a histogram of recent stop-the-world pauses in milliseconds.
	MGCPause = "GCPause"
	// MSample is a timer over runtime sampling latency.
	MSample = "Sample"

	ItemRuntime = "runtime.memstats"
	ItemHost    = "host.gopsutil"
)
