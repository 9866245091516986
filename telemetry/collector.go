package telemetry

import (
	"sync"
	"time"
)

// FolderLister is implemented by the folder registry
type FolderLister interface {
	Len() int
	TotalEntries() int
}

// MetricsCollector periodically samples folder stats and updates telemetry gauges
type MetricsCollector struct {
	lister   FolderLister
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(lister FolderLister, interval time.Duration) *MetricsCollector {
	return &MetricsCollector{
		lister:   lister,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic collection
func (mc *MetricsCollector) Start() {
	mc.wg.Add(1)
	go mc.collectLoop()
}

// Stop stops the collector
func (mc *MetricsCollector) Stop() {
	mc.stopOnce.Do(func() { close(mc.stopCh) })
	mc.wg.Wait()
}

func (mc *MetricsCollector) collectLoop() {
	defer mc.wg.Done()

	ticker := time.NewTicker(mc.interval)
	defer ticker.Stop()

	mc.collect()

	for {
		select {
		case <-ticker.C:
			mc.collect()
		case <-mc.stopCh:
			return
		}
	}
}

func (mc *MetricsCollector) collect() {
	if mc.lister == nil {
		return
	}

	FoldersRegistered.Set(float64(mc.lister.Len()))
	JournalEntries.Set(float64(mc.lister.TotalEntries()))
}
