package telemetry

// Histogram bucket definitions
var (
	// UpdatesBuckets for number of journal entries returned per catch-up read
	UpdatesBuckets = []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000}
)

// Journal Metrics
var (
	// EntriesAppendedTotal counts entries stamped and appended to any journal
	EntriesAppendedTotal Counter = NoopStat{}

	// AppendsTotal counts append calls by result (written, noop, not_found)
	AppendsTotal CounterVec = noopCounterVec{}

	// UpdatesReturned measures entries returned per catch-up read
	UpdatesReturned Histogram = NoopStat{}

	// UpdatesNonexistentTotal counts catch-up reads against unknown folders
	UpdatesNonexistentTotal Counter = NoopStat{}

	// FoldersRegistered tracks number of folders in the registry
	FoldersRegistered Gauge = NoopStat{}

	// JournalEntries tracks total entries held across all journals
	JournalEntries Gauge = NoopStat{}
)

// Notify Metrics
var (
	// Subscribers tracks registered handlers across all channels
	Subscribers Gauge = NoopStat{}

	// PublishesTotal counts publish calls
	PublishesTotal Counter = NoopStat{}

	// DeliveriesTotal counts payloads handed to handlers
	DeliveriesTotal Counter = NoopStat{}

	// HandlerPanicsTotal counts recovered handler panics
	HandlerPanicsTotal Counter = NoopStat{}
)

// InitMetrics initializes all metrics after telemetry is initialized
func InitMetrics() {
	EntriesAppendedTotal = NewCounter(
		"journal_entries_appended_total",
		"Total entries appended to folder journals",
	)
	AppendsTotal = NewCounterVec(
		"journal_appends_total",
		"Append calls by result",
		[]string{"result"},
	)
	UpdatesReturned = NewHistogramWithBuckets(
		"journal_updates_returned",
		"Entries returned per catch-up read",
		UpdatesBuckets,
	)
	UpdatesNonexistentTotal = NewCounter(
		"journal_updates_nonexistent_total",
		"Catch-up reads against unknown folders",
	)
	FoldersRegistered = NewGauge(
		"journal_folders",
		"Folders currently registered",
	)
	JournalEntries = NewGauge(
		"journal_entries",
		"Entries held across all folder journals",
	)

	Subscribers = NewGauge(
		"notify_subscribers",
		"Handlers registered across all channels",
	)
	PublishesTotal = NewCounter(
		"notify_publishes_total",
		"Publish calls",
	)
	DeliveriesTotal = NewCounter(
		"notify_deliveries_total",
		"Payloads delivered to handlers",
	)
	HandlerPanicsTotal = NewCounter(
		"notify_handler_panics_total",
		"Handler panics recovered during delivery",
	)
}
