package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics содержит метрики движка сверки заказов.
type ReconcileMetrics struct {
	// Счётчики исходов reconcile.
	ordersCreated   prometheus.Counter
	ordersMerged    prometheus.Counter
	terminalSkipped prometheus.Counter
	versionConflict prometheus.Counter
	reconcileFailed prometheus.Counter

	// Гистограмма времени полного цикла reconcile.
	reconcileDuration prometheus.Histogram

	// Попытки повторов операций хранилища, по операциям.
	storageRetries *prometheus.CounterVec
}

// NewReconcileMetrics создаёт метрики с регистрацией в DefaultRegisterer.
func NewReconcileMetrics() *ReconcileMetrics {
	return newReconcileMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newReconcileMetricsWithRegisterer(registerer prometheus.Registerer) *ReconcileMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ReconcileMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_reconcile_created_total",
			Help: "Total number of orders created by reconciliation",
		}),
		ordersMerged: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_reconcile_merged_total",
			Help: "Total number of candidate merges into existing orders",
		}),
		terminalSkipped: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_reconcile_terminal_skipped_total",
			Help: "Total number of candidates whose status change was ignored because the order is terminal",
		}),
		versionConflict: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_reconcile_version_conflicts_total",
			Help: "Total number of optimistic-lock conflicts observed during reconciliation",
		}),
		reconcileFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_reconcile_failed_total",
			Help: "Total number of reconcile calls that returned an error",
		}),
		reconcileDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "checkout_reconcile_duration_seconds",
			Help:    "Duration of reconcile calls in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		storageRetries: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "checkout_storage_retry_attempts_total",
			Help: "Total number of retried storage attempts by operation",
		}, []string{"op"}),
	}
}

// RecordCreated фиксирует создание заказа первым успешным писателем.
func (m *ReconcileMetrics) RecordCreated() { m.ordersCreated.Inc() }

// RecordMerged фиксирует слияние кандидата в существующий заказ.
func (m *ReconcileMetrics) RecordMerged() { m.ordersMerged.Inc() }

// RecordTerminalSkipped фиксирует кандидата, проигравшего терминальному статусу.
func (m *ReconcileMetrics) RecordTerminalSkipped() { m.terminalSkipped.Inc() }

// RecordVersionConflict фиксирует проигранную гонку версий.
func (m *ReconcileMetrics) RecordVersionConflict() { m.versionConflict.Inc() }

// RecordFailed фиксирует неуспешный reconcile.
func (m *ReconcileMetrics) RecordFailed() { m.reconcileFailed.Inc() }

// RecordDuration фиксирует длительность полного цикла reconcile.
func (m *ReconcileMetrics) RecordDuration(d time.Duration) {
	m.reconcileDuration.Observe(d.Seconds())
}

// RecordStorageRetry фиксирует неудачную попытку операции хранилища.
// Сигнатура совместима с observer-хуком retry-обёртки.
func (m *ReconcileMetrics) RecordStorageRetry(op string, attempt int, err error) {
	m.storageRetries.WithLabelValues(op).Inc()
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}
