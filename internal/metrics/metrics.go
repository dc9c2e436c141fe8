// Package metrics содержит метрики Prometheus для операций маркетплейса.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OutcomeSuccess задаёт метку успешного завершения операции.
const OutcomeSuccess = "success"

// Metrics хранит счётчики и гистограммы операций сервиса.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	PurchaseVolume    prometheus.Counter
	UsersRegistered   prometheus.Counter
}

// New регистрирует метрики в reg. В main передаётся prometheus.DefaultRegisterer,
// в тестах отдельный prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OperationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qbay_operations_total",
				Help: "Total number of service operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qbay_operation_duration_seconds",
				Help:    "Duration of service operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		PurchaseVolume: f.NewCounter(
			prometheus.CounterOpts{
				Name: "qbay_purchase_volume_total",
				Help: "Sum of prices of recorded purchases in minor units",
			},
		),
		UsersRegistered: f.NewCounter(
			prometheus.CounterOpts{
				Name: "qbay_users_registered_total",
				Help: "Total number of registered users",
			},
		),
	}
}

// RecordOperation фиксирует исход и длительность операции. Безопасен для nil.
func (m *Metrics) RecordOperation(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordPurchase увеличивает объём покупок на цену товара.
func (m *Metrics) RecordPurchase(price int64) {
	if m == nil {
		return
	}
	m.PurchaseVolume.Add(float64(price))
}

// RecordRegistration увеличивает счётчик зарегистрированных пользователей.
func (m *Metrics) RecordRegistration() {
	if m == nil {
		return
	}
	m.UsersRegistered.Inc()
}
