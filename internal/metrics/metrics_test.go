package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordOperation("register", OutcomeSuccess, time.Millisecond)
	m.RecordOperation("register", OutcomeSuccess, time.Millisecond)
	m.RecordOperation("register", "validation", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("register", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("register", "validation")))
}

func TestRecordPurchaseAndRegistration(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordPurchase(25)
	m.RecordPurchase(15)
	m.RecordRegistration()

	assert.Equal(t, 40.0, testutil.ToFloat64(m.PurchaseVolume))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UsersRegistered))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	m.RecordOperation("login", OutcomeSuccess, time.Second)
	m.RecordPurchase(10)
	m.RecordRegistration()
}
