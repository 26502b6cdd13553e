package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PaymentsExecuted prometheus.Counter
	PaymentsDenied   *prometheus.CounterVec
	TransferFailures prometheus.Counter
	HaltsActive      prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		PaymentsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "paygate_payments_executed_total",
			Help: "Total number of payments that transferred successfully",
		}),
		PaymentsDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "paygate_payments_denied_total",
			Help: "Total number of payment attempts denied, by reason code",
		}, []string{"reason"}),
		TransferFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "paygate_transfer_failures_total",
			Help: "Total number of ledger transfer failures after validation passed",
		}),
		HaltsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "paygate_global_halt_active",
			Help: "Whether the global emergency halt is currently set (0 or 1)",
		}),
	}
}

func (m *Metrics) IncrementExecuted() {
	m.PaymentsExecuted.Inc()
}

func (m *Metrics) IncrementDenied(reason string) {
	m.PaymentsDenied.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementTransferFailures() {
	m.TransferFailures.Inc()
}

func (m *Metrics) SetGlobalHalt(halted bool) {
	if halted {
		m.HaltsActive.Set(1)
		return
	}
	m.HaltsActive.Set(0)
}
