package http

import "github.com/prometheus/client_golang/prometheus"

const (
	opIssueToken    = "issue_token"
	opSubmitPayment = "submit_payment"

	outcomeSuccess = "success"
)

type metrics struct {
	requests *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "securepay",
			Name:      "requests_total",
			Help:      "Protocol requests by operation and outcome classification.",
		}, []string{"operation", "outcome"}),
	}
	reg.MustRegister(m.requests)
	return m
}

func (m *metrics) observe(operation, outcome string) {
	m.requests.WithLabelValues(operation, outcome).Inc()
}
