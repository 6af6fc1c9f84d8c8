package caption

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK        = "ok"
	resultExhausted = "exhausted"
	resultEmpty     = "empty"
	resultError     = "error"
)

var (
	describeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "humorize",
			Name:      "caption_requests_total",
			Help:      "Describe calls by final result.",
		},
		[]string{"result"},
	)

	attemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "humorize",
			Name:      "caption_attempts_total",
			Help:      "Calls made to the caption provider, one per credential tried.",
		},
	)

	quarantinedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "humorize",
			Name:      "caption_keys_quarantined_total",
			Help:      "Credentials put into quarantine after a rate-limit, quota or auth rejection.",
		},
	)
)
