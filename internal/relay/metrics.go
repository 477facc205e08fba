package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// submissionsTotal counts pipeline outcomes by terminal result. The
	// outcome label holds either "ok", "duplicate", "honeypot", or the
	// stable rejection reason.
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_submissions_total",
			Help: "Total form submissions by admission outcome.",
		},
		[]string{"outcome"},
	)

	// deliveriesTotal counts outbound relays by result.
	deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_deliveries_total",
			Help: "Total Telegram deliveries by result.",
		},
		[]string{"result"},
	)

	// migrationsTotal counts chat migrations observed during delivery.
	migrationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_chat_migrations_total",
			Help: "Total chat-ID migrations observed and cached.",
		},
	)
)

func init() {
	prometheus.MustRegister(submissionsTotal, deliveriesTotal, migrationsTotal)
}
