// Package monitoring exposes Prometheus collectors for the
// registration pipeline. Counters are registered via promauto and
// served from the /metrics endpoint in the router.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckoutsTotal counts successfully recorded cart checkouts.
	CheckoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "symposium_checkouts_total",
		Help: "Total successful cart checkouts",
	})

	// VerificationsTotal counts state transitions to verified,
	// labelled by path (event, pass, accommodation, transaction,
	// recovery).
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "symposium_verifications_total",
		Help: "Total items newly verified",
	}, []string{"path"})

	// RejectionsTotal counts accommodation bookings rejected by an
	// administrator.
	RejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "symposium_booking_rejections_total",
		Help: "Total accommodation bookings rejected",
	})

	// MailPublishedTotal counts verification emails handed to the
	// queue publisher.
	MailPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "symposium_mail_published_total",
		Help: "Total verification emails published",
	})
)
