package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the bot's prometheus collectors.
type Metrics struct {
	Interactions  *prometheus.CounterVec
	SpamBans      prometheus.Counter
	TicketsOpened *prometheus.CounterVec
	TicketsClosed *prometheus.CounterVec
	Ratings       *prometheus.HistogramVec
	StorefrontErr *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront_bot",
			Name:      "interactions_total",
			Help:      "Interactions handled, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		SpamBans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront_bot",
			Name:      "spam_bans_total",
			Help:      "Members banned by the spam guard.",
		}),
		TicketsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront_bot",
			Name:      "tickets_opened_total",
			Help:      "Tickets created, by category.",
		}, []string{"category"}),
		TicketsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront_bot",
			Name:      "tickets_closed_total",
			Help:      "Tickets closed, by closer type.",
		}, []string{"closer"}),
		Ratings: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront_bot",
			Name:      "ticket_rating",
			Help:      "Submitted ticket ratings.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}, []string{"kind"}),
		StorefrontErr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront_bot",
			Name:      "storefront_errors_total",
			Help:      "Failed storefront API calls, by status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.Interactions, m.SpamBans, m.TicketsOpened, m.TicketsClosed, m.Ratings, m.StorefrontErr)
	return m
}

// NewNoopMetrics returns collectors registered on a throwaway registry.
func NewNoopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
