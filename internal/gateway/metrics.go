package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RWilker87/lightning-client/internal/logging"
)

const requestsTotalName = "lightning_client_requests_total"

const (
	outcomeOK                  = "ok"
	outcomeCredentialRejected  = "credential_rejected"
	outcomeEntitlementRejected = "entitlement_rejected"
	outcomeError               = "error"
)

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: requestsTotalName,
		Help: "Backend requests issued by the gateway, by outcome.",
	},
	[]string{"outcome"},
)

func recordRequest(outcome string) {
	requestsTotal.WithLabelValues(outcome).Inc()
}

// LogMetrics writes the request counters to the debug log. The client has no
// scrape endpoint, so this is how outcomes become observable on command exit.
func LogMetrics() {
	if !logging.IsLevelEnabled(zerolog.DebugLevel) {
		return
	}

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		log.Debug().Err(err).Msg("Failed to gather request metrics")
		return
	}
	for _, family := range families {
		if family.GetName() != requestsTotalName {
			continue
		}
		for _, metric := range family.GetMetric() {
			event := log.Debug().Float64("count", metric.GetCounter().GetValue())
			for _, label := range metric.GetLabel() {
				event = event.Str(label.GetName(), label.GetValue())
			}
			event.Msg("Backend request total")
		}
	}
}
