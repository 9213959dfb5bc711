package gateway

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/RWilker87/lightning-client/internal/events"
	"github.com/RWilker87/lightning-client/internal/logging"
)

// authTransport decorates every outbound request with the current credential
// and inspects every response for the two global failure conditions. The
// reactions fire here, in the transport, so that they apply to every call
// regardless of which component issued it.
type authTransport struct {
	base       http.RoundTripper
	credential CredentialSource
	bus        *events.Bus
	navigator  Navigator
}

func (t *authTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	ctx, requestID := logging.WithRequestID(request.Context(), request.Header.Get("X-Request-ID"))

	// Clone before mutating; RoundTrippers must not modify the caller's request.
	request = request.Clone(ctx)
	request.Header.Set("X-Request-ID", requestID)

	if t.credential != nil {
		if token := strings.TrimSpace(t.credential()); token != "" {
			request.Header.Set("Authorization", "Bearer "+token)
		}
	}

	response, err := t.base.RoundTrip(request)
	if err != nil {
		recordRequest(outcomeError)
		return nil, err
	}

	switch response.StatusCode {
	case http.StatusUnauthorized:
		recordRequest(outcomeCredentialRejected)
		t.onCredentialRejected(request)
	case http.StatusForbidden:
		recordRequest(outcomeEntitlementRejected)
		t.onEntitlementRejected(request)
	default:
		recordRequest(outcomeOK)
	}

	return response, nil
}

func (t *authTransport) onCredentialRejected(request *http.Request) {
	log.Warn().
		Str("method", request.Method).
		Str("path", request.URL.Path).
		Str("request_id", logging.RequestID(request.Context())).
		Msg("Backend rejected credential; tearing down session")

	if t.bus != nil {
		t.bus.Publish(events.SignalCredentialRejected)
	}
	// Idempotent redirect guard: never bounce when already at the entry point.
	if t.navigator != nil && !t.navigator.AtEntry() {
		t.navigator.ToEntry()
	}
}

func (t *authTransport) onEntitlementRejected(request *http.Request) {
	log.Warn().
		Str("method", request.Method).
		Str("path", request.URL.Path).
		Str("request_id", logging.RequestID(request.Context())).
		Msg("Backend rejected entitlement for call")

	if t.bus != nil {
		t.bus.Publish(events.SignalEntitlementRejected)
	}
}
