package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RWilker87/lightning-client/internal/events"
	"github.com/RWilker87/lightning-client/internal/report"
)

type fakeNavigator struct {
	atEntry   bool
	redirects int
}

func (n *fakeNavigator) AtEntry() bool { return n.atEntry }
func (n *fakeNavigator) ToEntry()      { n.redirects++; n.atEntry = true }

func newTestClient(t *testing.T, handler http.Handler, credential CredentialSource, bus *events.Bus, nav Navigator) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL, Timeout: 5 * time.Second}, credential, bus, nav)
	require.NoError(t, err)
	return client
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"empty", "", true},
		{"bad_scheme", "ftp://host", true},
		{"http_ok", "http://localhost:3333", false},
		{"trailing_slash_ok", "https://risk.example.com/", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(Config{BaseURL: tt.baseURL}, nil, nil, nil)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCredentialInjectedPerRequest(t *testing.T) {
	var seen []string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})

	// The source must be read per request, not snapshotted at construction.
	token := ""
	client := newTestClient(t, handler, func() string { return token }, events.NewBus(), nil)

	require.NoError(t, client.CheckLicense(context.Background()))
	token = "tok-123"
	require.NoError(t, client.CheckLicense(context.Background()))

	require.Len(t, seen, 2)
	assert.Empty(t, seen[0])
	assert.Equal(t, "Bearer tok-123", seen[1])
}

func TestCredentialRejectedReaction(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"token expired"}`, http.StatusUnauthorized)
	})

	bus := events.NewBus()
	fired := 0
	bus.Subscribe(events.SignalCredentialRejected, func() { fired++ })
	nav := &fakeNavigator{}

	client := newTestClient(t, handler, func() string { return "stale" }, bus, nav)

	_, err := client.Profile(context.Background())
	require.Error(t, err)

	_, profileErr := client.Profile(context.Background())
	require.Error(t, profileErr)
	assert.ErrorIs(t, profileErr, ErrCredentialRejected)

	// The signal fired for every rejected call, but the redirect happened
	// once: the navigator was already at the entry point the second time.
	assert.Equal(t, 2, fired)
	assert.Equal(t, 1, nav.redirects)
}

func TestCredentialRejectedNoRedirectLoopAtEntry(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	nav := &fakeNavigator{atEntry: true}
	client := newTestClient(t, handler, nil, events.NewBus(), nav)

	err := client.CheckLicense(context.Background())
	require.Error(t, err)
	assert.Zero(t, nav.redirects, "already at entry: no further redirect")
}

func TestEntitlementRejectedReaction(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"license expired"}`, http.StatusForbidden)
	})

	bus := events.NewBus()
	fired := 0
	bus.Subscribe(events.SignalEntitlementRejected, func() { fired++ })
	nav := &fakeNavigator{}

	client := newTestClient(t, handler, func() string { return "tok" }, bus, nav)

	err := client.CheckLicense(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEntitlementDenied)
	assert.Equal(t, 1, fired)
	assert.Zero(t, nav.redirects, "entitlement denial is not a session-ending error")
}

func TestLoginSuccess(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ana@example.com", body["email"])
		assert.Equal(t, "s3cret", body["password"])

		_ = json.NewEncoder(w).Encode(LoginResponse{
			Token: "tok-abc",
			User:  Identity{ID: 7, Name: "Ana", Email: "ana@example.com"},
		})
	})

	client := newTestClient(t, handler, nil, events.NewBus(), nil)
	response, err := client.Login(context.Background(), "ana@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", response.Token)
	assert.Equal(t, int64(7), response.User.ID)
}

func TestLoginRejectsEmptyToken(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(LoginResponse{})
	})

	client := newTestClient(t, handler, nil, events.NewBus(), nil)
	_, err := client.Login(context.Background(), "a", "b")
	assert.Error(t, err)
}

func TestProfileNullLicense(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":1,"name":"Ana","is_admin":true},"license":null}`))
	})

	client := newTestClient(t, handler, nil, events.NewBus(), nil)
	profile, err := client.Profile(context.Background())
	require.NoError(t, err)
	assert.True(t, profile.User.Admin)
	assert.Nil(t, profile.License, "never-provisioned license is distinct from inactive")
}

func TestSubmitCalculationValidatesResult(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Missing R2..R4: the client must refuse the malformed analysis.
		_, _ = w.Write([]byte(`{"analysis":{"R1":{"risco":1,"necessita_protecao":true}},"finalRisks":{"R1":1}}`))
	})

	client := newTestClient(t, handler, nil, events.NewBus(), nil)
	_, err := client.SubmitCalculation(context.Background(), report.CalculationParameters{})
	assert.Error(t, err)
}

func TestHistoryDropsCorruptRecords(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":1,"created_at":"2026-03-14T09:30:00Z",
			 "parameters":{"Ng":8,"L":15,"W":20,"H":6},
			 "result":{"analysis":{
				"R1":{"risco":1,"necessita_protecao":false},
				"R2":{"risco":1,"necessita_protecao":false},
				"R3":{"risco":1,"necessita_protecao":false},
				"R4":{"risco":1,"necessita_protecao":false}},
			  "finalRisks":{"R1":1,"R2":1,"R3":1,"R4":1}}},
			{"id":2,"created_at":"2026-03-15T09:30:00Z",
			 "parameters":"{broken","result":{}}
		]`))
	})

	client := newTestClient(t, handler, nil, events.NewBus(), nil)
	records, err := client.History(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].ID)
}

func TestAdminEndpoints(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/admin/users":
			_, _ = w.Write([]byte(`[{"id":3,"name":"Bia","is_admin":false,
				"tenant":{"licenses":[{"active":true,"valid_until":"2026-12-01T00:00:00Z"}]}}]`))
		case r.Method == http.MethodPut && r.URL.Path == "/admin/licenses/3":
			var body map[string]int
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, 45, body["daysToAdd"])
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodDelete && r.URL.Path == "/admin/licenses/3":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	})

	client := newTestClient(t, handler, func() string { return "admin-tok" }, events.NewBus(), nil)
	ctx := context.Background()

	users, err := client.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	license := users[0].License()
	require.NotNil(t, license)
	assert.True(t, license.Active)

	require.NoError(t, client.ExtendLicense(ctx, 3, 45))
	require.NoError(t, client.RevokeLicense(ctx, 3))
}

func TestAPIErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  APIError
		want string
	}{
		{"json_error_field", APIError{StatusCode: 422, Body: `{"error":"campo obrigatório"}`}, "campo obrigatório"},
		{"plain_body", APIError{StatusCode: 500, Body: "boom"}, "boom"},
		{"empty_body", APIError{StatusCode: 502, Body: ""}, "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Message())
		})
	}
}

func TestRequestMetricsRecorded(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	client := newTestClient(t, handler, nil, events.NewBus(), nil)

	before := testutil.ToFloat64(requestsTotal.WithLabelValues(outcomeCredentialRejected))
	_ = client.CheckLicense(context.Background())
	after := testutil.ToFloat64(requestsTotal.WithLabelValues(outcomeCredentialRejected))
	assert.Equal(t, before+1, after)
}

func TestNonGlobalErrorsSurfaceAsAPIError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	})
	client := newTestClient(t, handler, nil, events.NewBus(), nil)

	_, err := client.Profile(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.False(t, errors.Is(err, ErrCredentialRejected))
}

func TestLicenseSnapshotDaysRemaining(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	until := now.Add(10 * 24 * time.Hour)
	snapshot := LicenseSnapshot{Active: true, ValidUntil: &until}
	assert.Equal(t, 10, snapshot.DaysRemaining(now))

	expired := now.Add(-48 * time.Hour)
	snapshot = LicenseSnapshot{ValidUntil: &expired}
	assert.Equal(t, -2, snapshot.DaysRemaining(now))

	assert.Zero(t, LicenseSnapshot{}.DaysRemaining(now))
}
