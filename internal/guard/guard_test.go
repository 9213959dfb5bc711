package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RWilker87/lightning-client/internal/entitlement"
	"github.com/RWilker87/lightning-client/internal/gateway"
)

type fakeSession struct {
	loading       bool
	authenticated bool
	identity      *gateway.Identity
}

func (s fakeSession) Loading() bool               { return s.loading }
func (s fakeSession) Authenticated() bool         { return s.authenticated }
func (s fakeSession) Identity() *gateway.Identity { return s.identity }

type fakeChecker struct {
	verdict entitlement.Verdict
	err     error
	calls   int
}

func (c *fakeChecker) CheckAccess(ctx context.Context) (entitlement.Verdict, error) {
	c.calls++
	return c.verdict, c.err
}

func TestAuthGuard(t *testing.T) {
	tests := []struct {
		name    string
		session fakeSession
		want    Result
	}{
		{
			name:    "loading_fails_closed",
			session: fakeSession{loading: true},
			want:    Result{Decision: DecisionLoading},
		},
		{
			name:    "unauthenticated_denied_to_login",
			session: fakeSession{},
			want:    Result{Decision: DecisionDeny, RedirectTo: RouteLogin},
		},
		{
			name:    "authenticated_allowed",
			session: fakeSession{authenticated: true, identity: &gateway.Identity{ID: 1}},
			want:    Result{Decision: DecisionAllow},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := AuthGuard{Session: tt.session}.Evaluate(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestAdminGuard(t *testing.T) {
	tests := []struct {
		name    string
		session fakeSession
		want    Result
	}{
		{
			name:    "loading_fails_closed",
			session: fakeSession{loading: true},
			want:    Result{Decision: DecisionLoading},
		},
		{
			// Authentication is checked before the admin flag: the
			// unauthenticated caller goes to the entry point, not the
			// dashboard.
			name:    "unauthenticated_denied_to_login",
			session: fakeSession{},
			want:    Result{Decision: DecisionDeny, RedirectTo: RouteLogin},
		},
		{
			name:    "non_admin_denied_to_dashboard",
			session: fakeSession{authenticated: true, identity: &gateway.Identity{ID: 1}},
			want:    Result{Decision: DecisionDeny, RedirectTo: RouteDashboard},
		},
		{
			name:    "admin_allowed",
			session: fakeSession{authenticated: true, identity: &gateway.Identity{ID: 1, Admin: true}},
			want:    Result{Decision: DecisionAllow},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := AdminGuard{Session: tt.session}.Evaluate(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestLicenseGuardDoesNotProbeBeforeAuthentication(t *testing.T) {
	checker := &fakeChecker{verdict: entitlement.VerdictGranted}

	g := LicenseGuard{Session: fakeSession{loading: true}, Checker: checker}
	result, err := g.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DecisionLoading, result.Decision)

	g = LicenseGuard{Session: fakeSession{}, Checker: checker}
	result, err = g.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DecisionDeny, result.Decision)
	assert.Equal(t, RouteLogin, result.RedirectTo)

	assert.Zero(t, checker.calls, "no probe may leak for an unauthenticated caller")
}

func TestLicenseGuardGranted(t *testing.T) {
	checker := &fakeChecker{verdict: entitlement.VerdictGranted}
	g := LicenseGuard{
		Session: fakeSession{authenticated: true, identity: &gateway.Identity{ID: 1}},
		Checker: checker,
	}

	result, err := g.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Decision: DecisionAllow}, result)
	assert.Equal(t, 1, checker.calls)
}

func TestLicenseGuardDeniedCarriesReason(t *testing.T) {
	checker := &fakeChecker{verdict: entitlement.VerdictDenied}
	g := LicenseGuard{
		Session: fakeSession{authenticated: true, identity: &gateway.Identity{ID: 1}},
		Checker: checker,
	}

	result, err := g.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DecisionDeny, result.Decision)
	assert.Equal(t, RouteDashboard, result.RedirectTo)
	assert.Equal(t, ReasonLicenseError, result.Reason)
}

func TestLicenseGuardProbesDespiteActiveSnapshot(t *testing.T) {
	// An earlier cached snapshot may claim an active license; the guard
	// must ask the backend anyway and honor the denial.
	checker := &fakeChecker{verdict: entitlement.VerdictDenied}
	session := fakeSession{
		authenticated: true,
		identity:      &gateway.Identity{ID: 1},
	}

	result, err := LicenseGuard{Session: session, Checker: checker}.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DecisionDeny, result.Decision)
	assert.Equal(t, 1, checker.calls, "the dedicated probe must be consulted")
}

func TestLicenseGuardUnresolvedCheckFailsClosed(t *testing.T) {
	checker := &fakeChecker{err: errors.New("connection refused")}
	g := LicenseGuard{
		Session: fakeSession{authenticated: true, identity: &gateway.Identity{ID: 1}},
		Checker: checker,
	}

	result, err := g.Evaluate(context.Background())
	require.Error(t, err)
	assert.Equal(t, DecisionLoading, result.Decision, "an unresolved check never allows")
}

func TestGuardsNeverAllowWhileUnresolved(t *testing.T) {
	loading := fakeSession{loading: true}
	guards := []Guard{
		AuthGuard{Session: loading},
		AdminGuard{Session: loading},
		LicenseGuard{Session: loading, Checker: &fakeChecker{verdict: entitlement.VerdictGranted}},
	}
	for _, g := range guards {
		result, err := g.Evaluate(context.Background())
		require.NoError(t, err)
		assert.NotEqual(t, DecisionAllow, result.Decision)
	}
}

func TestResolveUnknownRoute(t *testing.T) {
	assert.Equal(t, RouteLogin, ResolveUnknownRoute())
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "loading", DecisionLoading.String())
	assert.Equal(t, "allow", DecisionAllow.String())
	assert.Equal(t, "deny", DecisionDeny.String())
}
