// Package guard implements the navigation decision gates. Each guard is a
// three-state machine (loading, allow, deny) that consumes session and
// entitlement state; an unresolved guard never grants access.
package guard

import (
	"context"
	"fmt"

	"github.com/RWilker87/lightning-client/internal/entitlement"
	"github.com/RWilker87/lightning-client/internal/gateway"
)

// Decision is the state of a guard evaluation.
type Decision int

const (
	// DecisionLoading means the underlying checks have not resolved yet.
	// A loading guard renders a neutral waiting state, never content.
	DecisionLoading Decision = iota
	DecisionAllow
	DecisionDeny
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionDeny:
		return "deny"
	default:
		return "loading"
	}
}

// Route is a navigation target.
type Route string

const (
	// RouteLogin is the unauthenticated entry point.
	RouteLogin Route = "/login"
	// RouteDashboard is the default authenticated landing page.
	RouteDashboard Route = "/dashboard"
)

// ReasonLicenseError is the machine-readable flag attached to a license
// denial so the landing page can render an explanatory notice.
const ReasonLicenseError = "license_error"

// Result is the outcome of a guard evaluation. RedirectTo is set only on
// deny; Reason carries the optional machine-readable denial flag.
type Result struct {
	Decision   Decision
	RedirectTo Route
	Reason     string
}

// Session is the slice of the session store guards depend on.
type Session interface {
	Loading() bool
	Authenticated() bool
	Identity() *gateway.Identity
}

// Checker performs the fresh entitlement probe for the license guard.
type Checker interface {
	CheckAccess(ctx context.Context) (entitlement.Verdict, error)
}

// Guard is a single navigation decision gate. Evaluate is re-run on every
// navigation; a non-nil error means the decision could not be resolved and
// the returned result is fail-closed (never allow).
type Guard interface {
	Evaluate(ctx context.Context) (Result, error)
}

// ResolveUnknownRoute is the policy for routes that match nothing: they are
// treated as unauthenticated territory and land on the entry point.
func ResolveUnknownRoute() Route {
	return RouteLogin
}

// AuthGuard admits any authenticated session.
type AuthGuard struct {
	Session Session
}

func (g AuthGuard) Evaluate(ctx context.Context) (Result, error) {
	if g.Session.Loading() {
		return Result{Decision: DecisionLoading}, nil
	}
	if !g.Session.Authenticated() {
		return Result{Decision: DecisionDeny, RedirectTo: RouteLogin}, nil
	}
	return Result{Decision: DecisionAllow}, nil
}

// AdminGuard admits authenticated administrators. Authentication is checked
// before the administrator flag: an unauthenticated caller lands on the
// entry point, an authenticated non-admin on the dashboard.
type AdminGuard struct {
	Session Session
}

func (g AdminGuard) Evaluate(ctx context.Context) (Result, error) {
	if g.Session.Loading() {
		return Result{Decision: DecisionLoading}, nil
	}
	if !g.Session.Authenticated() {
		return Result{Decision: DecisionDeny, RedirectTo: RouteLogin}, nil
	}
	identity := g.Session.Identity()
	if identity == nil || !identity.Admin {
		return Result{Decision: DecisionDeny, RedirectTo: RouteDashboard}, nil
	}
	return Result{Decision: DecisionAllow}, nil
}

// LicenseGuard admits authenticated sessions whose entitlement probe comes
// back granted. The probe is never issued before authentication resolves,
// so an unauthenticated caller cannot trigger a check attempt.
type LicenseGuard struct {
	Session Session
	Checker Checker
}

func (g LicenseGuard) Evaluate(ctx context.Context) (Result, error) {
	if g.Session.Loading() {
		return Result{Decision: DecisionLoading}, nil
	}
	if !g.Session.Authenticated() {
		return Result{Decision: DecisionDeny, RedirectTo: RouteLogin}, nil
	}

	verdict, err := g.Checker.CheckAccess(ctx)
	if err != nil {
		// The check did not resolve; stay fail-closed and surface the
		// failure so the caller can show a message instead of spinning.
		return Result{Decision: DecisionLoading}, fmt.Errorf("license guard: %w", err)
	}
	if verdict != entitlement.VerdictGranted {
		return Result{
			Decision:   DecisionDeny,
			RedirectTo: RouteDashboard,
			Reason:     ReasonLicenseError,
		}, nil
	}
	return Result{Decision: DecisionAllow}, nil
}
