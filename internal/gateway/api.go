package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/RWilker87/lightning-client/internal/report"
)

// Identity is the backend's view of the authenticated user.
type Identity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Admin bool   `json:"is_admin"`
}

// LicenseSnapshot is the license state cached alongside the profile. It is a
// point-in-time value and may be stale by the time it is read; sensitive
// actions must revalidate through CheckLicense.
type LicenseSnapshot struct {
	Active     bool       `json:"active"`
	ValidUntil *time.Time `json:"valid_until"`
}

// DaysRemaining returns whole days until expiry, negative once expired.
func (s LicenseSnapshot) DaysRemaining(now time.Time) int {
	if s.ValidUntil == nil {
		return 0
	}
	return int(s.ValidUntil.Sub(now).Hours() / 24)
}

// LoginResponse is the POST /login payload.
type LoginResponse struct {
	Token string   `json:"token"`
	User  Identity `json:"user"`
}

// ProfileResponse is the GET /profile payload. License is null when no
// license was ever provisioned for the tenant.
type ProfileResponse struct {
	User    Identity         `json:"user"`
	License *LicenseSnapshot `json:"license"`
}

// DensityResponse is the GET /lightning-density payload.
type DensityResponse struct {
	FlashDensity float64 `json:"Ng"`
	Message      string  `json:"message"`
}

// TenantLicenses carries the licenses embedded in an admin user listing.
type TenantLicenses struct {
	Licenses []LicenseSnapshot `json:"licenses"`
}

// AdminUser is one row of the GET /admin/users listing.
type AdminUser struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Email  string          `json:"email"`
	Admin  bool            `json:"is_admin"`
	Tenant *TenantLicenses `json:"tenant"`
}

// License returns the user's current license, or nil when none exists.
func (u AdminUser) License() *LicenseSnapshot {
	if u.Tenant == nil || len(u.Tenant.Licenses) == 0 {
		return nil
	}
	return &u.Tenant.Licenses[0]
}

// Login exchanges identifier+secret for a credential. The credential is
// returned, not stored; the session store owns persistence.
func (c *Client) Login(ctx context.Context, identifier, secret string) (LoginResponse, error) {
	body := map[string]string{"email": identifier, "password": secret}
	var response LoginResponse
	if err := c.do(ctx, http.MethodPost, "/login", body, &response); err != nil {
		return LoginResponse{}, err
	}
	if response.Token == "" {
		return LoginResponse{}, fmt.Errorf("login response carried no token")
	}
	return response, nil
}

// Profile fetches the identity and license snapshot for the current credential.
func (c *Client) Profile(ctx context.Context) (ProfileResponse, error) {
	var response ProfileResponse
	if err := c.do(ctx, http.MethodGet, "/profile", nil, &response); err != nil {
		return ProfileResponse{}, err
	}
	return response, nil
}

// CheckLicense performs the dedicated, side-effect-free entitlement probe.
// nil means granted; ErrEntitlementDenied means denied.
func (c *Client) CheckLicense(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/check-license", nil, nil)
}

// SubmitCalculation posts a complete calculation payload and returns the
// backend's full R1-R4 analysis.
func (c *Client) SubmitCalculation(ctx context.Context, params report.CalculationParameters) (report.RiskAnalysisResult, error) {
	var result report.RiskAnalysisResult
	if err := c.do(ctx, http.MethodPost, "/calculations", params, &result); err != nil {
		return report.RiskAnalysisResult{}, err
	}
	if err := result.Validate(); err != nil {
		return report.RiskAnalysisResult{}, fmt.Errorf("backend returned malformed analysis: %w", err)
	}
	return result, nil
}

// History fetches past calculations. Corrupt records are dropped, not fatal.
func (c *Client) History(ctx context.Context) ([]report.HistoryRecord, error) {
	var raw []report.RawHistoryRecord
	if err := c.do(ctx, http.MethodGet, "/history", nil, &raw); err != nil {
		return nil, err
	}
	return report.ParseHistory(raw), nil
}

// LightningDensity resolves the ground flash density for a location.
func (c *Client) LightningDensity(ctx context.Context, location string) (DensityResponse, error) {
	path := "/lightning-density?location=" + url.QueryEscape(location)
	var response DensityResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return DensityResponse{}, err
	}
	return response, nil
}

// ListUsers fetches all users with their embedded license state. Requires an
// administrator credential.
func (c *Client) ListUsers(ctx context.Context) ([]AdminUser, error) {
	var users []AdminUser
	if err := c.do(ctx, http.MethodGet, "/admin/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ExtendLicense extends a user's license by the given number of days.
func (c *Client) ExtendLicense(ctx context.Context, userID int64, days int) error {
	body := map[string]int{"daysToAdd": days}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/licenses/%d", userID), body, nil)
}

// RevokeLicense revokes a user's license outright.
func (c *Client) RevokeLicense(ctx context.Context, userID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/admin/licenses/%d", userID), nil, nil)
}
