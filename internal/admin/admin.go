// Package admin wraps the administrative license operations: listing users
// with their license state, extending a license by a number of days, and
// revoking one outright.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RWilker87/lightning-client/internal/gateway"
)

// DefaultExtensionDays is applied when no day count is given.
const DefaultExtensionDays = 30

// LicenseState classifies a user's license for display.
type LicenseState string

const (
	// LicenseStateNone means no license was ever provisioned.
	LicenseStateNone LicenseState = "none"
	// LicenseStateActive means the license is active and unexpired.
	LicenseStateActive LicenseState = "active"
	// LicenseStateExpired means a license exists but is inactive or past
	// its validity date.
	LicenseStateExpired LicenseState = "expired"
)

// Backend is the slice of the gateway the admin service depends on.
type Backend interface {
	ListUsers(ctx context.Context) ([]gateway.AdminUser, error)
	ExtendLicense(ctx context.Context, userID int64, days int) error
	RevokeLicense(ctx context.Context, userID int64) error
}

// User is one managed user with its derived license state.
type User struct {
	gateway.AdminUser
	State         LicenseState
	DaysRemaining int
	ValidUntil    *time.Time
}

// Service performs license administration through the gateway.
type Service struct {
	backend Backend
	now     func() time.Time
}

// NewService creates the admin service.
func NewService(backend Backend) *Service {
	return &Service{backend: backend, now: time.Now}
}

// ListUsers fetches all users and derives each license state.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	listed, err := s.backend.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	now := s.now()
	users := make([]User, 0, len(listed))
	for _, entry := range listed {
		users = append(users, User{
			AdminUser:     entry,
			State:         classify(entry.License(), now),
			DaysRemaining: remaining(entry.License(), now),
			ValidUntil:    validUntil(entry.License()),
		})
	}
	return users, nil
}

// ExtendLicense extends a user's license. A non-positive day count falls
// back to DefaultExtensionDays.
func (s *Service) ExtendLicense(ctx context.Context, userID int64, days int) error {
	if days <= 0 {
		days = DefaultExtensionDays
	}
	if err := s.backend.ExtendLicense(ctx, userID, days); err != nil {
		return fmt.Errorf("extend license for user %d: %w", userID, err)
	}
	log.Info().Int64("user_id", userID).Int("days", days).Msg("License extended")
	return nil
}

// RevokeLicense revokes a user's license outright.
func (s *Service) RevokeLicense(ctx context.Context, userID int64) error {
	if err := s.backend.RevokeLicense(ctx, userID); err != nil {
		return fmt.Errorf("revoke license for user %d: %w", userID, err)
	}
	log.Info().Int64("user_id", userID).Msg("License revoked")
	return nil
}

func classify(license *gateway.LicenseSnapshot, now time.Time) LicenseState {
	if license == nil {
		return LicenseStateNone
	}
	if !license.Active {
		return LicenseStateExpired
	}
	if license.ValidUntil != nil && !license.ValidUntil.After(now) {
		return LicenseStateExpired
	}
	return LicenseStateActive
}

func remaining(license *gateway.LicenseSnapshot, now time.Time) int {
	if license == nil || license.ValidUntil == nil {
		return 0
	}
	days := license.DaysRemaining(now)
	if days < 0 {
		return 0
	}
	return days
}

func validUntil(license *gateway.LicenseSnapshot) *time.Time {
	if license == nil {
		return nil
	}
	return license.ValidUntil
}
