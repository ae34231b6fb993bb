package memberrepo

import (
	"context"
	"time"

	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
)

// Member is the persistence shape used by the member repository, restricted
// to what driver validation and driver search need. Full member management
// lives in the surrounding application.
type Member struct {
	ID domain.MemberID

	DisplayName        string
	RegistrationNumber string

	IsActive bool

	Licenses []domain.License

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted members and their licenses.
//
// Result ordering expectations:
// - Search methods should return results ordered by DisplayName ascending
//   (case-insensitive), then ID, to keep behavior deterministic.
type Repository interface {
	Create(ctx context.Context, m Member) error

	// GetByID returns the member with all recorded licenses, expired ones
	// included; validity filtering is the application layer's concern.
	GetByID(ctx context.Context, id domain.MemberID) (Member, error)

	// SearchActiveByName searches active members by a tokenized,
	// case-insensitive match on DisplayName or RegistrationNumber.
	// Query validation (e.g. minimum length) is enforced at the application
	// layer.
	SearchActiveByName(ctx context.Context, query string, limit int) ([]Member, error)
}
