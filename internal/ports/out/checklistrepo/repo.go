package checklistrepo

import (
	"context"

	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
)

// Repository provides access to checklist reference data.
//
// Result ordering expectations:
// - ListForScope returns items for one (vehicle-or-trailer, phase) scope
//   ordered by SortOrder ascending, then ID, so display and validation are
//   deterministic.
type Repository interface {
	Put(ctx context.Context, item domain.ChecklistItem) error

	ListForScope(ctx context.Context, scope domain.VehicleID, phase domain.ChecklistPhase) ([]domain.ChecklistItem, error)
}
