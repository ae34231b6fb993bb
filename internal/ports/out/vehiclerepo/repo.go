package vehiclerepo

import (
	"context"
	"time"

	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
)

// Vehicle is the persistence shape used by the vehicle repository.
// It is not an HTTP DTO.
type Vehicle struct {
	ID domain.VehicleID

	PlateOrSerial string
	Name          string
	Type          domain.VehicleType
	Status        domain.VehicleStatus

	RequiredLicenseClass *domain.LicenseClass

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to the fleet registry. Status changes are an
// administrative operation outside the mission core; the core only reads.
//
// Result ordering expectations:
// - List should return vehicles ordered by Name ascending, then ID, to keep
//   behavior deterministic across adapters.
type Repository interface {
	Create(ctx context.Context, v Vehicle) error

	GetByID(ctx context.Context, id domain.VehicleID) (Vehicle, error)

	// List returns registry vehicles. Decommissioned vehicles are excluded
	// unless includeDecommissioned is set.
	List(ctx context.Context, includeDecommissioned bool) ([]Vehicle, error)
}
