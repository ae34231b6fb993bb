package missions

import (
	"time"

	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
)

// CreateDepartureInput is the validated boundary payload for the departure
// transition. Checklist values arrive as raw operator-entered strings keyed
// by item ID; the checklist engine coerces them by declared item type.
type CreateDepartureInput struct {
	VehicleID domain.VehicleID
	TrailerID *domain.VehicleID

	DepartureAt time.Time
	DriverIDs   []domain.MemberID

	Odometer *int
	Fuel     *domain.FuelLevel

	ServiceType  *string
	Destination  *string
	AuthorizedBy *string
	Notes        *string

	AnomalyFlag  bool
	AnomalyNotes *string

	Checklist map[domain.ChecklistItemID]string
}

// MissionCreated is the minimal response returned when a departure commits.
type MissionCreated struct {
	ID     domain.MissionID
	Status domain.MissionStatus
}

// CreateReturnInput is the validated boundary payload for the return
// transition. DriverIDs may be empty: operators may decline to re-identify
// drivers at return time.
type CreateReturnInput struct {
	ReturnAt  time.Time
	DriverIDs []domain.MemberID

	Odometer *int
	Fuel     *domain.FuelLevel
	Notes    *string

	AnomalyFlag  bool
	AnomalyNotes *string

	TrafficViolationFlag  bool
	TrafficViolationNotes *string

	Checklist map[domain.ChecklistItemID]string
}

// EligibleDriver is one driver-search hit, enriched with the licenses the
// member currently holds so the UI can pre-filter candidates.
type EligibleDriver struct {
	MemberID           domain.MemberID
	Name               string
	RegistrationNumber string
	HeldLicenses       []domain.License
}
