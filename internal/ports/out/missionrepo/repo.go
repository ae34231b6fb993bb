package missionrepo

import (
	"context"
	"time"

	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
)

// Mission is the persistence shape used by the mission repository.
// It is not an HTTP DTO.
type Mission struct {
	ID        domain.MissionID
	VehicleID domain.VehicleID
	TrailerID *domain.VehicleID

	Status    domain.MissionStatus
	Departure domain.MissionDeparture
	Return    *domain.MissionReturn

	Drivers []domain.DriverAssignment

	// Responses holds the checklist responses recorded for the mission, in
	// insertion order (departure rows first, return rows appended).
	Responses []domain.ChecklistResponse

	TripDurationMinutes *int
	TripDistance        *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReturnUpdate carries everything the return transition persists in one
// atomic commit.
type ReturnUpdate struct {
	Return  domain.MissionReturn
	Drivers []domain.MemberID

	Responses []domain.ChecklistResponse

	TripDurationMinutes int
	TripDistance        *int

	UpdatedAt time.Time
}

// Repository provides access to persisted missions.
//
// Exclusivity contract: CreateDeparture must re-check, inside the same
// atomic unit that inserts the mission, that neither the vehicle nor the
// attached trailer already has a mission with status IN_MISSION, and fail
// with ErrVehicleActive / ErrTrailerActive otherwise. A read-then-write
// check outside the commit is not sufficient (concurrent dispatchers).
//
// Transition contract: CompleteReturn and ForceComplete must re-check the
// IN_MISSION precondition at commit time and fail with ErrNotActive when the
// mission already reached a terminal status.
type Repository interface {
	// CreateDeparture persists the mission row, its departure driver
	// assignments and its checklist responses as one atomic unit.
	CreateDeparture(ctx context.Context, m Mission) error

	// CompleteReturn sets the return block, return driver assignments,
	// responses and derived metrics, and transitions IN_MISSION -> COMPLETED.
	CompleteReturn(ctx context.Context, id domain.MissionID, upd ReturnUpdate) error

	// ForceComplete transitions IN_MISSION -> COMPLETED_NO_RETURN without
	// recording any return data.
	ForceComplete(ctx context.Context, id domain.MissionID, updatedAt time.Time) error

	GetByID(ctx context.Context, id domain.MissionID) (Mission, error)

	// GetActiveByVehicle returns the single IN_MISSION mission for the
	// vehicle, or ErrNotFound when the vehicle is free.
	GetActiveByVehicle(ctx context.Context, vehicleID domain.VehicleID) (Mission, error)

	// ListByVehicle returns the vehicle's mission history, newest departure
	// first, tie-broken by ID descending.
	ListByVehicle(ctx context.Context, vehicleID domain.VehicleID) ([]Mission, error)
}
