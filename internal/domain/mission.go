package domain

import "time"

type MissionStatus string

const (
	MissionStatusInMission         MissionStatus = "IN_MISSION"
	MissionStatusCompleted         MissionStatus = "COMPLETED"
	MissionStatusCompletedNoReturn MissionStatus = "COMPLETED_NO_RETURN"
)

// IsTerminal reports whether the status accepts no further transition.
func (s MissionStatus) IsTerminal() bool {
	return s == MissionStatusCompleted || s == MissionStatusCompletedNoReturn
}

type FuelLevel string

const (
	FuelLevelEmpty         FuelLevel = "EMPTY"
	FuelLevelQuarter       FuelLevel = "QUARTER"
	FuelLevelHalf          FuelLevel = "HALF"
	FuelLevelThreeQuarters FuelLevel = "THREE_QUARTERS"
	FuelLevelFull          FuelLevel = "FULL"
)

type DriverRole string

const (
	DriverRoleDeparture DriverRole = "DEPARTURE"
	DriverRoleReturn    DriverRole = "RETURN"
)

// DriverAssignment ties a member to a mission for one phase. The departure
// and return sets are independent; drivers may swap mid-mission.
type DriverAssignment struct {
	MemberID MemberID
	Role     DriverRole
}

// MissionDeparture is the departure block of a mission, recorded once when
// the mission is created.
type MissionDeparture struct {
	At       time.Time
	Odometer *int
	Fuel     *FuelLevel

	ServiceType  *string
	Destination  *string
	AuthorizedBy *string
	Notes        *string

	AnomalyFlag  bool
	AnomalyNotes *string
}

// MissionReturn is the return block, nil until the mission completes with a
// logged return. COMPLETED_NO_RETURN missions never get one.
type MissionReturn struct {
	At       time.Time
	Odometer *int
	Fuel     *FuelLevel
	Notes    *string

	AnomalyFlag  bool
	AnomalyNotes *string

	TrafficViolationFlag  bool
	TrafficViolationNotes *string
}

// Mission is one dispatch-and-return cycle. Missions are created by a
// departure, mutated exactly once more by a return or a force-complete, and
// never deleted (audit trail).
type Mission struct {
	ID        MissionID
	VehicleID VehicleID
	TrailerID *VehicleID

	Status    MissionStatus
	Departure MissionDeparture
	Return    *MissionReturn

	Drivers []DriverAssignment

	// Derived metrics, computed once at the return transition and persisted.
	TripDurationMinutes *int
	TripDistance        *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DepartureDrivers returns the member IDs assigned for the departure phase.
func (m Mission) DepartureDrivers() []MemberID { return m.driversWithRole(DriverRoleDeparture) }

// ReturnDrivers returns the member IDs assigned for the return phase.
func (m Mission) ReturnDrivers() []MemberID { return m.driversWithRole(DriverRoleReturn) }

func (m Mission) driversWithRole(role DriverRole) []MemberID {
	out := make([]MemberID, 0, len(m.Drivers))
	for _, d := range m.Drivers {
		if d.Role == role {
			out = append(out, d.MemberID)
		}
	}
	return out
}

// TripMetrics computes the derived duration and distance for a return logged
// at the given time with the given odometer reading. Duration is the integer
// floor of the delta in minutes. Distance is only available when both
// odometer readings are present.
func TripMetrics(dep MissionDeparture, returnedAt time.Time, returnOdometer *int) (durationMinutes int, distance *int) {
	durationMinutes = int(returnedAt.Sub(dep.At).Minutes())
	if dep.Odometer != nil && returnOdometer != nil {
		d := *returnOdometer - *dep.Odometer
		distance = &d
	}
	return durationMinutes, distance
}
