package missions

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/crocebianca-ops/fleet-missions-api/internal/app/checklists"
	"github.com/crocebianca-ops/fleet-missions-api/internal/app/drivers"
	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/clock"
	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/events"
	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/memberrepo"
	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/missionrepo"
	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/vehiclerepo"
)

// Service is the mission lifecycle controller. It orchestrates the departure
// and return transitions and the force-complete escape hatch, delegating
// driver validation and checklist validation to its collaborators.
//
// All validation failures are recoverable, caller-visible *Error values; the
// repositories re-check the exclusivity and active-status preconditions at
// commit time, so a stale read here can only produce a clean rejection,
// never a double dispatch.
type Service struct {
	missions missionrepo.Repository
	vehicles vehiclerepo.Repository
	members  memberrepo.Repository

	checker   *drivers.Checker
	checklist *checklists.Engine

	publisher events.Publisher
	clk       clock.Clock

	// SearchLimit caps driver-search results.
	SearchLimit int

	newMissionID func() domain.MissionID
}

func NewService(
	missionsRepo missionrepo.Repository,
	vehiclesRepo vehiclerepo.Repository,
	membersRepo memberrepo.Repository,
	checker *drivers.Checker,
	checklistEngine *checklists.Engine,
	publisher events.Publisher,
	clk clock.Clock,
) *Service {
	return &Service{
		missions:    missionsRepo,
		vehicles:    vehiclesRepo,
		members:     membersRepo,
		checker:     checker,
		checklist:   checklistEngine,
		publisher:   publisher,
		clk:         clk,
		SearchLimit: 20,
		newMissionID: func() domain.MissionID {
			return domain.MissionID(uuid.NewString())
		},
	}
}

// SetNewMissionIDForTest overrides mission ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewMissionIDForTest(fn func() domain.MissionID) {
	if fn != nil {
		s.newMissionID = fn
	}
}

// CreateDeparture runs the departure transition: vehicle and trailer
// availability, driver eligibility, departure checklist, then one atomic
// persist of mission + driver assignments + responses.
func (s *Service) CreateDeparture(ctx context.Context, actor domain.SubjectID, in CreateDepartureInput) (MissionCreated, error) {
	if len(in.DriverIDs) == 0 {
		return MissionCreated{}, &Error{Status: 422, Code: "NO_DRIVERS_SELECTED", Message: "at least one departure driver is required"}
	}

	vehicle, appErr, err := s.loadDepartableVehicle(ctx, in.VehicleID)
	if err != nil {
		return MissionCreated{}, err
	}
	if appErr != nil {
		return MissionCreated{}, appErr
	}

	var trailer *domain.Vehicle
	if in.TrailerID != nil {
		t, appErr, err := s.loadDepartableTrailer(ctx, *in.TrailerID)
		if err != nil {
			return MissionCreated{}, err
		}
		if appErr != nil {
			return MissionCreated{}, appErr
		}
		trailer = &t
	}

	// Fast feedback before running the heavier validations. The repository
	// re-checks this inside the commit, which is what actually closes the
	// concurrent double-dispatch race.
	if _, err := s.missions.GetActiveByVehicle(ctx, in.VehicleID); err == nil {
		return MissionCreated{}, errVehicleAlreadyInMission(in.VehicleID)
	} else if !errors.Is(err, missionrepo.ErrNotFound) {
		return MissionCreated{}, err
	}

	if appErr, err := s.validateDrivers(ctx, in.DriverIDs, vehicle, trailer); err != nil {
		return MissionCreated{}, err
	} else if appErr != nil {
		return MissionCreated{}, appErr
	}

	responses, appErr, err := s.validateChecklist(ctx, in.VehicleID, in.TrailerID, domain.ChecklistPhaseDeparture, in.Checklist)
	if err != nil {
		return MissionCreated{}, err
	}
	if appErr != nil {
		return MissionCreated{}, appErr
	}

	now := s.clk.Now()
	id := s.newMissionID()

	assignments := make([]domain.DriverAssignment, 0, len(in.DriverIDs))
	for _, d := range in.DriverIDs {
		assignments = append(assignments, domain.DriverAssignment{MemberID: d, Role: domain.DriverRoleDeparture})
	}

	m := missionrepo.Mission{
		ID:        id,
		VehicleID: in.VehicleID,
		TrailerID: cloneVehicleIDPtr(in.TrailerID),
		Status:    domain.MissionStatusInMission,
		Departure: domain.MissionDeparture{
			At:           in.DepartureAt.UTC(),
			Odometer:     cloneIntPtr(in.Odometer),
			Fuel:         cloneFuelPtr(in.Fuel),
			ServiceType:  normalizePtr(in.ServiceType),
			Destination:  normalizePtr(in.Destination),
			AuthorizedBy: normalizePtr(in.AuthorizedBy),
			Notes:        normalizePtr(in.Notes),
			AnomalyFlag:  in.AnomalyFlag,
			AnomalyNotes: normalizePtr(in.AnomalyNotes),
		},
		Drivers:   assignments,
		Responses: responses,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.missions.CreateDeparture(ctx, m); err != nil {
		switch {
		case errors.Is(err, missionrepo.ErrVehicleActive):
			return MissionCreated{}, errVehicleAlreadyInMission(in.VehicleID)
		case errors.Is(err, missionrepo.ErrTrailerActive):
			return MissionCreated{}, &Error{Status: 409, Code: "TRAILER_ALREADY_IN_MISSION", Message: "trailer is already attached to an active mission"}
		case errors.Is(err, missionrepo.ErrAlreadyExists):
			// Extremely unlikely (UUID collision); treat as conflict.
			return MissionCreated{}, &Error{Status: 409, Code: "MISSION_ID_CONFLICT", Message: "mission id conflict"}
		}
		return MissionCreated{}, err
	}

	s.publish(ctx, events.Event{
		Type:       events.TypeMissionCreated,
		MissionID:  id,
		VehicleID:  in.VehicleID,
		RecordedBy: actor,
		OccurredAt: now,
	})
	if in.AnomalyFlag {
		phase := domain.ChecklistPhaseDeparture
		s.publish(ctx, events.Event{
			Type:       events.TypeAnomalyReported,
			MissionID:  id,
			VehicleID:  in.VehicleID,
			Phase:      &phase,
			Notes:      derefString(normalizePtr(in.AnomalyNotes)),
			RecordedBy: actor,
			OccurredAt: now,
		})
	}

	return MissionCreated{ID: id, Status: domain.MissionStatusInMission}, nil
}

// CreateReturn runs the return transition on an active mission and computes
// the derived trip metrics exactly once.
func (s *Service) CreateReturn(ctx context.Context, actor domain.SubjectID, missionID domain.MissionID, in CreateReturnInput) error {
	m, err := s.missions.GetByID(ctx, missionID)
	if err != nil {
		if errors.Is(err, missionrepo.ErrNotFound) {
			return errMissionNotFound()
		}
		return err
	}
	if m.Status != domain.MissionStatusInMission {
		return errMissionNotActive(m.Status)
	}

	if in.ReturnAt.Before(m.Departure.At) {
		return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid return datetime", Details: map[string]any{"returnDatetime": "must not precede the departure datetime"}}
	}
	if in.Odometer != nil && m.Departure.Odometer != nil && *in.Odometer < *m.Departure.Odometer {
		return &Error{
			Status:  422,
			Code:    "ODOMETER_REGRESSION",
			Message: "return odometer is lower than the departure reading",
			Details: map[string]any{"departureOdometer": *m.Departure.Odometer, "returnOdometer": *in.Odometer},
		}
	}

	// The drivers set may legitimately differ from departure; validate it
	// against the same vehicle/trailer scope only when submitted.
	if len(in.DriverIDs) > 0 {
		vehicle, appErr, err := s.loadVehicle(ctx, m.VehicleID, false)
		if err != nil {
			return err
		}
		if appErr != nil {
			return appErr
		}
		var trailer *domain.Vehicle
		if m.TrailerID != nil {
			t, appErr, err := s.loadVehicle(ctx, *m.TrailerID, true)
			if err != nil {
				return err
			}
			if appErr != nil {
				return appErr
			}
			trailer = &t
		}
		if appErr, err := s.validateDrivers(ctx, in.DriverIDs, vehicle, trailer); err != nil {
			return err
		} else if appErr != nil {
			return appErr
		}
	}

	responses, appErr, err := s.validateChecklist(ctx, m.VehicleID, m.TrailerID, domain.ChecklistPhaseReturn, in.Checklist)
	if err != nil {
		return err
	}
	if appErr != nil {
		return appErr
	}

	returnAt := in.ReturnAt.UTC()
	duration, distance := domain.TripMetrics(m.Departure, returnAt, in.Odometer)

	now := s.clk.Now()
	upd := missionrepo.ReturnUpdate{
		Return: domain.MissionReturn{
			At:                    returnAt,
			Odometer:              cloneIntPtr(in.Odometer),
			Fuel:                  cloneFuelPtr(in.Fuel),
			Notes:                 normalizePtr(in.Notes),
			AnomalyFlag:           in.AnomalyFlag,
			AnomalyNotes:          normalizePtr(in.AnomalyNotes),
			TrafficViolationFlag:  in.TrafficViolationFlag,
			TrafficViolationNotes: normalizePtr(in.TrafficViolationNotes),
		},
		Drivers:             append([]domain.MemberID(nil), in.DriverIDs...),
		Responses:           responses,
		TripDurationMinutes: duration,
		TripDistance:        distance,
		UpdatedAt:           now,
	}
	if err := s.missions.CompleteReturn(ctx, missionID, upd); err != nil {
		switch {
		case errors.Is(err, missionrepo.ErrNotFound):
			return errMissionNotFound()
		case errors.Is(err, missionrepo.ErrNotActive):
			return errMissionNotActive(m.Status)
		}
		return err
	}

	s.publish(ctx, events.Event{
		Type:       events.TypeMissionCompleted,
		MissionID:  missionID,
		VehicleID:  m.VehicleID,
		RecordedBy: actor,
		OccurredAt: now,
	})
	phase := domain.ChecklistPhaseReturn
	if in.AnomalyFlag {
		s.publish(ctx, events.Event{
			Type:       events.TypeAnomalyReported,
			MissionID:  missionID,
			VehicleID:  m.VehicleID,
			Phase:      &phase,
			Notes:      derefString(normalizePtr(in.AnomalyNotes)),
			RecordedBy: actor,
			OccurredAt: now,
		})
	}
	if in.TrafficViolationFlag {
		s.publish(ctx, events.Event{
			Type:       events.TypeTrafficViolationReported,
			MissionID:  missionID,
			VehicleID:  m.VehicleID,
			Phase:      &phase,
			Notes:      derefString(normalizePtr(in.TrafficViolationNotes)),
			RecordedBy: actor,
			OccurredAt: now,
		})
	}
	return nil
}

// ForceCompleteWithoutReturn closes an active mission without return data.
// No checklist, no drivers, no metrics: the vehicle simply becomes
// dispatchable again and the mission is marked COMPLETED_NO_RETURN.
func (s *Service) ForceCompleteWithoutReturn(ctx context.Context, actor domain.SubjectID, missionID domain.MissionID) error {
	_ = actor
	m, err := s.missions.GetByID(ctx, missionID)
	if err != nil {
		if errors.Is(err, missionrepo.ErrNotFound) {
			return errMissionNotFound()
		}
		return err
	}
	if m.Status != domain.MissionStatusInMission {
		return errMissionNotActive(m.Status)
	}

	if err := s.missions.ForceComplete(ctx, missionID, s.clk.Now()); err != nil {
		switch {
		case errors.Is(err, missionrepo.ErrNotFound):
			return errMissionNotFound()
		case errors.Is(err, missionrepo.ErrNotActive):
			return errMissionNotActive(m.Status)
		}
		return err
	}
	return nil
}

// GetActiveMission returns the vehicle's IN_MISSION mission, or nil when the
// vehicle is free. Used by the UI to gate action availability.
func (s *Service) GetActiveMission(ctx context.Context, vehicleID domain.VehicleID) (*domain.Mission, error) {
	if _, err := s.vehicles.GetByID(ctx, vehicleID); err != nil {
		if errors.Is(err, vehiclerepo.ErrNotFound) {
			return nil, errVehicleNotFound()
		}
		return nil, err
	}
	m, err := s.missions.GetActiveByVehicle(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, missionrepo.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	dm := toDomainMission(m)
	return &dm, nil
}

// GetMission returns one mission by ID (audit read surface).
func (s *Service) GetMission(ctx context.Context, missionID domain.MissionID) (domain.Mission, error) {
	m, err := s.missions.GetByID(ctx, missionID)
	if err != nil {
		if errors.Is(err, missionrepo.ErrNotFound) {
			return domain.Mission{}, errMissionNotFound()
		}
		return domain.Mission{}, err
	}
	return toDomainMission(m), nil
}

// ListVehicleMissions returns the vehicle's mission history, newest first.
// Missions are never deleted, so this is the audit trail.
func (s *Service) ListVehicleMissions(ctx context.Context, vehicleID domain.VehicleID) ([]domain.Mission, error) {
	if _, err := s.vehicles.GetByID(ctx, vehicleID); err != nil {
		if errors.Is(err, vehiclerepo.ErrNotFound) {
			return nil, errVehicleNotFound()
		}
		return nil, err
	}
	ms, err := s.missions.ListByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Mission, 0, len(ms))
	for _, m := range ms {
		out = append(out, toDomainMission(m))
	}
	return out, nil
}

// GetApplicableChecklist returns the checklist an operator must fill for the
// given scope and phase, vehicle items first, trailer items appended.
func (s *Service) GetApplicableChecklist(ctx context.Context, vehicleID domain.VehicleID, trailerID *domain.VehicleID, phase domain.ChecklistPhase) ([]domain.ChecklistItem, error) {
	if _, err := s.vehicles.GetByID(ctx, vehicleID); err != nil {
		if errors.Is(err, vehiclerepo.ErrNotFound) {
			return nil, errVehicleNotFound()
		}
		return nil, err
	}
	if trailerID != nil {
		if _, err := s.vehicles.GetByID(ctx, *trailerID); err != nil {
			if errors.Is(err, vehiclerepo.ErrNotFound) {
				return nil, errTrailerNotFound()
			}
			return nil, err
		}
	}
	return s.checklist.LoadApplicable(ctx, vehicleID, trailerID, phase)
}

// SearchEligibleDrivers searches active members by name or registration
// number and reports the licenses each currently holds.
func (s *Service) SearchEligibleDrivers(ctx context.Context, query string) ([]EligibleDriver, error) {
	q := strings.TrimSpace(query)
	if len([]rune(q)) < 3 {
		return nil, &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid search query",
			Details: map[string]any{"q": "must be at least 3 characters"},
		}
	}
	ms, err := s.members.SearchActiveByName(ctx, q, s.SearchLimit)
	if err != nil {
		return nil, err
	}
	day := s.clk.Now()
	out := make([]EligibleDriver, 0, len(ms))
	for _, m := range ms {
		var held []domain.License
		for _, l := range m.Licenses {
			if l.IsValidOn(day) {
				held = append(held, l)
			}
		}
		sort.Slice(held, func(i, j int) bool { return held[i].Class < held[j].Class })
		out = append(out, EligibleDriver{
			MemberID:           m.ID,
			Name:               m.DisplayName,
			RegistrationNumber: m.RegistrationNumber,
			HeldLicenses:       held,
		})
	}
	return out, nil
}

// --- internals ---

func (s *Service) loadVehicle(ctx context.Context, id domain.VehicleID, wantTrailer bool) (domain.Vehicle, *Error, error) {
	rec, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, vehiclerepo.ErrNotFound) {
			if wantTrailer {
				return domain.Vehicle{}, errTrailerNotFound(), nil
			}
			return domain.Vehicle{}, errVehicleNotFound(), nil
		}
		return domain.Vehicle{}, nil, err
	}
	v := toDomainVehicle(rec)
	if wantTrailer != v.IsTrailer() {
		field, expect := "vehicleId", "a vehicle"
		if wantTrailer {
			field, expect = "trailerId", "a trailer"
		}
		return domain.Vehicle{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "wrong vehicle type", Details: map[string]any{field: "must reference " + expect}}, nil
	}
	return v, nil, nil
}

func (s *Service) loadDepartableVehicle(ctx context.Context, id domain.VehicleID) (domain.Vehicle, *Error, error) {
	v, appErr, err := s.loadVehicle(ctx, id, false)
	if err != nil || appErr != nil {
		return domain.Vehicle{}, appErr, err
	}
	if !v.IsDepartable() {
		return domain.Vehicle{}, &Error{
			Status:  409,
			Code:    "VEHICLE_NOT_DEPARTABLE",
			Message: "vehicle status does not allow dispatch",
			Details: map[string]any{"status": string(v.Status)},
		}, nil
	}
	return v, nil, nil
}

func (s *Service) loadDepartableTrailer(ctx context.Context, id domain.VehicleID) (domain.Vehicle, *Error, error) {
	t, appErr, err := s.loadVehicle(ctx, id, true)
	if err != nil || appErr != nil {
		return domain.Vehicle{}, appErr, err
	}
	if !t.IsDepartable() {
		return domain.Vehicle{}, &Error{
			Status:  409,
			Code:    "TRAILER_NOT_DEPARTABLE",
			Message: "trailer status does not allow dispatch",
			Details: map[string]any{"status": string(t.Status)},
		}, nil
	}
	return t, nil, nil
}

func (s *Service) validateDrivers(ctx context.Context, ids []domain.MemberID, vehicle domain.Vehicle, trailer *domain.Vehicle) (*Error, error) {
	res, err := s.checker.ValidateDrivers(ctx, ids, vehicle, trailer, s.clk.Now())
	if err != nil {
		return nil, err
	}
	if len(res.Unknown) > 0 {
		return &Error{
			Status:  422,
			Code:    "DRIVER_NOT_FOUND",
			Message: "one or more drivers do not exist",
			Details: map[string]any{"memberIds": memberIDStrings(res.Unknown)},
		}, nil
	}
	if !res.OK() {
		missing := make(map[string][]string, len(res.Missing))
		for id, classes := range res.Missing {
			cs := make([]string, 0, len(classes))
			for _, c := range classes {
				cs = append(cs, string(c))
			}
			missing[string(id)] = cs
		}
		details := map[string]any{"missingLicenses": missing}
		if len(res.Inactive) > 0 {
			details["inactiveMembers"] = memberIDStrings(res.Inactive)
		}
		return &Error{
			Status:  422,
			Code:    "DRIVER_LICENSE_MISMATCH",
			Message: "one or more drivers are not eligible for this vehicle",
			Details: details,
		}, nil
	}
	return nil, nil
}

func (s *Service) validateChecklist(ctx context.Context, vehicleID domain.VehicleID, trailerID *domain.VehicleID, phase domain.ChecklistPhase, submitted map[domain.ChecklistItemID]string) ([]domain.ChecklistResponse, *Error, error) {
	items, err := s.checklist.LoadApplicable(ctx, vehicleID, trailerID, phase)
	if err != nil {
		return nil, nil, err
	}
	res := s.checklist.ValidateResponses(items, submitted)
	if !res.OK() {
		itemErrs := make([]map[string]any, 0, len(res.Errors))
		for _, ie := range res.Errors {
			itemErrs = append(itemErrs, map[string]any{
				"itemId": string(ie.ItemID),
				"name":   ie.Name,
				"reason": ie.Reason,
			})
		}
		return nil, &Error{
			Status:  422,
			Code:    "CHECKLIST_INCOMPLETE",
			Message: "one or more checklist items are missing or malformed",
			Details: map[string]any{"items": itemErrs},
		}, nil
	}
	return res.Responses, nil, nil
}

// publish is best-effort: the Publisher contract forbids blocking or failing
// the transition, so there is nothing to handle here.
func (s *Service) publish(ctx context.Context, ev events.Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, ev)
}

func errVehicleNotFound() *Error {
	return &Error{Status: 404, Code: "VEHICLE_NOT_FOUND", Message: "vehicle not found"}
}

func errTrailerNotFound() *Error {
	return &Error{Status: 404, Code: "TRAILER_NOT_FOUND", Message: "trailer not found"}
}

func errVehicleAlreadyInMission(id domain.VehicleID) *Error {
	return &Error{
		Status:  409,
		Code:    "VEHICLE_ALREADY_IN_MISSION",
		Message: "vehicle already has an active mission",
		Details: map[string]any{"vehicleId": string(id)},
	}
}

func errMissionNotFound() *Error {
	return &Error{Status: 404, Code: "MISSION_NOT_FOUND", Message: "mission not found"}
}

func errMissionNotActive(status domain.MissionStatus) *Error {
	return &Error{
		Status:  409,
		Code:    "MISSION_NOT_ACTIVE",
		Message: "mission already reached a terminal status",
		Details: map[string]any{"status": string(status)},
	}
}

func toDomainVehicle(v vehiclerepo.Vehicle) domain.Vehicle {
	return domain.Vehicle{
		ID:                   v.ID,
		PlateOrSerial:        v.PlateOrSerial,
		Name:                 v.Name,
		Type:                 v.Type,
		Status:               v.Status,
		RequiredLicenseClass: cloneLicensePtr(v.RequiredLicenseClass),
	}
}

func toDomainMission(m missionrepo.Mission) domain.Mission {
	out := domain.Mission{
		ID:        m.ID,
		VehicleID: m.VehicleID,
		TrailerID: cloneVehicleIDPtr(m.TrailerID),
		Status:    m.Status,
		Departure: m.Departure,
		Drivers:   append([]domain.DriverAssignment(nil), m.Drivers...),

		TripDurationMinutes: cloneIntPtr(m.TripDurationMinutes),
		TripDistance:        cloneIntPtr(m.TripDistance),

		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.Return != nil {
		r := *m.Return
		out.Return = &r
	}
	return out
}

func memberIDStrings(ids []domain.MemberID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	sort.Strings(out)
	return out
}

func normalizePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := domain.NormalizeFreeText(*p)
	if v == "" {
		return nil
	}
	return &v
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneVehicleIDPtr(p *domain.VehicleID) *domain.VehicleID {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFuelPtr(p *domain.FuelLevel) *domain.FuelLevel {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneLicensePtr(p *domain.LicenseClass) *domain.LicenseClass {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
