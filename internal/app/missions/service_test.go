package missions_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	memchecklist "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/memory/checklistrepo"
	memmember "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/memory/memberrepo"
	memmission "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/memory/missionrepo"
	memvehicle "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/memory/vehiclerepo"
	"github.com/crocebianca-ops/fleet-missions-api/internal/app/checklists"
	"github.com/crocebianca-ops/fleet-missions-api/internal/app/drivers"
	"github.com/crocebianca-ops/fleet-missions-api/internal/app/missions"
	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/events"
	memberrepoport "github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/memberrepo"
	vehiclerepoport "github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/vehiclerepo"
)

const operator = domain.SubjectID("op|station-1")

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type capturePublisher struct {
	mu  sync.Mutex
	got []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, ev)
}

func (p *capturePublisher) events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.got...)
}

type env struct {
	svc       *missions.Service
	vehicles  *memvehicle.Repo
	members   *memmember.Repo
	checklist *memchecklist.Repo
	published *capturePublisher
	now       time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	now := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

	vehicles := memvehicle.NewRepo()
	members := memmember.NewRepo()
	checklist := memchecklist.NewRepo()
	missionsRepo := memmission.NewRepo()
	published := &capturePublisher{}

	svc := missions.NewService(
		missionsRepo,
		vehicles,
		members,
		drivers.NewChecker(members),
		checklists.NewEngine(checklist),
		published,
		fixedClock{t: now},
	)
	return &env{
		svc:       svc,
		vehicles:  vehicles,
		members:   members,
		checklist: checklist,
		published: published,
		now:       now,
	}
}

func (e *env) seedVehicle(t *testing.T, vt domain.VehicleType, status domain.VehicleStatus, class *domain.LicenseClass) domain.VehicleID {
	t.Helper()
	id := domain.VehicleID(uuid.NewString())
	if err := e.vehicles.Create(context.Background(), vehiclerepoport.Vehicle{
		ID:                   id,
		PlateOrSerial:        uuid.NewString()[:10],
		Name:                 "Unit " + uuid.NewString()[:6],
		Type:                 vt,
		Status:               status,
		RequiredLicenseClass: class,
		CreatedAt:            e.now,
		UpdatedAt:            e.now,
	}); err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	return id
}

func (e *env) seedMember(t *testing.T, active bool, licenses ...domain.License) domain.MemberID {
	t.Helper()
	id := domain.MemberID(uuid.NewString())
	if err := e.members.Create(context.Background(), memberrepoport.Member{
		ID:          id,
		DisplayName: "Member " + uuid.NewString()[:6],
		IsActive:    active,
		Licenses:    licenses,
		CreatedAt:   e.now,
		UpdatedAt:   e.now,
	}); err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return id
}

func (e *env) seedItem(t *testing.T, scope domain.VehicleID, phase domain.ChecklistPhase, name string, it domain.ChecklistItemType, required bool, order int) domain.ChecklistItemID {
	t.Helper()
	id := domain.ChecklistItemID(uuid.NewString())
	if err := e.checklist.Put(context.Background(), domain.ChecklistItem{
		ID:         id,
		VehicleID:  scope,
		Phase:      phase,
		Name:       name,
		Type:       it,
		IsRequired: required,
		SortOrder:  order,
	}); err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return id
}

func appError(t *testing.T, err error) *missions.Error {
	t.Helper()
	var ae *missions.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected app error, got %v", err)
	}
	return ae
}

func TestCreateDeparture(t *testing.T) {
	classB := domain.LicenseClass("B")

	t.Run("creates an active mission and publishes an event", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, &classB)
		mID := e.seedMember(t, true, domain.License{Class: classB})
		itemID := e.seedItem(t, vID, domain.ChecklistPhaseDeparture, "Lights", domain.ChecklistItemTypeBoolean, true, 1)

		odo := 1000
		notes := "  routine   patrol  "
		created, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   vID,
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{mID},
			Odometer:    &odo,
			Notes:       &notes,
			Checklist:   map[domain.ChecklistItemID]string{itemID: "true"},
		})
		if err != nil {
			t.Fatalf("CreateDeparture: %v", err)
		}
		if created.Status != domain.MissionStatusInMission {
			t.Fatalf("status=%s", created.Status)
		}

		m, err := e.svc.GetMission(context.Background(), created.ID)
		if err != nil {
			t.Fatalf("GetMission: %v", err)
		}
		if m.Departure.Notes == nil || *m.Departure.Notes != "routine patrol" {
			t.Fatalf("notes not normalized: %v", m.Departure.Notes)
		}
		if got := m.DepartureDrivers(); len(got) != 1 || got[0] != mID {
			t.Fatalf("drivers=%v", got)
		}

		evs := e.published.events()
		if len(evs) != 1 || evs[0].Type != events.TypeMissionCreated {
			t.Fatalf("events=%+v", evs)
		}
		if evs[0].RecordedBy != operator || evs[0].MissionID != created.ID {
			t.Fatalf("event attribution: %+v", evs[0])
		}
	})

	t.Run("anomaly at departure publishes an anomaly event", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		mID := e.seedMember(t, true)

		anomaly := "cracked mirror"
		_, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:    vID,
			DepartureAt:  e.now,
			DriverIDs:    []domain.MemberID{mID},
			AnomalyFlag:  true,
			AnomalyNotes: &anomaly,
		})
		if err != nil {
			t.Fatalf("CreateDeparture: %v", err)
		}

		evs := e.published.events()
		if len(evs) != 2 {
			t.Fatalf("expected 2 events, got %+v", evs)
		}
		if evs[1].Type != events.TypeAnomalyReported || evs[1].Phase == nil || *evs[1].Phase != domain.ChecklistPhaseDeparture {
			t.Fatalf("anomaly event: %+v", evs[1])
		}
		if evs[1].Notes != "cracked mirror" {
			t.Fatalf("anomaly notes: %q", evs[1].Notes)
		}
	})

	t.Run("rejects an empty driver set", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)

		_, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   vID,
			DepartureAt: e.now,
		})
		ae := appError(t, err)
		if ae.Code != "NO_DRIVERS_SELECTED" || ae.Status != 422 {
			t.Fatalf("got %+v", ae)
		}
	})

	t.Run("rejects a vehicle that is not departable", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOutOfService, nil)
		mID := e.seedMember(t, true)

		_, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   vID,
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{mID},
		})
		ae := appError(t, err)
		if ae.Code != "VEHICLE_NOT_DEPARTABLE" || ae.Status != 409 {
			t.Fatalf("got %+v", ae)
		}
	})

	t.Run("allows dispatch of a vehicle under maintenance", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusInMaintenance, nil)
		mID := e.seedMember(t, true)

		if _, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   vID,
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{mID},
		}); err != nil {
			t.Fatalf("CreateDeparture: %v", err)
		}
	})

	t.Run("rejects an unknown vehicle", func(t *testing.T) {
		e := newEnv(t)
		mID := e.seedMember(t, true)

		_, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   domain.VehicleID(uuid.NewString()),
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{mID},
		})
		ae := appError(t, err)
		if ae.Code != "VEHICLE_NOT_FOUND" || ae.Status != 404 {
			t.Fatalf("got %+v", ae)
		}
	})

	t.Run("rejects a trailerId that references a non-trailer", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		notTrailer := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		mID := e.seedMember(t, true)

		_, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   vID,
			TrailerID:   &notTrailer,
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{mID},
		})
		ae := appError(t, err)
		if ae.Code != "VALIDATION_ERROR" || ae.Status != 422 {
			t.Fatalf("got %+v", ae)
		}
	})

	t.Run("rejects drivers lacking the required license class", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, &classB)
		mID := e.seedMember(t, true) // no licenses

		_, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   vID,
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{mID},
		})
		ae := appError(t, err)
		if ae.Code != "DRIVER_LICENSE_MISMATCH" || ae.Status != 422 {
			t.Fatalf("got %+v", ae)
		}
		missing, ok := ae.Details["missingLicenses"].(map[string][]string)
		if !ok || len(missing[string(mID)]) != 1 || missing[string(mID)][0] != "B" {
			t.Fatalf("details=%+v", ae.Details)
		}
	})

	t.Run("treats an expired license as missing", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, &classB)
		expired := e.now.AddDate(0, -1, 0)
		mID := e.seedMember(t, true, domain.License{Class: classB, ExpiresOn: &expired})

		_, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   vID,
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{mID},
		})
		ae := appError(t, err)
		if ae.Code != "DRIVER_LICENSE_MISMATCH" {
			t.Fatalf("got %+v", ae)
		}
	})

	t.Run("requires the trailer license class from the towing driver", func(t *testing.T) {
		e := newEnv(t)
		classBE := domain.LicenseClass("BE")
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, &classB)
		trID := e.seedVehicle(t, domain.VehicleTypeTrailer, domain.VehicleStatusOperational, &classBE)
		holdsBoth := e.seedMember(t, true, domain.License{Class: classB}, domain.License{Class: classBE})
		holdsB := e.seedMember(t, true, domain.License{Class: classB})

		if _, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   vID,
			TrailerID:   &trID,
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{holdsBoth},
		}); err != nil {
			t.Fatalf("CreateDeparture with BE holder: %v", err)
		}

		vID2 := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, &classB)
		trID2 := e.seedVehicle(t, domain.VehicleTypeTrailer, domain.VehicleStatusOperational, &classBE)
		_, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   vID2,
			TrailerID:   &trID2,
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{holdsB},
		})
		ae := appError(t, err)
		if ae.Code != "DRIVER_LICENSE_MISMATCH" {
			t.Fatalf("got %+v", ae)
		}
	})

	t.Run("rejects unknown and inactive drivers", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)

		_, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   vID,
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{domain.MemberID(uuid.NewString())},
		})
		ae := appError(t, err)
		if ae.Code != "DRIVER_NOT_FOUND" {
			t.Fatalf("got %+v", ae)
		}

		inactive := e.seedMember(t, false)
		_, err = e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   vID,
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{inactive},
		})
		ae = appError(t, err)
		if ae.Code != "DRIVER_LICENSE_MISMATCH" {
			t.Fatalf("got %+v", ae)
		}
		if _, ok := ae.Details["inactiveMembers"]; !ok {
			t.Fatalf("details=%+v", ae.Details)
		}
	})

	t.Run("rejects an incomplete or malformed checklist", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		mID := e.seedMember(t, true)
		e.seedItem(t, vID, domain.ChecklistPhaseDeparture, "Lights", domain.ChecklistItemTypeBoolean, true, 1)
		numID := e.seedItem(t, vID, domain.ChecklistPhaseDeparture, "Tire pressure", domain.ChecklistItemTypeNumeric, true, 2)

		_, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   vID,
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{mID},
			Checklist:   map[domain.ChecklistItemID]string{numID: "not-a-number"},
		})
		ae := appError(t, err)
		if ae.Code != "CHECKLIST_INCOMPLETE" || ae.Status != 422 {
			t.Fatalf("got %+v", ae)
		}
		items, ok := ae.Details["items"].([]map[string]any)
		if !ok || len(items) != 2 {
			t.Fatalf("details=%+v", ae.Details)
		}
	})

	t.Run("includes trailer checklist items in the departure scope", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		trID := e.seedVehicle(t, domain.VehicleTypeTrailer, domain.VehicleStatusOperational, nil)
		mID := e.seedMember(t, true)
		trItem := e.seedItem(t, trID, domain.ChecklistPhaseDeparture, "Coupling locked", domain.ChecklistItemTypeBoolean, true, 1)

		_, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   vID,
			TrailerID:   &trID,
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{mID},
		})
		ae := appError(t, err)
		if ae.Code != "CHECKLIST_INCOMPLETE" {
			t.Fatalf("got %+v", ae)
		}

		if _, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   vID,
			TrailerID:   &trID,
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{mID},
			Checklist:   map[domain.ChecklistItemID]string{trItem: "yes"},
		}); err != nil {
			t.Fatalf("CreateDeparture: %v", err)
		}
	})

	t.Run("rejects a vehicle that already has an active mission", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		mID := e.seedMember(t, true)

		in := missions.CreateDepartureInput{
			VehicleID:   vID,
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{mID},
		}
		if _, err := e.svc.CreateDeparture(context.Background(), operator, in); err != nil {
			t.Fatalf("first departure: %v", err)
		}
		_, err := e.svc.CreateDeparture(context.Background(), operator, in)
		ae := appError(t, err)
		if ae.Code != "VEHICLE_ALREADY_IN_MISSION" || ae.Status != 409 {
			t.Fatalf("got %+v", ae)
		}
	})

	t.Run("rejects a trailer attached to another active mission", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		vID2 := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		trID := e.seedVehicle(t, domain.VehicleTypeTrailer, domain.VehicleStatusOperational, nil)
		mID := e.seedMember(t, true)

		if _, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   vID,
			TrailerID:   &trID,
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{mID},
		}); err != nil {
			t.Fatalf("first departure: %v", err)
		}

		_, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   vID2,
			TrailerID:   &trID,
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{mID},
		})
		ae := appError(t, err)
		if ae.Code != "TRAILER_ALREADY_IN_MISSION" || ae.Status != 409 {
			t.Fatalf("got %+v", ae)
		}
	})

	t.Run("only one of many concurrent departures wins", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		mID := e.seedMember(t, true)

		const n = 16
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
					VehicleID:   vID,
					DepartureAt: e.now,
					DriverIDs:   []domain.MemberID{mID},
				})
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			ae := appError(t, err)
			if ae.Code != "VEHICLE_ALREADY_IN_MISSION" {
				t.Fatalf("unexpected error: %+v", ae)
			}
		}
		if wins != 1 {
			t.Fatalf("expected exactly one winning departure, got %d", wins)
		}
	})
}

func TestCreateReturn(t *testing.T) {
	start := func(t *testing.T, e *env, vID domain.VehicleID, mID domain.MemberID, odo *int) domain.MissionID {
		t.Helper()
		created, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID:   vID,
			DepartureAt: e.now,
			DriverIDs:   []domain.MemberID{mID},
			Odometer:    odo,
		})
		if err != nil {
			t.Fatalf("departure: %v", err)
		}
		return created.ID
	}

	t.Run("completes the mission and computes trip metrics", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		mID := e.seedMember(t, true)
		depOdo := 1000
		missionID := start(t, e, vID, mID, &depOdo)

		retOdo := 1120
		if err := e.svc.CreateReturn(context.Background(), operator, missionID, missions.CreateReturnInput{
			ReturnAt:  e.now.Add(90 * time.Minute),
			DriverIDs: []domain.MemberID{mID},
			Odometer:  &retOdo,
		}); err != nil {
			t.Fatalf("CreateReturn: %v", err)
		}

		m, err := e.svc.GetMission(context.Background(), missionID)
		if err != nil {
			t.Fatalf("GetMission: %v", err)
		}
		if m.Status != domain.MissionStatusCompleted {
			t.Fatalf("status=%s", m.Status)
		}
		if m.TripDurationMinutes == nil || *m.TripDurationMinutes != 90 {
			t.Fatalf("duration=%v", m.TripDurationMinutes)
		}
		if m.TripDistance == nil || *m.TripDistance != 120 {
			t.Fatalf("distance=%v", m.TripDistance)
		}
		if got := m.ReturnDrivers(); len(got) != 1 || got[0] != mID {
			t.Fatalf("return drivers=%v", got)
		}

		evs := e.published.events()
		last := evs[len(evs)-1]
		if last.Type != events.TypeMissionCompleted {
			t.Fatalf("events=%+v", evs)
		}

		// Vehicle is dispatchable again.
		active, err := e.svc.GetActiveMission(context.Background(), vID)
		if err != nil {
			t.Fatalf("GetActiveMission: %v", err)
		}
		if active != nil {
			t.Fatalf("expected no active mission, got %+v", active)
		}
	})

	t.Run("no distance without both odometer readings", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		mID := e.seedMember(t, true)
		missionID := start(t, e, vID, mID, nil)

		retOdo := 500
		if err := e.svc.CreateReturn(context.Background(), operator, missionID, missions.CreateReturnInput{
			ReturnAt: e.now.Add(30 * time.Minute),
			Odometer: &retOdo,
		}); err != nil {
			t.Fatalf("CreateReturn: %v", err)
		}
		m, _ := e.svc.GetMission(context.Background(), missionID)
		if m.TripDistance != nil {
			t.Fatalf("distance=%v", m.TripDistance)
		}
		if m.TripDurationMinutes == nil || *m.TripDurationMinutes != 30 {
			t.Fatalf("duration=%v", m.TripDurationMinutes)
		}
	})

	t.Run("rejects a return before the departure", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		mID := e.seedMember(t, true)
		missionID := start(t, e, vID, mID, nil)

		err := e.svc.CreateReturn(context.Background(), operator, missionID, missions.CreateReturnInput{
			ReturnAt: e.now.Add(-time.Minute),
		})
		ae := appError(t, err)
		if ae.Code != "VALIDATION_ERROR" || ae.Status != 422 {
			t.Fatalf("got %+v", ae)
		}
	})

	t.Run("rejects an odometer regression", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		mID := e.seedMember(t, true)
		depOdo := 1000
		missionID := start(t, e, vID, mID, &depOdo)

		retOdo := 999
		err := e.svc.CreateReturn(context.Background(), operator, missionID, missions.CreateReturnInput{
			ReturnAt: e.now.Add(time.Hour),
			Odometer: &retOdo,
		})
		ae := appError(t, err)
		if ae.Code != "ODOMETER_REGRESSION" || ae.Status != 422 {
			t.Fatalf("got %+v", ae)
		}
		if ae.Details["departureOdometer"] != 1000 || ae.Details["returnOdometer"] != 999 {
			t.Fatalf("details=%+v", ae.Details)
		}
	})

	t.Run("requires the return checklist", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		mID := e.seedMember(t, true)
		retItem := e.seedItem(t, vID, domain.ChecklistPhaseReturn, "Refueled", domain.ChecklistItemTypeBoolean, true, 1)
		missionID := start(t, e, vID, mID, nil)

		err := e.svc.CreateReturn(context.Background(), operator, missionID, missions.CreateReturnInput{
			ReturnAt: e.now.Add(time.Hour),
		})
		ae := appError(t, err)
		if ae.Code != "CHECKLIST_INCOMPLETE" {
			t.Fatalf("got %+v", ae)
		}

		if err := e.svc.CreateReturn(context.Background(), operator, missionID, missions.CreateReturnInput{
			ReturnAt:  e.now.Add(time.Hour),
			Checklist: map[domain.ChecklistItemID]string{retItem: "1"},
		}); err != nil {
			t.Fatalf("CreateReturn: %v", err)
		}
	})

	t.Run("publishes anomaly and traffic violation events", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		mID := e.seedMember(t, true)
		missionID := start(t, e, vID, mID, nil)

		anomaly := "dented bumper"
		violation := "speed camera on Route 9"
		if err := e.svc.CreateReturn(context.Background(), operator, missionID, missions.CreateReturnInput{
			ReturnAt:              e.now.Add(time.Hour),
			AnomalyFlag:           true,
			AnomalyNotes:          &anomaly,
			TrafficViolationFlag:  true,
			TrafficViolationNotes: &violation,
		}); err != nil {
			t.Fatalf("CreateReturn: %v", err)
		}

		evs := e.published.events()
		// MISSION_CREATED, MISSION_COMPLETED, ANOMALY_REPORTED, TRAFFIC_VIOLATION_REPORTED
		if len(evs) != 4 {
			t.Fatalf("events=%+v", evs)
		}
		if evs[2].Type != events.TypeAnomalyReported || evs[2].Phase == nil || *evs[2].Phase != domain.ChecklistPhaseReturn {
			t.Fatalf("anomaly event: %+v", evs[2])
		}
		if evs[3].Type != events.TypeTrafficViolationReported || evs[3].Notes != violation {
			t.Fatalf("violation event: %+v", evs[3])
		}
	})

	t.Run("rejects unknown and non-active missions", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		mID := e.seedMember(t, true)
		missionID := start(t, e, vID, mID, nil)

		err := e.svc.CreateReturn(context.Background(), operator, domain.MissionID(uuid.NewString()), missions.CreateReturnInput{ReturnAt: e.now})
		if ae := appError(t, err); ae.Code != "MISSION_NOT_FOUND" || ae.Status != 404 {
			t.Fatalf("got %+v", ae)
		}

		if err := e.svc.CreateReturn(context.Background(), operator, missionID, missions.CreateReturnInput{ReturnAt: e.now.Add(time.Hour)}); err != nil {
			t.Fatalf("CreateReturn: %v", err)
		}
		err = e.svc.CreateReturn(context.Background(), operator, missionID, missions.CreateReturnInput{ReturnAt: e.now.Add(2 * time.Hour)})
		if ae := appError(t, err); ae.Code != "MISSION_NOT_ACTIVE" || ae.Status != 409 {
			t.Fatalf("got %+v", ae)
		}
	})
}

func TestForceCompleteWithoutReturn(t *testing.T) {
	e := newEnv(t)
	vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
	mID := e.seedMember(t, true)

	created, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
		VehicleID:   vID,
		DepartureAt: e.now,
		DriverIDs:   []domain.MemberID{mID},
	})
	if err != nil {
		t.Fatalf("departure: %v", err)
	}
	preEvents := len(e.published.events())

	if err := e.svc.ForceCompleteWithoutReturn(context.Background(), operator, created.ID); err != nil {
		t.Fatalf("ForceCompleteWithoutReturn: %v", err)
	}

	m, err := e.svc.GetMission(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetMission: %v", err)
	}
	if m.Status != domain.MissionStatusCompletedNoReturn {
		t.Fatalf("status=%s", m.Status)
	}
	if m.Return != nil || m.TripDurationMinutes != nil || m.TripDistance != nil {
		t.Fatalf("force-complete must not record return data: %+v", m)
	}
	if got := len(e.published.events()); got != preEvents {
		t.Fatalf("force-complete must not publish events, got %d new", got-preEvents)
	}

	// Vehicle is free again.
	active, err := e.svc.GetActiveMission(context.Background(), vID)
	if err != nil {
		t.Fatalf("GetActiveMission: %v", err)
	}
	if active != nil {
		t.Fatalf("expected no active mission")
	}

	// Terminal missions reject further transitions.
	err = e.svc.ForceCompleteWithoutReturn(context.Background(), operator, created.ID)
	if ae := appError(t, err); ae.Code != "MISSION_NOT_ACTIVE" {
		t.Fatalf("got %+v", ae)
	}

	err = e.svc.ForceCompleteWithoutReturn(context.Background(), operator, domain.MissionID(uuid.NewString()))
	if ae := appError(t, err); ae.Code != "MISSION_NOT_FOUND" {
		t.Fatalf("got %+v", ae)
	}
}

func TestReadSurfaces(t *testing.T) {
	t.Run("active mission lookup distinguishes free from unknown", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)

		active, err := e.svc.GetActiveMission(context.Background(), vID)
		if err != nil {
			t.Fatalf("GetActiveMission: %v", err)
		}
		if active != nil {
			t.Fatalf("expected nil, got %+v", active)
		}

		_, err = e.svc.GetActiveMission(context.Background(), domain.VehicleID(uuid.NewString()))
		if ae := appError(t, err); ae.Code != "VEHICLE_NOT_FOUND" {
			t.Fatalf("got %+v", ae)
		}
	})

	t.Run("mission history is newest first", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		mID := e.seedMember(t, true)

		first, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID: vID, DepartureAt: e.now, DriverIDs: []domain.MemberID{mID},
		})
		if err != nil {
			t.Fatalf("departure 1: %v", err)
		}
		if err := e.svc.ForceCompleteWithoutReturn(context.Background(), operator, first.ID); err != nil {
			t.Fatalf("force-complete: %v", err)
		}
		second, err := e.svc.CreateDeparture(context.Background(), operator, missions.CreateDepartureInput{
			VehicleID: vID, DepartureAt: e.now.Add(2 * time.Hour), DriverIDs: []domain.MemberID{mID},
		})
		if err != nil {
			t.Fatalf("departure 2: %v", err)
		}

		ms, err := e.svc.ListVehicleMissions(context.Background(), vID)
		if err != nil {
			t.Fatalf("ListVehicleMissions: %v", err)
		}
		if len(ms) != 2 || ms[0].ID != second.ID || ms[1].ID != first.ID {
			t.Fatalf("history=%+v", ms)
		}
	})

	t.Run("applicable checklist appends trailer items after vehicle items", func(t *testing.T) {
		e := newEnv(t)
		vID := e.seedVehicle(t, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil)
		trID := e.seedVehicle(t, domain.VehicleTypeTrailer, domain.VehicleStatusOperational, nil)
		vItem := e.seedItem(t, vID, domain.ChecklistPhaseDeparture, "Lights", domain.ChecklistItemTypeBoolean, true, 1)
		trItem := e.seedItem(t, trID, domain.ChecklistPhaseDeparture, "Coupling locked", domain.ChecklistItemTypeBoolean, true, 1)

		items, err := e.svc.GetApplicableChecklist(context.Background(), vID, &trID, domain.ChecklistPhaseDeparture)
		if err != nil {
			t.Fatalf("GetApplicableChecklist: %v", err)
		}
		if len(items) != 2 || items[0].ID != vItem || items[1].ID != trItem {
			t.Fatalf("items=%+v", items)
		}
	})
}

func TestSearchEligibleDrivers(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.SearchEligibleDrivers(context.Background(), "ab")
	if ae := appError(t, err); ae.Code != "VALIDATION_ERROR" || ae.Status != 422 {
		t.Fatalf("got %+v", ae)
	}

	classB := domain.LicenseClass("B")
	classA := domain.LicenseClass("A")
	expired := e.now.AddDate(-1, 0, 0)
	id := domain.MemberID(uuid.NewString())
	if err := e.members.Create(context.Background(), memberrepoport.Member{
		ID:                 id,
		DisplayName:        "Dario Rossi",
		RegistrationNumber: "CB-101",
		IsActive:           true,
		Licenses: []domain.License{
			{Class: classB},
			{Class: classA, ExpiresOn: &expired},
		},
		CreatedAt: e.now,
		UpdatedAt: e.now,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err := e.svc.SearchEligibleDrivers(context.Background(), "rossi")
	if err != nil {
		t.Fatalf("SearchEligibleDrivers: %v", err)
	}
	if len(out) != 1 || out[0].MemberID != id {
		t.Fatalf("out=%+v", out)
	}
	// The expired A license must not be reported as held.
	if len(out[0].HeldLicenses) != 1 || out[0].HeldLicenses[0].Class != classB {
		t.Fatalf("held=%+v", out[0].HeldLicenses)
	}
}
