package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
	checklistrepoport "github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/checklistrepo"
	memberrepoport "github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/memberrepo"
	missionrepoport "github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/missionrepo"
	vehiclerepoport "github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/vehiclerepo"
)

type CleanupFunc = func()

// Stores bundles the four repositories so contract suites can seed the
// referenced entities (the Postgres adapters enforce foreign keys).
type Stores struct {
	Vehicles   vehiclerepoport.Repository
	Members    memberrepoport.Repository
	Checklists checklistrepoport.Repository
	Missions   missionrepoport.Repository
}

type StoresFactory func(t *testing.T) (Stores, CleanupFunc)

func RunVehicleRepo(t *testing.T, newStores StoresFactory) {
	t.Helper()
	ctx := context.Background()

	s, cleanup := newStores(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	classB := domain.LicenseClass("B")
	vID := domain.VehicleID(uuid.NewString())
	if err := s.Vehicles.Create(ctx, vehiclerepoport.Vehicle{
		ID:                   vID,
		PlateOrSerial:        "ZA123BC",
		Name:                 "Bravo 2",
		Type:                 domain.VehicleTypeVehicle,
		Status:               domain.VehicleStatusOperational,
		RequiredLicenseClass: &classB,
		CreatedAt:            now,
		UpdatedAt:            now,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Vehicles.GetByID(ctx, vID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.PlateOrSerial != "ZA123BC" || got.RequiredLicenseClass == nil || *got.RequiredLicenseClass != classB {
		t.Fatalf("unexpected vehicle: %+v", got)
	}

	if err := s.Vehicles.Create(ctx, vehiclerepoport.Vehicle{
		ID:            vID,
		PlateOrSerial: "ZA123BC",
		Name:          "Bravo 2",
		Type:          domain.VehicleTypeVehicle,
		Status:        domain.VehicleStatusOperational,
		CreatedAt:     now,
		UpdatedAt:     now,
	}); !errors.Is(err, vehiclerepoport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	if _, err := s.Vehicles.GetByID(ctx, domain.VehicleID(uuid.NewString())); !errors.Is(err, vehiclerepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Deterministic list ordering by name; decommissioned filtered by default.
	alphaID := domain.VehicleID(uuid.NewString())
	if err := s.Vehicles.Create(ctx, vehiclerepoport.Vehicle{
		ID:            alphaID,
		PlateOrSerial: "ZA999ZZ",
		Name:          "alpha 1",
		Type:          domain.VehicleTypeVehicle,
		Status:        domain.VehicleStatusInMaintenance,
		CreatedAt:     now,
		UpdatedAt:     now,
	}); err != nil {
		t.Fatalf("Create alpha: %v", err)
	}
	if err := s.Vehicles.Create(ctx, vehiclerepoport.Vehicle{
		ID:            domain.VehicleID(uuid.NewString()),
		PlateOrSerial: "ZB000AA",
		Name:          "Old rig",
		Type:          domain.VehicleTypeVehicle,
		Status:        domain.VehicleStatusDecommissioned,
		CreatedAt:     now,
		UpdatedAt:     now,
	}); err != nil {
		t.Fatalf("Create decommissioned: %v", err)
	}

	vs, err := s.Vehicles.List(ctx, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(vs) != 2 || vs[0].ID != alphaID || vs[1].ID != vID {
		t.Fatalf("unexpected list: %+v", vs)
	}
	vs, err = s.Vehicles.List(ctx, true)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(vs) != 3 {
		t.Fatalf("expected 3 vehicles, got %d", len(vs))
	}
}

func RunMemberRepo(t *testing.T, newStores StoresFactory) {
	t.Helper()
	ctx := context.Background()

	s, cleanup := newStores(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	expiry := time.Date(2030, 6, 30, 0, 0, 0, 0, time.UTC)
	aID := domain.MemberID(uuid.NewString())
	if err := s.Members.Create(ctx, memberrepoport.Member{
		ID:                 aID,
		DisplayName:        "Alice Johnson",
		RegistrationNumber: "A-0042",
		IsActive:           true,
		Licenses: []domain.License{
			{Class: "B", ExpiresOn: &expiry},
			{Class: "BE"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("Create a: %v", err)
	}

	got, err := s.Members.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.Licenses) != 2 {
		t.Fatalf("expected 2 licenses, got %+v", got.Licenses)
	}
	if got.Licenses[0].Class != "B" || got.Licenses[0].ExpiresOn == nil || !got.Licenses[0].ExpiresOn.Equal(expiry) {
		t.Fatalf("unexpected license: %+v", got.Licenses[0])
	}

	if err := s.Members.Create(ctx, memberrepoport.Member{
		ID:          aID,
		DisplayName: "Alice 2",
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); !errors.Is(err, memberrepoport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// Search: tokenized, case-insensitive, active only, ordered by name.
	bID := domain.MemberID(uuid.NewString())
	if err := s.Members.Create(ctx, memberrepoport.Member{
		ID:                 bID,
		DisplayName:        "bob johnson",
		RegistrationNumber: "A-0043",
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}); err != nil {
		t.Fatalf("Create b: %v", err)
	}
	if err := s.Members.Create(ctx, memberrepoport.Member{
		ID:          domain.MemberID(uuid.NewString()),
		DisplayName: "Carol Johnson",
		IsActive:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("Create c: %v", err)
	}

	ms, err := s.Members.SearchActiveByName(ctx, "johnson", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(ms) != 2 || ms[0].ID != aID || ms[1].ID != bID {
		t.Fatalf("unexpected search result: %+v", ms)
	}

	ms, err = s.Members.SearchActiveByName(ctx, "JOHNSON bob", 10)
	if err != nil {
		t.Fatalf("Search tokens: %v", err)
	}
	if len(ms) != 1 || ms[0].ID != bID {
		t.Fatalf("unexpected token search result: %+v", ms)
	}

	ms, err = s.Members.SearchActiveByName(ctx, "johnson", 1)
	if err != nil {
		t.Fatalf("Search limited: %v", err)
	}
	if len(ms) != 1 || ms[0].ID != aID {
		t.Fatalf("unexpected limited result: %+v", ms)
	}
}

func RunChecklistRepo(t *testing.T, newStores StoresFactory) {
	t.Helper()
	ctx := context.Background()

	s, cleanup := newStores(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	vID := seedVehicle(t, s, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil, now)

	itemIDs := make([]domain.ChecklistItemID, 3)
	for i := range itemIDs {
		itemIDs[i] = domain.ChecklistItemID(uuid.NewString())
	}
	// Inserted out of order; SortOrder must win.
	puts := []domain.ChecklistItem{
		{ID: itemIDs[2], VehicleID: vID, Phase: domain.ChecklistPhaseDeparture, Name: "Fuel level", Type: domain.ChecklistItemTypeNumeric, IsRequired: true, SortOrder: 3},
		{ID: itemIDs[0], VehicleID: vID, Phase: domain.ChecklistPhaseDeparture, Name: "Lights", Type: domain.ChecklistItemTypeBoolean, IsRequired: true, SortOrder: 1},
		{ID: itemIDs[1], VehicleID: vID, Phase: domain.ChecklistPhaseDeparture, Name: "Damage notes", Type: domain.ChecklistItemTypeText, SortOrder: 2},
		{ID: domain.ChecklistItemID(uuid.NewString()), VehicleID: vID, Phase: domain.ChecklistPhaseReturn, Name: "Refueled", Type: domain.ChecklistItemTypeBoolean, IsRequired: true, SortOrder: 1},
	}
	for _, item := range puts {
		if err := s.Checklists.Put(ctx, item); err != nil {
			t.Fatalf("Put %s: %v", item.Name, err)
		}
	}

	items, err := s.Checklists.ListForScope(ctx, vID, domain.ChecklistPhaseDeparture)
	if err != nil {
		t.Fatalf("ListForScope: %v", err)
	}
	if len(items) != 3 || items[0].ID != itemIDs[0] || items[1].ID != itemIDs[1] || items[2].ID != itemIDs[2] {
		t.Fatalf("unexpected order: %+v", items)
	}

	items, err = s.Checklists.ListForScope(ctx, vID, domain.ChecklistPhaseReturn)
	if err != nil {
		t.Fatalf("ListForScope return: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Refueled" {
		t.Fatalf("unexpected return items: %+v", items)
	}
}

func RunMissionRepo(t *testing.T, newStores StoresFactory) {
	t.Helper()
	ctx := context.Background()

	s, cleanup := newStores(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(10_000, 0).UTC()
	classB := domain.LicenseClass("B")
	vID := seedVehicle(t, s, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, &classB, now)
	tID := seedVehicle(t, s, domain.VehicleTypeTrailer, domain.VehicleStatusOperational, nil, now)
	otherID := seedVehicle(t, s, domain.VehicleTypeVehicle, domain.VehicleStatusOperational, nil, now)

	mID := domain.MemberID(uuid.NewString())
	if err := s.Members.Create(ctx, memberrepoport.Member{
		ID: mID, DisplayName: "Driver One", IsActive: true, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed member: %v", err)
	}
	itemID := domain.ChecklistItemID(uuid.NewString())
	if err := s.Checklists.Put(ctx, domain.ChecklistItem{
		ID: itemID, VehicleID: vID, Phase: domain.ChecklistPhaseDeparture,
		Name: "Lights", Type: domain.ChecklistItemTypeBoolean, IsRequired: true, SortOrder: 1,
	}); err != nil {
		t.Fatalf("seed item: %v", err)
	}
	retItemID := domain.ChecklistItemID(uuid.NewString())
	if err := s.Checklists.Put(ctx, domain.ChecklistItem{
		ID: retItemID, VehicleID: vID, Phase: domain.ChecklistPhaseReturn,
		Name: "Refueled", Type: domain.ChecklistItemTypeBoolean, IsRequired: true, SortOrder: 1,
	}); err != nil {
		t.Fatalf("seed return item: %v", err)
	}

	odo := 1000
	missionID := domain.MissionID(uuid.NewString())
	mission := missionrepoport.Mission{
		ID:        missionID,
		VehicleID: vID,
		TrailerID: &tID,
		Status:    domain.MissionStatusInMission,
		Departure: domain.MissionDeparture{At: now, Odometer: &odo},
		Drivers:   []domain.DriverAssignment{{MemberID: mID, Role: domain.DriverRoleDeparture}},
		Responses: []domain.ChecklistResponse{{ItemID: itemID, Value: domain.BoolValue(true)}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Missions.CreateDeparture(ctx, mission); err != nil {
		t.Fatalf("CreateDeparture: %v", err)
	}

	got, err := s.Missions.GetActiveByVehicle(ctx, vID)
	if err != nil {
		t.Fatalf("GetActiveByVehicle: %v", err)
	}
	if got.ID != missionID || got.Status != domain.MissionStatusInMission {
		t.Fatalf("unexpected active mission: %+v", got)
	}
	if len(got.Drivers) != 1 || got.Drivers[0].MemberID != mID {
		t.Fatalf("unexpected drivers: %+v", got.Drivers)
	}
	if len(got.Responses) != 1 || got.Responses[0].ItemID != itemID || !got.Responses[0].Value.Bool {
		t.Fatalf("unexpected responses: %+v", got.Responses)
	}

	// Vehicle exclusivity.
	dup := mission
	dup.ID = domain.MissionID(uuid.NewString())
	dup.TrailerID = nil
	if err := s.Missions.CreateDeparture(ctx, dup); !errors.Is(err, missionrepoport.ErrVehicleActive) {
		t.Fatalf("expected ErrVehicleActive, got %v", err)
	}

	// Trailer exclusivity: another vehicle towing the same trailer.
	towed := mission
	towed.ID = domain.MissionID(uuid.NewString())
	towed.VehicleID = otherID
	towed.Responses = nil
	if err := s.Missions.CreateDeparture(ctx, towed); !errors.Is(err, missionrepoport.ErrTrailerActive) {
		t.Fatalf("expected ErrTrailerActive, got %v", err)
	}

	// Return transition.
	retOdo := 1120
	duration := 90
	dist := 120
	returnAt := now.Add(90 * time.Minute)
	upd := missionrepoport.ReturnUpdate{
		Return:              domain.MissionReturn{At: returnAt, Odometer: &retOdo},
		Drivers:             []domain.MemberID{mID},
		Responses:           []domain.ChecklistResponse{{ItemID: retItemID, Value: domain.BoolValue(true)}},
		TripDurationMinutes: duration,
		TripDistance:        &dist,
		UpdatedAt:           returnAt,
	}
	if err := s.Missions.CompleteReturn(ctx, missionID, upd); err != nil {
		t.Fatalf("CompleteReturn: %v", err)
	}

	got, err = s.Missions.GetByID(ctx, missionID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.MissionStatusCompleted {
		t.Fatalf("status=%s", got.Status)
	}
	if got.Return == nil || got.Return.Odometer == nil || *got.Return.Odometer != retOdo {
		t.Fatalf("unexpected return block: %+v", got.Return)
	}
	if got.TripDurationMinutes == nil || *got.TripDurationMinutes != duration {
		t.Fatalf("duration=%v", got.TripDurationMinutes)
	}
	if got.TripDistance == nil || *got.TripDistance != dist {
		t.Fatalf("distance=%v", got.TripDistance)
	}
	if len(got.Drivers) != 2 {
		t.Fatalf("expected departure+return drivers, got %+v", got.Drivers)
	}
	if len(got.Responses) != 2 {
		t.Fatalf("expected 2 responses, got %+v", got.Responses)
	}

	// Terminal: no further transitions.
	if err := s.Missions.CompleteReturn(ctx, missionID, upd); !errors.Is(err, missionrepoport.ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
	if err := s.Missions.ForceComplete(ctx, missionID, returnAt); !errors.Is(err, missionrepoport.ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}

	// Vehicle is free again; a new mission can start and be force-completed.
	second := mission
	second.ID = domain.MissionID(uuid.NewString())
	second.TrailerID = nil
	second.Departure.At = now.Add(3 * time.Hour)
	second.Responses = nil
	if err := s.Missions.CreateDeparture(ctx, second); err != nil {
		t.Fatalf("CreateDeparture second: %v", err)
	}
	if err := s.Missions.ForceComplete(ctx, second.ID, now.Add(4*time.Hour)); err != nil {
		t.Fatalf("ForceComplete: %v", err)
	}
	got, err = s.Missions.GetByID(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetByID second: %v", err)
	}
	if got.Status != domain.MissionStatusCompletedNoReturn {
		t.Fatalf("status=%s", got.Status)
	}
	if got.Return != nil || got.TripDurationMinutes != nil {
		t.Fatalf("force-complete must not record return data: %+v", got)
	}

	if _, err := s.Missions.GetActiveByVehicle(ctx, vID); !errors.Is(err, missionrepoport.ErrNotFound) {
		t.Fatalf("expected no active mission, got %v", err)
	}

	// History: newest departure first.
	ms, err := s.Missions.ListByVehicle(ctx, vID)
	if err != nil {
		t.Fatalf("ListByVehicle: %v", err)
	}
	if len(ms) != 2 || ms[0].ID != second.ID || ms[1].ID != missionID {
		t.Fatalf("unexpected history: %+v", ms)
	}

	if _, err := s.Missions.GetByID(ctx, domain.MissionID(uuid.NewString())); !errors.Is(err, missionrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func seedVehicle(t *testing.T, s Stores, vt domain.VehicleType, status domain.VehicleStatus, class *domain.LicenseClass, now time.Time) domain.VehicleID {
	t.Helper()
	id := domain.VehicleID(uuid.NewString())
	if err := s.Vehicles.Create(context.Background(), vehiclerepoport.Vehicle{
		ID:                   id,
		PlateOrSerial:        uuid.NewString()[:12],
		Name:                 "seed " + uuid.NewString()[:8],
		Type:                 vt,
		Status:               status,
		RequiredLicenseClass: class,
		CreatedAt:            now,
		UpdatedAt:            now,
	}); err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	return id
}
