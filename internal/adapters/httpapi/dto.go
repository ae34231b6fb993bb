package httpapi

import (
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/crocebianca-ops/fleet-missions-api/internal/app/missions"
	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
)

// --- requests ---

type departureRequest struct {
	VehicleID   string                    `json:"vehicleId"`
	TrailerID   nullable.Nullable[string] `json:"trailerId,omitempty"`
	DepartureAt time.Time                 `json:"departureAt"`
	DriverIDs   []string                  `json:"driverIds"`

	Odometer *int    `json:"odometer,omitempty"`
	Fuel     *string `json:"fuel,omitempty"`

	ServiceType  *string `json:"serviceType,omitempty"`
	Destination  *string `json:"destination,omitempty"`
	AuthorizedBy *string `json:"authorizedBy,omitempty"`
	Notes        *string `json:"notes,omitempty"`

	AnomalyFlag  bool    `json:"anomalyFlag,omitempty"`
	AnomalyNotes *string `json:"anomalyNotes,omitempty"`

	Checklist map[string]string `json:"checklist,omitempty"`
}

type returnRequest struct {
	ReturnAt  time.Time `json:"returnAt"`
	DriverIDs []string  `json:"driverIds,omitempty"`

	Odometer *int    `json:"odometer,omitempty"`
	Fuel     *string `json:"fuel,omitempty"`
	Notes    *string `json:"notes,omitempty"`

	AnomalyFlag  bool    `json:"anomalyFlag,omitempty"`
	AnomalyNotes *string `json:"anomalyNotes,omitempty"`

	TrafficViolationFlag  bool    `json:"trafficViolationFlag,omitempty"`
	TrafficViolationNotes *string `json:"trafficViolationNotes,omitempty"`

	Checklist map[string]string `json:"checklist,omitempty"`
}

// --- responses ---

type missionCreatedResponse struct {
	MissionID string `json:"missionId"`
	Status    string `json:"status"`
}

type vehicleResponse struct {
	VehicleID            string  `json:"vehicleId"`
	PlateOrSerial        string  `json:"plateOrSerial"`
	Name                 string  `json:"name"`
	Type                 string  `json:"type"`
	Status               string  `json:"status"`
	RequiredLicenseClass *string `json:"requiredLicenseClass,omitempty"`
}

type vehicleListResponse struct {
	Vehicles []vehicleResponse `json:"vehicles"`
}

type departureBlock struct {
	At       time.Time `json:"at"`
	Odometer *int      `json:"odometer,omitempty"`
	Fuel     *string   `json:"fuel,omitempty"`

	ServiceType  *string `json:"serviceType,omitempty"`
	Destination  *string `json:"destination,omitempty"`
	AuthorizedBy *string `json:"authorizedBy,omitempty"`
	Notes        *string `json:"notes,omitempty"`

	AnomalyFlag  bool    `json:"anomalyFlag"`
	AnomalyNotes *string `json:"anomalyNotes,omitempty"`
}

type returnBlock struct {
	At       time.Time `json:"at"`
	Odometer *int      `json:"odometer,omitempty"`
	Fuel     *string   `json:"fuel,omitempty"`
	Notes    *string   `json:"notes,omitempty"`

	AnomalyFlag  bool    `json:"anomalyFlag"`
	AnomalyNotes *string `json:"anomalyNotes,omitempty"`

	TrafficViolationFlag  bool    `json:"trafficViolationFlag"`
	TrafficViolationNotes *string `json:"trafficViolationNotes,omitempty"`
}

type missionResponse struct {
	MissionID string  `json:"missionId"`
	VehicleID string  `json:"vehicleId"`
	TrailerID *string `json:"trailerId,omitempty"`
	Status    string  `json:"status"`

	Departure departureBlock `json:"departure"`
	Return    *returnBlock   `json:"return,omitempty"`

	DepartureDrivers []string `json:"departureDrivers"`
	ReturnDrivers    []string `json:"returnDrivers,omitempty"`

	TripDurationMinutes *int `json:"tripDurationMinutes,omitempty"`
	TripDistance        *int `json:"tripDistance,omitempty"`
}

type missionListResponse struct {
	Missions []missionResponse `json:"missions"`
}

type activeMissionResponse struct {
	Mission nullable.Nullable[missionResponse] `json:"mission"`
}

type checklistItemResponse struct {
	ItemID     string `json:"itemId"`
	VehicleID  string `json:"vehicleId"`
	Phase      string `json:"phase"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	IsRequired bool   `json:"isRequired"`
	SortOrder  int    `json:"sortOrder"`
}

type checklistResponse struct {
	Items []checklistItemResponse `json:"items"`
}

type heldLicenseResponse struct {
	Class     string              `json:"class"`
	ExpiresOn *openapi_types.Date `json:"expiresOn,omitempty"`
}

type driverSearchEntry struct {
	MemberID           string                `json:"memberId"`
	Name               string                `json:"name"`
	RegistrationNumber string                `json:"registrationNumber,omitempty"`
	HeldLicenses       []heldLicenseResponse `json:"heldLicenses"`
}

type driverSearchResponse struct {
	Drivers []driverSearchEntry `json:"drivers"`
}

// --- mapping ---

func toVehicleResponse(v domain.Vehicle) vehicleResponse {
	out := vehicleResponse{
		VehicleID:     string(v.ID),
		PlateOrSerial: v.PlateOrSerial,
		Name:          v.Name,
		Type:          string(v.Type),
		Status:        string(v.Status),
	}
	if v.RequiredLicenseClass != nil {
		c := string(*v.RequiredLicenseClass)
		out.RequiredLicenseClass = &c
	}
	return out
}

func toMissionResponse(m domain.Mission) missionResponse {
	out := missionResponse{
		MissionID:           string(m.ID),
		VehicleID:           string(m.VehicleID),
		Status:              string(m.Status),
		Departure:           toDepartureBlock(m.Departure),
		DepartureDrivers:    memberIDsToStrings(m.DepartureDrivers()),
		ReturnDrivers:       memberIDsToStrings(m.ReturnDrivers()),
		TripDurationMinutes: m.TripDurationMinutes,
		TripDistance:        m.TripDistance,
	}
	if m.TrailerID != nil {
		id := string(*m.TrailerID)
		out.TrailerID = &id
	}
	if m.Return != nil {
		rb := toReturnBlock(*m.Return)
		out.Return = &rb
	}
	return out
}

func toDepartureBlock(d domain.MissionDeparture) departureBlock {
	return departureBlock{
		At:           d.At,
		Odometer:     d.Odometer,
		Fuel:         fuelToString(d.Fuel),
		ServiceType:  d.ServiceType,
		Destination:  d.Destination,
		AuthorizedBy: d.AuthorizedBy,
		Notes:        d.Notes,
		AnomalyFlag:  d.AnomalyFlag,
		AnomalyNotes: d.AnomalyNotes,
	}
}

func toReturnBlock(r domain.MissionReturn) returnBlock {
	return returnBlock{
		At:                    r.At,
		Odometer:              r.Odometer,
		Fuel:                  fuelToString(r.Fuel),
		Notes:                 r.Notes,
		AnomalyFlag:           r.AnomalyFlag,
		AnomalyNotes:          r.AnomalyNotes,
		TrafficViolationFlag:  r.TrafficViolationFlag,
		TrafficViolationNotes: r.TrafficViolationNotes,
	}
}

func toChecklistItemResponse(item domain.ChecklistItem) checklistItemResponse {
	return checklistItemResponse{
		ItemID:     string(item.ID),
		VehicleID:  string(item.VehicleID),
		Phase:      string(item.Phase),
		Name:       item.Name,
		Type:       string(item.Type),
		IsRequired: item.IsRequired,
		SortOrder:  item.SortOrder,
	}
}

func toDriverSearchEntry(d missions.EligibleDriver) driverSearchEntry {
	out := driverSearchEntry{
		MemberID:           string(d.MemberID),
		Name:               d.Name,
		RegistrationNumber: d.RegistrationNumber,
		HeldLicenses:       make([]heldLicenseResponse, 0, len(d.HeldLicenses)),
	}
	for _, l := range d.HeldLicenses {
		entry := heldLicenseResponse{Class: string(l.Class)}
		if l.ExpiresOn != nil {
			entry.ExpiresOn = &openapi_types.Date{Time: *l.ExpiresOn}
		}
		out.HeldLicenses = append(out.HeldLicenses, entry)
	}
	return out
}

func fuelToString(f *domain.FuelLevel) *string {
	if f == nil {
		return nil
	}
	s := string(*f)
	return &s
}

func memberIDsToStrings(ids []domain.MemberID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

func memberIDsFromStrings(ids []string) []domain.MemberID {
	out := make([]domain.MemberID, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.MemberID(id))
	}
	return out
}

func checklistFromStrings(m map[string]string) map[domain.ChecklistItemID]string {
	if m == nil {
		return nil
	}
	out := make(map[domain.ChecklistItemID]string, len(m))
	for k, v := range m {
		out[domain.ChecklistItemID(k)] = v
	}
	return out
}

func parseFuel(s *string) (*domain.FuelLevel, bool) {
	if s == nil {
		return nil, true
	}
	switch f := domain.FuelLevel(*s); f {
	case domain.FuelLevelEmpty, domain.FuelLevelQuarter, domain.FuelLevelHalf,
		domain.FuelLevelThreeQuarters, domain.FuelLevelFull:
		return &f, true
	default:
		return nil, false
	}
}
