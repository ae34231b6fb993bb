package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/nullable"
	"go.uber.org/zap"

	"github.com/crocebianca-ops/fleet-missions-api/internal/app/missions"
	"github.com/crocebianca-ops/fleet-missions-api/internal/app/vehicles"
	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
)

// Server is the HTTP adapter over the app services.
type Server struct {
	Missions *missions.Service
	Vehicles *vehicles.Service

	log *zap.Logger
}

func NewServer(missionsSvc *missions.Service, vehiclesSvc *vehicles.Service, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Missions: missionsSvc,
		Vehicles: vehiclesSvc,
		log:      log,
	}
}

func (s *Server) CreateDeparture(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing operator subject", nil)
		return
	}

	var req departureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}
	if req.VehicleID == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "vehicleId is required", nil)
		return
	}
	if req.DepartureAt.IsZero() {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "departureAt is required", nil)
		return
	}
	fuel, ok := parseFuel(req.Fuel)
	if !ok {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "fuel is not a valid fuel level", nil)
		return
	}

	in := missions.CreateDepartureInput{
		VehicleID:    domain.VehicleID(req.VehicleID),
		DepartureAt:  req.DepartureAt,
		DriverIDs:    memberIDsFromStrings(req.DriverIDs),
		Odometer:     req.Odometer,
		Fuel:         fuel,
		ServiceType:  req.ServiceType,
		Destination:  req.Destination,
		AuthorizedBy: req.AuthorizedBy,
		Notes:        req.Notes,
		AnomalyFlag:  req.AnomalyFlag,
		AnomalyNotes: req.AnomalyNotes,
		Checklist:    checklistFromStrings(req.Checklist),
	}
	if req.TrailerID.IsSpecified() && !req.TrailerID.IsNull() {
		if v, err := req.TrailerID.Get(); err == nil && v != "" {
			id := domain.VehicleID(v)
			in.TrailerID = &id
		}
	}

	created, err := s.Missions.CreateDeparture(r.Context(), domain.SubjectID(sub), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, missionCreatedResponse{
		MissionID: string(created.ID),
		Status:    string(created.Status),
	})
}

func (s *Server) CreateReturn(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing operator subject", nil)
		return
	}
	missionID := domain.MissionID(chi.URLParam(r, "missionId"))

	var req returnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}
	if req.ReturnAt.IsZero() {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "returnAt is required", nil)
		return
	}
	fuel, ok := parseFuel(req.Fuel)
	if !ok {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "fuel is not a valid fuel level", nil)
		return
	}

	in := missions.CreateReturnInput{
		ReturnAt:              req.ReturnAt,
		DriverIDs:             memberIDsFromStrings(req.DriverIDs),
		Odometer:              req.Odometer,
		Fuel:                  fuel,
		Notes:                 req.Notes,
		AnomalyFlag:           req.AnomalyFlag,
		AnomalyNotes:          req.AnomalyNotes,
		TrafficViolationFlag:  req.TrafficViolationFlag,
		TrafficViolationNotes: req.TrafficViolationNotes,
		Checklist:             checklistFromStrings(req.Checklist),
	}

	if err := s.Missions.CreateReturn(r.Context(), domain.SubjectID(sub), missionID, in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	m, err := s.Missions.GetMission(r.Context(), missionID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMissionResponse(m))
}

func (s *Server) ForceComplete(w http.ResponseWriter, r *http.Request) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing operator subject", nil)
		return
	}
	missionID := domain.MissionID(chi.URLParam(r, "missionId"))

	if err := s.Missions.ForceCompleteWithoutReturn(r.Context(), domain.SubjectID(sub), missionID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	m, err := s.Missions.GetMission(r.Context(), missionID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMissionResponse(m))
}

func (s *Server) GetMission(w http.ResponseWriter, r *http.Request) {
	missionID := domain.MissionID(chi.URLParam(r, "missionId"))
	m, err := s.Missions.GetMission(r.Context(), missionID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMissionResponse(m))
}

func (s *Server) GetActiveMission(w http.ResponseWriter, r *http.Request) {
	vehicleID := domain.VehicleID(chi.URLParam(r, "vehicleId"))
	m, err := s.Missions.GetActiveMission(r.Context(), vehicleID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var out activeMissionResponse
	if m == nil {
		out.Mission = nullable.NewNullNullable[missionResponse]()
	} else {
		out.Mission = nullable.NewNullableWithValue(toMissionResponse(*m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) ListVehicleMissions(w http.ResponseWriter, r *http.Request) {
	vehicleID := domain.VehicleID(chi.URLParam(r, "vehicleId"))
	ms, err := s.Missions.ListVehicleMissions(r.Context(), vehicleID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := missionListResponse{Missions: make([]missionResponse, 0, len(ms))}
	for _, m := range ms {
		out.Missions = append(out.Missions, toMissionResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) ListVehicles(w http.ResponseWriter, r *http.Request) {
	includeDecommissioned := r.URL.Query().Get("includeDecommissioned") == "true"
	vs, err := s.Vehicles.ListVehicles(r.Context(), includeDecommissioned)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := vehicleListResponse{Vehicles: make([]vehicleResponse, 0, len(vs))}
	for _, v := range vs {
		out.Vehicles = append(out.Vehicles, toVehicleResponse(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetVehicle(w http.ResponseWriter, r *http.Request) {
	vehicleID := domain.VehicleID(chi.URLParam(r, "vehicleId"))
	v, err := s.Vehicles.GetVehicle(r.Context(), vehicleID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVehicleResponse(v))
}

func (s *Server) GetChecklist(w http.ResponseWriter, r *http.Request) {
	vehicleID := domain.VehicleID(chi.URLParam(r, "vehicleId"))

	phase := domain.ChecklistPhase(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("phase"))))
	switch phase {
	case domain.ChecklistPhaseDeparture, domain.ChecklistPhaseReturn:
	case "":
		phase = domain.ChecklistPhaseDeparture
	default:
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "phase must be DEPARTURE or RETURN", nil)
		return
	}

	var trailerID *domain.VehicleID
	if t := strings.TrimSpace(r.URL.Query().Get("trailerId")); t != "" {
		id := domain.VehicleID(t)
		trailerID = &id
	}

	items, err := s.Missions.GetApplicableChecklist(r.Context(), vehicleID, trailerID, phase)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := checklistResponse{Items: make([]checklistItemResponse, 0, len(items))}
	for _, item := range items {
		out.Items = append(out.Items, toChecklistItemResponse(item))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) SearchDrivers(w http.ResponseWriter, r *http.Request) {
	ds, err := s.Missions.SearchEligibleDrivers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := driverSearchResponse{Drivers: make([]driverSearchEntry, 0, len(ds))}
	for _, d := range ds {
		out.Drivers = append(out.Drivers, toDriverSearchEntry(d))
	}
	writeJSON(w, http.StatusOK, out)
}

// writeServiceError maps app-layer errors to the error envelope. Anything
// without an app error type is a 500; the cause goes to the log, not the
// client.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if ae := (*missions.Error)(nil); errors.As(err, &ae) {
		writeError(w, r, ae.Status, ae.Code, ae.Message, ae.Details)
		return
	}
	if ve := (*vehicles.Error)(nil); errors.As(err, &ve) {
		writeError(w, r, ve.Status, ve.Code, ve.Message, nil)
		return
	}
	s.log.Error("unhandled service error",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}
