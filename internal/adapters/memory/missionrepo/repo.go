package missionrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/missionrepo"
)

// Repo is an in-memory implementation of missionrepo.Repository.
// It is safe for concurrent use; the exclusivity invariant is enforced under
// the write lock, mirroring the partial unique indexes of the Postgres
// adapter.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.MissionID]missionrepo.Mission
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.MissionID]missionrepo.Mission)}
}

func (r *Repo) CreateDeparture(ctx context.Context, m missionrepo.Mission) error {
	_ = ctx
	if m.ID == "" {
		return missionrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[m.ID]; ok {
		return missionrepo.ErrAlreadyExists
	}
	for _, existing := range r.byID {
		if existing.Status != domain.MissionStatusInMission {
			continue
		}
		if existing.VehicleID == m.VehicleID {
			return missionrepo.ErrVehicleActive
		}
		if m.TrailerID != nil {
			if existing.TrailerID != nil && *existing.TrailerID == *m.TrailerID {
				return missionrepo.ErrTrailerActive
			}
			// A trailer dispatched as the primary vehicle of another mission
			// is busy too.
			if existing.VehicleID == *m.TrailerID {
				return missionrepo.ErrTrailerActive
			}
		}
	}
	r.byID[m.ID] = cloneMission(m)
	return nil
}

func (r *Repo) CompleteReturn(ctx context.Context, id domain.MissionID, upd missionrepo.ReturnUpdate) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return missionrepo.ErrNotFound
	}
	if m.Status != domain.MissionStatusInMission {
		return missionrepo.ErrNotActive
	}

	ret := upd.Return
	m.Return = &ret
	m.Status = domain.MissionStatusCompleted
	for _, d := range upd.Drivers {
		m.Drivers = append(m.Drivers, domain.DriverAssignment{MemberID: d, Role: domain.DriverRoleReturn})
	}
	m.Responses = append(m.Responses, upd.Responses...)
	dur := upd.TripDurationMinutes
	m.TripDurationMinutes = &dur
	if upd.TripDistance != nil {
		dist := *upd.TripDistance
		m.TripDistance = &dist
	}
	m.UpdatedAt = upd.UpdatedAt

	r.byID[id] = cloneMission(m)
	return nil
}

func (r *Repo) ForceComplete(ctx context.Context, id domain.MissionID, updatedAt time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return missionrepo.ErrNotFound
	}
	if m.Status != domain.MissionStatusInMission {
		return missionrepo.ErrNotActive
	}
	m.Status = domain.MissionStatusCompletedNoReturn
	m.UpdatedAt = updatedAt
	r.byID[id] = m
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.MissionID) (missionrepo.Mission, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return missionrepo.Mission{}, missionrepo.ErrNotFound
	}
	return cloneMission(m), nil
}

func (r *Repo) GetActiveByVehicle(ctx context.Context, vehicleID domain.VehicleID) (missionrepo.Mission, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.byID {
		if m.VehicleID == vehicleID && m.Status == domain.MissionStatusInMission {
			return cloneMission(m), nil
		}
	}
	return missionrepo.Mission{}, missionrepo.ErrNotFound
}

func (r *Repo) ListByVehicle(ctx context.Context, vehicleID domain.VehicleID) ([]missionrepo.Mission, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]missionrepo.Mission, 0)
	for _, m := range r.byID {
		if m.VehicleID == vehicleID {
			out = append(out, cloneMission(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].Departure.At, out[j].Departure.At
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func cloneMission(m missionrepo.Mission) missionrepo.Mission {
	cp := m
	if m.TrailerID != nil {
		v := *m.TrailerID
		cp.TrailerID = &v
	}
	cp.Departure = cloneDeparture(m.Departure)
	if m.Return != nil {
		ret := cloneReturn(*m.Return)
		cp.Return = &ret
	}
	if m.Drivers != nil {
		cp.Drivers = append([]domain.DriverAssignment(nil), m.Drivers...)
	}
	if m.Responses != nil {
		cp.Responses = append([]domain.ChecklistResponse(nil), m.Responses...)
	}
	cp.TripDurationMinutes = cloneIntPtr(m.TripDurationMinutes)
	cp.TripDistance = cloneIntPtr(m.TripDistance)
	return cp
}

func cloneDeparture(d domain.MissionDeparture) domain.MissionDeparture {
	cp := d
	cp.Odometer = cloneIntPtr(d.Odometer)
	cp.Fuel = cloneFuelPtr(d.Fuel)
	cp.ServiceType = cloneStringPtr(d.ServiceType)
	cp.Destination = cloneStringPtr(d.Destination)
	cp.AuthorizedBy = cloneStringPtr(d.AuthorizedBy)
	cp.Notes = cloneStringPtr(d.Notes)
	cp.AnomalyNotes = cloneStringPtr(d.AnomalyNotes)
	return cp
}

func cloneReturn(r domain.MissionReturn) domain.MissionReturn {
	cp := r
	cp.Odometer = cloneIntPtr(r.Odometer)
	cp.Fuel = cloneFuelPtr(r.Fuel)
	cp.Notes = cloneStringPtr(r.Notes)
	cp.AnomalyNotes = cloneStringPtr(r.AnomalyNotes)
	cp.TrafficViolationNotes = cloneStringPtr(r.TrafficViolationNotes)
	return cp
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneIntPtr(p *int) *int {
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
