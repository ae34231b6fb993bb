package vehiclerepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/vehiclerepo"
)

// Repo is an in-memory implementation of vehiclerepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.VehicleID]vehiclerepo.Vehicle
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.VehicleID]vehiclerepo.Vehicle)}
}

func (r *Repo) Create(ctx context.Context, v vehiclerepo.Vehicle) error {
	_ = ctx
	if v.ID == "" {
		return vehiclerepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[v.ID]; ok {
		return vehiclerepo.ErrAlreadyExists
	}
	r.byID[v.ID] = cloneVehicle(v)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.VehicleID) (vehiclerepo.Vehicle, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byID[id]
	if !ok {
		return vehiclerepo.Vehicle{}, vehiclerepo.ErrNotFound
	}
	return cloneVehicle(v), nil
}

func (r *Repo) List(ctx context.Context, includeDecommissioned bool) ([]vehiclerepo.Vehicle, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]vehiclerepo.Vehicle, 0)
	for _, v := range r.byID {
		if !includeDecommissioned && v.Status == domain.VehicleStatusDecommissioned {
			continue
		}
		out = append(out, cloneVehicle(v))
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func cloneVehicle(v vehiclerepo.Vehicle) vehiclerepo.Vehicle {
	cp := v
	if v.RequiredLicenseClass != nil {
		c := *v.RequiredLicenseClass
		cp.RequiredLicenseClass = &c
	}
	return cp
}
