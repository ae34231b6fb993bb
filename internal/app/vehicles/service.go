// Package vehicles exposes the fleet registry read model. Vehicle lifecycle
// administration (status changes, onboarding) happens outside this API; the
// operator console only needs to browse the registry when preparing a
// departure.
package vehicles

import (
	"context"
	"errors"
	"net/http"

	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/vehiclerepo"
)

type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

type Service struct {
	vehicles vehiclerepo.Repository
}

func NewService(vehicles vehiclerepo.Repository) *Service {
	return &Service{vehicles: vehicles}
}

// ListVehicles returns the registry ordered by name. Decommissioned records
// are hidden unless explicitly requested.
func (s *Service) ListVehicles(ctx context.Context, includeDecommissioned bool) ([]domain.Vehicle, error) {
	vs, err := s.vehicles.List(ctx, includeDecommissioned)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Vehicle, 0, len(vs))
	for _, v := range vs {
		out = append(out, toDomain(v))
	}
	return out, nil
}

func (s *Service) GetVehicle(ctx context.Context, id domain.VehicleID) (domain.Vehicle, error) {
	v, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, vehiclerepo.ErrNotFound) {
			return domain.Vehicle{}, &Error{
				Status:  http.StatusNotFound,
				Code:    "VEHICLE_NOT_FOUND",
				Message: "no vehicle exists with the given id",
			}
		}
		return domain.Vehicle{}, err
	}
	return toDomain(v), nil
}

func toDomain(v vehiclerepo.Vehicle) domain.Vehicle {
	var class *domain.LicenseClass
	if v.RequiredLicenseClass != nil {
		c := *v.RequiredLicenseClass
		class = &c
	}
	return domain.Vehicle{
		ID:                   v.ID,
		PlateOrSerial:        v.PlateOrSerial,
		Name:                 v.Name,
		Type:                 v.Type,
		Status:               v.Status,
		RequiredLicenseClass: class,
	}
}
