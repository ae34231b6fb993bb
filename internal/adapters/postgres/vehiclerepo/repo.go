package vehiclerepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/crocebianca-ops/fleet-missions-api/internal/adapters/postgres"
	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/vehiclerepo"
)

// Repo is a Postgres implementation of vehiclerepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, v vehiclerepo.Vehicle) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	vehicleUUID, err := uuid.Parse(string(v.ID))
	if err != nil {
		return fmt.Errorf("invalid vehicle id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO vehicles (
			id, plate_or_serial, name, vehicle_type, status,
			required_license_class, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		vehicleUUID,
		v.PlateOrSerial,
		v.Name,
		string(v.Type),
		string(v.Status),
		licenseClassForDB(v.RequiredLicenseClass),
		v.CreatedAt.UTC(),
		v.UpdatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return vehiclerepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.VehicleID) (vehiclerepo.Vehicle, error) {
	if r.pool == nil {
		return vehiclerepo.Vehicle{}, errors.New("nil postgres pool")
	}
	vehicleUUID, err := uuid.Parse(string(id))
	if err != nil {
		return vehiclerepo.Vehicle{}, vehiclerepo.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, `
		SELECT id, plate_or_serial, name, vehicle_type, status,
		       required_license_class, created_at, updated_at
		FROM vehicles
		WHERE id = $1
	`, vehicleUUID)
	v, err := scanVehicle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return vehiclerepo.Vehicle{}, vehiclerepo.ErrNotFound
		}
		return vehiclerepo.Vehicle{}, err
	}
	return v, nil
}

func (r *Repo) List(ctx context.Context, includeDecommissioned bool) ([]vehiclerepo.Vehicle, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, plate_or_serial, name, vehicle_type, status,
		       required_license_class, created_at, updated_at
		FROM vehicles
		WHERE $1 OR status <> 'DECOMMISSIONED'
		ORDER BY lower(name) ASC, id ASC
	`, includeDecommissioned)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]vehiclerepo.Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanVehicle(row pgx.Row) (vehiclerepo.Vehicle, error) {
	var (
		id        uuid.UUID
		plate     string
		name      string
		vtype     string
		status    string
		class     *string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&id, &plate, &name, &vtype, &status, &class, &createdAt, &updatedAt); err != nil {
		return vehiclerepo.Vehicle{}, err
	}
	return vehiclerepo.Vehicle{
		ID:                   domain.VehicleID(id.String()),
		PlateOrSerial:        plate,
		Name:                 name,
		Type:                 domain.VehicleType(vtype),
		Status:               domain.VehicleStatus(status),
		RequiredLicenseClass: licenseClassFromDB(class),
		CreatedAt:            createdAt.UTC(),
		UpdatedAt:            updatedAt.UTC(),
	}, nil
}

func licenseClassForDB(c *domain.LicenseClass) *string {
	if c == nil {
		return nil
	}
	v := string(*c)
	return &v
}

func licenseClassFromDB(c *string) *domain.LicenseClass {
	if c == nil {
		return nil
	}
	v := domain.LicenseClass(*c)
	return &v
}
