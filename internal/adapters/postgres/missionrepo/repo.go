package missionrepo

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
	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/missionrepo"
)

// Repo is a Postgres implementation of missionrepo.Repository.
//
// Exclusivity is enforced by the partial unique indexes
// missions_active_vehicle_unique / missions_active_trailer_unique: the insert
// and the availability check are the same atomic statement, so two racing
// departures cannot both commit.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) CreateDeparture(ctx context.Context, m missionrepo.Mission) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	missionUUID, err := uuid.Parse(string(m.ID))
	if err != nil {
		return fmt.Errorf("invalid mission id: %w", err)
	}
	vehicleUUID, err := uuid.Parse(string(m.VehicleID))
	if err != nil {
		return fmt.Errorf("invalid vehicle id: %w", err)
	}
	var trailerUUID *uuid.UUID
	if m.TrailerID != nil {
		u, err := uuid.Parse(string(*m.TrailerID))
		if err != nil {
			return fmt.Errorf("invalid trailer id: %w", err)
		}
		trailerUUID = &u
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		d := m.Departure
		_, err := tx.Exec(ctx, `
			INSERT INTO missions (
				id, vehicle_id, trailer_id, status,
				departure_at, departure_odometer, departure_fuel,
				service_type, destination, authorized_by, departure_notes,
				departure_anomaly, departure_anomaly_notes,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		`,
			missionUUID,
			vehicleUUID,
			trailerUUID,
			string(m.Status),
			d.At.UTC(),
			d.Odometer,
			fuelForDB(d.Fuel),
			d.ServiceType,
			d.Destination,
			d.AuthorizedBy,
			d.Notes,
			d.AnomalyFlag,
			d.AnomalyNotes,
			m.CreatedAt.UTC(),
			m.UpdatedAt.UTC(),
		)
		if err != nil {
			if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
				switch pe.ConstraintName {
				case "missions_active_vehicle_unique":
					return missionrepo.ErrVehicleActive
				case "missions_active_trailer_unique":
					return missionrepo.ErrTrailerActive
				default:
					return missionrepo.ErrAlreadyExists
				}
			}
			return err
		}

		if err := insertDrivers(ctx, tx, missionUUID, m.Drivers); err != nil {
			return err
		}
		return insertResponses(ctx, tx, missionUUID, m.Responses, 0)
	})
}

func (r *Repo) CompleteReturn(ctx context.Context, id domain.MissionID, upd missionrepo.ReturnUpdate) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	missionUUID, err := uuid.Parse(string(id))
	if err != nil {
		return missionrepo.ErrNotFound
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		ret := upd.Return
		// Guarded update: the status predicate re-checks the IN_MISSION
		// precondition at commit time.
		tag, err := tx.Exec(ctx, `
			UPDATE missions
			SET status = $2,
			    return_at = $3,
			    return_odometer = $4,
			    return_fuel = $5,
			    return_notes = $6,
			    return_anomaly = $7,
			    return_anomaly_notes = $8,
			    traffic_violation = $9,
			    traffic_violation_notes = $10,
			    trip_duration_minutes = $11,
			    trip_distance = $12,
			    updated_at = $13
			WHERE id = $1 AND status = 'IN_MISSION'
		`,
			missionUUID,
			string(domain.MissionStatusCompleted),
			ret.At.UTC(),
			ret.Odometer,
			fuelForDB(ret.Fuel),
			ret.Notes,
			ret.AnomalyFlag,
			ret.AnomalyNotes,
			ret.TrafficViolationFlag,
			ret.TrafficViolationNotes,
			upd.TripDurationMinutes,
			upd.TripDistance,
			upd.UpdatedAt.UTC(),
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return notFoundOrNotActive(ctx, tx, missionUUID)
		}

		assignments := make([]domain.DriverAssignment, 0, len(upd.Drivers))
		for _, d := range upd.Drivers {
			assignments = append(assignments, domain.DriverAssignment{MemberID: d, Role: domain.DriverRoleReturn})
		}
		if err := insertDrivers(ctx, tx, missionUUID, assignments); err != nil {
			return err
		}

		var seqBase int
		if err := tx.QueryRow(ctx, `
			SELECT count(*) FROM mission_checklist_responses WHERE mission_id = $1
		`, missionUUID).Scan(&seqBase); err != nil {
			return err
		}
		return insertResponses(ctx, tx, missionUUID, upd.Responses, seqBase)
	})
}

func (r *Repo) ForceComplete(ctx context.Context, id domain.MissionID, updatedAt time.Time) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	missionUUID, err := uuid.Parse(string(id))
	if err != nil {
		return missionrepo.ErrNotFound
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE missions
			SET status = $2, updated_at = $3
			WHERE id = $1 AND status = 'IN_MISSION'
		`, missionUUID, string(domain.MissionStatusCompletedNoReturn), updatedAt.UTC())
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return notFoundOrNotActive(ctx, tx, missionUUID)
		}
		return nil
	})
}

func (r *Repo) GetByID(ctx context.Context, id domain.MissionID) (missionrepo.Mission, error) {
	if r.pool == nil {
		return missionrepo.Mission{}, errors.New("nil postgres pool")
	}
	missionUUID, err := uuid.Parse(string(id))
	if err != nil {
		return missionrepo.Mission{}, missionrepo.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, missionSelect+` WHERE id = $1`, missionUUID)
	m, err := scanMission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return missionrepo.Mission{}, missionrepo.ErrNotFound
		}
		return missionrepo.Mission{}, err
	}
	if err := r.attachRelations(ctx, &m, missionUUID); err != nil {
		return missionrepo.Mission{}, err
	}
	return m, nil
}

func (r *Repo) GetActiveByVehicle(ctx context.Context, vehicleID domain.VehicleID) (missionrepo.Mission, error) {
	if r.pool == nil {
		return missionrepo.Mission{}, errors.New("nil postgres pool")
	}
	vehicleUUID, err := uuid.Parse(string(vehicleID))
	if err != nil {
		return missionrepo.Mission{}, missionrepo.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, missionSelect+` WHERE vehicle_id = $1 AND status = 'IN_MISSION'`, vehicleUUID)
	m, err := scanMission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return missionrepo.Mission{}, missionrepo.ErrNotFound
		}
		return missionrepo.Mission{}, err
	}
	missionUUID, _ := uuid.Parse(string(m.ID))
	if err := r.attachRelations(ctx, &m, missionUUID); err != nil {
		return missionrepo.Mission{}, err
	}
	return m, nil
}

func (r *Repo) ListByVehicle(ctx context.Context, vehicleID domain.VehicleID) ([]missionrepo.Mission, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	vehicleUUID, err := uuid.Parse(string(vehicleID))
	if err != nil {
		return []missionrepo.Mission{}, nil
	}

	rows, err := r.pool.Query(ctx, missionSelect+`
		WHERE vehicle_id = $1
		ORDER BY departure_at DESC, id DESC
	`, vehicleUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]missionrepo.Mission, 0)
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		missionUUID, err := uuid.Parse(string(out[i].ID))
		if err != nil {
			continue
		}
		if err := r.attachRelations(ctx, &out[i], missionUUID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// --- helpers ---

const missionSelect = `
	SELECT id, vehicle_id, trailer_id, status,
	       departure_at, departure_odometer, departure_fuel,
	       service_type, destination, authorized_by, departure_notes,
	       departure_anomaly, departure_anomaly_notes,
	       return_at, return_odometer, return_fuel, return_notes,
	       return_anomaly, return_anomaly_notes,
	       traffic_violation, traffic_violation_notes,
	       trip_duration_minutes, trip_distance,
	       created_at, updated_at
	FROM missions`

func scanMission(row pgx.Row) (missionrepo.Mission, error) {
	var (
		id        uuid.UUID
		vehicleID uuid.UUID
		trailerID *uuid.UUID
		status    string

		departureAt      time.Time
		depOdometer      *int
		depFuel          *string
		serviceType      *string
		destination      *string
		authorizedBy     *string
		depNotes         *string
		depAnomaly       bool
		depAnomalyNotes  *string
		returnAt         *time.Time
		retOdometer      *int
		retFuel          *string
		retNotes         *string
		retAnomaly       *bool
		retAnomalyNotes  *string
		trafficViolation *bool
		violationNotes   *string
		durationMinutes  *int
		distance         *int
		createdAt        time.Time
		updatedAt        time.Time
	)
	if err := row.Scan(
		&id, &vehicleID, &trailerID, &status,
		&departureAt, &depOdometer, &depFuel,
		&serviceType, &destination, &authorizedBy, &depNotes,
		&depAnomaly, &depAnomalyNotes,
		&returnAt, &retOdometer, &retFuel, &retNotes,
		&retAnomaly, &retAnomalyNotes,
		&trafficViolation, &violationNotes,
		&durationMinutes, &distance,
		&createdAt, &updatedAt,
	); err != nil {
		return missionrepo.Mission{}, err
	}

	m := missionrepo.Mission{
		ID:        domain.MissionID(id.String()),
		VehicleID: domain.VehicleID(vehicleID.String()),
		Status:    domain.MissionStatus(status),
		Departure: domain.MissionDeparture{
			At:           departureAt.UTC(),
			Odometer:     depOdometer,
			Fuel:         fuelFromDB(depFuel),
			ServiceType:  serviceType,
			Destination:  destination,
			AuthorizedBy: authorizedBy,
			Notes:        depNotes,
			AnomalyFlag:  depAnomaly,
			AnomalyNotes: depAnomalyNotes,
		},
		TripDurationMinutes: durationMinutes,
		TripDistance:        distance,
		CreatedAt:           createdAt.UTC(),
		UpdatedAt:           updatedAt.UTC(),
	}
	if trailerID != nil {
		tid := domain.VehicleID(trailerID.String())
		m.TrailerID = &tid
	}
	if returnAt != nil {
		m.Return = &domain.MissionReturn{
			At:                    returnAt.UTC(),
			Odometer:              retOdometer,
			Fuel:                  fuelFromDB(retFuel),
			Notes:                 retNotes,
			AnomalyFlag:           retAnomaly != nil && *retAnomaly,
			AnomalyNotes:          retAnomalyNotes,
			TrafficViolationFlag:  trafficViolation != nil && *trafficViolation,
			TrafficViolationNotes: violationNotes,
		}
	}
	return m, nil
}

func (r *Repo) attachRelations(ctx context.Context, m *missionrepo.Mission, missionUUID uuid.UUID) error {
	drivers, err := loadDrivers(ctx, r.pool, missionUUID)
	if err != nil {
		return err
	}
	m.Drivers = drivers

	responses, err := loadResponses(ctx, r.pool, missionUUID)
	if err != nil {
		return err
	}
	m.Responses = responses
	return nil
}

func insertDrivers(ctx context.Context, tx pgx.Tx, missionUUID uuid.UUID, drivers []domain.DriverAssignment) error {
	for _, d := range drivers {
		memberUUID, err := uuid.Parse(string(d.MemberID))
		if err != nil {
			return fmt.Errorf("invalid driver member id: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO mission_drivers (mission_id, member_id, driver_type)
			VALUES ($1,$2,$3)
			ON CONFLICT DO NOTHING
		`, missionUUID, memberUUID, string(d.Role))
		if err != nil {
			return err
		}
	}
	return nil
}

func insertResponses(ctx context.Context, tx pgx.Tx, missionUUID uuid.UUID, responses []domain.ChecklistResponse, seqBase int) error {
	for i, resp := range responses {
		itemUUID, err := uuid.Parse(string(resp.ItemID))
		if err != nil {
			return fmt.Errorf("invalid checklist item id: %w", err)
		}
		var (
			valueBool    *int16
			valueNumeric *float64
			valueText    *string
		)
		switch resp.Value.Type {
		case domain.ChecklistItemTypeBoolean:
			v := int16(0)
			if resp.Value.Bool {
				v = 1
			}
			valueBool = &v
		case domain.ChecklistItemTypeNumeric:
			v := resp.Value.Number
			valueNumeric = &v
		default:
			v := resp.Value.Text
			valueText = &v
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO mission_checklist_responses (mission_id, item_id, value_boolean, value_numeric, value_text, seq)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, missionUUID, itemUUID, valueBool, valueNumeric, valueText, seqBase+i)
		if err != nil {
			return err
		}
	}
	return nil
}

func loadDrivers(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, missionUUID uuid.UUID) ([]domain.DriverAssignment, error) {
	rows, err := q.Query(ctx, `
		SELECT member_id, driver_type
		FROM mission_drivers
		WHERE mission_id = $1
		ORDER BY driver_type ASC, member_id ASC
	`, missionUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.DriverAssignment, 0)
	for rows.Next() {
		var memberID uuid.UUID
		var role string
		if err := rows.Scan(&memberID, &role); err != nil {
			return nil, err
		}
		out = append(out, domain.DriverAssignment{
			MemberID: domain.MemberID(memberID.String()),
			Role:     domain.DriverRole(role),
		})
	}
	return out, rows.Err()
}

func loadResponses(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, missionUUID uuid.UUID) ([]domain.ChecklistResponse, error) {
	rows, err := q.Query(ctx, `
		SELECT r.item_id, i.item_type, r.value_boolean, r.value_numeric, r.value_text
		FROM mission_checklist_responses r
		JOIN checklist_items i ON i.id = r.item_id
		WHERE r.mission_id = $1
		ORDER BY r.seq ASC, r.item_id ASC
	`, missionUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChecklistResponse, 0)
	for rows.Next() {
		var (
			itemID       uuid.UUID
			itemType     string
			valueBool    *int16
			valueNumeric *float64
			valueText    *string
		)
		if err := rows.Scan(&itemID, &itemType, &valueBool, &valueNumeric, &valueText); err != nil {
			return nil, err
		}
		var value domain.ChecklistValue
		switch domain.ChecklistItemType(itemType) {
		case domain.ChecklistItemTypeBoolean:
			value = domain.BoolValue(valueBool != nil && *valueBool != 0)
		case domain.ChecklistItemTypeNumeric:
			var n float64
			if valueNumeric != nil {
				n = *valueNumeric
			}
			value = domain.NumberValue(n)
		default:
			var s string
			if valueText != nil {
				s = *valueText
			}
			value = domain.TextValue(s)
		}
		out = append(out, domain.ChecklistResponse{
			ItemID: domain.ChecklistItemID(itemID.String()),
			Value:  value,
		})
	}
	return out, rows.Err()
}

func notFoundOrNotActive(ctx context.Context, tx pgx.Tx, missionUUID uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM missions WHERE id = $1)
	`, missionUUID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return missionrepo.ErrNotFound
	}
	return missionrepo.ErrNotActive
}

func fuelForDB(f *domain.FuelLevel) *string {
	if f == nil {
		return nil
	}
	v := string(*f)
	return &v
}

func fuelFromDB(s *string) *domain.FuelLevel {
	if s == nil {
		return nil
	}
	v := domain.FuelLevel(*s)
	return &v
}
