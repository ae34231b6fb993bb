package checklistrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
)

// Repo is a Postgres implementation of checklistrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Put(ctx context.Context, item domain.ChecklistItem) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	itemUUID, err := uuid.Parse(string(item.ID))
	if err != nil {
		return fmt.Errorf("invalid checklist item id: %w", err)
	}
	scopeUUID, err := uuid.Parse(string(item.VehicleID))
	if err != nil {
		return fmt.Errorf("invalid checklist scope id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO checklist_items (id, vehicle_id, phase, name, item_type, is_required, sort_order)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			phase = EXCLUDED.phase,
			name = EXCLUDED.name,
			item_type = EXCLUDED.item_type,
			is_required = EXCLUDED.is_required,
			sort_order = EXCLUDED.sort_order
	`,
		itemUUID,
		scopeUUID,
		string(item.Phase),
		item.Name,
		string(item.Type),
		item.IsRequired,
		item.SortOrder,
	)
	return err
}

func (r *Repo) ListForScope(ctx context.Context, scope domain.VehicleID, phase domain.ChecklistPhase) ([]domain.ChecklistItem, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	scopeUUID, err := uuid.Parse(string(scope))
	if err != nil {
		return []domain.ChecklistItem{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, vehicle_id, phase, name, item_type, is_required, sort_order
		FROM checklist_items
		WHERE vehicle_id = $1 AND phase = $2
		ORDER BY sort_order ASC, id ASC
	`, scopeUUID, string(phase))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChecklistItem, 0)
	for rows.Next() {
		var (
			id         uuid.UUID
			vehicleID  uuid.UUID
			phaseStr   string
			name       string
			itemType   string
			isRequired bool
			sortOrder  int
		)
		if err := rows.Scan(&id, &vehicleID, &phaseStr, &name, &itemType, &isRequired, &sortOrder); err != nil {
			return nil, err
		}
		out = append(out, domain.ChecklistItem{
			ID:         domain.ChecklistItemID(id.String()),
			VehicleID:  domain.VehicleID(vehicleID.String()),
			Phase:      domain.ChecklistPhase(phaseStr),
			Name:       name,
			Type:       domain.ChecklistItemType(itemType),
			IsRequired: isRequired,
			SortOrder:  sortOrder,
		})
	}
	return out, rows.Err()
}
