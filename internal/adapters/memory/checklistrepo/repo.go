package checklistrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
)

// Repo is an in-memory implementation of checklistrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.ChecklistItemID]domain.ChecklistItem
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.ChecklistItemID]domain.ChecklistItem)}
}

func (r *Repo) Put(ctx context.Context, item domain.ChecklistItem) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[item.ID] = item
	return nil
}

func (r *Repo) ListForScope(ctx context.Context, scope domain.VehicleID, phase domain.ChecklistPhase) ([]domain.ChecklistItem, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ChecklistItem, 0)
	for _, item := range r.byID {
		if item.VehicleID == scope && item.Phase == phase {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
