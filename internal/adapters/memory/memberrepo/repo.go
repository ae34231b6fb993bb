package memberrepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/memberrepo"
)

// Repo is an in-memory implementation of memberrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.MemberID]memberrepo.Member
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.MemberID]memberrepo.Member)}
}

func (r *Repo) Create(ctx context.Context, m memberrepo.Member) error {
	_ = ctx
	if m.ID == "" {
		return memberrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[m.ID]; ok {
		return memberrepo.ErrAlreadyExists
	}
	r.byID[m.ID] = cloneMember(m)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.MemberID) (memberrepo.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}
	return cloneMember(m), nil
}

func (r *Repo) SearchActiveByName(ctx context.Context, query string, limit int) ([]memberrepo.Member, error) {
	_ = ctx
	tokens := strings.Fields(strings.ToLower(query))

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]memberrepo.Member, 0)
	for _, m := range r.byID {
		if !m.IsActive {
			continue
		}
		if matchesAllTokens(m, tokens) {
			out = append(out, cloneMember(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].DisplayName), strings.ToLower(out[j].DisplayName)
		if ni != nj {
			return ni < nj
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesAllTokens(m memberrepo.Member, tokens []string) bool {
	haystack := strings.ToLower(m.DisplayName + " " + m.RegistrationNumber)
	for _, tok := range tokens {
		if !strings.Contains(haystack, tok) {
			return false
		}
	}
	return true
}

func cloneMember(m memberrepo.Member) memberrepo.Member {
	cp := m
	if m.Licenses != nil {
		cp.Licenses = make([]domain.License, len(m.Licenses))
		for i, l := range m.Licenses {
			cl := l
			if l.ExpiresOn != nil {
				e := *l.ExpiresOn
				cl.ExpiresOn = &e
			}
			cp.Licenses[i] = cl
		}
	}
	return cp
}
