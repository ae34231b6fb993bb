package drivers

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/memberrepo"
)

// Checker validates that proposed drivers are active members holding every
// license class the vehicle (and attached trailer) requires. It is pure
// validation with no side effects; ineligibility is reported in the Result,
// never as an error, so the caller decides whether to block the transition.
type Checker struct {
	members memberrepo.Repository
}

func NewChecker(membersRepo memberrepo.Repository) *Checker {
	return &Checker{members: membersRepo}
}

// Result carries per-member detail so callers can produce an actionable
// rejection rather than a bare one.
type Result struct {
	// Missing maps each ineligible member to the license classes they lack,
	// sorted for deterministic output.
	Missing map[domain.MemberID][]domain.LicenseClass

	Unknown  []domain.MemberID
	Inactive []domain.MemberID
}

func (r Result) OK() bool {
	return len(r.Missing) == 0 && len(r.Unknown) == 0 && len(r.Inactive) == 0
}

// RequiredClasses is the union of the vehicle's and the attached trailer's
// required license classes. Empty means any active member qualifies.
func RequiredClasses(vehicle domain.Vehicle, trailer *domain.Vehicle) []domain.LicenseClass {
	var out []domain.LicenseClass
	if vehicle.RequiredLicenseClass != nil {
		out = append(out, *vehicle.RequiredLicenseClass)
	}
	if trailer != nil && trailer.RequiredLicenseClass != nil && (len(out) == 0 || out[0] != *trailer.RequiredLicenseClass) {
		out = append(out, *trailer.RequiredLicenseClass)
	}
	return out
}

// ValidateDrivers checks each candidate against the requirement set derived
// from the vehicle and the optional trailer. A member satisfies the
// requirement iff their non-expired license classes on the given day are a
// superset of the required set. Only repository failures are returned as
// errors.
func (c *Checker) ValidateDrivers(ctx context.Context, memberIDs []domain.MemberID, vehicle domain.Vehicle, trailer *domain.Vehicle, day time.Time) (Result, error) {
	required := RequiredClasses(vehicle, trailer)
	res := Result{Missing: make(map[domain.MemberID][]domain.LicenseClass)}

	for _, id := range memberIDs {
		m, err := c.members.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, memberrepo.ErrNotFound) {
				res.Unknown = append(res.Unknown, id)
				continue
			}
			return Result{}, err
		}
		if !m.IsActive {
			res.Inactive = append(res.Inactive, id)
			continue
		}

		held := toDomainMember(m).ValidLicenseClasses(day)
		var missing []domain.LicenseClass
		for _, cls := range required {
			if _, ok := held[cls]; !ok {
				missing = append(missing, cls)
			}
		}
		if len(missing) > 0 {
			sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
			res.Missing[id] = missing
		}
	}
	return res, nil
}

func toDomainMember(m memberrepo.Member) domain.Member {
	return domain.Member{
		ID:                 m.ID,
		DisplayName:        m.DisplayName,
		RegistrationNumber: m.RegistrationNumber,
		IsActive:           m.IsActive,
		Licenses:           append([]domain.License(nil), m.Licenses...),
	}
}
