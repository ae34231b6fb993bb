package domain

import "time"

// LicenseClass is a driving license class ("B", "BE", "C", boat license, ...).
// Classes are opaque strings; the registry decides which class a vehicle needs.
type LicenseClass string

// License is one license class held by a member, with its expiry date.
type License struct {
	Class LicenseClass
	// ExpiresOn is the last day the license is valid (date-only semantics).
	// Nil means no recorded expiry.
	ExpiresOn *time.Time
}

// IsValidOn reports whether the license is valid on the given day.
func (l License) IsValidOn(day time.Time) bool {
	if l.ExpiresOn == nil {
		return true
	}
	d := day.UTC()
	e := l.ExpiresOn.UTC()
	return !e.Before(time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC))
}

// Member is the domain representation of an association member, restricted to
// what the mission core needs: identity and current licenses.
type Member struct {
	ID                 MemberID
	DisplayName        string
	RegistrationNumber string
	IsActive           bool

	Licenses []License
}

// ValidLicenseClasses returns the set of license classes valid on the given
// day. The returned map is never nil.
func (m Member) ValidLicenseClasses(day time.Time) map[LicenseClass]struct{} {
	out := make(map[LicenseClass]struct{}, len(m.Licenses))
	for _, l := range m.Licenses {
		if l.IsValidOn(day) {
			out[l.Class] = struct{}{}
		}
	}
	return out
}
