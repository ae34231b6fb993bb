package domain

import "fmt"

type ChecklistPhase string

const (
	ChecklistPhaseDeparture ChecklistPhase = "DEPARTURE"
	ChecklistPhaseReturn    ChecklistPhase = "RETURN"
)

type ChecklistItemType string

const (
	ChecklistItemTypeBoolean ChecklistItemType = "BOOLEAN"
	ChecklistItemTypeNumeric ChecklistItemType = "NUMERIC"
	ChecklistItemTypeText    ChecklistItemType = "TEXT"
)

// ChecklistItem is reference data: one inspection point scoped to a vehicle
// (or trailer) and a phase.
type ChecklistItem struct {
	ID ChecklistItemID
	// VehicleID is the vehicle or trailer the item belongs to.
	VehicleID  VehicleID
	Phase      ChecklistPhase
	Name       string
	Type       ChecklistItemType
	IsRequired bool
	// SortOrder gives a stable display/validation order within a scope.
	SortOrder int
}

// ChecklistValue is a tagged union: exactly one of the value fields is
// populated, selected by the owning item's declared type rather than by the
// submitter.
type ChecklistValue struct {
	Type ChecklistItemType

	Bool   bool
	Number float64
	Text   string
}

func BoolValue(v bool) ChecklistValue {
	return ChecklistValue{Type: ChecklistItemTypeBoolean, Bool: v}
}

func NumberValue(v float64) ChecklistValue {
	return ChecklistValue{Type: ChecklistItemTypeNumeric, Number: v}
}

func TextValue(v string) ChecklistValue {
	return ChecklistValue{Type: ChecklistItemTypeText, Text: v}
}

func (v ChecklistValue) String() string {
	switch v.Type {
	case ChecklistItemTypeBoolean:
		if v.Bool {
			return "1"
		}
		return "0"
	case ChecklistItemTypeNumeric:
		return fmt.Sprintf("%g", v.Number)
	default:
		return v.Text
	}
}

// ChecklistResponse is one recorded value for a (mission, item) pair.
type ChecklistResponse struct {
	ItemID ChecklistItemID
	Value  ChecklistValue
}
