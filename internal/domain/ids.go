package domain

// SubjectID is the authenticated operator identity established at the HTTP
// boundary. We model it as an opaque identifier: its format is controlled by
// the surrounding application's auth layer.
type SubjectID string

// MemberID is an internal identifier for an association member record.
type MemberID string

// VehicleID identifies a vehicle or trailer in the fleet registry.
type VehicleID string

// MissionID identifies one dispatch-and-return cycle.
type MissionID string

// ChecklistItemID identifies a checklist item (reference data).
type ChecklistItemID string
