package events

import (
	"context"
	"time"

	"github.com/crocebianca-ops/fleet-missions-api/internal/domain"
)

type Type string

const (
	TypeMissionCreated           Type = "MISSION_CREATED"
	TypeMissionCompleted         Type = "MISSION_COMPLETED"
	TypeAnomalyReported          Type = "ANOMALY_REPORTED"
	TypeTrafficViolationReported Type = "TRAFFIC_VIOLATION_REPORTED"
)

// Event is an outbound notification published after a successful mission
// transition. Consumers (email/Telegram dispatch) live outside this core.
type Event struct {
	Type      Type                   `json:"type"`
	MissionID domain.MissionID       `json:"missionId"`
	VehicleID domain.VehicleID       `json:"vehicleId"`
	Phase     *domain.ChecklistPhase `json:"phase,omitempty"`
	Notes     string                 `json:"notes,omitempty"`

	// RecordedBy is the operator whose action produced the event.
	RecordedBy domain.SubjectID `json:"recordedBy,omitempty"`

	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher is a fire-and-forget event sink. Implementations must not block
// the caller on a slow or failing channel; delivery is best-effort and a
// failed publish must never fail the mission transition that produced it.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}
