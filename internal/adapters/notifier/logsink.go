package notifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/events"
)

// LogSink writes events to the process log. Used when no broker is
// configured so transitions still leave an observable trail.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Publish(_ context.Context, ev events.Event) {
	s.log.Info("mission event",
		zap.String("type", string(ev.Type)),
		zap.String("missionId", string(ev.MissionID)),
		zap.String("vehicleId", string(ev.VehicleID)),
		zap.String("recordedBy", string(ev.RecordedBy)),
		zap.Time("occurredAt", ev.OccurredAt),
	)
}
