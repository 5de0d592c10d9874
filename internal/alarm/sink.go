// Package alarm delivers "play alert" cues when a countdown completes.
// Delivery is fire-and-forget: sinks log failures and never return them.
package alarm

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/clinic-treatment-board/internal/engine"
)

// Sink receives completed-countdown alarms.
type Sink interface {
	Alert(ctx context.Context, a engine.Alarm)
}

// LogSink writes each alarm to the structured log.
type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) Alert(_ context.Context, a engine.Alarm) {
	s.Log.Info("treatment finished",
		zap.Int("bay_id", a.BayID),
		zap.String("waiting_id", a.WaitingID),
		zap.String("treatment_id", a.TreatmentID),
		zap.String("type", string(a.TreatmentType)),
		zap.String("patient", a.PatientName),
	)
}

// Multi fans an alarm out to every sink in order.
type Multi []Sink

func (m Multi) Alert(ctx context.Context, a engine.Alarm) {
	for _, s := range m {
		if s != nil {
			s.Alert(ctx, a)
		}
	}
}
