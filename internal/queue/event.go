// Package queue defines message payloads exchanged over the message broker
// and the background consumer for them.
package queue

import (
	"time"

	"github.com/iliyamo/clinic-treatment-board/internal/model"
)

// DischargeQueueName is the durable queue discharge events are routed to.
const DischargeQueueName = "bay.discharged"

// DischargeCompletedEvent is published after a bay session is archived.  It
// carries enough of the record for downstream consumers to log or report
// without reading the board state.
type DischargeCompletedEvent struct {
	HistoryID   string   `json:"history_id"`
	BayID       int      `json:"bay_id"`
	PatientName string   `json:"patient_name"`
	BodyArea    string   `json:"body_area"`
	Treatments  []string `json:"treatments"`
	Completed   int      `json:"completed_count"`
	CompletedAt string   `json:"completed_at"`
}

// NewDischargeCompletedEvent summarizes rec for the broker.
func NewDischargeCompletedEvent(bayID int, rec model.HistoryRecord) DischargeCompletedEvent {
	ev := DischargeCompletedEvent{
		HistoryID:   rec.ID,
		BayID:       bayID,
		PatientName: rec.PatientName,
		BodyArea:    rec.BodyArea,
		Treatments:  make([]string, 0, len(rec.Treatments)),
		CompletedAt: rec.CompletedAt.UTC().Format(time.RFC3339),
	}
	for _, t := range rec.Treatments {
		ev.Treatments = append(ev.Treatments, string(t.Type)+":"+string(t.Status))
		if t.Status == model.StatusDone {
			ev.Completed++
		}
	}
	return ev
}
