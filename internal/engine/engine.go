// Package engine holds the board's mutation rules.  Every operation takes a
// model.RootState and returns an Outcome carrying the next state; the input
// state is never written.  Callers serialize operations themselves (see the
// service package) and decide what to do with alarms and archived records.
package engine

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/clinic-treatment-board/internal/model"
)

// Rejections for requests that name a valid target but would break an
// invariant.  They come back in Outcome.Reason with Changed=false.
var (
	ErrNotDirectorEligible = errors.New("treatment kind cannot enter the director queue")
	ErrAlreadyQueued       = errors.New("treatment is already in the director queue")
	ErrDuplicateTreatment  = errors.New("bay already has a treatment of this kind")
	ErrUnknownTreatment    = errors.New("unknown treatment kind")
	ErrUnknownWaitingType  = errors.New("unknown waiting entry type")
	ErrInvalidStatus       = errors.New("invalid treatment status")
	ErrEmptyName           = errors.New("name is required")
)

// Alarm is raised when a countdown reaches zero.  BayID is 0 for treatments
// carried by a waiting entry; WaitingID is set instead.
type Alarm struct {
	BayID         int                 `json:"bayId"`
	WaitingID     string              `json:"waitingId,omitempty"`
	TreatmentID   string              `json:"treatmentId"`
	TreatmentType model.TreatmentType `json:"treatmentType"`
	PatientName   string              `json:"patientName"`
	At            time.Time           `json:"at"`
}

// Outcome is the result of one mutation.
type Outcome struct {
	State    model.RootState
	Changed  bool
	Alarms   []Alarm
	Archived *model.HistoryRecord
	Reason   error
}

// Engine carries the two impure inputs mutations need.  The zero value is not
// usable; construct with New.
type Engine struct {
	NewID func() string
	Now   func() time.Time
}

// New returns an Engine backed by random UUIDs and the wall clock.
func New() *Engine {
	return &Engine{NewID: uuid.NewString, Now: time.Now}
}

func unchanged(s model.RootState) Outcome { return Outcome{State: s} }

func rejected(s model.RootState, reason error) Outcome {
	return Outcome{State: s, Reason: reason}
}

func changed(s model.RootState) Outcome { return Outcome{State: s, Changed: true} }

// defaultSet builds one WAITING item per default kind.
func (e *Engine) defaultSet() []model.TreatmentItem {
	items := make([]model.TreatmentItem, 0, len(model.DefaultTreatments))
	for _, t := range model.DefaultTreatments {
		items = append(items, model.NewTreatmentItem(e.NewID(), t, model.DefaultDuration(t)))
	}
	return items
}

// withoutTasks drops director tasks for which drop returns true.
func withoutTasks(tasks []model.DirectorTask, drop func(model.DirectorTask) bool) []model.DirectorTask {
	out := make([]model.DirectorTask, 0, len(tasks))
	for _, t := range tasks {
		if !drop(t) {
			out = append(out, t)
		}
	}
	return out
}

func withoutTreatmentTasks(tasks []model.DirectorTask, treatmentID string) []model.DirectorTask {
	return withoutTasks(tasks, func(t model.DirectorTask) bool { return t.TreatmentID == treatmentID })
}
