package engine

import "github.com/iliyamo/clinic-treatment-board/internal/model"

// Action says what a status request does to an item.  Skipping a kind that
// is not part of the default set removes the item instead of marking it.
type Action int

const (
	// ActionSet changes the status and keeps the timer.
	ActionSet Action = iota
	// ActionReset changes the status and rewinds the timer.
	ActionReset
	// ActionRemove deletes the item from its bay.
	ActionRemove
)

// Transition is the decision for one status request.
type Transition struct {
	Status model.TreatmentStatus
	Action Action
}

// Decide resolves a request against the item's current status.  Repeating
// DONE or SKIPPED undoes it back to WAITING.
func Decide(it model.TreatmentItem, requested model.TreatmentStatus) Transition {
	final := requested
	if it.Status == model.StatusDone && requested == model.StatusDone {
		final = model.StatusWaiting
	}
	if it.Status == model.StatusSkipped && requested == model.StatusSkipped {
		final = model.StatusWaiting
	}
	switch final {
	case model.StatusRunning:
		return Transition{Status: final, Action: ActionSet}
	case model.StatusSkipped:
		if !it.Type.IsDefault() {
			return Transition{Status: final, Action: ActionRemove}
		}
	}
	return Transition{Status: final, Action: ActionReset}
}

func (tr Transition) apply(it *model.TreatmentItem) {
	it.Status = tr.Status
	it.IsFinished = false
	if tr.Action == ActionReset {
		it.RemainingTime = it.TotalTime
		it.ElapsedTime = 0
	}
}

// SetTreatmentStatus applies a status request to a bay item.  Starting an
// item or removing it frees its director queue slot.
func (e *Engine) SetTreatmentStatus(s model.RootState, bayID int, treatmentID string, requested model.TreatmentStatus) Outcome {
	if !requested.Valid() {
		return rejected(s, ErrInvalidStatus)
	}
	i := s.BayIndex(bayID)
	if i < 0 {
		return unchanged(s)
	}
	j := s.Bays[i].TreatmentIndex(treatmentID)
	if j < 0 {
		return unchanged(s)
	}

	next := s.Clone()
	bay := &next.Bays[i]
	tr := Decide(bay.Treatments[j], requested)
	if tr.Action == ActionRemove {
		bay.Treatments = append(bay.Treatments[:j], bay.Treatments[j+1:]...)
	} else {
		tr.apply(&bay.Treatments[j])
	}
	if tr.Action == ActionRemove || tr.Status == model.StatusRunning {
		next.DirectorQueue = withoutTreatmentTasks(next.DirectorQueue, treatmentID)
	}
	return changed(next)
}

// SetWaitingTreatmentStatus applies a status request to the treatment a
// waiting entry carries.  Only DONE repeats toggle back, and SKIPPED never
// removes the entry's item.
func (e *Engine) SetWaitingTreatmentStatus(s model.RootState, entryID string, requested model.TreatmentStatus) Outcome {
	if !requested.Valid() {
		return rejected(s, ErrInvalidStatus)
	}
	w := s.WaitingIndex(entryID)
	if w < 0 || s.WaitingList[w].CarriedTreatment == nil {
		return unchanged(s)
	}
	next := s.Clone()
	it := next.WaitingList[w].CarriedTreatment
	final := requested
	if it.Status == model.StatusDone && requested == model.StatusDone {
		final = model.StatusWaiting
	}
	it.Status = final
	it.IsFinished = false
	if final == model.StatusDone || final == model.StatusWaiting {
		it.RemainingTime = it.TotalTime
		it.ElapsedTime = 0
	}
	return changed(next)
}
