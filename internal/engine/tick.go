package engine

import "github.com/iliyamo/clinic-treatment-board/internal/model"

// advance moves one RUNNING item forward by a second and reports whether its
// countdown reached zero on this step.  An item started with nothing left
// settles to DONE silently; only a countdown that runs out raises an alarm.
func advance(it *model.TreatmentItem) bool {
	if it.Status != model.StatusRunning {
		return false
	}
	if it.Type.Accumulates() {
		it.ElapsedTime++
		return false
	}
	if it.RemainingTime <= 0 {
		it.RemainingTime = 0
		it.Status = model.StatusDone
		it.IsFinished = true
		return false
	}
	it.RemainingTime--
	if it.RemainingTime > 0 {
		return false
	}
	it.Status = model.StatusDone
	it.IsFinished = true
	return true
}

// Tick advances every running item in bays and waiting entries by one
// second.  An item reaching zero completes, raises an alarm, and flags its
// bay.  When nothing was running the input state is returned unchanged so
// callers can skip persisting and pushing.
func (e *Engine) Tick(s model.RootState) Outcome {
	if !anyRunning(s) {
		return unchanged(s)
	}
	next := s.Clone()
	out := Outcome{Changed: true}
	now := e.Now().UTC()

	for i := range next.Bays {
		bay := &next.Bays[i]
		for j := range bay.Treatments {
			it := &bay.Treatments[j]
			if advance(it) {
				bay.IsAlarming = true
				out.Alarms = append(out.Alarms, Alarm{
					BayID:         bay.ID,
					TreatmentID:   it.ID,
					TreatmentType: it.Type,
					PatientName:   bay.PatientName,
					At:            now,
				})
			}
		}
	}
	for i := range next.WaitingList {
		w := &next.WaitingList[i]
		if w.CarriedTreatment == nil {
			continue
		}
		if advance(w.CarriedTreatment) {
			out.Alarms = append(out.Alarms, Alarm{
				WaitingID:     w.ID,
				TreatmentID:   w.CarriedTreatment.ID,
				TreatmentType: w.CarriedTreatment.Type,
				PatientName:   w.Name,
				At:            now,
			})
		}
	}
	out.State = next
	return out
}

func anyRunning(s model.RootState) bool {
	for _, b := range s.Bays {
		for _, t := range b.Treatments {
			if t.Status == model.StatusRunning {
				return true
			}
		}
	}
	for _, w := range s.WaitingList {
		if w.CarriedTreatment != nil && w.CarriedTreatment.Status == model.StatusRunning {
			return true
		}
	}
	return false
}
