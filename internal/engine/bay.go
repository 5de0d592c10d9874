package engine

import (
	"strings"

	"github.com/iliyamo/clinic-treatment-board/internal/model"
)

// BayPatch carries the bay fields a caller wants to overwrite.  Nil fields are
// left alone.
type BayPatch struct {
	PatientName *string `json:"patientName"`
	Note        *string `json:"note"`
	BodyArea    *string `json:"bodyArea"`
}

// TreatmentPatch carries the item attributes a caller wants to overwrite.
type TreatmentPatch struct {
	SubOption     *string `json:"subOption"`
	IsWet         *bool   `json:"isWet"`
	AreaLabel     *string `json:"areaLabel"`
	CustomArea    *string `json:"customArea"`
	Intensity     *string `json:"intensity"`
	TotalTime     *int    `json:"totalTime"`
	RemainingTime *int    `json:"remainingTime"`
}

func (p TreatmentPatch) apply(it *model.TreatmentItem) {
	if p.SubOption != nil {
		it.SubOption = *p.SubOption
	}
	if p.IsWet != nil {
		it.IsWet = *p.IsWet
	}
	if p.AreaLabel != nil {
		it.AreaLabel = *p.AreaLabel
	}
	if p.CustomArea != nil {
		it.CustomArea = *p.CustomArea
	}
	if p.Intensity != nil {
		it.Intensity = *p.Intensity
	}
	if p.TotalTime != nil && *p.TotalTime >= 0 {
		it.TotalTime = *p.TotalTime
	}
	if p.RemainingTime != nil && *p.RemainingTime >= 0 {
		it.RemainingTime = *p.RemainingTime
	}
}

// OccupyOrUpdateBay assigns a patient to a vacant bay, which seeds the default
// treatment set and clears note and area, or otherwise overwrites the patched
// fields.  Clearing the name of an occupied bay vacates it without archiving.
func (e *Engine) OccupyOrUpdateBay(s model.RootState, bayID int, patch BayPatch) Outcome {
	i := s.BayIndex(bayID)
	if i < 0 {
		return unchanged(s)
	}
	next := s.Clone()
	bay := &next.Bays[i]

	if patch.PatientName != nil {
		name := strings.TrimSpace(*patch.PatientName)
		if bay.Vacant() && name != "" {
			bay.PatientName = name
			bay.Treatments = e.defaultSet()
			bay.Note = ""
			bay.BodyArea = ""
			return changed(next)
		}
		if name == "" && !bay.Vacant() {
			vacate(&next, i)
			return changed(next)
		}
		bay.PatientName = name
	}
	if patch.Note != nil {
		bay.Note = *patch.Note
	}
	if patch.BodyArea != nil {
		bay.BodyArea = *patch.BodyArea
	}
	return changed(next)
}

// vacate clears bay i and every director task pointing at it.
func vacate(s *model.RootState, i int) {
	id := s.Bays[i].ID
	s.Bays[i] = model.NewVacantBay(id)
	s.DirectorQueue = withoutTasks(s.DirectorQueue, func(t model.DirectorTask) bool { return t.BayID == id })
}

// AddBay appends a vacant bay numbered one past the highest existing id.
func (e *Engine) AddBay(s model.RootState) Outcome {
	next := s.Clone()
	next.Bays = append(next.Bays, model.NewVacantBay(s.NextBayID()))
	return changed(next)
}

// Discharge archives an occupied bay into history and clears it.  A vacant
// bay is still cleared, which drops a stale alarm flag or director task.
func (e *Engine) Discharge(s model.RootState, bayID int) Outcome {
	i := s.BayIndex(bayID)
	if i < 0 {
		return unchanged(s)
	}
	next := s.Clone()
	out := Outcome{Changed: true}

	bay := next.Bays[i]
	if !bay.Vacant() {
		rec := model.HistoryRecord{
			ID:          e.NewID(),
			PatientName: bay.PatientName,
			BodyArea:    bay.BodyArea,
			Note:        bay.Note,
			CompletedAt: e.Now().UTC(),
			Treatments:  make([]model.TreatmentSnapshot, 0, len(bay.Treatments)),
		}
		for _, t := range bay.Treatments {
			rec.Treatments = append(rec.Treatments, t.Snapshot())
		}
		next.History = prependHistory(next.History, rec)
		out.Archived = &rec
	}
	vacate(&next, i)
	out.State = next
	return out
}

// ClearBayAlarm lowers the alarm flag of one bay.  It is safe to call after
// the bay was discharged or when the flag is already down.
func (e *Engine) ClearBayAlarm(s model.RootState, bayID int) Outcome {
	i := s.BayIndex(bayID)
	if i < 0 || !s.Bays[i].IsAlarming {
		return unchanged(s)
	}
	next := s.Clone()
	next.Bays[i].IsAlarming = false
	return changed(next)
}

// AddTreatment appends a WAITING item of kind t.  A non-positive duration
// selects the kind's default.
func (e *Engine) AddTreatment(s model.RootState, bayID int, t model.TreatmentType, duration int) Outcome {
	i := s.BayIndex(bayID)
	if i < 0 {
		return unchanged(s)
	}
	if !t.Known() {
		return rejected(s, ErrUnknownTreatment)
	}
	if s.Bays[i].HasType(t) {
		return rejected(s, ErrDuplicateTreatment)
	}
	if duration <= 0 {
		duration = model.DefaultDuration(t)
	}
	next := s.Clone()
	next.Bays[i].Treatments = append(next.Bays[i].Treatments, model.NewTreatmentItem(e.NewID(), t, duration))
	return changed(next)
}

// UpdateTreatmentFields merges patch into one item.  bayID 0 addresses the
// treatment carried by the waiting entry whose id is treatmentID.
func (e *Engine) UpdateTreatmentFields(s model.RootState, bayID int, treatmentID string, patch TreatmentPatch) Outcome {
	if bayID == 0 {
		w := s.WaitingIndex(treatmentID)
		if w < 0 || s.WaitingList[w].CarriedTreatment == nil {
			return unchanged(s)
		}
		next := s.Clone()
		patch.apply(next.WaitingList[w].CarriedTreatment)
		return changed(next)
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
	patch.apply(&next.Bays[i].Treatments[j])
	return changed(next)
}
