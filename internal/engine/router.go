package engine

import (
	"strings"

	"github.com/iliyamo/clinic-treatment-board/internal/model"
)

// Moves between a bay, the waiting list and the director queue copy the item
// value into the destination and then delete it from the source, so no two
// collections ever hold the same item at once.  Long-duration kinds are the
// exception: they keep running from the waiting list while the bay keeps its
// own copy.

// MoveTreatmentToDirectorQueue queues an eligible bay item for the director.
func (e *Engine) MoveTreatmentToDirectorQueue(s model.RootState, bayID int, treatmentID string) Outcome {
	i := s.BayIndex(bayID)
	if i < 0 {
		return unchanged(s)
	}
	bay := s.Bays[i]
	j := bay.TreatmentIndex(treatmentID)
	if j < 0 {
		return unchanged(s)
	}
	item := bay.Treatments[j]
	if !item.Type.DirectorEligible() {
		return rejected(s, ErrNotDirectorEligible)
	}
	for _, t := range s.DirectorQueue {
		if t.TreatmentID == treatmentID {
			return rejected(s, ErrAlreadyQueued)
		}
	}

	next := s.Clone()
	next.DirectorQueue = append(next.DirectorQueue, model.DirectorTask{
		ID:            e.NewID(),
		BayID:         bay.ID,
		PatientName:   bay.PatientName,
		TreatmentType: item.Type,
		TreatmentID:   item.ID,
		CreatedAt:     e.Now().UTC(),
		SubOption:     item.SubOption,
		IsWet:         item.IsWet,
	})
	return changed(next)
}

// ReleaseDirectorTask removes a task and resumes its treatment in the bay.
// The task is removed even when its bay or treatment has since disappeared.
func (e *Engine) ReleaseDirectorTask(s model.RootState, taskID string) Outcome {
	k := s.DirectorIndex(taskID)
	if k < 0 {
		return unchanged(s)
	}
	task := s.DirectorQueue[k]

	next := s.Clone()
	next.DirectorQueue = append(next.DirectorQueue[:k], next.DirectorQueue[k+1:]...)
	resumed := e.SetTreatmentStatus(next, task.BayID, task.TreatmentID, model.StatusRunning)
	return changed(resumed.State)
}

// MoveBayTreatmentToWaiting copies the bay's patient and one item into a new
// waiting entry.  The item stays in the bay when it is a long-duration kind.
func (e *Engine) MoveBayTreatmentToWaiting(s model.RootState, bayID int, treatmentID string) Outcome {
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
	carried := bay.Treatments[j]
	next.WaitingList = append(next.WaitingList, model.WaitingEntry{
		ID:               e.NewID(),
		Name:             bay.PatientName,
		Type:             string(carried.Type),
		ArrivalTime:      e.Now().UTC(),
		CarriedTreatment: &carried,
		Note:             bay.Note,
	})
	if !carried.Type.LongDuration() {
		bay.Treatments = append(bay.Treatments[:j], bay.Treatments[j+1:]...)
	}
	next.DirectorQueue = withoutTreatmentTasks(next.DirectorQueue, treatmentID)
	return changed(next)
}

// AddWaitingEntry appends a person to the waiting list.  Long-duration kinds
// get a fresh WAITING item so they can be run from the list.
func (e *Engine) AddWaitingEntry(s model.RootState, name, kind string) Outcome {
	name = strings.TrimSpace(name)
	if name == "" {
		return rejected(s, ErrEmptyName)
	}
	if !model.ValidWaitingType(kind) {
		return rejected(s, ErrUnknownWaitingType)
	}
	entry := model.WaitingEntry{
		ID:          e.NewID(),
		Name:        name,
		Type:        kind,
		ArrivalTime: e.Now().UTC(),
	}
	if t := model.TreatmentType(kind); t.LongDuration() {
		item := model.NewTreatmentItem(e.NewID(), t, model.LongSessionSeconds)
		entry.CarriedTreatment = &item
	}
	next := s.Clone()
	next.WaitingList = append(next.WaitingList, entry)
	return changed(next)
}

// RemoveWaitingEntry deletes one waiting entry.
func (e *Engine) RemoveWaitingEntry(s model.RootState, entryID string) Outcome {
	w := s.WaitingIndex(entryID)
	if w < 0 {
		return unchanged(s)
	}
	next := s.Clone()
	next.WaitingList = append(next.WaitingList[:w], next.WaitingList[w+1:]...)
	return changed(next)
}

// AssignWaitingEntryToBay moves a waiting entry into a bay, replacing the
// bay's occupant and treatments.
func (e *Engine) AssignWaitingEntryToBay(s model.RootState, entryID string, bayID int) Outcome {
	w := s.WaitingIndex(entryID)
	i := s.BayIndex(bayID)
	if w < 0 || i < 0 {
		return unchanged(s)
	}

	next := s.Clone()
	entry := next.WaitingList[w]
	bay := &next.Bays[i]

	var treatments []model.TreatmentItem
	area := bay.BodyArea
	switch c := entry.CarriedTreatment; {
	case c == nil:
		treatments = e.defaultSet()
	case c.Type.LongDuration():
		if c.CustomArea != "" {
			area = c.CustomArea
		}
		item := *c
		if item.CustomArea == "" {
			item.CustomArea = entry.Note
		}
		treatments = append(e.defaultSet(), item)
	default:
		if c.CustomArea != "" {
			area = c.CustomArea
		}
		treatments = []model.TreatmentItem{*c}
	}

	bay.PatientName = entry.Name
	bay.Treatments = treatments
	bay.BodyArea = area
	if entry.Note != "" {
		bay.Note = entry.Note
	}
	next.WaitingList = append(next.WaitingList[:w], next.WaitingList[w+1:]...)

	// tasks pointing at the bay's previous items no longer resolve
	live := next.Bays[i]
	next.DirectorQueue = withoutTasks(next.DirectorQueue, func(t model.DirectorTask) bool {
		return t.BayID == live.ID && live.TreatmentIndex(t.TreatmentID) < 0
	})
	return changed(next)
}
