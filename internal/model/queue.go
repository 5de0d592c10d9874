package model

import "time"

// Visit kinds a waiting entry may carry besides a treatment kind.
const (
	VisitConsult = "CONSULT"
	VisitRevisit = "REVISIT"
)

// WaitingEntry is a person not yet assigned to a bay.  When a treatment is
// moved out of a bay, CarriedTreatment keeps its full state so resuming it
// restores the exact timer and attributes.
type WaitingEntry struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Type             string         `json:"type"`
	ArrivalTime      time.Time      `json:"arrivalTime"`
	CarriedTreatment *TreatmentItem `json:"carriedTreatment,omitempty"`
	Note             string         `json:"note,omitempty"`
}

// ValidWaitingType reports whether kind may be used for a waiting entry.
func ValidWaitingType(kind string) bool {
	if kind == VisitConsult || kind == VisitRevisit {
		return true
	}
	return TreatmentType(kind).Known()
}

// DirectorTask is a treatment taken out of the normal bay flow and placed in
// the director's single-operator worklist.
type DirectorTask struct {
	ID            string        `json:"id"`
	BayID         int           `json:"bayId"`
	PatientName   string        `json:"patientName"`
	TreatmentType TreatmentType `json:"treatmentType"`
	TreatmentID   string        `json:"treatmentId"`
	CreatedAt     time.Time     `json:"createdAt"`
	SubOption     string        `json:"subOption,omitempty"`
	IsWet         bool          `json:"isWet,omitempty"`
}

// HistoryRecord is an immutable snapshot of a discharged bay session.
type HistoryRecord struct {
	ID          string              `json:"id"`
	PatientName string              `json:"patientName"`
	BodyArea    string              `json:"bodyArea"`
	Note        string              `json:"note"`
	CompletedAt time.Time           `json:"completedAt"`
	Treatments  []TreatmentSnapshot `json:"treatments"`
}
