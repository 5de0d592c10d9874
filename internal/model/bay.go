package model

// Bay represents a physical treatment slot.  An empty PatientName means the
// bay is vacant; a vacant bay never holds treatments and never alarms.
//
// Fields:
//
//	ID          – stable integer id, assigned max+1 and never reused.
//	PatientName – occupant, empty when vacant.
//	Note        – free text note for the current session.
//	BodyArea    – area being treated.
//	Treatments  – treatment items in insertion order.
//	IsAlarming  – raised when a countdown completes, cleared a few seconds later.
type Bay struct {
	ID          int             `json:"id"`
	PatientName string          `json:"patientName"`
	Note        string          `json:"note"`
	BodyArea    string          `json:"bodyArea"`
	Treatments  []TreatmentItem `json:"treatments"`
	IsAlarming  bool            `json:"isAlarming"`
}

// Vacant reports whether no patient occupies the bay.
func (b Bay) Vacant() bool { return b.PatientName == "" }

// TreatmentIndex returns the position of the treatment with id, or -1.
func (b Bay) TreatmentIndex(id string) int {
	for i, t := range b.Treatments {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// HasType reports whether the bay already holds an item of type t.
func (b Bay) HasType(t TreatmentType) bool {
	for _, it := range b.Treatments {
		if it.Type == t {
			return true
		}
	}
	return false
}

// NewVacantBay returns an empty bay with the given id.
func NewVacantBay(id int) Bay {
	return Bay{ID: id, Treatments: []TreatmentItem{}}
}
