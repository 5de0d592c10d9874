package model

// TreatmentType identifies one of the eight orderable treatment kinds.
type TreatmentType string

const (
	TreatmentICT         TreatmentType = "ICT"
	TreatmentCupping     TreatmentType = "CUPPING"
	TreatmentAcupuncture TreatmentType = "ACUPUNCTURE"
	TreatmentHotPack     TreatmentType = "HOT_PACK"
	TreatmentIce         TreatmentType = "ICE"
	TreatmentChuna       TreatmentType = "CHUNA"
	TreatmentSono        TreatmentType = "SONO"
	TreatmentShockwave   TreatmentType = "SHOCKWAVE"
)

// TreatmentStatus is the per-item status.  There is no bay-level state
// machine; a bay only carries the IsAlarming flag.
type TreatmentStatus string

const (
	StatusWaiting TreatmentStatus = "WAITING"
	StatusRunning TreatmentStatus = "RUNNING"
	StatusDone    TreatmentStatus = "DONE"
	StatusSkipped TreatmentStatus = "SKIPPED"
)

// Valid reports whether s is one of the four known statuses.
func (s TreatmentStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusRunning, StatusDone, StatusSkipped:
		return true
	}
	return false
}

// TreatmentItem is one orderable treatment instance with its own timer.
//
// Fields:
//
//	ID            – opaque unique identifier.
//	Type          – treatment kind.
//	Status        – WAITING, RUNNING, DONE or SKIPPED.
//	RemainingTime – seconds left on the countdown.
//	TotalTime     – configured countdown length in seconds.
//	ElapsedTime   – seconds accumulated by the counting-up kind (CHUNA).
//	SubOption     – kind specific option (needle type, sono strength, ...).
//	IsWet         – wet cupping flag.
//	AreaLabel     – body area the device is attached to.
//	CustomArea    – free text area override.
//	Intensity     – device intensity label.
//	IsFinished    – set when the countdown completed on its own.
type TreatmentItem struct {
	ID            string          `json:"id"`
	Type          TreatmentType   `json:"type"`
	Status        TreatmentStatus `json:"status"`
	RemainingTime int             `json:"remainingTime"`
	TotalTime     int             `json:"totalTime"`
	ElapsedTime   int             `json:"elapsedTime"`
	SubOption     string          `json:"subOption,omitempty"`
	IsWet         bool            `json:"isWet,omitempty"`
	AreaLabel     string          `json:"areaLabel,omitempty"`
	CustomArea    string          `json:"customArea,omitempty"`
	Intensity     string          `json:"intensity,omitempty"`
	IsFinished    bool            `json:"isFinished,omitempty"`
}

// NewTreatmentItem returns a WAITING item with remaining = total = seconds.
func NewTreatmentItem(id string, t TreatmentType, seconds int) TreatmentItem {
	return TreatmentItem{
		ID:            id,
		Type:          t,
		Status:        StatusWaiting,
		RemainingTime: seconds,
		TotalTime:     seconds,
	}
}

// Snapshot drops the runtime timer fields for archiving.
func (t TreatmentItem) Snapshot() TreatmentSnapshot {
	return TreatmentSnapshot{
		Type:       t.Type,
		Status:     t.Status,
		SubOption:  t.SubOption,
		IsWet:      t.IsWet,
		AreaLabel:  t.AreaLabel,
		CustomArea: t.CustomArea,
		Intensity:  t.Intensity,
	}
}

// TreatmentSnapshot is the archived form of a TreatmentItem.
type TreatmentSnapshot struct {
	Type       TreatmentType   `json:"type"`
	Status     TreatmentStatus `json:"status"`
	SubOption  string          `json:"subOption,omitempty"`
	IsWet      bool            `json:"isWet,omitempty"`
	AreaLabel  string          `json:"areaLabel,omitempty"`
	CustomArea string          `json:"customArea,omitempty"`
	Intensity  string          `json:"intensity,omitempty"`
}
