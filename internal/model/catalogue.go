package model

import "sort"

// InitialBayCount is the number of bays created for a fresh state.
const InitialBayCount = 8

// HistoryLimit bounds the archive; the oldest records are dropped first.
const HistoryLimit = 5000

// FallbackDuration applies to kinds missing from the duration table.
const FallbackDuration = 600

// Sono and shockwave sessions come in two preset lengths.
const (
	ShortSessionSeconds = 5*60 + 30
	LongSessionSeconds  = 10 * 60
)

var defaultDurations = map[TreatmentType]int{
	TreatmentICT:         10 * 60,
	TreatmentAcupuncture: 10 * 60,
	TreatmentHotPack:     10 * 60,
	TreatmentCupping:     3 * 60,
	TreatmentIce:         5 * 60,
	TreatmentChuna:       0, // counts up, no countdown
	TreatmentSono:        LongSessionSeconds,
	TreatmentShockwave:   LongSessionSeconds,
}

// DefaultTreatments is the set every newly occupied bay starts with, in order.
var DefaultTreatments = []TreatmentType{
	TreatmentICT,
	TreatmentCupping,
	TreatmentAcupuncture,
	TreatmentHotPack,
}

// AllTreatments lists every known kind.
var AllTreatments = []TreatmentType{
	TreatmentICT,
	TreatmentCupping,
	TreatmentAcupuncture,
	TreatmentHotPack,
	TreatmentIce,
	TreatmentChuna,
	TreatmentSono,
	TreatmentShockwave,
}

// DefaultDuration returns the configured countdown length for t in seconds.
func DefaultDuration(t TreatmentType) int {
	if d, ok := defaultDurations[t]; ok {
		return d
	}
	return FallbackDuration
}

// Known reports whether t is one of the eight treatment kinds.
func (t TreatmentType) Known() bool {
	_, ok := defaultDurations[t]
	return ok
}

// IsDefault reports whether t belongs to the default set.  Skipping a
// non-default item removes it from the bay instead of marking it.
func (t TreatmentType) IsDefault() bool {
	for _, d := range DefaultTreatments {
		if d == t {
			return true
		}
	}
	return false
}

// DirectorEligible reports whether t may be placed in the director queue.
func (t TreatmentType) DirectorEligible() bool {
	switch t {
	case TreatmentCupping, TreatmentAcupuncture, TreatmentChuna:
		return true
	}
	return false
}

// LongDuration reports whether t can keep running from the waiting list.
func (t TreatmentType) LongDuration() bool {
	return t == TreatmentSono || t == TreatmentShockwave
}

// Accumulates reports whether t counts elapsed time up instead of down.
func (t TreatmentType) Accumulates() bool {
	return t == TreatmentChuna
}

var statusOrder = map[TreatmentStatus]int{
	StatusRunning: 0,
	StatusWaiting: 1,
	StatusDone:    2,
	StatusSkipped: 3,
}

// SortedForDisplay returns a copy of items ordered running, waiting, done,
// skipped.  Items with equal status keep their relative order.
func SortedForDisplay(items []TreatmentItem) []TreatmentItem {
	out := make([]TreatmentItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return statusOrder[out[i].Status] < statusOrder[out[j].Status]
	})
	return out
}
