package model

// RootState is the single source of truth shared by every viewer.  It is
// handled as a value: mutations return a new RootState built from Clone and
// never write into a state another goroutine may still be reading.
type RootState struct {
	Bays          []Bay           `json:"bays"`
	WaitingList   []WaitingEntry  `json:"waitingList"`
	DirectorQueue []DirectorTask  `json:"directorQueue"`
	History       []HistoryRecord `json:"history"`
}

// DefaultState returns bayCount vacant bays and empty queues.
func DefaultState(bayCount int) RootState {
	if bayCount < 0 {
		bayCount = 0
	}
	bays := make([]Bay, 0, bayCount)
	for i := 1; i <= bayCount; i++ {
		bays = append(bays, NewVacantBay(i))
	}
	return RootState{
		Bays:          bays,
		WaitingList:   []WaitingEntry{},
		DirectorQueue: []DirectorTask{},
		History:       []HistoryRecord{},
	}
}

// Clone copies every collection that mutations write into.  History
// records are immutable once archived so only the slice header list is
// copied for them.
func (s RootState) Clone() RootState {
	out := RootState{
		Bays:          make([]Bay, len(s.Bays)),
		WaitingList:   make([]WaitingEntry, len(s.WaitingList)),
		DirectorQueue: make([]DirectorTask, len(s.DirectorQueue)),
		History:       make([]HistoryRecord, len(s.History)),
	}
	for i, b := range s.Bays {
		b.Treatments = cloneItems(b.Treatments)
		out.Bays[i] = b
	}
	for i, w := range s.WaitingList {
		if w.CarriedTreatment != nil {
			carried := *w.CarriedTreatment
			w.CarriedTreatment = &carried
		}
		out.WaitingList[i] = w
	}
	copy(out.DirectorQueue, s.DirectorQueue)
	copy(out.History, s.History)
	return out
}

func cloneItems(items []TreatmentItem) []TreatmentItem {
	out := make([]TreatmentItem, len(items))
	copy(out, items)
	return out
}

// Normalize replaces nil collections with empty ones so the JSON form always
// carries arrays.  Decoded snapshots go through it before use.
func (s *RootState) Normalize() {
	if s.Bays == nil {
		s.Bays = []Bay{}
	}
	for i := range s.Bays {
		if s.Bays[i].Treatments == nil {
			s.Bays[i].Treatments = []TreatmentItem{}
		}
	}
	if s.WaitingList == nil {
		s.WaitingList = []WaitingEntry{}
	}
	if s.DirectorQueue == nil {
		s.DirectorQueue = []DirectorTask{}
	}
	if s.History == nil {
		s.History = []HistoryRecord{}
	}
}

// BayIndex returns the position of the bay with id, or -1.
func (s RootState) BayIndex(id int) int {
	for i, b := range s.Bays {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// WaitingIndex returns the position of the waiting entry with id, or -1.
func (s RootState) WaitingIndex(id string) int {
	for i, w := range s.WaitingList {
		if w.ID == id {
			return i
		}
	}
	return -1
}

// DirectorIndex returns the position of the director task with id, or -1.
func (s RootState) DirectorIndex(id string) int {
	for i, d := range s.DirectorQueue {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// NextBayID returns max(existing ids)+1, or 1 for an empty board.
func (s RootState) NextBayID() int {
	next := 1
	for _, b := range s.Bays {
		if b.ID >= next {
			next = b.ID + 1
		}
	}
	return next
}
