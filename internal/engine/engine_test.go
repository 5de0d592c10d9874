package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/clinic-treatment-board/internal/model"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestEngine() *Engine {
	n := 0
	return &Engine{
		NewID: func() string { n++; return fmt.Sprintf("id-%d", n) },
		Now:   func() time.Time { return fixedNow },
	}
}

func strp(s string) *string { return &s }

// occupied returns a default state with bay 1 holding name and the default set.
func occupied(t *testing.T, e *Engine, name string) model.RootState {
	t.Helper()
	out := e.OccupyOrUpdateBay(model.DefaultState(model.InitialBayCount), 1, BayPatch{PatientName: strp(name)})
	require.True(t, out.Changed)
	return out.State
}

func itemOf(t *testing.T, s model.RootState, bayID int, kind model.TreatmentType) model.TreatmentItem {
	t.Helper()
	b := s.Bays[s.BayIndex(bayID)]
	for _, it := range b.Treatments {
		if it.Type == kind {
			return it
		}
	}
	t.Fatalf("bay %d has no %s", bayID, kind)
	return model.TreatmentItem{}
}

func assertVacantInvariant(t *testing.T, s model.RootState) {
	t.Helper()
	for _, b := range s.Bays {
		if b.Vacant() {
			assert.Empty(t, b.Treatments, "bay %d", b.ID)
			assert.False(t, b.IsAlarming, "bay %d", b.ID)
		}
	}
}

func TestOccupy_SeedsDefaultSet(t *testing.T) {
	e := newTestEngine()
	base := model.DefaultState(model.InitialBayCount)
	base.Bays[0].Note = "old"
	base.Bays[0].BodyArea = "knee"

	out := e.OccupyOrUpdateBay(base, 1, BayPatch{PatientName: strp("  Park  "), Note: strp("ignored")})
	require.True(t, out.Changed)
	bay := out.State.Bays[0]

	assert.Equal(t, "Park", bay.PatientName)
	assert.Empty(t, bay.Note)
	assert.Empty(t, bay.BodyArea)
	require.Len(t, bay.Treatments, len(model.DefaultTreatments))
	for i, it := range bay.Treatments {
		assert.Equal(t, model.DefaultTreatments[i], it.Type)
		assert.Equal(t, model.StatusWaiting, it.Status)
		assert.Equal(t, model.DefaultDuration(it.Type), it.TotalTime)
		assert.Equal(t, it.TotalTime, it.RemainingTime)
		assert.Zero(t, it.ElapsedTime)
	}
	assert.Equal(t, "old", base.Bays[0].Note, "input state must not change")
}

func TestOccupy_UpdatePatchesVerbatim(t *testing.T) {
	e := newTestEngine()
	s := occupied(t, e, "Park")
	ids := []string{s.Bays[0].Treatments[0].ID}

	out := e.OccupyOrUpdateBay(s, 1, BayPatch{PatientName: strp("Park Jimin"), Note: strp("neck stiff"), BodyArea: strp("neck")})
	bay := out.State.Bays[0]
	assert.Equal(t, "Park Jimin", bay.PatientName)
	assert.Equal(t, "neck stiff", bay.Note)
	assert.Equal(t, "neck", bay.BodyArea)
	assert.Equal(t, ids[0], bay.Treatments[0].ID, "renaming keeps treatments")
}

func TestOccupy_ClearingNameVacates(t *testing.T) {
	e := newTestEngine()
	s := occupied(t, e, "Park")
	s = e.MoveTreatmentToDirectorQueue(s, 1, itemOf(t, s, 1, model.TreatmentCupping).ID).State
	s.Bays[0].IsAlarming = true

	out := e.OccupyOrUpdateBay(s, 1, BayPatch{PatientName: strp("")})
	assert.True(t, out.Changed)
	assert.Empty(t, out.State.History, "clearing a name does not archive")
	assert.Empty(t, out.State.DirectorQueue)
	assertVacantInvariant(t, out.State)
}

func TestOccupy_UnknownBayIsNoop(t *testing.T) {
	e := newTestEngine()
	s := model.DefaultState(2)
	out := e.OccupyOrUpdateBay(s, 99, BayPatch{PatientName: strp("Ghost")})
	assert.False(t, out.Changed)
	assert.NoError(t, out.Reason)
	assert.Equal(t, s, out.State)
}

func TestAddBay(t *testing.T) {
	e := newTestEngine()
	out := e.AddBay(model.RootState{})
	require.Len(t, out.State.Bays, 1)
	assert.Equal(t, 1, out.State.Bays[0].ID)

	s := model.DefaultState(3)
	s.Bays = s.Bays[:2]
	out = e.AddBay(s)
	assert.Equal(t, 3, out.State.Bays[2].ID)
	assert.True(t, out.State.Bays[2].Vacant())
}

func TestAddTreatment(t *testing.T) {
	e := newTestEngine()
	s := occupied(t, e, "Park")

	dup := e.AddTreatment(s, 1, model.TreatmentICT, 0)
	assert.False(t, dup.Changed)
	assert.ErrorIs(t, dup.Reason, ErrDuplicateTreatment)

	unknown := e.AddTreatment(s, 1, model.TreatmentType("MASSAGE"), 0)
	assert.ErrorIs(t, unknown.Reason, ErrUnknownTreatment)

	out := e.AddTreatment(s, 1, model.TreatmentSono, model.ShortSessionSeconds)
	require.True(t, out.Changed)
	sono := itemOf(t, out.State, 1, model.TreatmentSono)
	assert.Equal(t, model.StatusWaiting, sono.Status)
	assert.Equal(t, 330, sono.TotalTime)
	assert.Equal(t, 330, sono.RemainingTime)

	ice := itemOf(t, e.AddTreatment(s, 1, model.TreatmentIce, 0).State, 1, model.TreatmentIce)
	assert.Equal(t, 300, ice.TotalTime)

	assert.False(t, e.AddTreatment(s, 42, model.TreatmentIce, 0).Changed)
}

func TestUpdateTreatmentFields(t *testing.T) {
	e := newTestEngine()
	s := occupied(t, e, "Park")
	cup := itemOf(t, s, 1, model.TreatmentCupping)
	wet := true

	out := e.UpdateTreatmentFields(s, 1, cup.ID, TreatmentPatch{IsWet: &wet, SubOption: strp("dry+wet"), CustomArea: strp("L shoulder")})
	require.True(t, out.Changed)
	got := itemOf(t, out.State, 1, model.TreatmentCupping)
	assert.True(t, got.IsWet)
	assert.Equal(t, "dry+wet", got.SubOption)
	assert.Equal(t, "L shoulder", got.CustomArea)
	assert.Equal(t, cup.RemainingTime, got.RemainingTime)

	assert.False(t, e.UpdateTreatmentFields(s, 1, "missing", TreatmentPatch{IsWet: &wet}).Changed)
}

func TestUpdateTreatmentFields_WaitingSentinel(t *testing.T) {
	e := newTestEngine()
	s := e.AddWaitingEntry(model.DefaultState(1), "Choi", string(model.TreatmentShockwave)).State
	entryID := s.WaitingList[0].ID
	short := model.ShortSessionSeconds

	out := e.UpdateTreatmentFields(s, 0, entryID, TreatmentPatch{TotalTime: &short, RemainingTime: &short, Intensity: strp("high")})
	require.True(t, out.Changed)
	c := out.State.WaitingList[0].CarriedTreatment
	assert.Equal(t, 330, c.TotalTime)
	assert.Equal(t, 330, c.RemainingTime)
	assert.Equal(t, "high", c.Intensity)

	plain := e.AddWaitingEntry(model.DefaultState(1), "Han", model.VisitConsult).State
	assert.False(t, e.UpdateTreatmentFields(plain, 0, plain.WaitingList[0].ID, TreatmentPatch{Intensity: strp("x")}).Changed)
}

func TestDischarge_ArchivesAndClears(t *testing.T) {
	e := newTestEngine()
	s := occupied(t, e, "Park")
	s = e.OccupyOrUpdateBay(s, 1, BayPatch{Note: strp("lumbar"), BodyArea: strp("back")}).State
	cup := itemOf(t, s, 1, model.TreatmentCupping)
	s = e.UpdateTreatmentFields(s, 1, cup.ID, TreatmentPatch{SubOption: strp("flash")}).State
	s = e.SetTreatmentStatus(s, 1, itemOf(t, s, 1, model.TreatmentICT).ID, model.StatusDone).State
	s = e.MoveTreatmentToDirectorQueue(s, 1, cup.ID).State
	before := s.Bays[0]

	out := e.Discharge(s, 1)
	require.True(t, out.Changed)
	require.NotNil(t, out.Archived)
	require.Len(t, out.State.History, 1)

	rec := out.State.History[0]
	assert.Equal(t, *out.Archived, rec)
	assert.Equal(t, "Park", rec.PatientName)
	assert.Equal(t, "back", rec.BodyArea)
	assert.Equal(t, "lumbar", rec.Note)
	assert.Equal(t, fixedNow, rec.CompletedAt)
	require.Len(t, rec.Treatments, len(before.Treatments))
	for i, it := range before.Treatments {
		assert.Equal(t, it.Snapshot(), rec.Treatments[i])
	}
	assert.Empty(t, out.State.DirectorQueue)
	assert.True(t, out.State.Bays[0].Vacant())
	assert.Empty(t, out.State.Bays[0].Note)
	assertVacantInvariant(t, out.State)
}

func TestDischarge_VacantBayStillClears(t *testing.T) {
	e := newTestEngine()
	s := model.DefaultState(2)
	s.Bays[1].IsAlarming = true
	s.DirectorQueue = []model.DirectorTask{{ID: "d1", BayID: 2, TreatmentID: "gone"}}

	out := e.Discharge(s, 2)
	assert.True(t, out.Changed)
	assert.Nil(t, out.Archived)
	assert.Empty(t, out.State.History)
	assert.Empty(t, out.State.DirectorQueue)
	assert.False(t, out.State.Bays[1].IsAlarming)

	assert.False(t, e.Discharge(s, 7).Changed)
}

func TestDischarge_HistoryBounded(t *testing.T) {
	e := newTestEngine()
	s := model.DefaultState(1)
	s.History = make([]model.HistoryRecord, model.HistoryLimit)
	for i := range s.History {
		s.History[i] = model.HistoryRecord{ID: fmt.Sprintf("h-%d", i)}
	}
	s = e.OccupyOrUpdateBay(s, 1, BayPatch{PatientName: strp("Yoon")}).State

	out := e.Discharge(s, 1)
	require.Len(t, out.State.History, model.HistoryLimit)
	assert.Equal(t, "Yoon", out.State.History[0].PatientName)
	assert.Equal(t, "h-0", out.State.History[1].ID)
	assert.Equal(t, fmt.Sprintf("h-%d", model.HistoryLimit-2), out.State.History[model.HistoryLimit-1].ID)
}

func TestClearBayAlarm(t *testing.T) {
	e := newTestEngine()
	s := model.DefaultState(2)
	assert.False(t, e.ClearBayAlarm(s, 1).Changed, "already clear")
	assert.False(t, e.ClearBayAlarm(s, 9).Changed, "missing bay")

	s.Bays[0].IsAlarming = true
	out := e.ClearBayAlarm(s, 1)
	assert.True(t, out.Changed)
	assert.False(t, out.State.Bays[0].IsAlarming)
}
