package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/clinic-treatment-board/internal/model"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name      string
		kind      model.TreatmentType
		current   model.TreatmentStatus
		requested model.TreatmentStatus
		want      Transition
	}{
		{"start", model.TreatmentICT, model.StatusWaiting, model.StatusRunning, Transition{model.StatusRunning, ActionSet}},
		{"finish", model.TreatmentICT, model.StatusRunning, model.StatusDone, Transition{model.StatusDone, ActionReset}},
		{"undo done", model.TreatmentICT, model.StatusDone, model.StatusDone, Transition{model.StatusWaiting, ActionReset}},
		{"skip default", model.TreatmentHotPack, model.StatusWaiting, model.StatusSkipped, Transition{model.StatusSkipped, ActionReset}},
		{"undo skip", model.TreatmentHotPack, model.StatusSkipped, model.StatusSkipped, Transition{model.StatusWaiting, ActionReset}},
		{"skip extra removes", model.TreatmentIce, model.StatusRunning, model.StatusSkipped, Transition{model.StatusSkipped, ActionRemove}},
		{"pause", model.TreatmentChuna, model.StatusRunning, model.StatusWaiting, Transition{model.StatusWaiting, ActionReset}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Decide(model.TreatmentItem{Type: tc.kind, Status: tc.current}, tc.requested)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSetTreatmentStatus_DoneTwiceReturnsToWaiting(t *testing.T) {
	e := newTestEngine()
	s := occupied(t, e, "Park")
	hp := itemOf(t, s, 1, model.TreatmentHotPack)

	s = e.SetTreatmentStatus(s, 1, hp.ID, model.StatusRunning).State
	s = e.Tick(s).State
	s = e.Tick(s).State
	assert.Equal(t, hp.TotalTime-2, itemOf(t, s, 1, model.TreatmentHotPack).RemainingTime)

	s = e.SetTreatmentStatus(s, 1, hp.ID, model.StatusDone).State
	s = e.SetTreatmentStatus(s, 1, hp.ID, model.StatusDone).State
	got := itemOf(t, s, 1, model.TreatmentHotPack)
	assert.Equal(t, model.StatusWaiting, got.Status)
	assert.Equal(t, got.TotalTime, got.RemainingTime)
	assert.Zero(t, got.ElapsedTime)
	assert.False(t, got.IsFinished)
}

func TestSetTreatmentStatus_RunningKeepsTimer(t *testing.T) {
	e := newTestEngine()
	s := occupied(t, e, "Park")
	s = e.AddTreatment(s, 1, model.TreatmentChuna, 0).State
	ch := itemOf(t, s, 1, model.TreatmentChuna)

	s = e.SetTreatmentStatus(s, 1, ch.ID, model.StatusRunning).State
	for i := 0; i < 3; i++ {
		s = e.Tick(s).State
	}
	got := itemOf(t, s, 1, model.TreatmentChuna)
	assert.Equal(t, 3, got.ElapsedTime)
	assert.Equal(t, model.StatusRunning, got.Status)

	s = e.SetTreatmentStatus(s, 1, ch.ID, model.StatusWaiting).State
	assert.Zero(t, itemOf(t, s, 1, model.TreatmentChuna).ElapsedTime)
}

func TestSetTreatmentStatus_SkipRemovesExtraKind(t *testing.T) {
	e := newTestEngine()
	s := occupied(t, e, "Park")
	s = e.AddTreatment(s, 1, model.TreatmentChuna, 0).State
	ch := itemOf(t, s, 1, model.TreatmentChuna)
	s = e.MoveTreatmentToDirectorQueue(s, 1, ch.ID).State
	require.Len(t, s.DirectorQueue, 1)

	out := e.SetTreatmentStatus(s, 1, ch.ID, model.StatusSkipped)
	require.True(t, out.Changed)
	assert.Equal(t, -1, out.State.Bays[0].TreatmentIndex(ch.ID))
	assert.Len(t, out.State.Bays[0].Treatments, len(model.DefaultTreatments))
	assert.Empty(t, out.State.DirectorQueue)
}

func TestSetTreatmentStatus_SkipDefaultKindMarks(t *testing.T) {
	e := newTestEngine()
	s := occupied(t, e, "Park")
	ict := itemOf(t, s, 1, model.TreatmentICT)

	s = e.SetTreatmentStatus(s, 1, ict.ID, model.StatusSkipped).State
	assert.Equal(t, model.StatusSkipped, itemOf(t, s, 1, model.TreatmentICT).Status)
	s = e.SetTreatmentStatus(s, 1, ict.ID, model.StatusSkipped).State
	assert.Equal(t, model.StatusWaiting, itemOf(t, s, 1, model.TreatmentICT).Status)
}

func TestSetTreatmentStatus_RunningConsumesDirectorSlot(t *testing.T) {
	e := newTestEngine()
	s := occupied(t, e, "Park")
	acu := itemOf(t, s, 1, model.TreatmentAcupuncture)
	s = e.MoveTreatmentToDirectorQueue(s, 1, acu.ID).State

	done := e.SetTreatmentStatus(s, 1, acu.ID, model.StatusDone)
	assert.Len(t, done.State.DirectorQueue, 1, "only RUNNING or removal frees the slot")

	running := e.SetTreatmentStatus(s, 1, acu.ID, model.StatusRunning)
	assert.Empty(t, running.State.DirectorQueue)
}

func TestSetTreatmentStatus_InvalidTargets(t *testing.T) {
	e := newTestEngine()
	s := occupied(t, e, "Park")
	ict := itemOf(t, s, 1, model.TreatmentICT)

	assert.False(t, e.SetTreatmentStatus(s, 9, ict.ID, model.StatusRunning).Changed)
	assert.False(t, e.SetTreatmentStatus(s, 1, "nope", model.StatusRunning).Changed)
	bad := e.SetTreatmentStatus(s, 1, ict.ID, model.TreatmentStatus("PAUSED"))
	assert.False(t, bad.Changed)
	assert.ErrorIs(t, bad.Reason, ErrInvalidStatus)
}

func TestSetWaitingTreatmentStatus(t *testing.T) {
	e := newTestEngine()
	s := e.AddWaitingEntry(model.DefaultState(1), "Choi", string(model.TreatmentSono)).State
	id := s.WaitingList[0].ID

	s = e.SetWaitingTreatmentStatus(s, id, model.StatusRunning).State
	s = e.Tick(s).State
	c := s.WaitingList[0].CarriedTreatment
	assert.Equal(t, model.StatusRunning, c.Status)
	assert.Equal(t, model.LongSessionSeconds-1, c.RemainingTime)

	s = e.SetWaitingTreatmentStatus(s, id, model.StatusSkipped).State
	c = s.WaitingList[0].CarriedTreatment
	assert.Equal(t, model.StatusSkipped, c.Status)
	assert.Equal(t, model.LongSessionSeconds-1, c.RemainingTime, "skipping keeps the timer")

	s = e.SetWaitingTreatmentStatus(s, id, model.StatusDone).State
	s = e.SetWaitingTreatmentStatus(s, id, model.StatusDone).State
	c = s.WaitingList[0].CarriedTreatment
	assert.Equal(t, model.StatusWaiting, c.Status)
	assert.Equal(t, c.TotalTime, c.RemainingTime)

	plain := e.AddWaitingEntry(model.DefaultState(1), "Han", model.VisitRevisit).State
	assert.False(t, e.SetWaitingTreatmentStatus(plain, plain.WaitingList[0].ID, model.StatusRunning).Changed)
}
