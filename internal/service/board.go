// Package service owns the live board: a single mutex-guarded RootState that
// HTTP intents, the 1 Hz tick, alarm clears and inbound replication all go
// through, plus the fire-and-forget fan-out that follows every change.
package service

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/iliyamo/clinic-treatment-board/internal/alarm"
	"github.com/iliyamo/clinic-treatment-board/internal/clock"
	"github.com/iliyamo/clinic-treatment-board/internal/engine"
	"github.com/iliyamo/clinic-treatment-board/internal/metrics"
	"github.com/iliyamo/clinic-treatment-board/internal/model"
	"github.com/iliyamo/clinic-treatment-board/internal/queue"
)

// Pusher replicates a state to the shared remote store.  It reports false
// when the push was withheld.
type Pusher interface {
	Push(s model.RootState) bool
}

// Viewers receives every state the board settles on.
type Viewers interface {
	Broadcast(s model.RootState)
}

// Saver persists a state.  Persister satisfies it.
type Saver interface {
	Submit(s model.RootState)
}

// DischargePublisher forwards archived sessions to the broker.
type DischargePublisher interface {
	PublishDischargeCompleted(ctx context.Context, ev queue.DischargeCompletedEvent) error
}

// Refiner rewrites a bay note.
type Refiner interface {
	Refine(ctx context.Context, bayID int, note string) (string, error)
}

// Deps wires the board to its collaborators.  Any field may be left nil;
// Engine, Clock and Logger fall back to defaults.
type Deps struct {
	Engine          *engine.Engine
	Clock           clock.Clock
	AlarmClearAfter time.Duration
	Saver           Saver
	Pusher          Pusher
	Viewers         Viewers
	Sink            alarm.Sink
	Events          DischargePublisher
	Refiner         Refiner
	Metrics         *metrics.Metrics
	Logger          *zap.Logger
}

type alarmTimer struct {
	timer clock.Timer
	gen   uint64
}

// Board is the process-wide single writer.
type Board struct {
	mu     sync.Mutex
	state  model.RootState
	timers map[int]alarmTimer
	gen    uint64

	eng        *engine.Engine
	clock      clock.Clock
	clearAfter time.Duration
	saver      Saver
	pusher     Pusher
	viewers    Viewers
	sink       alarm.Sink
	events     DischargePublisher
	refiner    Refiner
	metrics    *metrics.Metrics
	log        *zap.Logger
}

const opTick = "tick"

// NewBoard starts a board at initial.
func NewBoard(initial model.RootState, d Deps) *Board {
	if d.Engine == nil {
		d.Engine = engine.New()
	}
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.AlarmClearAfter <= 0 {
		d.AlarmClearAfter = 5 * time.Second
	}
	initial.Normalize()
	return &Board{
		state:      initial,
		timers:     make(map[int]alarmTimer),
		eng:        d.Engine,
		clock:      d.Clock,
		clearAfter: d.AlarmClearAfter,
		saver:      d.Saver,
		pusher:     d.Pusher,
		viewers:    d.Viewers,
		sink:       d.Sink,
		events:     d.Events,
		refiner:    d.Refiner,
		metrics:    d.Metrics,
		log:        d.Logger,
	}
}

// SetPusher attaches the replicator once it exists.  The replicator needs
// the board to apply inbound snapshots, so it is wired after construction.
func (b *Board) SetPusher(p Pusher) {
	b.mu.Lock()
	b.pusher = p
	b.mu.Unlock()
}

// SetViewers attaches the viewer fan-out.
func (b *Board) SetViewers(v Viewers) {
	b.mu.Lock()
	b.viewers = v
	b.mu.Unlock()
}

// Observe calls fn with the current state while holding the board lock, so
// no commit or broadcast can slip in before fn returns.  fn must not call
// back into the board.
func (b *Board) Observe(fn func(model.RootState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.state)
}

// State returns the current state.  States are never written after they are
// published, so callers may read it without copying.
func (b *Board) State() model.RootState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Board) apply(op string, fn func(model.RootState) engine.Outcome) engine.Outcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := fn(b.state)
	switch {
	case out.Reason != nil:
		b.metrics.Mutation(op, "rejected")
		b.log.Debug("mutation rejected", zap.String("op", op), zap.Error(out.Reason))
		return out
	case !out.Changed:
		if op != opTick {
			b.metrics.Mutation(op, "noop")
		}
		return out
	}
	b.metrics.Mutation(op, "applied")
	b.commitLocked(out, op != opTick)
	return out
}

// commitLocked installs out.State and runs the side effects.  b.mu is held.
// Tick results stay local; every process runs its own countdown.
func (b *Board) commitLocked(out engine.Outcome, push bool) {
	b.state = out.State
	b.scheduleClearsLocked(out.Alarms)

	if b.saver != nil {
		b.saver.Submit(b.state)
	}
	if push && b.pusher != nil {
		b.pusher.Push(b.state)
	}
	b.fanOutLocked()

	for _, a := range out.Alarms {
		b.metrics.Alarm(string(a.TreatmentType))
		if b.sink != nil {
			go b.alert(a)
		}
	}
}

func (b *Board) fanOutLocked() {
	if b.viewers != nil {
		b.viewers.Broadcast(b.state)
	}
	occupied := 0
	for _, bay := range b.state.Bays {
		if !bay.Vacant() {
			occupied++
		}
	}
	b.metrics.Occupancy(occupied, len(b.state.WaitingList))
}

func (b *Board) alert(a engine.Alarm) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	b.sink.Alert(ctx, a)
}

// scheduleClearsLocked arms one clear per alarming bay, replacing any clear
// already pending for it, and drops clears for bays that are no longer
// alarming.
func (b *Board) scheduleClearsLocked(alarms []engine.Alarm) {
	for _, a := range alarms {
		if a.BayID <= 0 {
			continue
		}
		if prev, ok := b.timers[a.BayID]; ok {
			prev.timer.Stop()
		}
		b.gen++
		bayID, gen := a.BayID, b.gen
		t := b.clock.AfterFunc(b.clearAfter, func() { b.expireAlarm(bayID, gen) })
		b.timers[bayID] = alarmTimer{timer: t, gen: gen}
	}
	for bayID, at := range b.timers {
		i := b.state.BayIndex(bayID)
		if i < 0 || !b.state.Bays[i].IsAlarming {
			at.timer.Stop()
			delete(b.timers, bayID)
		}
	}
}

func (b *Board) expireAlarm(bayID int, gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.timers[bayID]; !ok || cur.gen != gen {
		return
	}
	delete(b.timers, bayID)
	out := b.eng.ClearBayAlarm(b.state, bayID)
	if out.Changed {
		b.metrics.Mutation("clear_alarm", "applied")
		b.commitLocked(out, true)
	}
}

// ApplyRemote replaces the whole state with a snapshot from the remote
// store.  The snapshot is persisted and shown to viewers but not pushed back.
func (b *Board) ApplyRemote(s model.RootState) {
	s.Normalize()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = s
	for bayID, at := range b.timers {
		i := s.BayIndex(bayID)
		if i < 0 || !s.Bays[i].IsAlarming {
			at.timer.Stop()
			delete(b.timers, bayID)
		}
	}
	if b.saver != nil {
		b.saver.Submit(s)
	}
	b.fanOutLocked()
	b.metrics.RemoteApplied()
}

// Run ticks the board every interval until ctx is done.
func (b *Board) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b.Tick()
		}
	}
}

// Tick advances every running timer by one second.
func (b *Board) Tick() engine.Outcome {
	return b.apply(opTick, b.eng.Tick)
}

func (b *Board) OccupyOrUpdateBay(bayID int, patch engine.BayPatch) engine.Outcome {
	return b.apply("occupy_or_update_bay", func(s model.RootState) engine.Outcome {
		return b.eng.OccupyOrUpdateBay(s, bayID, patch)
	})
}

func (b *Board) AddBay() engine.Outcome {
	return b.apply("add_bay", b.eng.AddBay)
}

// Discharge archives and clears a bay, then announces the archived session
// on the broker in the background.
func (b *Board) Discharge(bayID int) engine.Outcome {
	out := b.apply("discharge", func(s model.RootState) engine.Outcome {
		return b.eng.Discharge(s, bayID)
	})
	if out.Archived != nil && b.events != nil {
		ev := queue.NewDischargeCompletedEvent(bayID, *out.Archived)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := b.events.PublishDischargeCompleted(ctx, ev); err != nil {
				b.log.Warn("discharge event not published", zap.Int("bay_id", bayID), zap.Error(err))
			}
		}()
	}
	return out
}

func (b *Board) SetTreatmentStatus(bayID int, treatmentID string, status model.TreatmentStatus) engine.Outcome {
	return b.apply("set_treatment_status", func(s model.RootState) engine.Outcome {
		return b.eng.SetTreatmentStatus(s, bayID, treatmentID, status)
	})
}

func (b *Board) SetWaitingTreatmentStatus(entryID string, status model.TreatmentStatus) engine.Outcome {
	return b.apply("set_waiting_treatment_status", func(s model.RootState) engine.Outcome {
		return b.eng.SetWaitingTreatmentStatus(s, entryID, status)
	})
}

func (b *Board) UpdateTreatmentFields(bayID int, treatmentID string, patch engine.TreatmentPatch) engine.Outcome {
	return b.apply("update_treatment_fields", func(s model.RootState) engine.Outcome {
		return b.eng.UpdateTreatmentFields(s, bayID, treatmentID, patch)
	})
}

func (b *Board) AddTreatment(bayID int, t model.TreatmentType, duration int) engine.Outcome {
	return b.apply("add_treatment", func(s model.RootState) engine.Outcome {
		return b.eng.AddTreatment(s, bayID, t, duration)
	})
}

func (b *Board) MoveTreatmentToDirectorQueue(bayID int, treatmentID string) engine.Outcome {
	return b.apply("move_to_director", func(s model.RootState) engine.Outcome {
		return b.eng.MoveTreatmentToDirectorQueue(s, bayID, treatmentID)
	})
}

func (b *Board) ReleaseDirectorTask(taskID string) engine.Outcome {
	return b.apply("release_director_task", func(s model.RootState) engine.Outcome {
		return b.eng.ReleaseDirectorTask(s, taskID)
	})
}

func (b *Board) MoveBayTreatmentToWaiting(bayID int, treatmentID string) engine.Outcome {
	return b.apply("move_to_waiting", func(s model.RootState) engine.Outcome {
		return b.eng.MoveBayTreatmentToWaiting(s, bayID, treatmentID)
	})
}

func (b *Board) AddWaitingEntry(name, kind string) engine.Outcome {
	return b.apply("add_waiting_entry", func(s model.RootState) engine.Outcome {
		return b.eng.AddWaitingEntry(s, name, kind)
	})
}

func (b *Board) RemoveWaitingEntry(entryID string) engine.Outcome {
	return b.apply("remove_waiting_entry", func(s model.RootState) engine.Outcome {
		return b.eng.RemoveWaitingEntry(s, entryID)
	})
}

func (b *Board) AssignWaitingEntryToBay(entryID string, bayID int) engine.Outcome {
	return b.apply("assign_waiting_entry", func(s model.RootState) engine.Outcome {
		return b.eng.AssignWaitingEntryToBay(s, entryID, bayID)
	})
}

// RefineNote asks the refinement service to rewrite a bay note and stores
// the answer.  Notes shorter than two characters are left alone, and any
// failure leaves the state untouched.
func (b *Board) RefineNote(ctx context.Context, bayID int) engine.Outcome {
	current := b.State()
	i := current.BayIndex(bayID)
	if i < 0 || b.refiner == nil {
		return engine.Outcome{State: current}
	}
	note := current.Bays[i].Note
	if utf8.RuneCountInString(strings.TrimSpace(note)) < 2 {
		return engine.Outcome{State: current}
	}

	text, err := b.refiner.Refine(ctx, bayID, note)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			b.log.Warn("note refinement failed", zap.Int("bay_id", bayID), zap.Error(err))
		}
		return engine.Outcome{State: b.State()}
	}
	text = strings.TrimSpace(text)
	return b.apply("refine_note", func(s model.RootState) engine.Outcome {
		return b.eng.OccupyOrUpdateBay(s, bayID, engine.BayPatch{Note: &text})
	})
}
