package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/clinic-treatment-board/internal/model"
)

// SnapshotStore reads and writes the locally persisted state blob.
type SnapshotStore interface {
	Load(ctx context.Context) (model.RootState, error)
	Save(ctx context.Context, s model.RootState) error
}

// Persister writes states in the background.  Only the newest submitted
// state is kept; intermediate ones are skipped when the store is slower
// than the board.
type Persister struct {
	store   SnapshotStore
	pending chan model.RootState
	timeout time.Duration
	log     *zap.Logger
}

// NewPersister returns a Persister over store.  Call Run to start writing.
func NewPersister(store SnapshotStore, log *zap.Logger) *Persister {
	return &Persister{
		store:   store,
		pending: make(chan model.RootState, 1),
		timeout: 5 * time.Second,
		log:     log,
	}
}

// Submit queues s, replacing any state not yet written.  It never blocks.
func (p *Persister) Submit(s model.RootState) {
	for {
		select {
		case p.pending <- s:
			return
		default:
		}
		select {
		case <-p.pending:
		default:
		}
	}
}

// Run writes submitted states until ctx is done, then flushes what is left.
func (p *Persister) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.Flush()
			return
		case s := <-p.pending:
			p.save(s)
		}
	}
}

// Flush writes a pending state, if any, synchronously.
func (p *Persister) Flush() {
	select {
	case s := <-p.pending:
		p.save(s)
	default:
	}
}

func (p *Persister) save(s model.RootState) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.store.Save(ctx, s); err != nil {
		p.log.Error("snapshot save failed", zap.Error(err))
	}
}
