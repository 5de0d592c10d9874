package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/iliyamo/clinic-treatment-board/internal/model"
	"github.com/iliyamo/clinic-treatment-board/internal/repository"
)

// LoadInitialState reads the persisted snapshot.  A missing snapshot yields
// the default board; an unreadable one is discarded and overwritten with
// the default board.
func LoadInitialState(ctx context.Context, store SnapshotStore, bayCount int, log *zap.Logger) model.RootState {
	s, err := store.Load(ctx)
	switch {
	case err == nil:
		s.Normalize()
		return s
	case errors.Is(err, repository.ErrSnapshotNotFound):
		log.Info("no persisted snapshot, starting with a fresh board", zap.Int("bays", bayCount))
		return model.DefaultState(bayCount)
	case errors.Is(err, repository.ErrSnapshotCorrupt):
		log.Warn("persisted snapshot is corrupt, resetting board", zap.Error(err))
		fresh := model.DefaultState(bayCount)
		if err := store.Save(ctx, fresh); err != nil {
			log.Error("could not overwrite corrupt snapshot", zap.Error(err))
		}
		return fresh
	default:
		log.Error("snapshot load failed, starting with a fresh board", zap.Error(err))
		return model.DefaultState(bayCount)
	}
}
