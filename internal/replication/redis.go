package replication

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps the shared state under one key and announces every write
// on a pub/sub channel derived from it.
type RedisStore struct {
	rdb     *redis.Client
	key     string
	channel string
	log     *zap.Logger
}

// NewRedisStore addresses the clinic state at key.
func NewRedisStore(rdb *redis.Client, key string, log *zap.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, key: key, channel: key + ":updates", log: log}
}

// Write overwrites the stored snapshot and publishes it in one transaction.
func (s *RedisStore) Write(ctx context.Context, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.key, payload, 0)
	pipe.Publish(ctx, s.channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write remote state: %w", err)
	}
	return nil
}

// Subscribe confirms the subscription, emits the currently stored snapshot
// (if any), then every published one until ctx is done.
func (s *RedisStore) Subscribe(ctx context.Context) (<-chan Snapshot, error) {
	sub := s.rdb.Subscribe(ctx, s.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.channel, err)
	}

	out := make(chan Snapshot, 1)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		raw, err := s.rdb.Get(ctx, s.key).Bytes()
		switch {
		case err == nil:
			if snap, ok := s.decode(raw); ok && !send(ctx, out, snap) {
				return
			}
		case err != redis.Nil:
			s.log.Warn("remote state read failed", zap.Error(err))
		}

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				if snap, ok := s.decode([]byte(m.Payload)); ok && !send(ctx, out, snap) {
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *RedisStore) decode(raw []byte) (Snapshot, bool) {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		s.log.Warn("remote snapshot ignored: undecodable", zap.Error(err))
		return Snapshot{}, false
	}
	snap.State.Normalize()
	return snap, true
}

func send(ctx context.Context, out chan<- Snapshot, snap Snapshot) bool {
	select {
	case out <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}
