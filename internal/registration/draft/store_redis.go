package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"spiceportal/internal/platform/redis"
	"spiceportal/pkg/requestcontext"
	"spiceportal/pkg/sentinel"
)

const keyPrefix = "spiceportal:draft:"

// Redis persists drafts as JSON blobs with a TTL so abandoned registrations
// age out. Execute runs under WATCH so two requests on the same session
// cannot interleave a read-modify-write.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (s *Redis) Find(ctx context.Context, sessionID string) (*Draft, error) {
	raw, err := s.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &d, nil
}

func (s *Redis) Execute(ctx context.Context, sessionID string, fn func(d *Draft) error) (*Draft, error) {
	key := keyPrefix + sessionID
	var result *Draft

	txn := func(tx *goredis.Tx) error {
		d := NewDraft(sessionID, requestcontext.Now(ctx))
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		if err == nil {
			if err := json.Unmarshal(raw, d); err != nil {
				return fmt.Errorf("decode draft: %w", err)
			}
		}

		if err := fn(d); err != nil {
			return err
		}

		encoded, err := json.Marshal(d)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = d
		return nil
	}

	// One retry on WATCH conflict keeps concurrent same-session requests
	// serialized without spinning.
	for attempt := 0; attempt < 2; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("%w: draft update conflicted", sentinel.ErrConflict)
}

func (s *Redis) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
