//go:build integration

package draft_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"spiceportal/internal/domain"
	"spiceportal/internal/registration/draft"
	"spiceportal/pkg/sentinel"
	"spiceportal/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *draft.Redis
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = draft.NewRedis(s.redis.Client, time.Hour)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()

	_, err := s.store.Find(ctx, "sess-1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.Execute(ctx, "sess-1", func(d *draft.Draft) error {
		d.Merge(draft.Update{
			RegistrationType: domain.RegistrationExisting,
			Role:             domain.RoleExporter,
			Fields:           map[string]string{"fullName": "Nimal Perera"},
		}, time.Now())
		return nil
	})
	s.Require().NoError(err)

	found, err := s.store.Find(ctx, "sess-1")
	s.Require().NoError(err)
	s.Equal(draft.StateBasicInfoPending, found.State)
	s.Equal("Nimal Perera", found.Fields["fullName"])
	s.Equal(domain.RoleExporter, found.Role)

	s.Require().NoError(s.store.Delete(ctx, "sess-1"))
	_, err = s.store.Find(ctx, "sess-1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestExecuteRollsBackOnError() {
	ctx := context.Background()

	_, err := s.store.Execute(ctx, "sess-2", func(d *draft.Draft) error {
		d.Merge(draft.Update{Fields: map[string]string{"fullName": "Kamala"}}, time.Now())
		return nil
	})
	s.Require().NoError(err)

	_, err = s.store.Execute(ctx, "sess-2", func(d *draft.Draft) error {
		d.Fields["fullName"] = "changed"
		return sentinel.ErrInvalidState
	})
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	found, err := s.store.Find(ctx, "sess-2")
	s.Require().NoError(err)
	s.Equal("Kamala", found.Fields["fullName"])
}

func (s *RedisStoreSuite) TestConcurrentMergesAllLand() {
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n))
			for attempt := 0; attempt < 10; attempt++ {
				_, err := s.store.Execute(ctx, "sess-3", func(d *draft.Draft) error {
					d.Merge(draft.Update{Fields: map[string]string{key: key}}, time.Now())
					return nil
				})
				if err == nil {
					return
				}
			}
		}(i)
	}
	wg.Wait()

	found, err := s.store.Find(ctx, "sess-3")
	s.Require().NoError(err)
	s.Len(found.Fields, writers, "every writer's field merged")
}
