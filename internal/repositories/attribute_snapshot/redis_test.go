package attributesnapshot_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/effect-runtime/internal/attributes"
	"github.com/KirkDiggler/effect-runtime/internal/errors"
	"github.com/KirkDiggler/effect-runtime/internal/pkg/clock"
	attributesnapshot "github.com/KirkDiggler/effect-runtime/internal/repositories/attribute_snapshot"
	"github.com/KirkDiggler/effect-runtime/internal/testutils"
)

type RedisRepositoryTestSuite struct {
	suite.Suite

	ctx     context.Context
	cleanup func()
	clk     *clock.Fixed
	repo    attributesnapshot.Repository
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()

	client, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup
	s.clk = clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	repo, err := attributesnapshot.NewRedisRepository(&attributesnapshot.Config{
		Client: client,
		Clock:  s.clk,
	})
	s.Require().NoError(err)
	s.repo = repo
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

func (s *RedisRepositoryTestSuite) records() map[attributes.ID]attributes.Record {
	return map[attributes.ID]attributes.Record{
		attributes.Health:    {Base: 80, Current: 65},
		attributes.MaxHealth: {Base: 100, Current: 100},
	}
}

func (s *RedisRepositoryTestSuite) TestSaveAndGet() {
	saved, err := s.repo.Save(s.ctx, attributesnapshot.SaveInput{
		EntityID: "hero",
		Records:  s.records(),
	})
	s.Require().NoError(err)
	s.Equal(s.clk.Now(), saved.Snapshot.CapturedAt)

	got, err := s.repo.Get(s.ctx, attributesnapshot.GetInput{EntityID: "hero"})
	s.Require().NoError(err)
	s.Equal("hero", got.Snapshot.EntityID)
	s.Equal(65.0, got.Snapshot.Records[attributes.Health].Current)
	s.Equal(100.0, got.Snapshot.Records[attributes.MaxHealth].Base)
}

func (s *RedisRepositoryTestSuite) TestSaveReplacesPrevious() {
	_, err := s.repo.Save(s.ctx, attributesnapshot.SaveInput{EntityID: "hero", Records: s.records()})
	s.Require().NoError(err)

	updated := s.records()
	rec := updated[attributes.Health]
	rec.Current = 10
	updated[attributes.Health] = rec

	_, err = s.repo.Save(s.ctx, attributesnapshot.SaveInput{EntityID: "hero", Records: updated})
	s.Require().NoError(err)

	got, err := s.repo.Get(s.ctx, attributesnapshot.GetInput{EntityID: "hero"})
	s.Require().NoError(err)
	s.Equal(10.0, got.Snapshot.Records[attributes.Health].Current)
}

func (s *RedisRepositoryTestSuite) TestGetMissing() {
	_, err := s.repo.Get(s.ctx, attributesnapshot.GetInput{EntityID: "nobody"})
	s.Require().Error(err)
	s.True(errors.IsNotFound(err))
}

func (s *RedisRepositoryTestSuite) TestDelete() {
	_, err := s.repo.Save(s.ctx, attributesnapshot.SaveInput{EntityID: "hero", Records: s.records()})
	s.Require().NoError(err)

	out, err := s.repo.Delete(s.ctx, attributesnapshot.DeleteInput{EntityID: "hero"})
	s.Require().NoError(err)
	s.True(out.Deleted)

	out, err = s.repo.Delete(s.ctx, attributesnapshot.DeleteInput{EntityID: "hero"})
	s.Require().NoError(err)
	s.False(out.Deleted)
}

func (s *RedisRepositoryTestSuite) TestInputValidation() {
	_, err := s.repo.Save(s.ctx, attributesnapshot.SaveInput{Records: s.records()})
	s.Error(err)

	_, err = s.repo.Save(s.ctx, attributesnapshot.SaveInput{EntityID: "hero"})
	s.Error(err)

	_, err = s.repo.Get(s.ctx, attributesnapshot.GetInput{})
	s.Error(err)

	_, err = s.repo.Delete(s.ctx, attributesnapshot.DeleteInput{})
	s.Error(err)
}

func TestRedisRepositorySuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}

func TestNewRedisRepositoryValidation(t *testing.T) {
	if _, err := attributesnapshot.NewRedisRepository(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := attributesnapshot.NewRedisRepository(&attributesnapshot.Config{}); err == nil {
		t.Fatal("expected error for empty config")
	}
}
