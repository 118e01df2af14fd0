package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/sporelabs/sporeverse/internal/model"
)

type StoreSuite struct {
	suite.Suite
	mini  *miniredis.Miniredis
	store *Store
	ctx   context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	s.store = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StoreSuite) TestSaveAndGetProfile() {
	profile := &model.Profile{
		Address:   "0xaaa",
		Label:     "Zed",
		Avatar:    "https://example.com/zed.png",
		UpdatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	err := s.store.SaveProfile(s.ctx, profile)
	s.Require().NoError(err)

	retrieved, err := s.store.GetProfile(s.ctx, "0xaaa")
	s.Require().NoError(err)
	s.Equal(profile.Label, retrieved.Label)
	s.Equal(profile.Avatar, retrieved.Avatar)
	s.True(profile.UpdatedAt.Equal(retrieved.UpdatedAt))
}

func (s *StoreSuite) TestGetProfileNotFound() {
	_, err := s.store.GetProfile(s.ctx, "0xmissing")
	s.ErrorIs(err, model.ErrProfileNotFound)
}

func (s *StoreSuite) TestSaveProfileOverwrites() {
	s.Require().NoError(s.store.SaveProfile(s.ctx, &model.Profile{Address: "0xaaa", Label: "Old"}))
	s.Require().NoError(s.store.SaveProfile(s.ctx, &model.Profile{Address: "0xaaa", Label: "New"}))

	retrieved, err := s.store.GetProfile(s.ctx, "0xaaa")
	s.Require().NoError(err)
	s.Equal("New", retrieved.Label)
}

func (s *StoreSuite) TestProfileTTLExpires() {
	client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
	cfg := DefaultConfig()
	cfg.ProfileTTL = time.Hour
	store := NewWithClient(client, cfg)

	s.Require().NoError(store.SaveProfile(s.ctx, &model.Profile{Address: "0xbbb", Label: "Ephemeral"}))

	s.mini.FastForward(2 * time.Hour)

	_, err := store.GetProfile(s.ctx, "0xbbb")
	s.ErrorIs(err, model.ErrProfileNotFound)
}
