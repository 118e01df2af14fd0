package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sporelabs/sporeverse/internal/model"
)

func TestSaveAndGetProfile(t *testing.T) {
	store := New()
	ctx := context.Background()

	profile := &model.Profile{
		Address:   "0xabc",
		Label:     "Zed",
		Avatar:    "https://example.com/zed.png",
		UpdatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveProfile(ctx, profile))

	got, err := store.GetProfile(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, *profile, *got)
}

func TestGetProfileNotFound(t *testing.T) {
	store := New()

	_, err := store.GetProfile(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, model.ErrProfileNotFound)
}

func TestSaveProfileOverwrites(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.SaveProfile(ctx, &model.Profile{Address: "0xabc", Label: "Old"}))
	require.NoError(t, store.SaveProfile(ctx, &model.Profile{Address: "0xabc", Label: "New"}))

	got, err := store.GetProfile(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "New", got.Label)
}

func TestGetProfileReturnsCopy(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.SaveProfile(ctx, &model.Profile{Address: "0xabc", Label: "Zed"}))

	first, err := store.GetProfile(ctx, "0xabc")
	require.NoError(t, err)
	first.Label = "mutated"

	second, err := store.GetProfile(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "Zed", second.Label)
}
