package store

import (
	"testing"
	"time"

	"margin_bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaselines(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load("alice/BTC-USDT/7")
	require.NoError(t, err)
	assert.Nil(t, got)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save("alice/BTC-USDT/7", models.Baseline{FirstValue: 120, LastSeenMessageID: 42, BaseQty: 150, UpdatedAt: at}))
	require.NoError(t, s.Save("bob/ETH-USDT/8", models.Baseline{FirstValue: 5}))

	got, err = s.Load("alice/BTC-USDT/7")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 120.0, got.FirstValue)
	assert.Equal(t, int64(42), got.LastSeenMessageID)
	assert.Equal(t, 150.0, got.BaseQty)
	assert.True(t, at.Equal(got.UpdatedAt))

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice/BTC-USDT/7", "bob/ETH-USDT/8"}, keys)

	require.NoError(t, s.Delete("alice/BTC-USDT/7"))
	got, err = s.Load("alice/BTC-USDT/7")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBaselines_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save("alice/BTC-USDT/7", models.Baseline{FirstValue: 99, LastSeenMessageID: 3}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load("alice/BTC-USDT/7")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 99.0, got.FirstValue)
	assert.Equal(t, int64(3), got.LastSeenMessageID)
}
