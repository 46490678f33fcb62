package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpellegrini/irrigo/internal/model"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	ran := time.Date(2024, 7, 14, 5, 12, 0, 0, time.UTC)

	rec := model.HistoryRecord{
		Zones: []model.ZoneHistory{
			{ZoneID: 1, LastRun: &ran},
			{ZoneID: 2, LastRun: nil},
		},
	}
	require.NoError(t, NewFileStore(path).Save(rec))

	// A fresh instance must reproduce the record exactly.
	got, err := NewFileStore(path).Load()
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, model.HistoryVersion, got.Version)
	assert.Equal(t, model.HistoryKey, got.Key)
	require.Len(t, got.Zones, 2)
	require.NotNil(t, got.Zones[0].LastRun)
	assert.True(t, got.Zones[0].LastRun.Equal(ran))
	assert.Nil(t, got.Zones[1].LastRun)
}

func TestFileStoreAbsentOnFirstRun(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))

	got, err := store.Load()

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreIgnoresUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":99,"key":"x","zones":[]}`), 0o644))

	got, err := NewFileStore(path).Load()

	require.NoError(t, err)
	assert.Nil(t, got)
}
