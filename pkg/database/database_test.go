package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/samogod/dreamprep/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := config.Default()
	cfg.Ledger.Enabled = true
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "ledger", "runs.db")

	db, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func TestNew_Disabled(t *testing.T) {
	db, err := New(config.Default())
	require.NoError(t, err)
	assert.False(t, db.IsEnabled())

	require.NoError(t, db.TrackRun(&RunRecord{Instance: "ignored"}))

	_, err = db.QueryRuns("")
	assert.Error(t, err)
	assert.NoError(t, db.Close())
}

func TestTrackRun_AssignsIDAndTime(t *testing.T) {
	db := newTestDB(t)
	assert.True(t, db.IsEnabled())
	assert.FileExists(t, db.Path())

	rec := &RunRecord{
		Instance:      "testuser",
		Class:         "person",
		ConceptsFile:  "/tmp/concepts.json",
		InstanceDir:   "/tmp/data/testuser",
		ImageCount:    5,
		ImagesValid:   true,
		MaxTrainSteps: 600,
		Command:       "accelerate launch train_dreambooth.py",
	}
	require.NoError(t, db.TrackRun(rec))
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	runs, err := db.QueryRuns("testuser")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, rec.ID, runs[0].ID)
	assert.Equal(t, "person", runs[0].Class)
	assert.Equal(t, 5, runs[0].ImageCount)
	assert.True(t, runs[0].ImagesValid)
	assert.Equal(t, 600, runs[0].MaxTrainSteps)
}

func TestQueryRuns_FilterAndOrder(t *testing.T) {
	db := newTestDB(t)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.TrackRun(&RunRecord{Instance: "alice", Class: "woman", CreatedAt: base}))
	require.NoError(t, db.TrackRun(&RunRecord{Instance: "bob", Class: "man", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, db.TrackRun(&RunRecord{Instance: "alice", Class: "woman", CreatedAt: base.Add(2 * time.Minute)}))

	all, err := db.QueryRuns("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alice", all[0].Instance)
	assert.Equal(t, "bob", all[1].Instance)

	alice, err := db.QueryRuns("alice")
	require.NoError(t, err)
	require.Len(t, alice, 2)
	assert.True(t, alice[0].CreatedAt.After(alice[1].CreatedAt))

	none, err := db.QueryRuns("carol")
	require.NoError(t, err)
	assert.Empty(t, none)
}
