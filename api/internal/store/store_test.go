package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fetal-health/api/internal/fetal"
)

func TestSafeDSNSummary(t *testing.T) {
	got := SafeDSNSummary("postgres://bot:secret@db:5432/fetal?sslmode=disable")
	assert.Equal(t, "host=db:5432 db=fetal user=bot", got)
	assert.NotContains(t, got, "secret")

	assert.Equal(t, "dsn: parse error", SafeDSNSummary("::"))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

// TestPredictionRepo runs against a real Postgres when TEST_DATABASE_URL is set.
func TestPredictionRepo(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, MigrateUp(db))
	require.NoError(t, MigrateUp(db), "second run is a no-op")

	repo := NewPredictionRepo(db)
	chatID := time.Now().UnixNano()

	in, err := fetal.ParseCSV("120,0.002,0.0,0.006,0.003,0.0,0.0,73,0.5,43,2.4,64,62,126,2,0,136,641,1")
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, chatID, in, fetal.PredictionOutput{Prediction: 1, PredictionLabel: "Normal", Confidence: 0.8}))
	require.NoError(t, repo.Insert(ctx, chatID, in, fetal.PredictionOutput{Prediction: 3, PredictionLabel: "Pathological", Confidence: 0.6}))

	rows, err := repo.Recent(ctx, chatID, 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Pathological", rows[0].Label)
	assert.Equal(t, in.Vector(), rows[0].Features)

	_, err = repo.PurgeOlderThan(ctx, 0)
	assert.Error(t, err)
}
