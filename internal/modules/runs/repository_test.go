package runs

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/lossdash/internal/domain"
)

func setupTestRepo(t *testing.T) (*Repository, *sql.DB) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db, time.Hour)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo, db
}

func sampleResult(mean float64) *domain.SimulationResult {
	return &domain.SimulationResult{
		NumSimulations: 3,
		MeanLoss:       mean,
		MedianLoss:     mean,
		StdLoss:        1.5,
		VaR95:          mean * 2,
		VaR99:          mean * 3,
		Losses:         []float64{mean - 1, mean, mean + 1},
	}
}

func TestSaveAndGet(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	fetched := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	minLoss := 10.0
	result := sampleResult(100)
	result.MinLoss = &minLoss

	require.NoError(t, repo.Save(ctx, Record{ID: "run-1", FetchedAt: fetched, Result: result}))

	rec, err := repo.Get(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "run-1", rec.ID)
	assert.True(t, fetched.Equal(rec.FetchedAt))
	assert.Equal(t, []float64{99, 100, 101}, rec.Result.Losses)
	assert.Equal(t, 200.0, rec.Result.VaR95)
	require.NotNil(t, rec.Result.MinLoss)
	assert.Equal(t, 10.0, *rec.Result.MinLoss)
	assert.Nil(t, rec.Result.MaxLoss)
}

func TestGet_Missing(t *testing.T) {
	repo, _ := setupTestRepo(t)

	rec, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSave_Validation(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	assert.Error(t, repo.Save(ctx, Record{Result: sampleResult(1)}))
	assert.Error(t, repo.Save(ctx, Record{ID: "x"}))
}

func TestLatest_SkipsExpired(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }
	require.NoError(t, repo.Save(ctx, Record{ID: "old", FetchedAt: base, Result: sampleResult(1)}))

	repo.now = func() time.Time { return base.Add(30 * time.Minute) }
	require.NoError(t, repo.Save(ctx, Record{ID: "new", FetchedAt: base.Add(30 * time.Minute), Result: sampleResult(2)}))

	rec, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "new", rec.ID)

	// Both expired
	repo.now = func() time.Time { return base.Add(2 * time.Hour) }
	rec, err = repo.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, rec)

	// Get still returns stale runs
	rec, err = repo.Get(ctx, "old")
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestList_NewestFirst(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }
	for i, id := range []string{"a", "b", "c"} {
		fetched := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Save(ctx, Record{ID: id, FetchedAt: fetched, Result: sampleResult(float64(i + 1))}))
	}

	entries, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].ID)
	assert.Equal(t, "b", entries[1].ID)
	assert.Equal(t, 3.0, entries[0].MeanLoss)
	assert.Equal(t, 3, entries[0].NumSimulations)

	entries, err = repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestList_Empty(t *testing.T) {
	repo, _ := setupTestRepo(t)

	entries, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestDeleteExpired(t *testing.T) {
	repo, db := setupTestRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }
	require.NoError(t, repo.Save(ctx, Record{ID: "stale", FetchedAt: base, Result: sampleResult(1)}))

	repo.now = func() time.Time { return base.Add(90 * time.Minute) }
	require.NoError(t, repo.Save(ctx, Record{ID: "fresh", FetchedAt: base.Add(90 * time.Minute), Result: sampleResult(2)}))

	deleted, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM simulation_runs").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestCleanupJob(t *testing.T) {
	repo, db := setupTestRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }
	require.NoError(t, repo.Save(ctx, Record{ID: "stale", FetchedAt: base, Result: sampleResult(1)}))
	repo.now = func() time.Time { return base.Add(2 * time.Hour) }

	job := NewCleanupJob(repo, zerolog.New(nil).Level(zerolog.Disabled))
	assert.Equal(t, "run_cleanup", job.Name())
	require.NoError(t, job.Run())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM simulation_runs").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestNewRepository_DefaultTTL(t *testing.T) {
	repo := NewRepository(nil, 0)
	assert.Equal(t, DefaultTTL, repo.ttl)
}
