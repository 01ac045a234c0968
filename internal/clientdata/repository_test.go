package clientdata

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE feed_responses (endpoint TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE chart_ranges (chart TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// every :memory: connection is its own database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

type storedRange struct {
	Start int `msgpack:"start"`
	End   int `msgpack:"end"`
}

func TestStoreAndGet(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	payload := []map[string]interface{}{
		{"Semana": "1.Janeiro", "Captação": 2500000.0},
		{"Semana": "2.Janeiro", "Captação": int64(-300000)},
	}
	require.NoError(t, repo.Store(TableFeedResponses, "/dados/semanal", payload, TTLFeedResponse))

	var got []map[string]interface{}
	found, err := repo.GetIfFresh(TableFeedResponses, "/dados/semanal", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 2)
	assert.Equal(t, "1.Janeiro", got[0]["Semana"])
	assert.Equal(t, 2500000.0, got[0]["Captação"])
	assert.EqualValues(t, -300000, got[1]["Captação"])
}

func TestStore_ReplacesExisting(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	require.NoError(t, repo.Store(TableChartRanges, "weekly-inflow", storedRange{Start: 0, End: 5}, TTLChartRange))
	require.NoError(t, repo.Store(TableChartRanges, "weekly-inflow", storedRange{Start: 2, End: 4}, TTLChartRange))

	var got storedRange
	found, err := repo.Get(TableChartRanges, "weekly-inflow", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, storedRange{Start: 2, End: 4}, got)
}

func TestGetIfFresh_ExpiredFallsBackToGet(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	require.NoError(t, repo.Store(TableFeedResponses, "/dados/captacao", []string{"stale"}, -time.Hour))

	var fresh []string
	found, err := repo.GetIfFresh(TableFeedResponses, "/dados/captacao", &fresh)
	require.NoError(t, err)
	assert.False(t, found)

	var stale []string
	found, err = repo.Get(TableFeedResponses, "/dados/captacao", &stale)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"stale"}, stale)
}

func TestGet_Missing(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	var v interface{}
	found, err := repo.Get(TableFeedResponses, "nope", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidTable(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	err := repo.Store("users; DROP TABLE feed_responses", "k", 1, time.Hour)
	assert.Error(t, err)

	var v interface{}
	_, err = repo.Get("unknown", "k", &v)
	assert.Error(t, err)

	_, err = repo.DeleteExpired("unknown")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	require.NoError(t, repo.Store(TableChartRanges, "accumulated-inflow", storedRange{Start: 1, End: 2}, time.Hour))
	require.NoError(t, repo.Delete(TableChartRanges, "accumulated-inflow"))

	var got storedRange
	found, err := repo.Get(TableChartRanges, "accumulated-inflow", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCleanupJob(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	require.NoError(t, repo.Store(TableFeedResponses, "old", 1, -time.Hour))
	require.NoError(t, repo.Store(TableFeedResponses, "new", 2, time.Hour))
	require.NoError(t, repo.Store(TableChartRanges, "old", storedRange{}, -time.Minute))

	job := NewCleanupJob(repo, zerolog.New(nil).Level(zerolog.Disabled))
	assert.Equal(t, "cache_cleanup", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, map[string]int64{TableFeedResponses: 1, TableChartRanges: 1}, job.LastDeleted())

	var v int
	found, err := repo.Get(TableFeedResponses, "old", &v)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = repo.Get(TableFeedResponses, "new", &v)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, v)

	require.NoError(t, job.Run())
	assert.Equal(t, map[string]int64{TableFeedResponses: 0, TableChartRanges: 0}, job.LastDeleted())
}
