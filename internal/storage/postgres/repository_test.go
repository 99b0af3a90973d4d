package postgres

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnString(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5433, Database: "siniestros", User: "gw", Password: "pw"}
	assert.Equal(t, "host=db port=5433 dbname=siniestros user=gw password=pw sslmode=disable", cfg.ConnString())
}

func TestRepositoryWithoutDatabase(t *testing.T) {
	var repo *Repository
	assert.False(t, repo.Available())

	repo = NewRepository(nil)
	assert.ErrorIs(t, repo.InsertOperation(context.Background(), OperationRecord{}), ErrNoDatabase)
	_, err := repo.ListOperations(context.Background(), "", 10)
	assert.ErrorIs(t, err, ErrNoDatabase)
}

// TestOperationRoundTrip runs against a real database when
// SINIESTROS_TEST_DB_HOST is set.
func TestOperationRoundTrip(t *testing.T) {
	host := os.Getenv("SINIESTROS_TEST_DB_HOST")
	if host == "" {
		t.Skip("SINIESTROS_TEST_DB_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("SINIESTROS_TEST_DB_PORT"))
	if port == 0 {
		port = 5432
	}
	db, err := OpenDatabase(DatabaseConfig{
		Host:     host,
		Port:     port,
		Database: os.Getenv("SINIESTROS_TEST_DB_NAME"),
		User:     os.Getenv("SINIESTROS_TEST_DB_USER"),
		Password: os.Getenv("SINIESTROS_TEST_DB_PASSWORD"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, EnsureSchema(ctx, db))
	repo := NewRepository(db)

	tx := "TX-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Millisecond)
	rec := OperationRecord{
		ID:          uuid.NewString(),
		Operation:   "pago_siniestro",
		Transaccion: tx,
		NumSini:     "S-1",
		Outcome:     "followup_failed",
		Error:       "status down",
		Result:      json.RawMessage(`{"pago_procesado": true}`),
		StartedAt:   now.Add(-10 * time.Second),
		FinishedAt:  now,
	}
	require.NoError(t, repo.InsertOperation(ctx, rec))
	require.NoError(t, repo.InsertOperation(ctx, rec), "duplicate ids are ignored")

	list, err := repo.ListOperations(ctx, tx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rec.ID, list[0].ID)
	assert.Equal(t, "followup_failed", list[0].Outcome)
	assert.JSONEq(t, `{"pago_procesado": true}`, string(list[0].Result))
	assert.True(t, rec.FinishedAt.Equal(list[0].FinishedAt))
}
