package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aadhaar-netra/netra-cli/internal/model"
)

func init() {
	// Replace global logger with a no-op to avoid nil pointer panics in tests.
	zap.ReplaceGlobals(zap.NewNop())
}

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateRun(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec("INSERT INTO runs").
		WithArgs(pgxmock.AnyArg(), "running", "2026-01-01", "data/raw.csv", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), model.Run{
		ReferenceDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		InputPath:     "data/raw.csv",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteRun(t *testing.T) {
	s, mock := newMockPostgres(t)
	result := &model.RunResult{Districts: 2, TopDistrictID: "D002", TopCPS: 85.0}
	resultJSON, err := json.Marshal(result)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs("complete", string(resultJSON), pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.CompleteRun(context.Background(), "run-1", result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteRunNotFound(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec("UPDATE runs SET status").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), "missing", &model.RunResult{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFailRun(t *testing.T) {
	s, mock := newMockPostgres(t)
	mock.ExpectExec("UPDATE runs SET status").
		WithArgs("failed", "bad input", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FailRun(context.Background(), "run-1", "bad input"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRun(t *testing.T) {
	s, mock := newMockPostgres(t)
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	input := "data/raw.csv"
	resultJSON := []byte(`{"districts":2,"top_district_id":"D002","top_cps":85}`)

	mock.ExpectQuery("SELECT (.+) FROM runs WHERE id").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "status", "reference_date", "input_path", "result", "error", "created_at", "updated_at",
		}).AddRow("run-1", "complete", ref, &input, resultJSON, (*string)(nil), now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, "data/raw.csv", run.InputPath)
	require.NotNil(t, run.Result)
	assert.Equal(t, "D002", run.Result.TopDistrictID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListRunsFiltered(t *testing.T) {
	s, mock := newMockPostgres(t)
	ref := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM runs WHERE status").
		WithArgs("complete", 5).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "status", "reference_date", "input_path", "result", "error", "created_at", "updated_at",
		}).AddRow("run-1", "complete", ref, (*string)(nil), []byte(nil), (*string)(nil), now, now))

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: model.RunStatusComplete, Limit: 5})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Nil(t, runs[0].Result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertDistricts(t *testing.T) {
	s, mock := newMockPostgres(t)
	districts := []model.ScoredDistrict{
		{Aggregate: model.DistrictAggregate{DistrictID: "D002"}, BSI: 1.0, CPS: 85.0, Tier: 1},
		{Aggregate: model.DistrictAggregate{DistrictID: "D001"}, BSI: 0.0, CPS: 15.0, Tier: 5},
	}
	for i, d := range districts {
		mock.ExpectExec("INSERT INTO run_districts").
			WithArgs("run-1", i+1, d.Aggregate.DistrictID, d.BSI, d.CPS, int(d.Tier), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	require.NoError(t, s.InsertDistricts(context.Background(), "run-1", districts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListDistricts(t *testing.T) {
	s, mock := newMockPostgres(t)
	detail, err := json.Marshal(model.ScoredDistrict{
		Aggregate: model.DistrictAggregate{DistrictID: "D002"},
		CPS:       85.0,
		Tier:      1,
	})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT detail FROM run_districts").
		WithArgs("run-1", 10).
		WillReturnRows(pgxmock.NewRows([]string{"detail"}).AddRow(detail))

	districts, err := s.ListDistricts(context.Background(), "run-1", 10)
	require.NoError(t, err)
	require.Len(t, districts, 1)
	assert.Equal(t, "D002", districts[0].Aggregate.DistrictID)
	assert.InDelta(t, 85.0, districts[0].CPS, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}
