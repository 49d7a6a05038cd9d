package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/aadhaar-netra/netra-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig tunes the pgx pool beyond the connection string.
type PoolConfig struct {
	MaxConns    int32
	MinConns    int32
	MaxConnIdle time.Duration
}

// NewPostgres connects to PostgreSQL and verifies the connection.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse connection string")
	}
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			cfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			cfg.MinConns = poolCfg.MinConns
		}
		if poolCfg.MaxConnIdle > 0 {
			cfg.MaxConnIdleTime = poolCfg.MaxConnIdle
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             UUID PRIMARY KEY,
	status         TEXT NOT NULL DEFAULT 'running',
	reference_date DATE NOT NULL,
	input_path     TEXT,
	result         JSONB,
	error          TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_districts (
	run_id      UUID NOT NULL REFERENCES runs(id),
	rank        INTEGER NOT NULL,
	district_id TEXT NOT NULL,
	bsi         DOUBLE PRECISION NOT NULL,
	cps         DOUBLE PRECISION NOT NULL,
	tier        INTEGER NOT NULL,
	detail      JSONB NOT NULL,
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_run_districts_district ON run_districts(district_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run model.Run) (*model.Run, error) {
	run.ID = uuid.New().String()
	run.Status = model.RunStatusRunning
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, reference_date, input_path, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, string(run.Status), run.ReferenceDate.Format("2006-01-02"), run.InputPath, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, result = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusComplete), string(resultJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), cause, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, reference_date, input_path, result, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	run, err := scanPgRun(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, eris.Errorf("postgres: get run %s: not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, reference_date, input_path, result, error, created_at, updated_at FROM runs`
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` WHERE status = $1`
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanPgRun(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func (s *PostgresStore) InsertDistricts(ctx context.Context, runID string, districts []model.ScoredDistrict) error {
	for i, d := range districts {
		detail, err := json.Marshal(d)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal district %s", d.Aggregate.DistrictID)
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO run_districts (run_id, rank, district_id, bsi, cps, tier, detail) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			runID, i+1, d.Aggregate.DistrictID, d.BSI, d.CPS, int(d.Tier), string(detail),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert district %s", d.Aggregate.DistrictID)
		}
	}
	return nil
}

func (s *PostgresStore) ListDistricts(ctx context.Context, runID string, limit int) ([]model.ScoredDistrict, error) {
	query := `SELECT detail FROM run_districts WHERE run_id = $1 ORDER BY rank`
	args := []any{runID}
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $2`
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list districts for %s", runID)
	}
	defer rows.Close()

	var districts []model.ScoredDistrict
	for rows.Next() {
		var detail []byte
		if err := rows.Scan(&detail); err != nil {
			return nil, eris.Wrap(err, "postgres: scan district")
		}
		var d model.ScoredDistrict
		if err := json.Unmarshal(detail, &d); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal district")
		}
		districts = append(districts, d)
	}
	return districts, eris.Wrap(rows.Err(), "postgres: iterate districts")
}

func scanPgRun(scan func(...any) error) (*model.Run, error) {
	var run model.Run
	var status string
	var refDate time.Time
	var inputPath, errMsg *string
	var resultJSON []byte

	if err := scan(&run.ID, &status, &refDate, &inputPath, &resultJSON, &errMsg, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}

	run.Status = model.RunStatus(status)
	run.ReferenceDate = refDate
	if inputPath != nil {
		run.InputPath = *inputPath
	}
	if errMsg != nil {
		run.Error = *errMsg
	}
	if len(resultJSON) > 0 {
		var result model.RunResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal run result")
		}
		run.Result = &result
	}
	return &run, nil
}
