package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the jobs table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id         TEXT PRIMARY KEY,
    caller_id  TEXT NOT NULL DEFAULT '',
    state      TEXT NOT NULL,
    input      TEXT NOT NULL,
    options    JSONB NOT NULL DEFAULT '{}',
    stage      TEXT NOT NULL DEFAULT '',
    result     JSONB,
    error      JSONB,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_caller ON jobs(caller_id);
CREATE INDEX IF NOT EXISTS idx_jobs_state ON jobs(state);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database, for
// deployments where job records must survive a process restart. Options,
// result, and error payloads are serialised as JSONB.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore] over the given connection or
// pool. Call [PostgresStore.Migrate] before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL, creating the jobs table and indexes if
// they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("job: migrate: %w", err)
	}
	return nil
}

// Create implements [Store.Create].
func (s *PostgresStore) Create(ctx context.Context, j *Job) error {
	optsJSON, resultJSON, errJSON, err := marshalPayloads(j)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO jobs (id, caller_id, state, input, options, stage, result, error, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err = s.db.Exec(ctx, query,
		j.ID, j.CallerID, string(j.State), j.Input, optsJSON, j.Stage,
		resultJSON, errJSON, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("job: job %q already exists", j.ID)
		}
		return fmt.Errorf("job: create: %w", err)
	}
	return nil
}

// Get implements [Store.Get].
func (s *PostgresStore) Get(ctx context.Context, id string) (*Job, error) {
	const query = `
		SELECT id, caller_id, state, input, options, stage, result, error, created_at, updated_at
		FROM jobs
		WHERE id = $1`

	j, err := scanJob(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("job: get %q: %w", id, err)
	}
	return j, nil
}

// Update implements [Store.Update].
func (s *PostgresStore) Update(ctx context.Context, j *Job) error {
	optsJSON, resultJSON, errJSON, err := marshalPayloads(j)
	if err != nil {
		return err
	}

	const query = `
		UPDATE jobs SET
			caller_id = $2, state = $3, input = $4, options = $5,
			stage = $6, result = $7, error = $8, updated_at = $9
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query,
		j.ID, j.CallerID, string(j.State), j.Input, optsJSON, j.Stage,
		resultJSON, errJSON, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("job: update %q: %w", j.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List implements [Store.List].
func (s *PostgresStore) List(ctx context.Context) ([]*Job, error) {
	const query = `
		SELECT id, caller_id, state, input, options, stage, result, error, created_at, updated_at
		FROM jobs
		ORDER BY created_at DESC, id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("job: list: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("job: list scan: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("job: list rows: %w", err)
	}
	return jobs, nil
}

func marshalPayloads(j *Job) (opts, result, errInfo []byte, err error) {
	opts, err = json.Marshal(j.Options)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("job: marshal options: %w", err)
	}
	if j.Result != nil {
		result, err = json.Marshal(j.Result)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("job: marshal result: %w", err)
		}
	}
	if j.Error != nil {
		errInfo, err = json.Marshal(j.Error)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("job: marshal error: %w", err)
		}
	}
	return opts, result, errInfo, nil
}

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	var state string
	var optsJSON, resultJSON, errJSON []byte

	if err := row.Scan(
		&j.ID, &j.CallerID, &state, &j.Input, &optsJSON, &j.Stage,
		&resultJSON, &errJSON, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return nil, err
	}
	j.State = State(state)

	if err := json.Unmarshal(optsJSON, &j.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	if len(resultJSON) > 0 {
		j.Result = &Result{}
		if err := json.Unmarshal(resultJSON, j.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	if len(errJSON) > 0 {
		j.Error = &ErrorInfo{}
		if err := json.Unmarshal(errJSON, j.Error); err != nil {
			return nil, fmt.Errorf("unmarshal error: %w", err)
		}
	}
	return &j, nil
}

// isDuplicateKeyError checks whether a PostgreSQL error is a unique-violation
// error (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
