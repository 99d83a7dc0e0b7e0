package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schema mirrors the layout in §6: runs(run_id, parent_run_id,
// parent_cycle, created_at, environment_signature) and
// snapshots(run_id, cycle, payload_blob) keyed by (run_id, cycle). The
// teacher's db.DB wraps pgxpool behind a sqlc-generated Queries type;
// sqlc has nothing to generate from here, so PostgresStore issues SQL
// directly against the pool instead.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS normcode_runs (
	run_id               TEXT PRIMARY KEY,
	parent_run_id        TEXT,
	parent_cycle         INTEGER,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	environment_signature TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS normcode_snapshots (
	run_id       TEXT NOT NULL REFERENCES normcode_runs(run_id),
	cycle        INTEGER NOT NULL,
	payload_blob JSONB NOT NULL,
	PRIMARY KEY (run_id, cycle)
);
`

// PostgresStore is the production Store backing, holding checkpoint
// state in Postgres via a pgxpool.Pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn, ensuring the checkpoint tables
// exist.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: parsing database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("checkpoint: pinging database: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("checkpoint: ensuring schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap Snapshot, environmentSignature string) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("checkpoint: marshaling snapshot: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("checkpoint: beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		INSERT INTO normcode_runs (run_id, environment_signature)
		VALUES ($1, $2)
		ON CONFLICT (run_id) DO UPDATE SET environment_signature = $2
	`, snap.RunID, environmentSignature); err != nil {
		return fmt.Errorf("checkpoint: upserting run: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO normcode_snapshots (run_id, cycle, payload_blob)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id, cycle) DO UPDATE SET payload_blob = $3
	`, snap.RunID, snap.Cycle, payload); err != nil {
		return fmt.Errorf("checkpoint: upserting snapshot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("checkpoint: committing transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) LoadSnapshot(ctx context.Context, runID string, cycle int) (*Snapshot, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT payload_blob FROM normcode_snapshots WHERE run_id = $1 AND cycle = $2
	`, runID, cycle).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("run %q cycle %d: %w", runID, cycle, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: loading snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("checkpoint: decoding snapshot: %w", err)
	}
	return &snap, nil
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context, runID string) (*Snapshot, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT payload_blob FROM normcode_snapshots
		WHERE run_id = $1 ORDER BY cycle DESC LIMIT 1
	`, runID).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("run %q: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: loading latest snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("checkpoint: decoding snapshot: %w", err)
	}
	return &snap, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.run_id, COALESCE(r.parent_run_id, ''), COALESCE(r.parent_cycle, 0),
		       r.created_at, r.environment_signature,
		       COALESCE((SELECT MAX(cycle) FROM normcode_snapshots s WHERE s.run_id = r.run_id), 0)
		FROM normcode_runs r
		ORDER BY r.created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var (
			info      RunInfo
			createdAt time.Time
		)
		if err := rows.Scan(&info.RunID, &info.ParentRunID, &info.ParentCycle, &createdAt, &info.EnvironmentSig, &info.LatestCycle); err != nil {
			return nil, fmt.Errorf("checkpoint: scanning run row: %w", err)
		}
		info.CreatedAtUnix = createdAt.Unix()
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("checkpoint: iterating run rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Fork(ctx context.Context, sourceRunID string, sourceCycle int, newRunID string) error {
	snap, err := s.LoadSnapshot(ctx, sourceRunID, sourceCycle)
	if err != nil {
		return fmt.Errorf("checkpoint: loading fork source: %w", err)
	}
	sig, err := s.EnvironmentSignature(ctx, sourceRunID)
	if err != nil {
		return fmt.Errorf("checkpoint: reading source environment signature: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("checkpoint: beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		INSERT INTO normcode_runs (run_id, parent_run_id, parent_cycle, environment_signature)
		VALUES ($1, $2, $3, $4)
	`, newRunID, sourceRunID, sourceCycle, sig); err != nil {
		return fmt.Errorf("checkpoint: inserting forked run: %w", err)
	}

	forked := *snap
	forked.RunID = newRunID
	forked.Cycle = 0
	payload, err := json.Marshal(forked)
	if err != nil {
		return fmt.Errorf("checkpoint: marshaling forked snapshot: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO normcode_snapshots (run_id, cycle, payload_blob) VALUES ($1, 0, $2)
	`, newRunID, payload); err != nil {
		return fmt.Errorf("checkpoint: inserting forked snapshot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("checkpoint: committing fork transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) EnvironmentSignature(ctx context.Context, runID string) (string, error) {
	var sig string
	err := s.pool.QueryRow(ctx, `
		SELECT environment_signature FROM normcode_runs WHERE run_id = $1
	`, runID).Scan(&sig)
	if err == pgx.ErrNoRows {
		return "", fmt.Errorf("run %q: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("checkpoint: reading environment signature: %w", err)
	}
	return sig, nil
}
