// Package sqlitestore persists run and step records to SQLite. Step input
// and output snapshots are stored as zstd-compressed JSON blobs.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/JimGeek/Super/pkg/compress"
	"github.com/JimGeek/Super/pkg/flow/ledger"
	"github.com/JimGeek/Super/pkg/flow/runner"
	"github.com/JimGeek/Super/pkg/idwrap"
	"github.com/JimGeek/Super/pkg/model/mflow"
)

const schema = `
CREATE TABLE IF NOT EXISTS flow_runs (
	id           BLOB PRIMARY KEY,
	flow_id      BLOB NOT NULL,
	flow_version TEXT NOT NULL,
	state        TEXT NOT NULL,
	started_at   INTEGER NOT NULL,
	ended_at     INTEGER,
	error        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS step_records (
	id            BLOB PRIMARY KEY,
	run_id        BLOB NOT NULL,
	flow_id       BLOB NOT NULL,
	node_id       BLOB NOT NULL,
	execution_id  BLOB,
	node_name     TEXT NOT NULL,
	seq           INTEGER NOT NULL,
	status        TEXT NOT NULL,
	attempt       INTEGER NOT NULL DEFAULT 1,
	input         BLOB,
	output        BLOB,
	error         TEXT NOT NULL DEFAULT '',
	started_at    INTEGER,
	completed_at  INTEGER,
	duration_ns   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_step_records_run_seq ON step_records(run_id, seq);
`

// Store is a SQLite-backed archive of runs and their step ledgers.
type Store struct {
	db *sql.DB
}

// Open opens or creates the store at path. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveRun(ctx context.Context, run ledger.RunRecord) error {
	var endedAt any
	if !run.EndedAt.IsZero() {
		endedAt = run.EndedAt.UnixNano()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flow_runs (id, flow_id, flow_version, state, started_at, ended_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state=excluded.state, ended_at=excluded.ended_at, error=excluded.error`,
		run.ID, run.FlowID, run.FlowVersion, run.State.String(), run.StartedAt.UnixNano(), endedAt, run.Error)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// SaveSteps writes the full step ledger of a run in one transaction.
func (s *Store) SaveSteps(ctx context.Context, records []ledger.StepRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO step_records
		(id, run_id, flow_id, node_id, execution_id, node_name, seq, status, attempt, input, output, error, started_at, completed_at, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		input, err := encodeSnapshot(record.Input)
		if err != nil {
			return fmt.Errorf("encode input of step %d: %w", record.Seq, err)
		}
		output, err := encodeSnapshot(record.Output)
		if err != nil {
			return fmt.Errorf("encode output of step %d: %w", record.Seq, err)
		}

		var startedAt, completedAt any
		if !record.StartedAt.IsZero() {
			startedAt = record.StartedAt.UnixNano()
		}
		if !record.CompletedAt.IsZero() {
			completedAt = record.CompletedAt.UnixNano()
		}

		var executionID any
		if !record.ExecutionID.IsZero() {
			executionID = record.ExecutionID
		}

		_, err = stmt.ExecContext(ctx,
			record.ID, record.RunID, record.FlowID, record.NodeID, executionID,
			record.NodeName, record.Seq, mflow.StringNodeState(record.Status), record.Attempt,
			input, output, record.Error, startedAt, completedAt, int64(record.Duration))
		if err != nil {
			return fmt.Errorf("insert step %d: %w", record.Seq, err)
		}
	}
	return tx.Commit()
}

// LoadSteps reads a run's ledger back in sequence order.
func (s *Store) LoadSteps(ctx context.Context, runID idwrap.IDWrap) ([]ledger.StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, flow_id, node_id, execution_id, node_name, seq, status, attempt, input, output, error, started_at, completed_at, duration_ns
		FROM step_records WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("load steps: %w", err)
	}
	defer rows.Close()

	var records []ledger.StepRecord
	for rows.Next() {
		var record ledger.StepRecord
		var statusStr string
		var executionID, input, output []byte
		var startedAt, completedAt sql.NullInt64
		var durationNs int64

		err := rows.Scan(&record.ID, &record.RunID, &record.FlowID, &record.NodeID, &executionID,
			&record.NodeName, &record.Seq, &statusStr, &record.Attempt,
			&input, &output, &record.Error, &startedAt, &completedAt, &durationNs)
		if err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}

		if len(executionID) > 0 {
			record.ExecutionID, err = idwrap.NewFromBytes(executionID)
			if err != nil {
				return nil, fmt.Errorf("decode execution id: %w", err)
			}
		}
		state, err := mflow.NodeStateFromString(statusStr)
		if err != nil {
			return nil, err
		}
		record.Status = state
		if record.Input, err = decodeSnapshot(input); err != nil {
			return nil, fmt.Errorf("decode input of step %d: %w", record.Seq, err)
		}
		if record.Output, err = decodeSnapshot(output); err != nil {
			return nil, fmt.Errorf("decode output of step %d: %w", record.Seq, err)
		}
		if startedAt.Valid {
			record.StartedAt = time.Unix(0, startedAt.Int64)
		}
		if completedAt.Valid {
			record.CompletedAt = time.Unix(0, completedAt.Int64)
		}
		record.Duration = time.Duration(durationNs)

		records = append(records, record)
	}
	return records, rows.Err()
}

// LoadRun reads a single run record.
func (s *Store) LoadRun(ctx context.Context, runID idwrap.IDWrap) (ledger.RunRecord, error) {
	var run ledger.RunRecord
	var stateStr string
	var startedAt int64
	var endedAt sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT id, flow_id, flow_version, state, started_at, ended_at, error
		FROM flow_runs WHERE id = ?`, runID).
		Scan(&run.ID, &run.FlowID, &run.FlowVersion, &stateStr, &startedAt, &endedAt, &run.Error)
	if err != nil {
		return ledger.RunRecord{}, fmt.Errorf("load run: %w", err)
	}

	state, err := runStateFromString(stateStr)
	if err != nil {
		return ledger.RunRecord{}, err
	}
	run.State = state
	run.StartedAt = time.Unix(0, startedAt)
	if endedAt.Valid {
		run.EndedAt = time.Unix(0, endedAt.Int64)
	}
	return run, nil
}

func runStateFromString(s string) (runner.RunState, error) {
	for _, state := range []runner.RunState{
		runner.RunStateNotStarted, runner.RunStateRunning,
		runner.RunStateCompleted, runner.RunStateFailed, runner.RunStateCancelled,
	} {
		if state.String() == s {
			return state, nil
		}
	}
	return 0, fmt.Errorf("unknown run state %q", s)
}

func encodeSnapshot(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return compress.Compress(raw, compress.CompressTypeZstd)
}

func decodeSnapshot(blob []byte) (any, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	raw, err := compress.Decompress(blob, compress.CompressTypeZstd)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
