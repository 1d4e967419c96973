package out

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"evseg/internal/modules/data/domain"
	dataout "evseg/internal/modules/data/port/out"
	"evseg/internal/platform/tx"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// OpenSQLite opens the projection database, creating its directory.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

type SQLiteRecordProjector struct {
	db *sql.DB
}

func NewSQLiteRecordProjector(db *sql.DB) (dataout.RecordProjector, error) {
	projector := &SQLiteRecordProjector{db: db}
	if err := projector.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return projector, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS trials (
  run_id TEXT NOT NULL,
  trial_index INTEGER NOT NULL,
  participant_id INTEGER NOT NULL,
  stimulus TEXT,
  mode TEXT NOT NULL,
  aborted INTEGER NOT NULL,
  responses INTEGER NOT NULL,
  recorded_at TEXT NOT NULL,
  PRIMARY KEY (run_id, trial_index)
)`,
	`CREATE TABLE IF NOT EXISTS responses (
  run_id TEXT NOT NULL,
  trial_index INTEGER NOT NULL,
  response_index INTEGER NOT NULL,
  rt REAL NOT NULL,
  key TEXT NOT NULL,
  stimulus TEXT,
  PRIMARY KEY (run_id, trial_index, response_index)
)`,
}

func (s *SQLiteRecordProjector) ensureSchema(ctx context.Context) error {
	for _, ddl := range schema {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create trial tables: %w", err)
		}
	}
	return nil
}

func (s *SQLiteRecordProjector) Reset(ctx context.Context) error {
	exec := tx.From(ctx, s.db)
	if _, err := exec.ExecContext(ctx, `DELETE FROM responses`); err != nil {
		return fmt.Errorf("reset responses: %w", err)
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM trials`); err != nil {
		return fmt.Errorf("reset trials: %w", err)
	}
	return nil
}

func (s *SQLiteRecordProjector) UpsertRecord(ctx context.Context, record domain.TrialRecord) error {
	exec := tx.From(ctx, s.db)
	const stmt = `
INSERT INTO trials (run_id, trial_index, participant_id, stimulus, mode, aborted, responses, recorded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, trial_index) DO UPDATE SET
  participant_id=excluded.participant_id,
  stimulus=excluded.stimulus,
  mode=excluded.mode,
  aborted=excluded.aborted,
  responses=excluded.responses,
  recorded_at=excluded.recorded_at;
`
	aborted := 0
	if record.Aborted {
		aborted = 1
	}
	if _, err := exec.ExecContext(ctx, stmt,
		record.RunID,
		record.Index,
		record.ParticipantID,
		record.Stimulus,
		string(record.Mode),
		aborted,
		record.Responses(),
		record.RecordedAt.UTC().Format(timeLayout),
	); err != nil {
		return fmt.Errorf("upsert trial: %w", err)
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM responses WHERE run_id = ? AND trial_index = ?`, record.RunID, record.Index); err != nil {
		return fmt.Errorf("clear responses: %w", err)
	}
	for i := range record.RT {
		if _, err := exec.ExecContext(ctx,
			`INSERT INTO responses (run_id, trial_index, response_index, rt, key, stimulus) VALUES (?, ?, ?, ?, ?, ?)`,
			record.RunID, record.Index, i, record.RT[i], record.Key[i], record.StimInTrial[i],
		); err != nil {
			return fmt.Errorf("insert response: %w", err)
		}
	}
	return nil
}

func (s *SQLiteRecordProjector) Summaries(ctx context.Context) ([]domain.RunSummary, error) {
	const query = `
SELECT t.run_id,
       MIN(t.participant_id),
       COUNT(*),
       COALESCE(SUM(t.responses), 0),
       (SELECT AVG(r.rt) FROM responses r WHERE r.run_id = t.run_id),
       MIN(t.recorded_at),
       MAX(t.recorded_at)
FROM trials t
GROUP BY t.run_id
ORDER BY MIN(t.recorded_at), t.run_id;
`
	rows, err := tx.From(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	out := []domain.RunSummary{}
	for rows.Next() {
		var (
			summary      domain.RunSummary
			meanRT       sql.NullFloat64
			started, end string
		)
		if err := rows.Scan(&summary.RunID, &summary.ParticipantID, &summary.Trials, &summary.Responses, &meanRT, &started, &end); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summary.MeanRT = meanRT.Float64
		summary.HasRT = meanRT.Valid
		summary.StartedAt, _ = time.Parse(timeLayout, started)
		summary.EndedAt, _ = time.Parse(timeLayout, end)
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return out, nil
}
