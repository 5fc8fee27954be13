package history

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/petrijr/grafo/pkg/api"
)

// SQLiteStore is a Store backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database and
// returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			flow TEXT NOT NULL,
			status TEXT NOT NULL,
			last_action TEXT NOT NULL,
			error TEXT,
			started_at INTEGER NOT NULL,
			ended_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS run_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			at INTEGER NOT NULL,
			type TEXT NOT NULL,
			flow TEXT,
			node TEXT,
			action TEXT,
			detail TEXT,
			duration_ns INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_run_events_run_id ON run_events(run_id);`,
	)
	return err
}

func (s *SQLiteStore) SaveRun(rec RunRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, flow, status, last_action, error, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			last_action = excluded.last_action,
			error = excluded.error,
			ended_at = excluded.ended_at`,
		rec.ID,
		rec.Flow,
		string(rec.Status),
		string(rec.LastAction),
		rec.Error,
		rec.StartedAt.UnixNano(),
		rec.EndedAt.UnixNano(),
	)
	return err
}

func (s *SQLiteStore) GetRun(id string) (RunRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, flow, status, last_action, error, started_at, ended_at
		FROM runs
		WHERE id = ?`,
		id,
	)

	rec, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, ErrRunNotFound
		}
		return RunRecord{}, err
	}
	return rec, nil
}

func (s *SQLiteStore) ListRuns(filter RunFilter) ([]RunRecord, error) {
	query := `
		SELECT id, flow, status, last_action, error, started_at, ended_at
		FROM runs`

	var conds []string
	var args []any
	if filter.Flow != "" {
		conds = append(conds, "flow = ?")
		args = append(args, filter.Flow)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY started_at"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) AppendEvent(ev api.RunEvent) error {
	_, err := s.db.Exec(`
		INSERT INTO run_events (run_id, at, type, flow, node, action, detail, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID,
		ev.At.UnixNano(),
		string(ev.Type),
		ev.Flow,
		ev.Node,
		string(ev.Action),
		ev.Detail,
		ev.Duration.Nanoseconds(),
	)
	return err
}

func (s *SQLiteStore) ListEvents(runID string) ([]api.RunEvent, error) {
	rows, err := s.db.Query(`
		SELECT run_id, at, type, flow, node, action, detail, duration_ns
		FROM run_events
		WHERE run_id = ?
		ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []api.RunEvent
	for rows.Next() {
		var ev api.RunEvent
		var at, durNs int64
		var typ, action string
		if err := rows.Scan(&ev.RunID, &at, &typ, &ev.Flow, &ev.Node, &action, &ev.Detail, &durNs); err != nil {
			return nil, err
		}
		ev.At = time.Unix(0, at)
		ev.Type = api.EventType(typ)
		ev.Action = api.Action(action)
		ev.Duration = time.Duration(durNs)
		result = append(result, ev)
	}
	return result, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var rec RunRecord
	var status, action string
	var errStr sql.NullString
	var started, ended int64

	if err := row.Scan(&rec.ID, &rec.Flow, &status, &action, &errStr, &started, &ended); err != nil {
		return RunRecord{}, err
	}

	rec.Status = api.Status(status)
	rec.LastAction = api.Action(action)
	rec.Error = errStr.String
	rec.StartedAt = time.Unix(0, started)
	if ended != 0 {
		rec.EndedAt = time.Unix(0, ended)
	}
	return rec, nil
}
