package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AttemptStatus is the outcome of one generation attempt.
type AttemptStatus string

const (
	StatusRunning   AttemptStatus = "running"
	StatusSucceeded AttemptStatus = "succeeded"
	StatusFailed    AttemptStatus = "failed"
)

// timeLayout is fixed-width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// interruptedMessage marks attempts left running by a process that exited.
const interruptedMessage = "interrupted"

// Attempt is one row of the ledger.
type Attempt struct {
	ID              int64
	RunID           string
	SceneIndex      int
	Provider        string
	Model           string
	Status          AttemptStatus
	StartedAt       time.Time
	FinishedAt      time.Time
	DurationSeconds int
	CostUSD         float64
	ErrorMessage    string
}

// Elapsed is the wall-clock time of a finished attempt.
func (a Attempt) Elapsed() time.Duration {
	if a.FinishedAt.IsZero() || a.StartedAt.IsZero() {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

const attemptColumns = "id, run_id, scene_index, provider, model, status, started_at, finished_at, duration_seconds, cost_usd, error_message"

// Record inserts a running attempt and returns its id.
func (s *Store) Record(ctx context.Context, a Attempt) (int64, error) {
	started := a.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO attempts (run_id, scene_index, provider, model, status, started_at, duration_seconds)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.RunID,
		a.SceneIndex,
		a.Provider,
		a.Model,
		StatusRunning,
		started.UTC().Format(timeLayout),
		a.DurationSeconds,
	)
	if err != nil {
		return 0, fmt.Errorf("record attempt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Finish closes a running attempt with its outcome and cost.
func (s *Store) Finish(ctx context.Context, id int64, status AttemptStatus, costUSD float64, errorMessage string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE attempts SET status = ?, finished_at = ?, cost_usd = ?, error_message = ? WHERE id = ?`,
		status,
		time.Now().UTC().Format(timeLayout),
		costUSD,
		nullableString(errorMessage),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish attempt %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish attempt %d: no such attempt", id)
	}
	return nil
}

// MarkInterrupted fails every attempt still marked running. It returns the
// number of rows updated.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE attempts SET status = ?, finished_at = ?, error_message = ? WHERE status = ?`,
		StatusFailed,
		time.Now().UTC().Format(timeLayout),
		interruptedMessage,
		StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted attempts: %w", err)
	}
	return res.RowsAffected()
}

// List returns the most recent attempts first. limit <= 0 returns all rows.
func (s *Store) List(ctx context.Context, limit int) ([]Attempt, error) {
	query := "SELECT " + attemptColumns + " FROM attempts ORDER BY started_at DESC, id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// TotalSpend sums the cost of every attempt, restricted to runID when set.
func (s *Store) TotalSpend(ctx context.Context, runID string) (float64, error) {
	query := "SELECT COALESCE(SUM(cost_usd), 0) FROM attempts"
	var args []any
	if runID != "" {
		query += " WHERE run_id = ?"
		args = append(args, runID)
	}
	var total float64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("total spend: %w", err)
	}
	return total, nil
}

// CountByStatus groups attempts for runID by outcome.
func (s *Store) CountByStatus(ctx context.Context, runID string) (map[AttemptStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM attempts WHERE run_id = ? GROUP BY status`, runID)
	if err != nil {
		return nil, fmt.Errorf("attempt stats: %w", err)
	}
	defer rows.Close()

	counts := make(map[AttemptStatus]int)
	for rows.Next() {
		var status AttemptStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanAttempt(scanner interface{ Scan(dest ...any) error }) (Attempt, error) {
	var (
		a           Attempt
		status      string
		startedRaw  string
		finishedRaw sql.NullString
		errMsg      sql.NullString
	)
	if err := scanner.Scan(
		&a.ID,
		&a.RunID,
		&a.SceneIndex,
		&a.Provider,
		&a.Model,
		&status,
		&startedRaw,
		&finishedRaw,
		&a.DurationSeconds,
		&a.CostUSD,
		&errMsg,
	); err != nil {
		return Attempt{}, fmt.Errorf("scan attempt: %w", err)
	}
	a.Status = AttemptStatus(status)
	a.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		a.FinishedAt = parseTime(finishedRaw.String)
	}
	if errMsg.Valid {
		a.ErrorMessage = errMsg.String
	}
	return a, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
