package history

import (
	"database/sql"
	"errors"
	"time"
)

// DBPair interface for dependency injection (matches db.DBPair).
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// SnapshotRow is one entry of the undo log: the full schedule state before
// and after a change, serialized as JSON.
type SnapshotRow struct {
	ID         int64     `json:"id"`
	ScheduleID int64     `json:"schedule_id"`
	Prev       string    `json:"-"`
	Next       string    `json:"-"`
	Reason     *string   `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository handles database operations for the snapshot log and the
// undo/redo cursor stored on the global row.
type Repository struct {
	reader *sql.DB
	writer *sql.DB
}

// NewRepository creates a new history Repository.
func NewRepository(dbPair DBPair) *Repository {
	return &Repository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// Insert appends a snapshot to the log.
func (r *Repository) Insert(scheduleID int64, prev, next string, reason string) (int64, error) {
	var reasonValue any
	if reason != "" {
		reasonValue = reason
	}

	result, err := r.writer.Exec(`
		INSERT INTO snapshots (schedule_id, prev, next, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, scheduleID, prev, next, reasonValue, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Get retrieves a snapshot by id. Returns (nil, nil) when absent.
func (r *Repository) Get(id int64) (*SnapshotRow, error) {
	row := r.reader.QueryRow(`
		SELECT id, schedule_id, prev, next, reason, created_at
		FROM snapshots
		WHERE id = ?
	`, id)
	return scanSnapshot(row)
}

// Before retrieves the newest snapshot older than beforeID for a schedule,
// or (nil, nil) at the start of the log.
func (r *Repository) Before(scheduleID, beforeID int64) (*SnapshotRow, error) {
	row := r.reader.QueryRow(`
		SELECT id, schedule_id, prev, next, reason, created_at
		FROM snapshots
		WHERE schedule_id = ? AND id < ?
		ORDER BY id DESC
		LIMIT 1
	`, scheduleID, beforeID)
	return scanSnapshot(row)
}

// After retrieves the oldest snapshot newer than afterID for a schedule,
// or (nil, nil) at the end of the log. Pass 0 for the log's first entry.
func (r *Repository) After(scheduleID, afterID int64) (*SnapshotRow, error) {
	row := r.reader.QueryRow(`
		SELECT id, schedule_id, prev, next, reason, created_at
		FROM snapshots
		WHERE schedule_id = ? AND id > ?
		ORDER BY id
		LIMIT 1
	`, scheduleID, afterID)
	return scanSnapshot(row)
}

// PruneAfter discards the redo branch: every snapshot newer than cursorID.
// Pass 0 to drop the schedule's whole log.
func (r *Repository) PruneAfter(scheduleID, cursorID int64) error {
	_, err := r.writer.Exec("DELETE FROM snapshots WHERE schedule_id = ? AND id > ?", scheduleID, cursorID)
	return err
}

// TrimToCap deletes the oldest snapshots beyond the retention cap.
func (r *Repository) TrimToCap(scheduleID int64, cap int) error {
	_, err := r.writer.Exec(`
		DELETE FROM snapshots
		WHERE schedule_id = ? AND id NOT IN (
			SELECT id FROM snapshots
			WHERE schedule_id = ?
			ORDER BY id DESC
			LIMIT ?
		)
	`, scheduleID, scheduleID, cap)
	return err
}

// Count returns the log length for a schedule.
func (r *Repository) Count(scheduleID int64) (int, error) {
	var count int
	err := r.reader.QueryRow("SELECT COUNT(*) FROM snapshots WHERE schedule_id = ?", scheduleID).Scan(&count)
	return count, err
}

// List retrieves the newest snapshots for a schedule, newest first.
func (r *Repository) List(scheduleID int64, limit int) ([]SnapshotRow, error) {
	rows, err := r.reader.Query(`
		SELECT id, schedule_id, prev, next, reason, created_at
		FROM snapshots
		WHERE schedule_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, scheduleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := []SnapshotRow{}
	for rows.Next() {
		var s SnapshotRow
		var prev sql.NullString
		var reason sql.NullString
		var createdAt string
		if err := rows.Scan(&s.ID, &s.ScheduleID, &prev, &s.Next, &reason, &createdAt); err != nil {
			return nil, err
		}
		if prev.Valid {
			s.Prev = prev.String
		}
		if reason.Valid {
			s.Reason = &reason.String
		}
		s.CreatedAt = parseISO(createdAt)
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

// ScheduleIDs lists every schedule present in the snapshot log.
func (r *Repository) ScheduleIDs() ([]int64, error) {
	rows, err := r.reader.Query("SELECT DISTINCT schedule_id FROM snapshots")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Cursor reads the undo/redo position: the id of the last applied snapshot
// and the schedule it belongs to. Both nil when the log was never written.
func (r *Repository) Cursor() (snapshotID, scheduleID *int64, err error) {
	var snap, sched sql.NullInt64
	err = r.reader.QueryRow(`
		SELECT history_snapshot_id, history_schedule_id
		FROM global
		WHERE id = 1
	`).Scan(&snap, &sched)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	if snap.Valid {
		snapshotID = &snap.Int64
	}
	if sched.Valid {
		scheduleID = &sched.Int64
	}
	return snapshotID, scheduleID, nil
}

// SetCursor updates the undo/redo position.
func (r *Repository) SetCursor(snapshotID *int64, scheduleID int64) error {
	_, err := r.writer.Exec(`
		UPDATE global
		SET history_snapshot_id = ?, history_schedule_id = ?
		WHERE id = 1
	`, snapshotID, scheduleID)
	return err
}

func scanSnapshot(row *sql.Row) (*SnapshotRow, error) {
	var s SnapshotRow
	var prev, reason sql.NullString
	var createdAt string

	err := row.Scan(&s.ID, &s.ScheduleID, &prev, &s.Next, &reason, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if prev.Valid {
		s.Prev = prev.String
	}
	if reason.Valid {
		s.Reason = &reason.String
	}
	s.CreatedAt = parseISO(createdAt)
	return &s, nil
}

func parseISO(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		parsed, _ = time.Parse("2006-01-02 15:04:05", value)
	}
	return parsed
}
