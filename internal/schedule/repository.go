package schedule

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

// Repository handles database operations for schedules and their day plans.
// Uses separate reader/writer connections for optimal SQLite concurrency.
type Repository struct {
	reader *sql.DB // For SELECT queries
	writer *sql.DB // For INSERT/UPDATE/DELETE
}

// NewRepository creates a new schedule Repository.
func NewRepository(dbPair DBPair) *Repository {
	return &Repository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// CreateScheduleInput describes a new schedule.
type CreateScheduleInput struct {
	Name       string
	ThemeID    *int64
	WeekStart  Day
	WeekAnchor string
	Timezone   string
}

// CreateSchedule creates a new schedule row.
func (r *Repository) CreateSchedule(input CreateScheduleInput) (*Schedule, error) {
	weekStart := input.WeekStart
	if weekStart != DaySun {
		weekStart = DayMon
	}

	timezone := input.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	now := nowISO()
	result, err := r.writer.Exec(`
		INSERT INTO schedules (name, theme_id, week_start, week_anchor, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, input.Name, input.ThemeID, string(weekStart), input.WeekAnchor, timezone, now, now)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetSchedule(id)
}

// GetSchedule retrieves a schedule by id. Returns (nil, nil) when absent.
func (r *Repository) GetSchedule(id int64) (*Schedule, error) {
	row := r.reader.QueryRow(`
		SELECT id, name, theme_id, week_start, week_anchor, timezone, created_at, updated_at
		FROM schedules
		WHERE id = ?
	`, id)
	return scanSchedule(row)
}

// FirstSchedule retrieves the oldest schedule, or (nil, nil) when the store
// is empty. Used by the current-schedule fallback chain.
func (r *Repository) FirstSchedule() (*Schedule, error) {
	row := r.reader.QueryRow(`
		SELECT id, name, theme_id, week_start, week_anchor, timezone, created_at, updated_at
		FROM schedules
		ORDER BY id
		LIMIT 1
	`)
	return scanSchedule(row)
}

// UpdateScheduleInput is a partial schedule update.
type UpdateScheduleInput struct {
	Name       *string
	ThemeID    *int64
	ClearTheme bool
	WeekStart  *Day
	WeekAnchor *string
	Timezone   *string
}

// UpdateSchedule applies a partial update and bumps updated_at.
func (r *Repository) UpdateSchedule(id int64, input UpdateScheduleInput) (*Schedule, error) {
	existing, err := r.GetSchedule(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	name := existing.Name
	if input.Name != nil {
		name = *input.Name
	}

	themeID := existing.ThemeID
	if input.ClearTheme {
		themeID = nil
	} else if input.ThemeID != nil {
		themeID = input.ThemeID
	}

	weekStart := existing.WeekStart
	if input.WeekStart != nil {
		weekStart = *input.WeekStart
	}

	weekAnchor := existing.WeekAnchor
	if input.WeekAnchor != nil {
		weekAnchor = *input.WeekAnchor
	}

	timezone := existing.Timezone
	if input.Timezone != nil {
		timezone = *input.Timezone
	}

	_, err = r.writer.Exec(`
		UPDATE schedules
		SET name = ?, theme_id = ?, week_start = ?, week_anchor = ?, timezone = ?, updated_at = ?
		WHERE id = ?
	`, name, themeID, string(weekStart), weekAnchor, timezone, nowISO(), id)
	if err != nil {
		return nil, err
	}

	return r.GetSchedule(id)
}

// DaysForSchedule retrieves all day rows for a schedule.
func (r *Repository) DaysForSchedule(scheduleID int64) ([]ScheduleDay, error) {
	rows, err := r.reader.Query(`
		SELECT id, schedule_id, day, enabled, game_name, time, image_id,
		       background_color_token, background_image_id, notes, created_at, updated_at
		FROM schedule_days
		WHERE schedule_id = ?
	`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := []ScheduleDay{}
	for rows.Next() {
		day, err := scanDayRows(rows)
		if err != nil {
			return nil, err
		}
		days = append(days, *day)
	}

	return days, rows.Err()
}

// GetDay retrieves one day plan by (schedule, day). Returns (nil, nil) when absent.
func (r *Repository) GetDay(scheduleID int64, day Day) (*ScheduleDay, error) {
	row := r.reader.QueryRow(`
		SELECT id, schedule_id, day, enabled, game_name, time, image_id,
		       background_color_token, background_image_id, notes, created_at, updated_at
		FROM schedule_days
		WHERE schedule_id = ? AND day = ?
	`, scheduleID, day)
	return scanDay(row)
}

// InsertDefaultDay creates a disabled, empty day plan. ON CONFLICT keeps the
// insert idempotent against a concurrent backfill of the same weekday.
func (r *Repository) InsertDefaultDay(scheduleID int64, day Day) error {
	now := nowISO()
	_, err := r.writer.Exec(`
		INSERT INTO schedule_days (schedule_id, day, enabled, game_name, time, created_at, updated_at)
		VALUES (?, ?, 0, '', '', ?, ?)
		ON CONFLICT(schedule_id, day) DO NOTHING
	`, scheduleID, string(day), now, now)
	return err
}

// UpdateDay applies a partial update to one day plan and bumps updated_at.
// Returns (nil, nil) when the day row does not exist.
func (r *Repository) UpdateDay(scheduleID int64, day Day, input UpdateScheduleDayInput) (*ScheduleDay, error) {
	existing, err := r.GetDay(scheduleID, day)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	enabled := existing.Enabled
	if input.Enabled != nil {
		enabled = *input.Enabled
	}

	gameName := existing.GameName
	if input.GameName != nil {
		gameName = *input.GameName
	}

	timeOfDay := existing.Time
	if input.Time != nil {
		timeOfDay = *input.Time
	}

	imageID := existing.ImageID
	if input.ClearImage {
		imageID = nil
	} else if input.ImageID != nil {
		imageID = input.ImageID
	}

	backgroundColorToken := existing.BackgroundColorToken
	if input.BackgroundColorToken != nil {
		backgroundColorToken = input.BackgroundColorToken
	}

	backgroundImageID := existing.BackgroundImageID
	if input.ClearBackgroundImage {
		backgroundImageID = nil
	} else if input.BackgroundImageID != nil {
		backgroundImageID = input.BackgroundImageID
	}

	notes := existing.Notes
	if input.Notes != nil {
		notes = input.Notes
	}

	_, err = r.writer.Exec(`
		UPDATE schedule_days
		SET enabled = ?, game_name = ?, time = ?, image_id = ?,
		    background_color_token = ?, background_image_id = ?, notes = ?, updated_at = ?
		WHERE schedule_id = ? AND day = ?
	`, boolToInt(enabled), gameName, timeOfDay, imageID,
		backgroundColorToken, backgroundImageID, notes, nowISO(), scheduleID, string(day))
	if err != nil {
		return nil, err
	}

	return r.GetDay(scheduleID, day)
}

// =============================================================================
// Transactional restore helpers (used by the history engine)
// =============================================================================

// UpdateScheduleRowTx rewrites a schedule row inside a restore transaction,
// preserving the snapshot's updated_at like the day and component restores do.
func (r *Repository) UpdateScheduleRowTx(tx *sql.Tx, s Schedule) error {
	_, err := tx.Exec(`
		UPDATE schedules
		SET name = ?, theme_id = ?, week_start = ?, week_anchor = ?, timezone = ?, updated_at = ?
		WHERE id = ?
	`, s.Name, s.ThemeID, string(s.WeekStart), s.WeekAnchor, s.Timezone,
		s.UpdatedAt.UTC().Format(time.RFC3339), s.ID)
	return err
}

// ReplaceDaysTx deletes and reinserts all day rows for a schedule inside a
// restore transaction, preserving the original row ids.
func (r *Repository) ReplaceDaysTx(tx *sql.Tx, scheduleID int64, days []ScheduleDay) error {
	if _, err := tx.Exec("DELETE FROM schedule_days WHERE schedule_id = ?", scheduleID); err != nil {
		return err
	}

	for _, d := range days {
		_, err := tx.Exec(`
			INSERT INTO schedule_days (id, schedule_id, day, enabled, game_name, time, image_id,
			                           background_color_token, background_image_id, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, d.ID, d.ScheduleID, string(d.Day), boolToInt(d.Enabled), d.GameName, d.Time, d.ImageID,
			d.BackgroundColorToken, d.BackgroundImageID, d.Notes,
			d.CreatedAt.UTC().Format(time.RFC3339), d.UpdatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return err
		}
	}
	return nil
}

// Writer exposes the writer pool for multi-repository transactions.
func (r *Repository) Writer() *sql.DB {
	return r.writer
}

func scanSchedule(row *sql.Row) (*Schedule, error) {
	var s Schedule
	var themeID sql.NullInt64
	var weekStart string
	var createdAt, updatedAt string

	err := row.Scan(&s.ID, &s.Name, &themeID, &weekStart, &s.WeekAnchor, &s.Timezone, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if themeID.Valid {
		s.ThemeID = &themeID.Int64
	}
	s.WeekStart = Day(weekStart)
	s.CreatedAt = parseISO(createdAt)
	s.UpdatedAt = parseISO(updatedAt)

	return &s, nil
}

func scanDay(row *sql.Row) (*ScheduleDay, error) {
	var d ScheduleDay
	var day string
	var enabled int
	var imageID, backgroundImageID sql.NullInt64
	var backgroundColorToken, notes sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&d.ID, &d.ScheduleID, &day, &enabled, &d.GameName, &d.Time, &imageID,
		&backgroundColorToken, &backgroundImageID, &notes, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return parseDay(&d, day, enabled, imageID, backgroundImageID, backgroundColorToken, notes, createdAt, updatedAt)
}

func scanDayRows(rows *sql.Rows) (*ScheduleDay, error) {
	var d ScheduleDay
	var day string
	var enabled int
	var imageID, backgroundImageID sql.NullInt64
	var backgroundColorToken, notes sql.NullString
	var createdAt, updatedAt string

	err := rows.Scan(&d.ID, &d.ScheduleID, &day, &enabled, &d.GameName, &d.Time, &imageID,
		&backgroundColorToken, &backgroundImageID, &notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	return parseDay(&d, day, enabled, imageID, backgroundImageID, backgroundColorToken, notes, createdAt, updatedAt)
}

func parseDay(d *ScheduleDay, day string, enabled int, imageID, backgroundImageID sql.NullInt64,
	backgroundColorToken, notes sql.NullString, createdAt, updatedAt string) (*ScheduleDay, error) {
	d.Day = Day(day)
	d.Enabled = enabled != 0
	if imageID.Valid {
		d.ImageID = &imageID.Int64
	}
	if backgroundImageID.Valid {
		d.BackgroundImageID = &backgroundImageID.Int64
	}
	if backgroundColorToken.Valid {
		d.BackgroundColorToken = &backgroundColorToken.String
	}
	if notes.Valid {
		d.Notes = &notes.String
	}
	d.CreatedAt = parseISO(createdAt)
	d.UpdatedAt = parseISO(updatedAt)
	return d, nil
}

func parseISO(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		parsed, _ = time.Parse("2006-01-02 15:04:05", value)
	}
	return parsed
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
