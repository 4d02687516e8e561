package schedule

import (
	"database/sql"
	"errors"
)

// GetGlobal reads the app-wide singleton row, creating it with defaults on
// first access (read-repair keeps the row present after a wiped database).
func (r *Repository) GetGlobal() (*GlobalRow, error) {
	g, err := r.readGlobal()
	if err != nil {
		return nil, err
	}
	if g != nil {
		return g, nil
	}

	_, err = r.writer.Exec(`
		INSERT INTO global (id, export_scale, sidebar_open)
		VALUES (1, 2, 1)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return nil, err
	}

	return r.readGlobal()
}

func (r *Repository) readGlobal() (*GlobalRow, error) {
	var g GlobalRow
	var currentScheduleID, heroImageID, historySnapshotID, historyScheduleID sql.NullInt64
	var sidebarOpen int

	err := r.reader.QueryRow(`
		SELECT id, current_schedule_id, export_scale, sidebar_open, hero_image_id, history_snapshot_id, history_schedule_id
		FROM global
		WHERE id = 1
	`).Scan(&g.ID, &currentScheduleID, &g.ExportScale, &sidebarOpen, &heroImageID, &historySnapshotID, &historyScheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if currentScheduleID.Valid {
		g.CurrentScheduleID = &currentScheduleID.Int64
	}
	if heroImageID.Valid {
		g.HeroImageID = &heroImageID.Int64
	}
	if historySnapshotID.Valid {
		g.HistorySnapshotID = &historySnapshotID.Int64
	}
	if historyScheduleID.Valid {
		g.HistoryScheduleID = &historyScheduleID.Int64
	}
	g.SidebarOpen = sidebarOpen != 0

	return &g, nil
}

// SetCurrentSchedule updates the current-schedule pointer.
func (r *Repository) SetCurrentSchedule(scheduleID int64) error {
	if _, err := r.GetGlobal(); err != nil {
		return err
	}
	_, err := r.writer.Exec("UPDATE global SET current_schedule_id = ? WHERE id = 1", scheduleID)
	return err
}

// SetExportScale updates the export scale factor.
func (r *Repository) SetExportScale(scale int) error {
	if _, err := r.GetGlobal(); err != nil {
		return err
	}
	_, err := r.writer.Exec("UPDATE global SET export_scale = ? WHERE id = 1", scale)
	return err
}

// SetExportScaleTx updates the export scale inside a restore transaction.
func (r *Repository) SetExportScaleTx(tx *sql.Tx, scale int) error {
	_, err := tx.Exec("UPDATE global SET export_scale = ? WHERE id = 1", scale)
	return err
}

// SetHeroImage updates the hero image slot; nil clears it.
func (r *Repository) SetHeroImage(imageID *int64) error {
	if _, err := r.GetGlobal(); err != nil {
		return err
	}
	_, err := r.writer.Exec("UPDATE global SET hero_image_id = ? WHERE id = 1", imageID)
	return err
}

// SetHeroImageTx updates the hero slot inside a restore transaction.
func (r *Repository) SetHeroImageTx(tx *sql.Tx, imageID *int64) error {
	_, err := tx.Exec("UPDATE global SET hero_image_id = ? WHERE id = 1", imageID)
	return err
}

// SetSidebarOpen updates the persisted sidebar toggle.
func (r *Repository) SetSidebarOpen(open bool) error {
	if _, err := r.GetGlobal(); err != nil {
		return err
	}
	_, err := r.writer.Exec("UPDATE global SET sidebar_open = ? WHERE id = 1", boolToInt(open))
	return err
}
