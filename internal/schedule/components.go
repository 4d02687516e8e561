package schedule

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// ComponentsForSchedule retrieves all components for a schedule ordered by
// z-index then id, so equal layers render in creation order.
func (r *Repository) ComponentsForSchedule(scheduleID int64) ([]Component, error) {
	rows, err := r.reader.Query(`
		SELECT id, schedule_id, kind, name, x, y, width, height, rotation, z_index, visible, locked, created_at, updated_at
		FROM components
		WHERE schedule_id = ?
		ORDER BY z_index, id
	`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	components := []Component{}
	for rows.Next() {
		c, err := scanComponentRows(rows)
		if err != nil {
			return nil, err
		}
		components = append(components, *c)
	}

	return components, rows.Err()
}

// GetComponent retrieves a component by id. Returns (nil, nil) when absent.
func (r *Repository) GetComponent(id int64) (*Component, error) {
	row := r.reader.QueryRow(`
		SELECT id, schedule_id, kind, name, x, y, width, height, rotation, z_index, visible, locked, created_at, updated_at
		FROM components
		WHERE id = ?
	`, id)
	return scanComponent(row)
}

// InsertComponent creates a component together with its props row.
func (r *Repository) InsertComponent(scheduleID int64, input CreateComponentInput, props map[string]any) (*Component, error) {
	propsJSON, err := json.Marshal(props)
	if err != nil {
		return nil, err
	}

	tx, err := r.writer.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := nowISO()
	result, err := tx.Exec(`
		INSERT INTO components (schedule_id, kind, name, x, y, width, height, rotation, z_index, visible, locked, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, 0, ?, ?)
	`, scheduleID, string(input.Kind), input.Name, input.X, input.Y, input.Width, input.Height,
		input.Rotation, input.ZIndex, now, now)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(`
		INSERT INTO component_props (component_id, kind, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, string(input.Kind), string(propsJSON), now, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r.GetComponent(id)
}

// UpdateComponent applies a partial frame update and bumps updated_at.
// Returns (nil, nil) when the component does not exist.
func (r *Repository) UpdateComponent(id int64, input UpdateComponentInput) (*Component, error) {
	existing, err := r.GetComponent(id)
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

	x := existing.X
	if input.X != nil {
		x = *input.X
	}

	y := existing.Y
	if input.Y != nil {
		y = *input.Y
	}

	width := existing.Width
	if input.Width != nil {
		width = *input.Width
	}

	height := existing.Height
	if input.Height != nil {
		height = *input.Height
	}

	rotation := existing.Rotation
	if input.Rotation != nil {
		rotation = *input.Rotation
	}

	zIndex := existing.ZIndex
	if input.ZIndex != nil {
		zIndex = *input.ZIndex
	}

	visible := existing.Visible
	if input.Visible != nil {
		visible = *input.Visible
	}

	locked := existing.Locked
	if input.Locked != nil {
		locked = *input.Locked
	}

	_, err = r.writer.Exec(`
		UPDATE components
		SET name = ?, x = ?, y = ?, width = ?, height = ?, rotation = ?,
		    z_index = ?, visible = ?, locked = ?, updated_at = ?
		WHERE id = ?
	`, name, x, y, width, height, rotation, zIndex, boolToInt(visible), boolToInt(locked), nowISO(), id)
	if err != nil {
		return nil, err
	}

	return r.GetComponent(id)
}

// DeleteComponent removes a component; its props row cascades.
func (r *Repository) DeleteComponent(id int64) (bool, error) {
	result, err := r.writer.Exec("DELETE FROM components WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetProps retrieves the props row for a component. Returns (nil, nil) when absent.
func (r *Repository) GetProps(componentID int64) (*ComponentProps, error) {
	row := r.reader.QueryRow(`
		SELECT id, component_id, kind, data, created_at, updated_at
		FROM component_props
		WHERE component_id = ?
	`, componentID)
	return scanProps(row)
}

// PropsForSchedule retrieves the props of every component on a schedule in a
// single query, keyed by component id.
func (r *Repository) PropsForSchedule(scheduleID int64) (map[int64]ComponentProps, error) {
	rows, err := r.reader.Query(`
		SELECT p.id, p.component_id, p.kind, p.data, p.created_at, p.updated_at
		FROM component_props p
		JOIN components c ON c.id = p.component_id
		WHERE c.schedule_id = ?
	`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	props := map[int64]ComponentProps{}
	for rows.Next() {
		var p ComponentProps
		var kind, data, createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.ComponentID, &kind, &data, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &p.Data); err != nil {
			return nil, err
		}
		p.Kind = ComponentKind(kind)
		p.CreatedAt = parseISO(createdAt)
		p.UpdatedAt = parseISO(updatedAt)
		props[p.ComponentID] = p
	}

	return props, rows.Err()
}

// PutProps replaces the props document for a component.
func (r *Repository) PutProps(componentID int64, kind ComponentKind, data map[string]any) (*ComponentProps, error) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	now := nowISO()
	_, err = r.writer.Exec(`
		INSERT INTO component_props (component_id, kind, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(component_id) DO UPDATE SET kind = excluded.kind, data = excluded.data, updated_at = excluded.updated_at
	`, componentID, string(kind), string(dataJSON), now, now)
	if err != nil {
		return nil, err
	}

	return r.GetProps(componentID)
}

// ReplaceComponentsTx deletes and reinserts all components and props for a
// schedule inside a restore transaction, preserving the original row ids.
func (r *Repository) ReplaceComponentsTx(tx *sql.Tx, scheduleID int64, components []Component, props map[int64]ComponentProps) error {
	if _, err := tx.Exec("DELETE FROM components WHERE schedule_id = ?", scheduleID); err != nil {
		return err
	}

	for _, c := range components {
		_, err := tx.Exec(`
			INSERT INTO components (id, schedule_id, kind, name, x, y, width, height, rotation, z_index, visible, locked, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.ScheduleID, string(c.Kind), c.Name, c.X, c.Y, c.Width, c.Height, c.Rotation,
			c.ZIndex, boolToInt(c.Visible), boolToInt(c.Locked),
			c.CreatedAt.UTC().Format(time.RFC3339), c.UpdatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return err
		}

		p, ok := props[c.ID]
		if !ok {
			continue
		}
		dataJSON, err := json.Marshal(p.Data)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
			INSERT INTO component_props (component_id, kind, data, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, c.ID, string(p.Kind), string(dataJSON),
			p.CreatedAt.UTC().Format(time.RFC3339), p.UpdatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return err
		}
	}
	return nil
}

func scanComponent(row *sql.Row) (*Component, error) {
	var c Component
	var kind string
	var visible, locked int
	var createdAt, updatedAt string

	err := row.Scan(&c.ID, &c.ScheduleID, &kind, &c.Name, &c.X, &c.Y, &c.Width, &c.Height,
		&c.Rotation, &c.ZIndex, &visible, &locked, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return parseComponent(&c, kind, visible, locked, createdAt, updatedAt)
}

func scanComponentRows(rows *sql.Rows) (*Component, error) {
	var c Component
	var kind string
	var visible, locked int
	var createdAt, updatedAt string

	err := rows.Scan(&c.ID, &c.ScheduleID, &kind, &c.Name, &c.X, &c.Y, &c.Width, &c.Height,
		&c.Rotation, &c.ZIndex, &visible, &locked, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	return parseComponent(&c, kind, visible, locked, createdAt, updatedAt)
}

func parseComponent(c *Component, kind string, visible, locked int, createdAt, updatedAt string) (*Component, error) {
	c.Kind = ComponentKind(kind)
	c.Visible = visible != 0
	c.Locked = locked != 0
	c.CreatedAt = parseISO(createdAt)
	c.UpdatedAt = parseISO(updatedAt)
	return c, nil
}

func scanProps(row *sql.Row) (*ComponentProps, error) {
	var p ComponentProps
	var kind, data, createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.ComponentID, &kind, &data, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(data), &p.Data); err != nil {
		return nil, err
	}
	p.Kind = ComponentKind(kind)
	p.CreatedAt = parseISO(createdAt)
	p.UpdatedAt = parseISO(updatedAt)

	return &p, nil
}
