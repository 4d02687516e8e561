package assets

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DBPair interface for dependency injection (matches db.DBPair).
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// Repository handles database operations for uploaded images.
// Uses separate reader/writer connections for optimal SQLite concurrency.
type Repository struct {
	reader *sql.DB // For SELECT queries
	writer *sql.DB // For INSERT/UPDATE/DELETE
}

// NewRepository creates a new assets Repository.
func NewRepository(dbPair DBPair) *Repository {
	return &Repository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// Insert stores a new image row and returns its id.
func (r *Repository) Insert(name *string, dataURL string) (int64, error) {
	result, err := r.writer.Exec(`
		INSERT INTO images (name, data, created_at)
		VALUES (?, ?, ?)
	`, name, dataURL, nowISO())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetByID retrieves an image by id. Returns (nil, nil) when absent.
func (r *Repository) GetByID(id int64) (*ImageRow, error) {
	row := r.reader.QueryRow(`
		SELECT id, key, name, data, created_at
		FROM images
		WHERE id = ?
	`, id)

	return scanImage(row)
}

// GetByIDs retrieves several images in one query, keyed by id.
// Missing ids are simply absent from the result.
func (r *Repository) GetByIDs(ids []int64) (map[int64]ImageRow, error) {
	images := make(map[int64]ImageRow)
	if len(ids) == 0 {
		return images, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.reader.Query(fmt.Sprintf(`
		SELECT id, key, name, data, created_at
		FROM images
		WHERE id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		img, err := scanImageRows(rows)
		if err != nil {
			return nil, err
		}
		images[img.ID] = *img
	}

	return images, rows.Err()
}

// PutKeyed stores or replaces a keyed image row (hybrid settings path).
// The conflict target carries the same WHERE clause as idx_images_key:
// SQLite only matches an upsert against a partial index when the
// predicates are identical.
func (r *Repository) PutKeyed(key, dataURL string) error {
	_, err := r.writer.Exec(`
		INSERT INTO images (key, data, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) WHERE key IS NOT NULL DO UPDATE SET data = excluded.data
	`, key, dataURL, nowISO())
	return err
}

// GetKeyed retrieves keyed image data, keyed by key.
func (r *Repository) GetKeyed(keys []string) (map[string]string, error) {
	data := make(map[string]string)
	if len(keys) == 0 {
		return data, nil
	}

	placeholders := strings.Repeat("?,", len(keys))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(keys))
	for i, key := range keys {
		args[i] = key
	}

	rows, err := r.reader.Query(fmt.Sprintf(`
		SELECT key, data
		FROM images
		WHERE key IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		data[key] = value
	}

	return data, rows.Err()
}

// DeleteKeyed removes keyed image rows.
func (r *Repository) DeleteKeyed(keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(keys))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(keys))
	for i, key := range keys {
		args[i] = key
	}

	_, err := r.writer.Exec(fmt.Sprintf(`
		DELETE FROM images WHERE key IN (%s)
	`, placeholders), args...)
	return err
}

// DeleteUnreferenced removes id-addressed images no longer referenced by any
// schedule day, component props payload, or the hero slot. Keyed rows are
// excluded: their lifecycle belongs to the hybrid settings adapter. Returns
// the number of rows removed.
func (r *Repository) DeleteUnreferenced() (int64, error) {
	result, err := r.writer.Exec(`
		DELETE FROM images
		WHERE key IS NULL
		  AND id NOT IN (SELECT hero_image_id FROM global WHERE hero_image_id IS NOT NULL)
		  AND id NOT IN (SELECT image_id FROM schedule_days WHERE image_id IS NOT NULL)
		  AND id NOT IN (SELECT background_image_id FROM schedule_days WHERE background_image_id IS NOT NULL)
		  AND id NOT IN (
			SELECT CAST(json_extract(data, '$.imageId') AS INTEGER)
			FROM component_props
			WHERE json_extract(data, '$.imageId') IS NOT NULL
		  )
		  AND id NOT IN (
			SELECT CAST(json_extract(data, '$.backgroundImageId') AS INTEGER)
			FROM component_props
			WHERE json_extract(data, '$.backgroundImageId') IS NOT NULL
		  )
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanImage(row *sql.Row) (*ImageRow, error) {
	var img ImageRow
	var key, name sql.NullString
	var createdAt string

	err := row.Scan(&img.ID, &key, &name, &img.Data, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return parseImage(&img, key, name, createdAt)
}

func scanImageRows(rows *sql.Rows) (*ImageRow, error) {
	var img ImageRow
	var key, name sql.NullString
	var createdAt string

	if err := rows.Scan(&img.ID, &key, &name, &img.Data, &createdAt); err != nil {
		return nil, err
	}

	return parseImage(&img, key, name, createdAt)
}

func parseImage(img *ImageRow, key, name sql.NullString, createdAt string) (*ImageRow, error) {
	if key.Valid {
		img.Key = &key.String
	}
	if name.Valid {
		img.Name = &name.String
	}

	var err error
	img.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		img.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
	}

	return img, nil
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
