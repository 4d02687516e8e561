package theme

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// DBPair interface for dependency injection (matches db.DBPair).
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// Repository handles database operations for themes.
type Repository struct {
	reader *sql.DB
	writer *sql.DB
}

// NewRepository creates a new theme Repository.
func NewRepository(dbPair DBPair) *Repository {
	return &Repository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// Insert stores a theme and returns its id.
func (r *Repository) Insert(t Theme) (int64, error) {
	colorsJSON, err := json.Marshal(t.Colors)
	if err != nil {
		return 0, err
	}
	fontsJSON, err := json.Marshal(t.Fonts)
	if err != nil {
		return 0, err
	}
	radiiJSON, err := json.Marshal(t.Radii)
	if err != nil {
		return 0, err
	}

	now := nowISO()
	result, err := r.writer.Exec(`
		INSERT INTO themes (slug, name, colors, fonts, radii, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.Slug, t.Name, string(colorsJSON), string(fontsJSON), string(radiiJSON), now, now)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetByID retrieves a theme by id. Returns (nil, nil) when absent.
func (r *Repository) GetByID(id int64) (*Theme, error) {
	row := r.reader.QueryRow(`
		SELECT id, slug, name, colors, fonts, radii, created_at, updated_at
		FROM themes
		WHERE id = ?
	`, id)
	return scanTheme(row)
}

// GetBySlug retrieves a theme by its stable slug. Returns (nil, nil) when absent.
func (r *Repository) GetBySlug(slug string) (*Theme, error) {
	row := r.reader.QueryRow(`
		SELECT id, slug, name, colors, fonts, radii, created_at, updated_at
		FROM themes
		WHERE slug = ?
	`, slug)
	return scanTheme(row)
}

// List retrieves all themes ordered by name.
func (r *Repository) List() ([]Theme, error) {
	rows, err := r.reader.Query(`
		SELECT id, slug, name, colors, fonts, radii, created_at, updated_at
		FROM themes
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	themes := []Theme{}
	for rows.Next() {
		t, err := scanThemeRows(rows)
		if err != nil {
			return nil, err
		}
		themes = append(themes, *t)
	}

	return themes, rows.Err()
}

func scanTheme(row *sql.Row) (*Theme, error) {
	var t Theme
	var colorsJSON, fontsJSON, radiiJSON string
	var createdAt, updatedAt string

	err := row.Scan(&t.ID, &t.Slug, &t.Name, &colorsJSON, &fontsJSON, &radiiJSON, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return parseTheme(&t, colorsJSON, fontsJSON, radiiJSON, createdAt, updatedAt)
}

func scanThemeRows(rows *sql.Rows) (*Theme, error) {
	var t Theme
	var colorsJSON, fontsJSON, radiiJSON string
	var createdAt, updatedAt string

	err := rows.Scan(&t.ID, &t.Slug, &t.Name, &colorsJSON, &fontsJSON, &radiiJSON, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	return parseTheme(&t, colorsJSON, fontsJSON, radiiJSON, createdAt, updatedAt)
}

func parseTheme(t *Theme, colorsJSON, fontsJSON, radiiJSON, createdAt, updatedAt string) (*Theme, error) {
	if err := json.Unmarshal([]byte(colorsJSON), &t.Colors); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fontsJSON), &t.Fonts); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(radiiJSON), &t.Radii); err != nil {
		return nil, err
	}

	var err error
	t.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		t.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
	}
	t.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		t.UpdatedAt, _ = time.Parse("2006-01-02 15:04:05", updatedAt)
	}

	return t, nil
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
