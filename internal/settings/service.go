package settings

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strefethen/schedule-maker-go/internal/apperrors"
	"github.com/strefethen/schedule-maker-go/internal/assets"
	"github.com/strefethen/schedule-maker-go/internal/events"
)

// Prefixes recognized inside stored documents. On write, inline data URLs
// are extracted into the image store and replaced with an id reference; on
// read the substitution is reversed.
const (
	dataURLPrefix  = "data:"
	imageRefPrefix = "id:"
)

// keyPrefix namespaces extracted image keys so the janitor can tell them
// apart from editor assets.
const keyPrefix = "settings/"

// Document is one stored settings payload with metadata.
type Document struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DBPair interface for dependency injection (matches db.DBPair).
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// Service stores arbitrary settings documents, splitting inline images out
// of the JSON so large blobs never bloat the document rows.
type Service struct {
	reader *sql.DB
	writer *sql.DB
	images *assets.Repository
	bus    *events.Bus
	logger *log.Logger
}

// NewService creates a new settings Service.
func NewService(dbPair DBPair, images *assets.Repository, bus *events.Bus, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		reader: dbPair.Reader(),
		writer: dbPair.Writer(),
		images: images,
		bus:    bus,
		logger: logger,
	}
}

// Get retrieves a settings document with image references resolved back to
// inline data URLs.
func (s *Service) Get(key string) (*Document, error) {
	var value, updatedAt string
	err := s.reader.QueryRow(`
		SELECT value, updated_at FROM settings_blobs WHERE key = ?
	`, key).Scan(&value, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewAppError(apperrors.ErrorCodeSettingsNotFound,
				fmt.Sprintf("Settings %q not found", key), 404, nil)
		}
		return nil, err
	}

	var doc any
	if err := json.Unmarshal([]byte(value), &doc); err != nil {
		return nil, err
	}

	resolved, err := s.resolveRefs(doc)
	if err != nil {
		return nil, err
	}

	return &Document{
		Key:       key,
		Value:     resolved,
		UpdatedAt: parseISO(updatedAt),
	}, nil
}

// Put stores a settings document. Inline data URLs anywhere in the value are
// extracted into keyed image rows; extracted images that the new value no
// longer references are deleted.
func (s *Service) Put(key string, value any) (*Document, error) {
	before, err := s.referencedKeys(key)
	if err != nil {
		return nil, err
	}

	extracted, err := s.extractDataURLs(value)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(extracted)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.writer.Exec(`
		INSERT INTO settings_blobs (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(raw), now)
	if err != nil {
		return nil, err
	}

	after := map[string]bool{}
	collectImageKeys(extracted, after)
	stale := []string{}
	for k := range before {
		if !after[k] {
			stale = append(stale, k)
		}
	}
	if len(stale) > 0 {
		if err := s.images.DeleteKeyed(stale); err != nil {
			s.logger.Printf("failed to delete %d stale settings images: %v", len(stale), err)
		}
	}

	if s.bus != nil {
		s.bus.Notify("settings_blobs")
	}

	return s.Get(key)
}

// Delete removes a settings document together with its extracted images.
func (s *Service) Delete(key string) error {
	refs, err := s.referencedKeys(key)
	if err != nil {
		return err
	}

	result, err := s.writer.Exec("DELETE FROM settings_blobs WHERE key = ?", key)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.NewAppError(apperrors.ErrorCodeSettingsNotFound,
			fmt.Sprintf("Settings %q not found", key), 404, nil)
	}

	if len(refs) > 0 {
		keys := make([]string, 0, len(refs))
		for k := range refs {
			keys = append(keys, k)
		}
		if err := s.images.DeleteKeyed(keys); err != nil {
			s.logger.Printf("failed to delete %d settings images: %v", len(keys), err)
		}
	}

	if s.bus != nil {
		s.bus.Notify("settings_blobs")
	}
	return nil
}

// List returns every stored document key.
func (s *Service) List() ([]string, error) {
	rows, err := s.reader.Query("SELECT key FROM settings_blobs ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// referencedKeys returns the image keys the stored document currently points
// at. A missing document yields an empty set.
func (s *Service) referencedKeys(key string) (map[string]bool, error) {
	var value string
	err := s.reader.QueryRow("SELECT value FROM settings_blobs WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return map[string]bool{}, nil
		}
		return nil, err
	}

	var doc any
	if err := json.Unmarshal([]byte(value), &doc); err != nil {
		return nil, err
	}

	refs := map[string]bool{}
	collectImageKeys(doc, refs)
	return refs, nil
}

// extractDataURLs walks a document and swaps every inline data URL for an
// id reference backed by a keyed image row.
func (s *Service) extractDataURLs(value any) (any, error) {
	switch v := value.(type) {
	case string:
		if !strings.HasPrefix(v, dataURLPrefix) {
			return v, nil
		}
		imageKey := keyPrefix + uuid.New().String()
		if err := s.images.PutKeyed(imageKey, v); err != nil {
			return nil, err
		}
		return imageRefPrefix + imageKey, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			extracted, err := s.extractDataURLs(child)
			if err != nil {
				return nil, err
			}
			out[k] = extracted
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			extracted, err := s.extractDataURLs(child)
			if err != nil {
				return nil, err
			}
			out[i] = extracted
		}
		return out, nil
	default:
		return v, nil
	}
}

// resolveRefs walks a document and swaps id references back to their stored
// data URLs in one batched lookup. Dangling references resolve to nil.
func (s *Service) resolveRefs(value any) (any, error) {
	refs := map[string]bool{}
	collectImageKeys(value, refs)
	if len(refs) == 0 {
		return value, nil
	}

	keys := make([]string, 0, len(refs))
	for k := range refs {
		keys = append(keys, k)
	}
	urls, err := s.images.GetKeyed(keys)
	if err != nil {
		return nil, err
	}

	return substituteRefs(value, urls), nil
}

func substituteRefs(value any, urls map[string]string) any {
	switch v := value.(type) {
	case string:
		if !strings.HasPrefix(v, imageRefPrefix) {
			return v
		}
		if url, ok := urls[strings.TrimPrefix(v, imageRefPrefix)]; ok {
			return url
		}
		return nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = substituteRefs(child, urls)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = substituteRefs(child, urls)
		}
		return out
	default:
		return v
	}
}

func collectImageKeys(value any, into map[string]bool) {
	switch v := value.(type) {
	case string:
		if strings.HasPrefix(v, imageRefPrefix) {
			into[strings.TrimPrefix(v, imageRefPrefix)] = true
		}
	case map[string]any:
		for _, child := range v {
			collectImageKeys(child, into)
		}
	case []any:
		for _, child := range v {
			collectImageKeys(child, into)
		}
	}
}

func parseISO(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		parsed, _ = time.Parse("2006-01-02 15:04:05", value)
	}
	return parsed
}
