package settings

import (
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/strefethen/schedule-maker-go/internal/assets"
	"github.com/strefethen/schedule-maker-go/internal/db"
	"github.com/strefethen/schedule-maker-go/internal/events"
)

func setupTestService(t *testing.T) (*Service, *assets.Repository) {
	t.Helper()
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	dbPair, err := db.Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { dbPair.Close() })

	images := assets.NewRepository(dbPair)
	return NewService(dbPair, images, events.NewBus(), nil), images
}

func TestPutGet_RoundTrip(t *testing.T) {
	service, _ := setupTestService(t)

	doc, err := service.Put("editor-prefs", map[string]any{
		"grid":    true,
		"spacing": float64(8),
		"recent":  []any{"a", "b"},
	})
	require.NoError(t, err)
	require.Equal(t, "editor-prefs", doc.Key)

	got, err := service.Get("editor-prefs")
	require.NoError(t, err)
	value := got.Value.(map[string]any)
	require.Equal(t, true, value["grid"])
	require.EqualValues(t, 8, value["spacing"])
	require.Equal(t, []any{"a", "b"}, value["recent"])
}

func TestGet_NotFound(t *testing.T) {
	service, _ := setupTestService(t)

	_, err := service.Get("missing")
	require.Error(t, err)
}

func TestPut_ExtractsDataURLs(t *testing.T) {
	service, _ := setupTestService(t)

	dataURL := "data:image/png;base64,aW5saW5l"
	_, err := service.Put("branding", map[string]any{
		"logo":   dataURL,
		"nested": map[string]any{"watermark": dataURL},
		"plain":  "not an image",
	})
	require.NoError(t, err)

	// The stored document must hold references, not blobs.
	var stored string
	err = service.reader.QueryRow("SELECT value FROM settings_blobs WHERE key = 'branding'").Scan(&stored)
	require.NoError(t, err)
	require.NotContains(t, stored, "base64")
	require.Contains(t, stored, `"id:settings/`)

	// Reading resolves them back.
	got, err := service.Get("branding")
	require.NoError(t, err)
	value := got.Value.(map[string]any)
	require.Equal(t, dataURL, value["logo"])
	require.Equal(t, dataURL, value["nested"].(map[string]any)["watermark"])
	require.Equal(t, "not an image", value["plain"])
}

func TestPut_DeletesStaleImages(t *testing.T) {
	service, images := setupTestService(t)

	_, err := service.Put("branding", map[string]any{"logo": "data:image/png;base64,b2xk"})
	require.NoError(t, err)

	keys, err := service.referencedKeys("branding")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	var oldKey string
	for k := range keys {
		oldKey = k
	}

	// Rewriting without the image drops the extracted row.
	_, err = service.Put("branding", map[string]any{"logo": nil})
	require.NoError(t, err)

	urls, err := images.GetKeyed([]string{oldKey})
	require.NoError(t, err)
	require.Empty(t, urls)
}

func TestPut_KeepsSurvivingReferences(t *testing.T) {
	service, _ := setupTestService(t)

	_, err := service.Put("branding", map[string]any{"logo": "data:image/png;base64,a2VlcA=="})
	require.NoError(t, err)

	got, err := service.Get("branding")
	require.NoError(t, err)

	// Writing the resolved value back re-extracts; the old row must go, the
	// new one must resolve to the same data.
	_, err = service.Put("branding", got.Value)
	require.NoError(t, err)

	got, err = service.Get("branding")
	require.NoError(t, err)
	require.Equal(t, "data:image/png;base64,a2VlcA==", got.Value.(map[string]any)["logo"])

	// No leaked rows: exactly one extracted image remains.
	var count int
	err = service.reader.QueryRow("SELECT COUNT(*) FROM images WHERE key IS NOT NULL").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestDelete_RemovesDocumentAndImages(t *testing.T) {
	service, images := setupTestService(t)

	_, err := service.Put("branding", map[string]any{"logo": "data:image/png;base64,Z29uZQ=="})
	require.NoError(t, err)

	keys, err := service.referencedKeys("branding")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	var imageKey string
	for k := range keys {
		imageKey = k
	}

	require.NoError(t, service.Delete("branding"))

	_, err = service.Get("branding")
	require.Error(t, err)

	urls, err := images.GetKeyed([]string{imageKey})
	require.NoError(t, err)
	require.Empty(t, urls)

	require.Error(t, service.Delete("branding"))
}

func TestList(t *testing.T) {
	service, _ := setupTestService(t)

	_, err := service.Put("b-key", "value")
	require.NoError(t, err)
	_, err = service.Put("a-key", "value")
	require.NoError(t, err)

	keys, err := service.List()
	require.NoError(t, err)
	require.Equal(t, []string{"a-key", "b-key"}, keys)
}
