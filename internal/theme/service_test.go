package theme

import (
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/strefethen/schedule-maker-go/internal/db"
	"github.com/strefethen/schedule-maker-go/internal/events"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	dbPair, err := db.Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { dbPair.Close() })

	return NewService(dbPair, events.NewBus(), nil)
}

func TestLoadPresets(t *testing.T) {
	presets, err := LoadPresets()
	require.NoError(t, err)
	require.NotEmpty(t, presets)

	slugs := map[string]bool{}
	for _, p := range presets {
		slugs[p.Slug] = true
		require.NotEmpty(t, p.Name)
		require.NotEmpty(t, p.Colors)
		require.NotEmpty(t, p.Fonts)
	}
	require.True(t, slugs["elegant-blue"])
	require.True(t, slugs["midnight-neon"])
}

func TestEnsurePresets_Idempotent(t *testing.T) {
	service := setupTestService(t)

	require.NoError(t, service.EnsurePresets())
	first, err := service.List()
	require.NoError(t, err)
	require.NotEmpty(t, first)

	require.NoError(t, service.EnsurePresets())
	second, err := service.List()
	require.NoError(t, err)
	require.Len(t, second, len(first))
}

func TestGetBySlug(t *testing.T) {
	service := setupTestService(t)
	require.NoError(t, service.EnsurePresets())

	theme, err := service.GetBySlug("elegant-blue")
	require.NoError(t, err)
	require.Equal(t, "elegant-blue", theme.Slug)
	require.NotZero(t, theme.ID)

	_, err = service.GetBySlug("no-such-theme")
	require.Error(t, err)
}

func TestThemeResolvers(t *testing.T) {
	service := setupTestService(t)
	require.NoError(t, service.EnsurePresets())

	theme, err := service.GetBySlug("elegant-blue")
	require.NoError(t, err)

	require.Equal(t, "#7aa5d6", theme.ResolveColor("primary", "#000000"))
	require.Equal(t, "#000000", theme.ResolveColor("unknown", "#000000"))
	require.Equal(t, "#000000", theme.ResolveColor("", "#000000"))

	require.Equal(t, "Poppins, sans-serif", theme.ResolveFont("heading", "sans-serif"))
	require.Equal(t, "sans-serif", theme.ResolveFont("unknown", "sans-serif"))

	require.EqualValues(t, 16, theme.ResolveRadius("lg"))
	require.EqualValues(t, 8, theme.ResolveRadius("bogus"))
}
