package maintenance

import (
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/strefethen/schedule-maker-go/internal/assets"
	"github.com/strefethen/schedule-maker-go/internal/db"
	"github.com/strefethen/schedule-maker-go/internal/events"
	"github.com/strefethen/schedule-maker-go/internal/history"
	"github.com/strefethen/schedule-maker-go/internal/schedule"
	"github.com/strefethen/schedule-maker-go/internal/theme"
)

func setupJanitor(t *testing.T, historyCap int) (*Janitor, *assets.Repository, *history.Engine, *schedule.Service) {
	t.Helper()
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	dbPair, err := db.Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { dbPair.Close() })

	bus := events.NewBus()
	assetService := assets.NewService(dbPair, bus, nil)
	themeService := theme.NewService(dbPair, bus, nil)
	require.NoError(t, themeService.EnsurePresets())
	store := schedule.NewService(dbPair, assetService, themeService, bus, nil, "elegant-blue", "UTC")

	engine := history.NewEngine(dbPair, store, nil, time.Hour, historyCap)
	t.Cleanup(engine.Stop)
	require.NoError(t, engine.Prime())

	janitor := NewJanitor(assetService.Repository(), engine.Repository(), bus, nil, "0 3 * * *", historyCap)
	return janitor, assetService.Repository(), engine, store
}

func TestRunOnce_DeletesOrphanedImages(t *testing.T) {
	janitor, images, _, store := setupJanitor(t, 50)

	// Make sure the default schedule exists before orphan bookkeeping.
	_, err := store.EnsureCurrentSchedule()
	require.NoError(t, err)

	orphan, err := images.Insert(nil, "data:image/png;base64,b3JwaGFu")
	require.NoError(t, err)

	kept, err := images.Insert(nil, "data:image/png;base64,a2VwdA==")
	require.NoError(t, err)
	_, err = store.UpdateDay("mon", schedule.UpdateScheduleDayInput{ImageID: &kept})
	require.NoError(t, err)

	require.NoError(t, janitor.RunOnce())

	gone, err := images.GetByID(orphan)
	require.NoError(t, err)
	require.Nil(t, gone)

	alive, err := images.GetByID(kept)
	require.NoError(t, err)
	require.NotNil(t, alive)
}

func TestRunOnce_TrimsHistory(t *testing.T) {
	janitor, _, engine, store := setupJanitor(t, 2)

	enabled := true
	for _, game := range []string{"One", "Two", "Three", "Four"} {
		g := game
		_, err := store.UpdateDay("mon", schedule.UpdateScheduleDayInput{Enabled: &enabled, GameName: &g})
		require.NoError(t, err)
		require.NoError(t, engine.CaptureNow("edit"))
	}

	// Inflate the log past the cap behind the engine's back.
	current, err := store.EnsureCurrentSchedule()
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := engine.Repository().Insert(current.ID, "{}", "{}", "manual")
		require.NoError(t, err)
	}

	require.NoError(t, janitor.RunOnce())

	count, err := engine.Repository().Count(current.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestJanitor_StartRejectsBadSpec(t *testing.T) {
	janitor, _, _, _ := setupJanitor(t, 50)
	janitor.spec = "not a cron spec"
	require.Error(t, janitor.Start())
}

func TestJanitor_StartStop(t *testing.T) {
	janitor, _, _, _ := setupJanitor(t, 50)
	require.NoError(t, janitor.Start())
	janitor.Stop()
}
