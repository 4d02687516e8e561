package history

import (
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/strefethen/schedule-maker-go/internal/assets"
	"github.com/strefethen/schedule-maker-go/internal/db"
	"github.com/strefethen/schedule-maker-go/internal/events"
	"github.com/strefethen/schedule-maker-go/internal/schedule"
	"github.com/strefethen/schedule-maker-go/internal/theme"
)

func setupEngine(t *testing.T, debounce time.Duration, cap int) (*Engine, *schedule.Service) {
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
	engine := NewEngine(dbPair, store, nil, debounce, cap)
	t.Cleanup(engine.Stop)
	require.NoError(t, engine.Prime())

	return engine, store
}

func setGame(t *testing.T, store *schedule.Service, day, game string) {
	t.Helper()
	enabled := true
	_, err := store.UpdateDay(day, schedule.UpdateScheduleDayInput{Enabled: &enabled, GameName: &game})
	require.NoError(t, err)
}

func gameFor(t *testing.T, store *schedule.Service, day schedule.Day) string {
	t.Helper()
	_, week, err := store.Week()
	require.NoError(t, err)
	return week[day].GameName
}

func TestCaptureNow_RecordsSnapshot(t *testing.T) {
	engine, store := setupEngine(t, time.Hour, 50)
	engine.Stop() // captures driven manually

	setGame(t, store, "mon", "Hades II")
	require.NoError(t, engine.CaptureNow("day-update"))

	canUndo, err := engine.CanUndo()
	require.NoError(t, err)
	require.True(t, canUndo)

	current, err := store.EnsureCurrentSchedule()
	require.NoError(t, err)
	count, err := engine.Repository().Count(current.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestCaptureNow_SkipsIdenticalState(t *testing.T) {
	engine, store := setupEngine(t, time.Hour, 50)
	engine.Stop()

	setGame(t, store, "mon", "Hades II")
	require.NoError(t, engine.CaptureNow("day-update"))
	require.NoError(t, engine.CaptureNow("day-update"))

	current, err := store.EnsureCurrentSchedule()
	require.NoError(t, err)
	count, err := engine.Repository().Count(current.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestCaptureNow_SkipsNetZeroBurstAcrossTimestamps(t *testing.T) {
	engine, store := setupEngine(t, time.Hour, 50)
	engine.Stop()

	current, err := store.EnsureCurrentSchedule()
	require.NoError(t, err)

	// Age the row timestamps past the primed baseline, as if the burst
	// started a second later than the last capture.
	_, err = store.Repository().Writer().Exec(
		"UPDATE schedule_days SET updated_at = '2000-01-01T00:00:00Z' WHERE schedule_id = ?",
		current.ID)
	require.NoError(t, err)

	// Toggling twice lands back on the starting state; the rewritten
	// updated_at values must not count as a change.
	_, err = store.ToggleDay("mon")
	require.NoError(t, err)
	_, err = store.ToggleDay("mon")
	require.NoError(t, err)
	require.NoError(t, engine.CaptureNow("day-toggle"))

	count, err := engine.Repository().Count(current.ID)
	require.NoError(t, err)
	require.Equal(t, 0, count)

	canUndo, err := engine.CanUndo()
	require.NoError(t, err)
	require.False(t, canUndo)
}

func TestUndoRedo_RoundTrip(t *testing.T) {
	engine, store := setupEngine(t, time.Hour, 50)
	engine.Stop()

	setGame(t, store, "mon", "Hades II")
	require.NoError(t, engine.CaptureNow("first"))
	setGame(t, store, "mon", "Silksong")
	require.NoError(t, engine.CaptureNow("second"))

	applied, err := engine.Undo()
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, "Hades II", gameFor(t, store, schedule.DayMon))

	applied, err = engine.Undo()
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, "", gameFor(t, store, schedule.DayMon))

	// Log exhausted.
	applied, err = engine.Undo()
	require.NoError(t, err)
	require.False(t, applied)

	applied, err = engine.Redo()
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, "Hades II", gameFor(t, store, schedule.DayMon))

	applied, err = engine.Redo()
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, "Silksong", gameFor(t, store, schedule.DayMon))

	applied, err = engine.Redo()
	require.NoError(t, err)
	require.False(t, applied)
}

func TestUndo_RestoresScheduleTimestamps(t *testing.T) {
	engine, store := setupEngine(t, time.Hour, 50)
	engine.Stop()

	current, err := store.EnsureCurrentSchedule()
	require.NoError(t, err)

	_, err = store.RenameSchedule("Fall Lineup")
	require.NoError(t, err)
	require.NoError(t, engine.CaptureNow("rename"))

	applied, err := engine.Undo()
	require.NoError(t, err)
	require.True(t, applied)

	restored, err := store.EnsureCurrentSchedule()
	require.NoError(t, err)
	require.Equal(t, current.Name, restored.Name)
	require.True(t, current.UpdatedAt.Equal(restored.UpdatedAt))
}

func TestCapture_DiscardsRedoBranch(t *testing.T) {
	engine, store := setupEngine(t, time.Hour, 50)
	engine.Stop()

	setGame(t, store, "mon", "Hades II")
	require.NoError(t, engine.CaptureNow("first"))
	setGame(t, store, "mon", "Silksong")
	require.NoError(t, engine.CaptureNow("second"))

	_, err := engine.Undo()
	require.NoError(t, err)

	canRedo, err := engine.CanRedo()
	require.NoError(t, err)
	require.True(t, canRedo)

	// A new edit after undo forks the timeline; the redo branch goes away.
	setGame(t, store, "mon", "Celeste")
	require.NoError(t, engine.CaptureNow("third"))

	canRedo, err = engine.CanRedo()
	require.NoError(t, err)
	require.False(t, canRedo)

	_, err = engine.Undo()
	require.NoError(t, err)
	require.Equal(t, "Hades II", gameFor(t, store, schedule.DayMon))
}

func TestCapture_TrimsToCap(t *testing.T) {
	engine, store := setupEngine(t, time.Hour, 2)
	engine.Stop()

	for _, game := range []string{"One", "Two", "Three", "Four"} {
		setGame(t, store, "mon", game)
		require.NoError(t, engine.CaptureNow("edit"))
	}

	current, err := store.EnsureCurrentSchedule()
	require.NoError(t, err)
	count, err := engine.Repository().Count(current.ID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// The newest steps survive.
	_, err = engine.Undo()
	require.NoError(t, err)
	require.Equal(t, "Three", gameFor(t, store, schedule.DayMon))
}

func TestRequestCapture_Debounces(t *testing.T) {
	engine, store := setupEngine(t, 30*time.Millisecond, 50)

	setGame(t, store, "mon", "One")
	engine.RequestCapture("first")
	setGame(t, store, "mon", "Two")
	engine.RequestCapture("second")
	setGame(t, store, "mon", "Three")
	engine.RequestCapture("third")

	time.Sleep(200 * time.Millisecond)

	current, err := store.EnsureCurrentSchedule()
	require.NoError(t, err)
	snapshots, err := engine.Repository().List(current.ID, 10)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	require.NotNil(t, snapshots[0].Reason)
	require.Equal(t, "third", *snapshots[0].Reason)
}

func TestUndo_FlushesPendingCapture(t *testing.T) {
	engine, store := setupEngine(t, time.Hour, 50)

	setGame(t, store, "mon", "Hades II")
	engine.RequestCapture("pending")

	// The debounce window has not elapsed, yet undo must see the edit.
	applied, err := engine.Undo()
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, "", gameFor(t, store, schedule.DayMon))
}

func TestUndo_NothingToUndo(t *testing.T) {
	engine, _ := setupEngine(t, time.Hour, 50)

	applied, err := engine.Undo()
	require.NoError(t, err)
	require.False(t, applied)

	applied, err = engine.Redo()
	require.NoError(t, err)
	require.False(t, applied)
}

func TestUndoRedo_HeroImage(t *testing.T) {
	engine, store := setupEngine(t, time.Hour, 50)
	engine.Stop() // captures driven manually

	result, err := store.Repository().Writer().Exec(
		"INSERT INTO images (name, data) VALUES (?, ?)",
		"hero.png", "data:image/png;base64,aGVybw==")
	require.NoError(t, err)
	imageID, err := result.LastInsertId()
	require.NoError(t, err)

	require.NoError(t, store.SetHeroImage(imageID))
	require.NoError(t, engine.CaptureNow("hero-image"))

	require.NoError(t, store.ClearHeroImage())
	require.NoError(t, engine.CaptureNow("hero-image"))

	applied, err := engine.Undo()
	require.NoError(t, err)
	require.True(t, applied)

	global, err := store.Global()
	require.NoError(t, err)
	require.NotNil(t, global.HeroImageID)
	require.Equal(t, imageID, *global.HeroImageID)

	applied, err = engine.Redo()
	require.NoError(t, err)
	require.True(t, applied)

	global, err = store.Global()
	require.NoError(t, err)
	require.Nil(t, global.HeroImageID)
}
