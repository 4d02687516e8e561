package schedule

import (
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/strefethen/schedule-maker-go/internal/assets"
	"github.com/strefethen/schedule-maker-go/internal/db"
	"github.com/strefethen/schedule-maker-go/internal/events"
	"github.com/strefethen/schedule-maker-go/internal/theme"
)

func setupService(t *testing.T) (*Service, *assets.Service) {
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

	return NewService(dbPair, assetService, themeService, bus, nil, "elegant-blue", "UTC"), assetService
}

func TestEnsureCurrentSchedule_CreatesDefault(t *testing.T) {
	service, _ := setupService(t)

	schedule, err := service.EnsureCurrentSchedule()
	require.NoError(t, err)
	require.NotNil(t, schedule)
	require.Equal(t, "My Schedule", schedule.Name)
	require.Equal(t, DayMon, schedule.WeekStart)
	require.NotNil(t, schedule.ThemeID)

	global, err := service.Global()
	require.NoError(t, err)
	require.NotNil(t, global.CurrentScheduleID)
	require.Equal(t, schedule.ID, *global.CurrentScheduleID)

	days, err := service.Repository().DaysForSchedule(schedule.ID)
	require.NoError(t, err)
	require.Len(t, days, 7)

	// Starter canvas: a title plus one card per weekday.
	components, err := service.Repository().ComponentsForSchedule(schedule.ID)
	require.NoError(t, err)
	require.Len(t, components, 8)
}

func TestEnsureCurrentSchedule_Stable(t *testing.T) {
	service, _ := setupService(t)

	first, err := service.EnsureCurrentSchedule()
	require.NoError(t, err)
	second, err := service.EnsureCurrentSchedule()
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestEnsureCurrentSchedule_FallsBackToFirst(t *testing.T) {
	service, _ := setupService(t)

	created, err := service.EnsureCurrentSchedule()
	require.NoError(t, err)

	// Point the global row at a schedule that no longer exists.
	_, err = service.Repository().Writer().Exec("UPDATE global SET current_schedule_id = 9999 WHERE id = 1")
	require.NoError(t, err)

	resolved, err := service.EnsureCurrentSchedule()
	require.NoError(t, err)
	require.Equal(t, created.ID, resolved.ID)
}

func TestWeek_BackfillsMissingDays(t *testing.T) {
	service, _ := setupService(t)

	schedule, err := service.EnsureCurrentSchedule()
	require.NoError(t, err)

	_, err = service.Repository().Writer().Exec(
		"DELETE FROM schedule_days WHERE schedule_id = ? AND day = 'wed'", schedule.ID)
	require.NoError(t, err)

	_, week, err := service.Week()
	require.NoError(t, err)
	require.Len(t, week, 7)
	require.False(t, week[DayWed].Enabled)
	require.Empty(t, week[DayWed].GameName)
}

func TestWeek_ResolvesImages(t *testing.T) {
	service, assetService := setupService(t)

	imageID, err := assetService.UploadImage("cover.png", "image/png", []byte("\x89PNG\r\n\x1a\nfake"))
	require.NoError(t, err)

	_, err = service.UpdateDay("fri", UpdateScheduleDayInput{ImageID: &imageID})
	require.NoError(t, err)

	_, week, err := service.Week()
	require.NoError(t, err)
	require.NotNil(t, week[DayFri].GameGraphicURL)
	require.Contains(t, *week[DayFri].GameGraphicURL, "data:image/png;base64,")
}

func TestUpdateDay(t *testing.T) {
	service, _ := setupService(t)

	enabled := true
	game := "Elden Ring"
	start := "19:00"
	day, err := service.UpdateDay("tue", UpdateScheduleDayInput{
		Enabled:  &enabled,
		GameName: &game,
		Time:     &start,
	})
	require.NoError(t, err)
	require.True(t, day.Enabled)
	require.Equal(t, "Elden Ring", day.GameName)
	require.Equal(t, "19:00", day.Time)

	// Partial update leaves other fields alone.
	notes := "collab stream"
	day, err = service.UpdateDay("tue", UpdateScheduleDayInput{Notes: &notes})
	require.NoError(t, err)
	require.Equal(t, "Elden Ring", day.GameName)
	require.NotNil(t, day.Notes)
	require.Equal(t, "collab stream", *day.Notes)
}

func TestUpdateDay_ClearImage(t *testing.T) {
	service, assetService := setupService(t)

	imageID, err := assetService.UploadImage("art.png", "image/png", []byte("\x89PNG\r\n\x1a\nart"))
	require.NoError(t, err)

	day, err := service.UpdateDay("mon", UpdateScheduleDayInput{ImageID: &imageID})
	require.NoError(t, err)
	require.NotNil(t, day.ImageID)

	day, err = service.UpdateDay("mon", UpdateScheduleDayInput{ClearImage: true})
	require.NoError(t, err)
	require.Nil(t, day.ImageID)
}

func TestUpdateDay_InvalidDay(t *testing.T) {
	service, _ := setupService(t)

	_, err := service.UpdateDay("monday", UpdateScheduleDayInput{})
	require.Error(t, err)
}

func TestToggleDay(t *testing.T) {
	service, _ := setupService(t)

	day, err := service.ToggleDay("sat")
	require.NoError(t, err)
	require.True(t, day.Enabled)

	day, err = service.ToggleDay("sat")
	require.NoError(t, err)
	require.False(t, day.Enabled)
}

func TestSetWeekStart(t *testing.T) {
	service, _ := setupService(t)

	schedule, err := service.SetWeekStart("sun")
	require.NoError(t, err)
	require.Equal(t, DaySun, schedule.WeekStart)

	_, err = service.SetWeekStart("wed")
	require.Error(t, err)
}

func TestSetWeekAnchor_Validation(t *testing.T) {
	service, _ := setupService(t)

	schedule, err := service.SetWeekAnchor("2026-09-07")
	require.NoError(t, err)
	require.Equal(t, "2026-09-07", schedule.WeekAnchor)

	_, err = service.SetWeekAnchor("next tuesday")
	require.Error(t, err)
}

func TestSetExportScale_Bounds(t *testing.T) {
	service, _ := setupService(t)

	require.NoError(t, service.SetExportScale(4))
	global, err := service.Global()
	require.NoError(t, err)
	require.Equal(t, 4, global.ExportScale)

	require.Error(t, service.SetExportScale(0))
	require.Error(t, service.SetExportScale(5))
}

func TestCreateComponent_DefaultProps(t *testing.T) {
	service, _ := setupService(t)

	component, err := service.CreateComponent(CreateComponentInput{
		Kind: KindText, Name: "Headline", X: 100, Y: 200, Width: 600, Height: 80,
	})
	require.NoError(t, err)
	require.Equal(t, KindText, component.Kind)
	require.True(t, component.Visible)

	props, err := service.GetComponentProps(component.ID)
	require.NoError(t, err)
	require.Equal(t, "Schedule", props.Data["text"])
	require.Equal(t, "heading", props.Data["fontId"])
	require.EqualValues(t, 72, props.Data["fontSize"])
}

func TestCreateComponent_PropsOverlay(t *testing.T) {
	service, _ := setupService(t)

	component, err := service.CreateComponent(CreateComponentInput{
		Kind:  KindText,
		Props: map[string]any{"text": "Live at 8", "fontSize": float64(48)},
	})
	require.NoError(t, err)

	props, err := service.GetComponentProps(component.ID)
	require.NoError(t, err)
	require.Equal(t, "Live at 8", props.Data["text"])
	require.EqualValues(t, 48, props.Data["fontSize"])
	// Unspecified keys fall back to defaults.
	require.Equal(t, "primary", props.Data["colorToken"])
}

func TestCreateComponent_InvalidKind(t *testing.T) {
	service, _ := setupService(t)

	_, err := service.CreateComponent(CreateComponentInput{Kind: "video"})
	require.Error(t, err)
}

func TestUpdateComponentProps_MergeAndDelete(t *testing.T) {
	service, _ := setupService(t)

	component, err := service.CreateComponent(CreateComponentInput{Kind: KindText})
	require.NoError(t, err)

	props, err := service.UpdateComponentProps(component.ID, map[string]any{
		"text":  "Friday Frags",
		"align": "center",
	})
	require.NoError(t, err)
	require.Equal(t, "Friday Frags", props.Data["text"])
	require.Equal(t, "center", props.Data["align"])
	require.Equal(t, "heading", props.Data["fontId"])

	// Explicit null removes a key.
	props, err = service.UpdateComponentProps(component.ID, map[string]any{"align": nil})
	require.NoError(t, err)
	require.NotContains(t, props.Data, "align")
}

func TestComponentProps_KindMismatchRepair(t *testing.T) {
	service, _ := setupService(t)

	component, err := service.CreateComponent(CreateComponentInput{Kind: KindText})
	require.NoError(t, err)

	// Corrupt the props row with a bag written for another kind.
	_, err = service.Repository().PutProps(component.ID, KindImage, map[string]any{"fit": "cover"})
	require.NoError(t, err)

	props, err := service.GetComponentProps(component.ID)
	require.NoError(t, err)
	require.Equal(t, KindText, props.Kind)
	require.Equal(t, "Schedule", props.Data["text"])
	require.NotContains(t, props.Data, "fit")
}

func TestUpdateComponent_Geometry(t *testing.T) {
	service, _ := setupService(t)

	component, err := service.CreateComponent(CreateComponentInput{Kind: KindImage, X: 10, Y: 10})
	require.NoError(t, err)

	x := 320.5
	locked := true
	updated, err := service.UpdateComponent(component.ID, UpdateComponentInput{X: &x, Locked: &locked})
	require.NoError(t, err)
	require.Equal(t, 320.5, updated.X)
	require.EqualValues(t, 10, updated.Y)
	require.True(t, updated.Locked)
}

func TestDeleteComponent_CascadesProps(t *testing.T) {
	service, _ := setupService(t)

	component, err := service.CreateComponent(CreateComponentInput{Kind: KindDayCard})
	require.NoError(t, err)

	require.NoError(t, service.DeleteComponent(component.ID))

	props, err := service.Repository().GetProps(component.ID)
	require.NoError(t, err)
	require.Nil(t, props)

	require.Error(t, service.DeleteComponent(component.ID))
}

func TestComponents_OrderedByZIndex(t *testing.T) {
	service, _ := setupService(t)

	// Drop the seeded canvas so ordering is easy to assert.
	schedule, err := service.EnsureCurrentSchedule()
	require.NoError(t, err)
	_, err = service.Repository().Writer().Exec("DELETE FROM components WHERE schedule_id = ?", schedule.ID)
	require.NoError(t, err)

	top, err := service.CreateComponent(CreateComponentInput{Kind: KindText, ZIndex: 5})
	require.NoError(t, err)
	bottom, err := service.CreateComponent(CreateComponentInput{Kind: KindImage, ZIndex: 1})
	require.NoError(t, err)

	components, err := service.Components()
	require.NoError(t, err)
	require.Len(t, components, 2)
	require.Equal(t, bottom.ID, components[0].ID)
	require.Equal(t, top.ID, components[1].ID)
}

func TestSetTheme(t *testing.T) {
	service, _ := setupService(t)

	schedule, err := service.SetTheme("midnight-neon")
	require.NoError(t, err)
	require.NotNil(t, schedule.ThemeID)

	_, err = service.SetTheme("missing-theme")
	require.Error(t, err)
}

func TestHeroImage(t *testing.T) {
	service, assetService := setupService(t)

	_, err := service.EnsureCurrentSchedule()
	require.NoError(t, err)

	url, err := service.HeroURL()
	require.NoError(t, err)
	require.Nil(t, url)

	imageID, err := assetService.UploadImage("hero.png", "image/png", []byte("\x89PNG\r\n\x1a\nhero"))
	require.NoError(t, err)

	require.NoError(t, service.SetHeroImage(imageID))

	global, err := service.Global()
	require.NoError(t, err)
	require.NotNil(t, global.HeroImageID)
	require.Equal(t, imageID, *global.HeroImageID)

	url, err = service.HeroURL()
	require.NoError(t, err)
	require.NotNil(t, url)
	require.Contains(t, *url, "data:image/png;base64,")

	require.NoError(t, service.ClearHeroImage())
	url, err = service.HeroURL()
	require.NoError(t, err)
	require.Nil(t, url)
}

func TestSetHeroImage_MissingImage(t *testing.T) {
	service, _ := setupService(t)

	_, err := service.EnsureCurrentSchedule()
	require.NoError(t, err)

	require.Error(t, service.SetHeroImage(9999))
}
