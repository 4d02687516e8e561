package schedule

import (
	"fmt"
	"log"
	"time"

	"github.com/strefethen/schedule-maker-go/internal/apperrors"
	"github.com/strefethen/schedule-maker-go/internal/assets"
	"github.com/strefethen/schedule-maker-go/internal/events"
	"github.com/strefethen/schedule-maker-go/internal/theme"
)

// Export scale bounds. The renderer multiplies the 1920x1080 canvas by the
// configured scale, so anything above 4 produces unreasonable bitmaps.
const (
	ExportScaleMin = 1
	ExportScaleMax = 4
)

// CaptureRequester is notified after every mutating operation so the history
// engine can schedule a debounced snapshot. Implemented by history.Engine.
type CaptureRequester interface {
	RequestCapture(reason string)
}

// Service contains business logic for schedules, day plans, and canvas
// components.
type Service struct {
	logger  *log.Logger
	repo    *Repository
	assets  *assets.Service
	themes  *theme.Service
	bus     *events.Bus
	capture CaptureRequester

	defaultThemeSlug string
	defaultTimezone  string
}

// NewService creates a new schedule Service.
func NewService(dbPair DBPair, assetsSvc *assets.Service, themesSvc *theme.Service, bus *events.Bus, logger *log.Logger, defaultThemeSlug, defaultTimezone string) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}
	return &Service{
		logger:           logger,
		repo:             NewRepository(dbPair),
		assets:           assetsSvc,
		themes:           themesSvc,
		bus:              bus,
		defaultThemeSlug: defaultThemeSlug,
		defaultTimezone:  defaultTimezone,
	}
}

// Repository exposes the underlying repository (used by tests and the
// history engine).
func (s *Service) Repository() *Repository {
	return s.repo
}

// SetCaptureRequester wires the history engine in after construction; the
// engine itself needs the service, so the dependency cannot be a constructor
// argument.
func (s *Service) SetCaptureRequester(c CaptureRequester) {
	s.capture = c
}

func (s *Service) requestCapture(reason string) {
	if s.capture != nil {
		s.capture.RequestCapture(reason)
	}
}

func (s *Service) notify(tables ...string) {
	if s.bus != nil {
		s.bus.Notify(tables...)
	}
}

// =============================================================================
// Current schedule
// =============================================================================

// EnsureCurrentSchedule resolves the active schedule, falling back in order:
// the global pointer, the oldest stored schedule, a freshly created default.
// The winning schedule is written back to the global pointer.
func (s *Service) EnsureCurrentSchedule() (*Schedule, error) {
	global, err := s.repo.GetGlobal()
	if err != nil {
		return nil, err
	}

	if global.CurrentScheduleID != nil {
		schedule, err := s.repo.GetSchedule(*global.CurrentScheduleID)
		if err != nil {
			return nil, err
		}
		if schedule != nil {
			return schedule, nil
		}
		s.logger.Printf("current schedule %d no longer exists, falling back", *global.CurrentScheduleID)
	}

	schedule, err := s.repo.FirstSchedule()
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		schedule, err = s.createDefaultSchedule()
		if err != nil {
			return nil, err
		}
		s.logger.Printf("created default schedule %d", schedule.ID)
	}

	if err := s.repo.SetCurrentSchedule(schedule.ID); err != nil {
		return nil, err
	}
	s.notify("global")

	return schedule, nil
}

// SwitchSchedule points the editor at another stored schedule.
func (s *Service) SwitchSchedule(id int64) (*Schedule, error) {
	schedule, err := s.repo.GetSchedule(id)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, apperrors.NewAppError(apperrors.ErrorCodeScheduleNotFound,
			fmt.Sprintf("Schedule %d not found", id), 404, nil)
	}

	if err := s.repo.SetCurrentSchedule(id); err != nil {
		return nil, err
	}
	s.notify("global")

	return schedule, nil
}

// createDefaultSchedule builds the first-run schedule: seven empty day rows
// plus a starter canvas of a title and one card per weekday.
func (s *Service) createDefaultSchedule() (*Schedule, error) {
	var themeID *int64
	if s.themes != nil {
		preset, err := s.themes.GetBySlug(s.defaultThemeSlug)
		if err == nil && preset != nil {
			themeID = &preset.ID
		}
	}

	schedule, err := s.repo.CreateSchedule(CreateScheduleInput{
		Name:       "My Schedule",
		ThemeID:    themeID,
		WeekStart:  DayMon,
		WeekAnchor: time.Now().UTC().Format("2006-01-02"),
		Timezone:   s.defaultTimezone,
	})
	if err != nil {
		return nil, err
	}

	for _, day := range AllDays {
		if err := s.repo.InsertDefaultDay(schedule.ID, day); err != nil {
			return nil, err
		}
	}

	if err := s.seedDefaultCanvas(schedule.ID); err != nil {
		return nil, err
	}

	s.notify("schedules", "schedule_days", "components")
	return schedule, nil
}

func (s *Service) seedDefaultCanvas(scheduleID int64) error {
	title := CreateComponentInput{
		Kind:   KindText,
		Name:   "Title",
		X:      80,
		Y:      48,
		Width:  1200,
		Height: 120,
		ZIndex: 10,
	}
	if _, err := s.repo.InsertComponent(scheduleID, title, propsToMap(DefaultProps(KindText))); err != nil {
		return err
	}

	// One card per weekday in a Monday-first row across the canvas.
	const cardWidth, cardHeight, gap = 248.0, 720.0, 16.0
	for i, day := range AllDays {
		card := CreateComponentInput{
			Kind:   KindDayCard,
			Name:   "Day " + string(day),
			X:      gap + float64(i)*(cardWidth+gap),
			Y:      240,
			Width:  cardWidth,
			Height: cardHeight,
			ZIndex: i + 1,
		}
		props := propsToMap(DefaultProps(KindDayCard))
		props["day"] = string(day)
		if _, err := s.repo.InsertComponent(scheduleID, card, props); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Schedule settings
// =============================================================================

// RenameSchedule changes the active schedule's display name.
func (s *Service) RenameSchedule(name string) (*Schedule, error) {
	if name == "" {
		return nil, apperrors.NewValidationError("Schedule name must not be empty", nil)
	}
	return s.updateCurrent(UpdateScheduleInput{Name: &name}, "rename")
}

// SetWeekStart changes which weekday the rendered week begins on.
func (s *Service) SetWeekStart(value string) (*Schedule, error) {
	day, ok := ParseDay(value)
	if !ok || (day != DayMon && day != DaySun) {
		return nil, apperrors.NewAppError(apperrors.ErrorCodeInvalidDay,
			"Week start must be 'mon' or 'sun'", 400, map[string]any{"value": value})
	}
	return s.updateCurrent(UpdateScheduleInput{WeekStart: &day}, "week-start")
}

// SetWeekAnchor moves the schedule to the week containing the given date.
func (s *Service) SetWeekAnchor(date string) (*Schedule, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, apperrors.NewValidationError("Week anchor must be a YYYY-MM-DD date",
			map[string]any{"value": date})
	}
	return s.updateCurrent(UpdateScheduleInput{WeekAnchor: &date}, "week-anchor")
}

// SetTimezone changes the schedule's display timezone.
func (s *Service) SetTimezone(name string) (*Schedule, error) {
	if _, err := time.LoadLocation(name); err != nil {
		return nil, apperrors.NewValidationError("Unknown timezone",
			map[string]any{"value": name})
	}
	return s.updateCurrent(UpdateScheduleInput{Timezone: &name}, "timezone")
}

// SetTheme applies a stored theme to the active schedule.
func (s *Service) SetTheme(slug string) (*Schedule, error) {
	preset, err := s.themes.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	return s.updateCurrent(UpdateScheduleInput{ThemeID: &preset.ID}, "theme")
}

func (s *Service) updateCurrent(input UpdateScheduleInput, reason string) (*Schedule, error) {
	current, err := s.EnsureCurrentSchedule()
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateSchedule(current.ID, input)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperrors.NewAppError(apperrors.ErrorCodeScheduleNotFound,
			"Schedule disappeared during update", 404, nil)
	}

	s.notify("schedules")
	s.requestCapture(reason)
	return updated, nil
}

// Global returns the app-wide singleton row.
func (s *Service) Global() (*GlobalRow, error) {
	return s.repo.GetGlobal()
}

// SetExportScale updates the export multiplier.
func (s *Service) SetExportScale(scale int) error {
	if scale < ExportScaleMin || scale > ExportScaleMax {
		return apperrors.NewAppError(apperrors.ErrorCodeInvalidScale,
			fmt.Sprintf("Export scale must be between %d and %d", ExportScaleMin, ExportScaleMax),
			400, map[string]any{"value": scale})
	}
	if err := s.repo.SetExportScale(scale); err != nil {
		return err
	}
	s.notify("global")
	s.requestCapture("export-scale")
	return nil
}

// SetSidebarOpen persists the sidebar toggle. Pure UI state, so it does not
// touch history.
func (s *Service) SetSidebarOpen(open bool) error {
	if err := s.repo.SetSidebarOpen(open); err != nil {
		return err
	}
	s.notify("global")
	return nil
}

// SetHeroImage points the hero slot at a stored image.
func (s *Service) SetHeroImage(imageID int64) error {
	if s.assets != nil {
		if _, err := s.assets.GetImage(imageID); err != nil {
			return err
		}
	}
	if err := s.repo.SetHeroImage(&imageID); err != nil {
		return err
	}
	s.notify("global")
	s.requestCapture("hero-image")
	return nil
}

// ClearHeroImage empties the hero slot.
func (s *Service) ClearHeroImage() error {
	if err := s.repo.SetHeroImage(nil); err != nil {
		return err
	}
	s.notify("global")
	s.requestCapture("hero-image")
	return nil
}

// HeroURL resolves the hero image to its data URL. Returns nil when the slot
// is empty or the image is gone.
func (s *Service) HeroURL() (*string, error) {
	global, err := s.repo.GetGlobal()
	if err != nil {
		return nil, err
	}
	if global.HeroImageID == nil || s.assets == nil {
		return nil, nil
	}

	urls, err := s.assets.ResolveDataURLs([]int64{*global.HeroImageID})
	if err != nil {
		return nil, err
	}
	if url, ok := urls[*global.HeroImageID]; ok {
		return &url, nil
	}
	return nil, nil
}

// =============================================================================
// Day plans
// =============================================================================

// Week returns the resolved week view for the active schedule. Missing day
// rows are backfilled with disabled defaults so the view is always complete.
func (s *Service) Week() (*Schedule, Week, error) {
	schedule, err := s.EnsureCurrentSchedule()
	if err != nil {
		return nil, nil, err
	}

	days, err := s.daysWithBackfill(schedule.ID)
	if err != nil {
		return nil, nil, err
	}

	imageIDs := []int64{}
	for _, d := range days {
		if d.ImageID != nil {
			imageIDs = append(imageIDs, *d.ImageID)
		}
		if d.BackgroundImageID != nil {
			imageIDs = append(imageIDs, *d.BackgroundImageID)
		}
	}

	urls := map[int64]string{}
	if s.assets != nil && len(imageIDs) > 0 {
		urls, err = s.assets.ResolveDataURLs(imageIDs)
		if err != nil {
			return nil, nil, err
		}
	}

	week := Week{}
	for _, d := range days {
		entry := WeekDay{
			Day:                  d.Day,
			Enabled:              d.Enabled,
			GameName:             d.GameName,
			Time:                 d.Time,
			ImageID:              d.ImageID,
			BackgroundColorToken: d.BackgroundColorToken,
			BackgroundImageID:    d.BackgroundImageID,
			Notes:                d.Notes,
		}
		if d.ImageID != nil {
			if url, ok := urls[*d.ImageID]; ok {
				entry.GameGraphicURL = &url
			}
		}
		if d.BackgroundImageID != nil {
			if url, ok := urls[*d.BackgroundImageID]; ok {
				entry.BackgroundGraphicURL = &url
			}
		}
		week[d.Day] = entry
	}

	return schedule, week, nil
}

func (s *Service) daysWithBackfill(scheduleID int64) ([]ScheduleDay, error) {
	days, err := s.repo.DaysForSchedule(scheduleID)
	if err != nil {
		return nil, err
	}
	if len(days) == len(AllDays) {
		return days, nil
	}

	present := map[Day]bool{}
	for _, d := range days {
		present[d.Day] = true
	}
	for _, day := range AllDays {
		if !present[day] {
			if err := s.repo.InsertDefaultDay(scheduleID, day); err != nil {
				return nil, err
			}
		}
	}

	return s.repo.DaysForSchedule(scheduleID)
}

// UpdateDay applies a partial update to one weekday of the active schedule.
func (s *Service) UpdateDay(dayValue string, input UpdateScheduleDayInput) (*ScheduleDay, error) {
	day, ok := ParseDay(dayValue)
	if !ok {
		return nil, apperrors.NewAppError(apperrors.ErrorCodeInvalidDay,
			fmt.Sprintf("Invalid day %q", dayValue), 400, nil)
	}

	schedule, err := s.EnsureCurrentSchedule()
	if err != nil {
		return nil, err
	}

	if _, err := s.daysWithBackfill(schedule.ID); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateDay(schedule.ID, day, input)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperrors.NewAppError(apperrors.ErrorCodeDayNotFound,
			fmt.Sprintf("Day %q not found", day), 404, nil)
	}

	s.notify("schedule_days")
	s.requestCapture("day-update")
	return updated, nil
}

// ToggleDay flips a weekday's enabled flag.
func (s *Service) ToggleDay(dayValue string) (*ScheduleDay, error) {
	day, ok := ParseDay(dayValue)
	if !ok {
		return nil, apperrors.NewAppError(apperrors.ErrorCodeInvalidDay,
			fmt.Sprintf("Invalid day %q", dayValue), 400, nil)
	}

	schedule, err := s.EnsureCurrentSchedule()
	if err != nil {
		return nil, err
	}

	if _, err := s.daysWithBackfill(schedule.ID); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetDay(schedule.ID, day)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperrors.NewAppError(apperrors.ErrorCodeDayNotFound,
			fmt.Sprintf("Day %q not found", day), 404, nil)
	}

	enabled := !existing.Enabled
	updated, err := s.repo.UpdateDay(schedule.ID, day, UpdateScheduleDayInput{Enabled: &enabled})
	if err != nil {
		return nil, err
	}

	s.notify("schedule_days")
	s.requestCapture("day-toggle")
	return updated, nil
}

// =============================================================================
// Components
// =============================================================================

// Components lists the active schedule's components in render order.
func (s *Service) Components() ([]Component, error) {
	schedule, err := s.EnsureCurrentSchedule()
	if err != nil {
		return nil, err
	}
	return s.repo.ComponentsForSchedule(schedule.ID)
}

// CreateComponent adds a component to the active schedule's canvas. Props
// start from the kind's defaults with any provided values layered on top.
func (s *Service) CreateComponent(input CreateComponentInput) (*Component, error) {
	kind, ok := ParseKind(string(input.Kind))
	if !ok {
		return nil, apperrors.NewAppError(apperrors.ErrorCodeInvalidKind,
			fmt.Sprintf("Invalid component kind %q", input.Kind), 400, nil)
	}
	input.Kind = kind

	schedule, err := s.EnsureCurrentSchedule()
	if err != nil {
		return nil, err
	}

	props := propsToMap(DefaultProps(kind))
	for key, value := range input.Props {
		props[key] = value
	}

	component, err := s.repo.InsertComponent(schedule.ID, input, props)
	if err != nil {
		return nil, err
	}

	s.notify("components", "component_props")
	s.requestCapture("component-create")
	return component, nil
}

// UpdateComponent applies a partial geometry/flag update.
func (s *Service) UpdateComponent(id int64, input UpdateComponentInput) (*Component, error) {
	updated, err := s.repo.UpdateComponent(id, input)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperrors.NewAppError(apperrors.ErrorCodeComponentNotFound,
			fmt.Sprintf("Component %d not found", id), 404, nil)
	}

	s.notify("components")
	s.requestCapture("component-update")
	return updated, nil
}

// DeleteComponent removes a component and its props.
func (s *Service) DeleteComponent(id int64) error {
	deleted, err := s.repo.DeleteComponent(id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.NewAppError(apperrors.ErrorCodeComponentNotFound,
			fmt.Sprintf("Component %d not found", id), 404, nil)
	}

	s.notify("components", "component_props")
	s.requestCapture("component-delete")
	return nil
}

// GetComponentProps returns a component's property bag.
func (s *Service) GetComponentProps(componentID int64) (*ComponentProps, error) {
	component, err := s.repo.GetComponent(componentID)
	if err != nil {
		return nil, err
	}
	if component == nil {
		return nil, apperrors.NewAppError(apperrors.ErrorCodeComponentNotFound,
			fmt.Sprintf("Component %d not found", componentID), 404, nil)
	}
	return s.propsWithRepair(component)
}

// UpdateComponentProps merges a patch into a component's property bag. When
// the stored props were written for a different kind the bag is reset to the
// component kind's defaults before the patch is applied.
func (s *Service) UpdateComponentProps(componentID int64, patch map[string]any) (*ComponentProps, error) {
	component, err := s.repo.GetComponent(componentID)
	if err != nil {
		return nil, err
	}
	if component == nil {
		return nil, apperrors.NewAppError(apperrors.ErrorCodeComponentNotFound,
			fmt.Sprintf("Component %d not found", componentID), 404, nil)
	}

	props, err := s.propsWithRepair(component)
	if err != nil {
		return nil, err
	}

	data := props.Data
	if data == nil {
		data = map[string]any{}
	}
	for key, value := range patch {
		if value == nil {
			delete(data, key)
			continue
		}
		data[key] = value
	}

	updated, err := s.repo.PutProps(componentID, component.Kind, data)
	if err != nil {
		return nil, err
	}

	s.notify("component_props")
	s.requestCapture("props-update")
	return updated, nil
}

// propsWithRepair loads a component's props, resetting them to the kind's
// defaults when the row is missing or was written for a different kind.
func (s *Service) propsWithRepair(component *Component) (*ComponentProps, error) {
	props, err := s.repo.GetProps(component.ID)
	if err != nil {
		return nil, err
	}
	if props != nil && props.Kind == component.Kind {
		return props, nil
	}

	if props != nil {
		s.logger.Printf("component %d props kind %q does not match component kind %q, resetting",
			component.ID, props.Kind, component.Kind)
	}
	return s.repo.PutProps(component.ID, component.Kind, propsToMap(DefaultProps(component.Kind)))
}
