package schedule

import "time"

// Canvas dimensions. Every component position is expressed in this space;
// export scales it by the global export multiplier.
const (
	CanvasWidth  = 1920
	CanvasHeight = 1080
)

// Day identifies a weekday.
type Day string

const (
	DayMon Day = "mon"
	DayTue Day = "tue"
	DayWed Day = "wed"
	DayThu Day = "thu"
	DayFri Day = "fri"
	DaySat Day = "sat"
	DaySun Day = "sun"
)

// AllDays lists the weekdays in Monday-first order.
var AllDays = []Day{DayMon, DayTue, DayWed, DayThu, DayFri, DaySat, DaySun}

// ParseDay validates a weekday string.
func ParseDay(value string) (Day, bool) {
	day := Day(value)
	for _, d := range AllDays {
		if d == day {
			return day, true
		}
	}
	return "", false
}

// DaysOrderedByWeekStart returns the weekdays starting from the given
// week-start day (Monday or Sunday).
func DaysOrderedByWeekStart(weekStart Day) []Day {
	if weekStart == DaySun {
		return []Day{DaySun, DayMon, DayTue, DayWed, DayThu, DayFri, DaySat}
	}
	return []Day{DayMon, DayTue, DayWed, DayThu, DayFri, DaySat, DaySun}
}

// ComponentKind discriminates the canvas component variants.
type ComponentKind string

const (
	KindText    ComponentKind = "text"
	KindImage   ComponentKind = "image"
	KindDayCard ComponentKind = "day-card"
)

// ParseKind validates a component kind string.
func ParseKind(value string) (ComponentKind, bool) {
	switch ComponentKind(value) {
	case KindText, KindImage, KindDayCard:
		return ComponentKind(value), true
	}
	return "", false
}

// Schedule is one weekly schedule document.
type Schedule struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	ThemeID    *int64    `json:"theme_id"`
	WeekStart  Day       `json:"week_start"`
	WeekAnchor string    `json:"week_anchor"` // ISO date inside the target week
	Timezone   string    `json:"timezone"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ScheduleDay is the per-weekday plan belonging to a schedule.
type ScheduleDay struct {
	ID                   int64     `json:"id"`
	ScheduleID           int64     `json:"schedule_id"`
	Day                  Day       `json:"day"`
	Enabled              bool      `json:"enabled"`
	GameName             string    `json:"game_name"`
	Time                 string    `json:"time"` // HH:MM, no date
	ImageID              *int64    `json:"image_id"`
	BackgroundColorToken *string   `json:"background_color_token"`
	BackgroundImageID    *int64    `json:"background_image_id"`
	Notes                *string   `json:"notes"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Component is one positioned object on the canvas.
type Component struct {
	ID         int64         `json:"id"`
	ScheduleID int64         `json:"schedule_id"`
	Kind       ComponentKind `json:"kind"`
	Name       string        `json:"name"`
	X          float64       `json:"x"`
	Y          float64       `json:"y"`
	Width      float64       `json:"width"`
	Height     float64       `json:"height"`
	Rotation   float64       `json:"rotation"` // degrees
	ZIndex     int           `json:"z_index"`
	Visible    bool          `json:"visible"`
	Locked     bool          `json:"locked"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// ComponentProps is the kind-specific property bag for one component.
// Data is the raw JSON payload; its shape follows the component kind.
type ComponentProps struct {
	ID          int64          `json:"id"`
	ComponentID int64          `json:"component_id"`
	Kind        ComponentKind  `json:"kind"`
	Data        map[string]any `json:"data"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TextProps is the property shape for text components.
type TextProps struct {
	Text          string  `json:"text"`
	FontID        string  `json:"fontId"`
	FontSize      float64 `json:"fontSize"`
	ColorToken    string  `json:"colorToken"`
	Align         string  `json:"align"` // left | center | right
	LetterSpacing float64 `json:"letterSpacing"`
	LineHeight    float64 `json:"lineHeight"`
	RichContent   any     `json:"richContent,omitempty"`
}

// ImageProps is the property shape for image components.
type ImageProps struct {
	ImageID           *int64  `json:"imageId"`
	Fit               string  `json:"fit"` // cover | contain
	Opacity           float64 `json:"opacity"`
	BorderRadiusToken string  `json:"borderRadiusToken"`
	Alt               string  `json:"alt"`
}

// DayCardProps is the property shape for day-card components.
type DayCardProps struct {
	Day                  Day     `json:"day"`
	BackgroundColorToken *string `json:"backgroundColorToken"`
	BackgroundImageID    *int64  `json:"backgroundImageId"`
	AccentColorToken     *string `json:"accentColorToken"`
	BorderRadiusToken    string  `json:"borderRadiusToken"`
	ShowDate             bool    `json:"showDate"`
	ShowTime             bool    `json:"showTime"`
}

// DefaultProps returns the default property bag for a component kind.
func DefaultProps(kind ComponentKind) any {
	switch kind {
	case KindText:
		return TextProps{
			Text:          "Schedule",
			FontID:        "heading",
			FontSize:      72,
			ColorToken:    "primary",
			Align:         "left",
			LetterSpacing: 0,
			LineHeight:    1.1,
		}
	case KindImage:
		return ImageProps{
			Fit:               "contain",
			Opacity:           1,
			BorderRadiusToken: "lg",
			Alt:               "Image",
		}
	case KindDayCard:
		card := "card"
		primary := "primary"
		return DayCardProps{
			Day:                  DayMon,
			BackgroundColorToken: &card,
			AccentColorToken:     &primary,
			BorderRadiusToken:    "lg",
			ShowDate:             true,
			ShowTime:             true,
		}
	default:
		return map[string]any{}
	}
}

// GlobalRow is the app-wide singleton: the current-schedule pointer, export
// settings, and the undo/redo cursor.
type GlobalRow struct {
	ID                int64  `json:"id"`
	CurrentScheduleID *int64 `json:"current_schedule_id"`
	ExportScale       int    `json:"export_scale"`
	SidebarOpen       bool   `json:"sidebar_open"`
	HeroImageID       *int64 `json:"hero_image_id"`
	HistorySnapshotID *int64 `json:"history_snapshot_id"`
	HistoryScheduleID *int64 `json:"history_schedule_id"`
}

// WeekDay is one resolved entry of the derived week view: the day plan with
// asset references swapped for inline data URLs.
type WeekDay struct {
	Day                  Day     `json:"day"`
	Enabled              bool    `json:"enabled"`
	GameName             string  `json:"game_name"`
	Time                 string  `json:"time"`
	ImageID              *int64  `json:"image_id"`
	GameGraphicURL       *string `json:"game_graphic_url"`
	BackgroundColorToken *string `json:"background_color_token"`
	BackgroundImageID    *int64  `json:"background_image_id"`
	BackgroundGraphicURL *string `json:"background_graphic_url"`
	Notes                *string `json:"notes"`
}

// Week maps every weekday to its resolved plan. Always complete: missing
// rows are backfilled with disabled defaults before the week is returned.
type Week map[Day]WeekDay

// UpdateScheduleDayInput is a partial day-plan update. Nil fields are left
// unchanged; ClearImage/ClearBackgroundImage drop the respective reference.
type UpdateScheduleDayInput struct {
	Enabled              *bool   `json:"enabled"`
	GameName             *string `json:"game_name"`
	Time                 *string `json:"time"`
	ImageID              *int64  `json:"image_id"`
	ClearImage           bool    `json:"clear_image"`
	BackgroundColorToken *string `json:"background_color_token"`
	BackgroundImageID    *int64  `json:"background_image_id"`
	ClearBackgroundImage bool    `json:"clear_background_image"`
	Notes                *string `json:"notes"`
}

// UpdateComponentInput is a partial component update (geometry and flags).
type UpdateComponentInput struct {
	Name     *string  `json:"name"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	Width    *float64 `json:"width"`
	Height   *float64 `json:"height"`
	Rotation *float64 `json:"rotation"`
	ZIndex   *int     `json:"z_index"`
	Visible  *bool    `json:"visible"`
	Locked   *bool    `json:"locked"`
}

// CreateComponentInput describes a new canvas component.
type CreateComponentInput struct {
	Kind     ComponentKind  `json:"kind"`
	Name     string         `json:"name"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Width    float64        `json:"width"`
	Height   float64        `json:"height"`
	Rotation float64        `json:"rotation"`
	ZIndex   int            `json:"z_index"`
	Props    map[string]any `json:"props"`
}
