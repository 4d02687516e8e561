package schedule

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/strefethen/schedule-maker-go/internal/api"
	"github.com/strefethen/schedule-maker-go/internal/apperrors"
)

// RegisterRoutes wires schedule routes to the router.
func RegisterRoutes(router chi.Router, service *Service) {
	// Active schedule and settings
	router.Method(http.MethodGet, "/v1/schedule", api.Handler(getSchedule(service)))
	router.Method(http.MethodPatch, "/v1/schedule", api.Handler(updateSchedule(service)))
	router.Method(http.MethodPost, "/v1/schedule/switch", api.Handler(switchSchedule(service)))

	// Global singleton
	router.Method(http.MethodGet, "/v1/global", api.Handler(getGlobal(service)))
	router.Method(http.MethodPatch, "/v1/global", api.Handler(updateGlobal(service)))

	// Week view and day plans
	router.Method(http.MethodGet, "/v1/week", api.Handler(getWeek(service)))
	router.Method(http.MethodPatch, "/v1/week/{day}", api.Handler(updateDay(service)))
	router.Method(http.MethodPost, "/v1/week/{day}/toggle", api.Handler(toggleDay(service)))

	// Canvas components
	router.Method(http.MethodGet, "/v1/components", api.Handler(listComponents(service)))
	router.Method(http.MethodPost, "/v1/components", api.Handler(createComponent(service)))
	router.Method(http.MethodPatch, "/v1/components/{component_id}", api.Handler(updateComponent(service)))
	router.Method(http.MethodDelete, "/v1/components/{component_id}", api.Handler(deleteComponent(service)))
	router.Method(http.MethodGet, "/v1/components/{component_id}/props", api.Handler(getProps(service)))
	router.Method(http.MethodPatch, "/v1/components/{component_id}/props", api.Handler(updateProps(service)))

	// Render snapshot
	router.Method(http.MethodGet, "/v1/snapshot", api.Handler(getSnapshot(service)))
}

func getSchedule(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		schedule, err := service.EnsureCurrentSchedule()
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, formatSchedule(schedule))
	}
}

type updateScheduleRequest struct {
	Name       *string `json:"name"`
	WeekStart  *string `json:"week_start"`
	WeekAnchor *string `json:"week_anchor"`
	Timezone   *string `json:"timezone"`
	ThemeSlug  *string `json:"theme_slug"`
}

func updateSchedule(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		var input updateScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}

		var schedule *Schedule
		var err error

		if input.Name != nil {
			if schedule, err = service.RenameSchedule(*input.Name); err != nil {
				return err
			}
		}
		if input.WeekStart != nil {
			if schedule, err = service.SetWeekStart(*input.WeekStart); err != nil {
				return err
			}
		}
		if input.WeekAnchor != nil {
			if schedule, err = service.SetWeekAnchor(*input.WeekAnchor); err != nil {
				return err
			}
		}
		if input.Timezone != nil {
			if schedule, err = service.SetTimezone(*input.Timezone); err != nil {
				return err
			}
		}
		if input.ThemeSlug != nil {
			if schedule, err = service.SetTheme(*input.ThemeSlug); err != nil {
				return err
			}
		}

		if schedule == nil {
			return apperrors.NewValidationError("no fields to update", nil)
		}
		return api.WriteResource(w, http.StatusOK, formatSchedule(schedule))
	}
}

func switchSchedule(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		var input struct {
			ScheduleID int64 `json:"schedule_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}

		schedule, err := service.SwitchSchedule(input.ScheduleID)
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, formatSchedule(schedule))
	}
}

func getGlobal(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		global, err := service.Global()
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, formatGlobal(global))
	}
}

type updateGlobalRequest struct {
	ExportScale *int   `json:"export_scale"`
	SidebarOpen *bool  `json:"sidebar_open"`
	HeroImageID *int64 `json:"hero_image_id"`
	ClearHero   bool   `json:"clear_hero_image"`
}

func updateGlobal(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		var input updateGlobalRequest
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}

		if input.ExportScale != nil {
			if err := service.SetExportScale(*input.ExportScale); err != nil {
				return err
			}
		}
		if input.SidebarOpen != nil {
			if err := service.SetSidebarOpen(*input.SidebarOpen); err != nil {
				return err
			}
		}
		if input.ClearHero {
			if err := service.ClearHeroImage(); err != nil {
				return err
			}
		} else if input.HeroImageID != nil {
			if err := service.SetHeroImage(*input.HeroImageID); err != nil {
				return err
			}
		}

		global, err := service.Global()
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, formatGlobal(global))
	}
}

func getWeek(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		schedule, week, err := service.Week()
		if err != nil {
			return err
		}

		return api.WriteResource(w, http.StatusOK, map[string]any{
			"object":   "week",
			"schedule": formatSchedule(schedule),
			"days":     week,
			"order":    DaysOrderedByWeekStart(schedule.WeekStart),
		})
	}
}

func updateDay(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		var input UpdateScheduleDayInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}

		day, err := service.UpdateDay(chi.URLParam(r, "day"), input)
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, formatDay(day))
	}
}

func toggleDay(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		day, err := service.ToggleDay(chi.URLParam(r, "day"))
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, formatDay(day))
	}
}

func listComponents(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		components, err := service.Components()
		if err != nil {
			return err
		}

		formatted := make([]map[string]any, 0, len(components))
		for _, c := range components {
			formatted = append(formatted, formatComponent(&c))
		}
		return api.WriteList(w, r.URL.Path, formatted, false)
	}
}

func createComponent(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		var input CreateComponentInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}

		component, err := service.CreateComponent(input)
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusCreated, formatComponent(component))
	}
}

func updateComponent(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		id, err := componentID(r)
		if err != nil {
			return err
		}

		var input UpdateComponentInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}

		component, err := service.UpdateComponent(id, input)
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, formatComponent(component))
	}
}

func deleteComponent(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		id, err := componentID(r)
		if err != nil {
			return err
		}

		if err := service.DeleteComponent(id); err != nil {
			return err
		}
		return api.WriteAction(w, http.StatusOK, map[string]any{
			"object":  "component",
			"id":      id,
			"deleted": true,
		})
	}
}

func getProps(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		id, err := componentID(r)
		if err != nil {
			return err
		}

		props, err := service.GetComponentProps(id)
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, formatProps(props))
	}
}

func updateProps(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		id, err := componentID(r)
		if err != nil {
			return err
		}

		patch := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}

		props, err := service.UpdateComponentProps(id, patch)
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, formatProps(props))
	}
}

func getSnapshot(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		snapshot, err := service.ProjectSnapshot()
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, snapshot)
	}
}

func componentID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "component_id"), 10, 64)
	if err != nil {
		return 0, apperrors.NewValidationError("invalid component id", nil)
	}
	return id, nil
}

func formatSchedule(s *Schedule) map[string]any {
	return map[string]any{
		"object":      "schedule",
		"id":          s.ID,
		"name":        s.Name,
		"theme_id":    s.ThemeID,
		"week_start":  s.WeekStart,
		"week_anchor": s.WeekAnchor,
		"timezone":    s.Timezone,
		"created_at":  s.CreatedAt,
		"updated_at":  s.UpdatedAt,
	}
}

func formatGlobal(g *GlobalRow) map[string]any {
	return map[string]any{
		"object":              "global",
		"current_schedule_id": g.CurrentScheduleID,
		"export_scale":        g.ExportScale,
		"sidebar_open":        g.SidebarOpen,
		"hero_image_id":       g.HeroImageID,
	}
}

func formatDay(d *ScheduleDay) map[string]any {
	return map[string]any{
		"object":                 "schedule_day",
		"id":                     d.ID,
		"schedule_id":            d.ScheduleID,
		"day":                    d.Day,
		"enabled":                d.Enabled,
		"game_name":              d.GameName,
		"time":                   d.Time,
		"image_id":               d.ImageID,
		"background_color_token": d.BackgroundColorToken,
		"background_image_id":    d.BackgroundImageID,
		"notes":                  d.Notes,
		"updated_at":             d.UpdatedAt,
	}
}

func formatComponent(c *Component) map[string]any {
	return map[string]any{
		"object":      "component",
		"id":          c.ID,
		"schedule_id": c.ScheduleID,
		"kind":        c.Kind,
		"name":        c.Name,
		"x":           c.X,
		"y":           c.Y,
		"width":       c.Width,
		"height":      c.Height,
		"rotation":    c.Rotation,
		"z_index":     c.ZIndex,
		"visible":     c.Visible,
		"locked":      c.Locked,
		"updated_at":  c.UpdatedAt,
	}
}

func formatProps(p *ComponentProps) map[string]any {
	return map[string]any{
		"object":       "component_props",
		"id":           p.ID,
		"component_id": p.ComponentID,
		"kind":         p.Kind,
		"data":         p.Data,
		"updated_at":   p.UpdatedAt,
	}
}
