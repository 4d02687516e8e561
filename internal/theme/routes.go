package theme

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/strefethen/schedule-maker-go/internal/api"
	"github.com/strefethen/schedule-maker-go/internal/apperrors"
)

// RegisterRoutes wires theme routes to the router.
func RegisterRoutes(router chi.Router, service *Service) {
	router.Method(http.MethodGet, "/v1/themes", api.Handler(listThemes(service)))
	router.Method(http.MethodGet, "/v1/themes/{slug}", api.Handler(getTheme(service)))
}

func listThemes(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		themes, err := service.List()
		if err != nil {
			return apperrors.NewInternalError("Failed to list themes")
		}

		formatted := make([]map[string]any, 0, len(themes))
		for _, t := range themes {
			formatted = append(formatted, formatTheme(&t))
		}

		return api.WriteList(w, "/v1/themes", formatted, false)
	}
}

func getTheme(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		t, err := service.GetBySlug(chi.URLParam(r, "slug"))
		if err != nil {
			return err
		}

		return api.WriteResource(w, http.StatusOK, formatTheme(t))
	}
}

func formatTheme(t *Theme) map[string]any {
	return map[string]any{
		"object":     "theme",
		"id":         t.ID,
		"slug":       t.Slug,
		"name":       t.Name,
		"colors":     t.Colors,
		"fonts":      t.Fonts,
		"radii":      t.Radii,
		"created_at": t.CreatedAt,
		"updated_at": t.UpdatedAt,
	}
}
