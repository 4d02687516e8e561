package settings

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/strefethen/schedule-maker-go/internal/api"
	"github.com/strefethen/schedule-maker-go/internal/apperrors"
)

// RegisterRoutes wires settings routes to the router.
func RegisterRoutes(router chi.Router, service *Service) {
	router.Method(http.MethodGet, "/v1/settings", api.Handler(listSettings(service)))
	router.Method(http.MethodGet, "/v1/settings/{key}", api.Handler(getSettings(service)))
	router.Method(http.MethodPut, "/v1/settings/{key}", api.Handler(putSettings(service)))
	router.Method(http.MethodDelete, "/v1/settings/{key}", api.Handler(deleteSettings(service)))
}

func listSettings(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		keys, err := service.List()
		if err != nil {
			return err
		}
		return api.WriteList(w, r.URL.Path, keys, false)
	}
}

func getSettings(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		doc, err := service.Get(chi.URLParam(r, "key"))
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, formatDocument(doc))
	}
}

func putSettings(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		key := chi.URLParam(r, "key")
		if key == "" {
			return apperrors.NewValidationError("settings key is required", nil)
		}

		var value any
		if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}

		doc, err := service.Put(key, value)
		if err != nil {
			return err
		}
		return api.WriteResource(w, http.StatusOK, formatDocument(doc))
	}
}

func deleteSettings(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		key := chi.URLParam(r, "key")
		if err := service.Delete(key); err != nil {
			return err
		}
		return api.WriteAction(w, http.StatusOK, map[string]any{
			"object":  "settings",
			"key":     key,
			"deleted": true,
		})
	}
}

func formatDocument(doc *Document) map[string]any {
	return map[string]any{
		"object":     "settings",
		"key":        doc.Key,
		"value":      doc.Value,
		"updated_at": doc.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
