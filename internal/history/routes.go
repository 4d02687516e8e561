package history

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/strefethen/schedule-maker-go/internal/api"
	"github.com/strefethen/schedule-maker-go/internal/schedule"
)

// RegisterRoutes wires undo/redo routes to the router.
func RegisterRoutes(router chi.Router, engine *Engine, store *schedule.Service) {
	router.Method(http.MethodPost, "/v1/history/undo", api.Handler(undo(engine)))
	router.Method(http.MethodPost, "/v1/history/redo", api.Handler(redo(engine)))
	router.Method(http.MethodGet, "/v1/history", api.Handler(listHistory(engine, store)))
}

func undo(engine *Engine) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		applied, err := engine.Undo()
		if err != nil {
			return err
		}
		return writeHistoryAction(w, engine, "undo", applied)
	}
}

func redo(engine *Engine) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		applied, err := engine.Redo()
		if err != nil {
			return err
		}
		return writeHistoryAction(w, engine, "redo", applied)
	}
}

func writeHistoryAction(w http.ResponseWriter, engine *Engine, action string, applied bool) error {
	canUndo, err := engine.CanUndo()
	if err != nil {
		return err
	}
	canRedo, err := engine.CanRedo()
	if err != nil {
		return err
	}

	return api.WriteAction(w, http.StatusOK, map[string]any{
		"object":   "history_action",
		"action":   action,
		"applied":  applied,
		"can_undo": canUndo,
		"can_redo": canRedo,
	})
}

func listHistory(engine *Engine, store *schedule.Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		current, err := store.EnsureCurrentSchedule()
		if err != nil {
			return err
		}

		limit := 50
		if l := r.URL.Query().Get("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
				limit = parsed
			}
		}

		snapshots, err := engine.Repository().List(current.ID, limit)
		if err != nil {
			return err
		}

		formatted := make([]map[string]any, 0, len(snapshots))
		for _, s := range snapshots {
			formatted = append(formatted, map[string]any{
				"object":      "snapshot",
				"id":          s.ID,
				"schedule_id": s.ScheduleID,
				"reason":      s.Reason,
				"created_at":  s.CreatedAt,
			})
		}
		return api.WriteList(w, r.URL.Path, formatted, false)
	}
}
