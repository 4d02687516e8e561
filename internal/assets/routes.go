package assets

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/strefethen/schedule-maker-go/internal/api"
	"github.com/strefethen/schedule-maker-go/internal/apperrors"
)

// maxUploadBytes bounds a single image upload. Data URLs live inside the
// SQLite file, so oversized uploads degrade every read that resolves them.
const maxUploadBytes = 8 << 20

// RegisterRoutes wires asset routes to the router.
func RegisterRoutes(router chi.Router, service *Service) {
	router.Method(http.MethodPost, "/v1/assets", api.Handler(uploadImage(service)))
	router.Method(http.MethodGet, "/v1/assets/{image_id}", api.Handler(getImage(service)))
}

func uploadImage(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		var filename, contentType string
		var content []byte

		if mediaType := r.Header.Get("Content-Type"); len(mediaType) >= 19 && mediaType[:19] == "multipart/form-data" {
			file, header, err := r.FormFile("file")
			if err != nil {
				return apperrors.NewValidationError("file field is required", nil)
			}
			defer file.Close()

			content, err = io.ReadAll(file)
			if err != nil {
				return apperrors.NewAppError(apperrors.ErrorCodeImageReadFailed, "Failed to read uploaded file", 400, nil)
			}
			filename = header.Filename
			contentType = header.Header.Get("Content-Type")
		} else {
			var err error
			content, err = io.ReadAll(r.Body)
			if err != nil {
				return apperrors.NewAppError(apperrors.ErrorCodeImageReadFailed, "Failed to read request body", 400, nil)
			}
			contentType = r.Header.Get("Content-Type")
			if contentType == "application/octet-stream" {
				contentType = ""
			}
		}

		id, err := service.UploadImage(filename, contentType, content)
		if err != nil {
			return err
		}

		return api.WriteResource(w, http.StatusCreated, map[string]any{
			"object":   "image",
			"image_id": id,
		})
	}
}

func getImage(service *Service) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		id, err := strconv.ParseInt(chi.URLParam(r, "image_id"), 10, 64)
		if err != nil {
			return apperrors.NewValidationError("image_id must be an integer", nil)
		}

		img, err := service.GetImage(id)
		if err != nil {
			return err
		}

		return api.WriteResource(w, http.StatusOK, map[string]any{
			"object":     "image",
			"id":         img.ID,
			"name":       img.Name,
			"data":       img.Data,
			"created_at": img.CreatedAt,
		})
	}
}
