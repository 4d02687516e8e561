package assets

import (
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	"github.com/strefethen/schedule-maker-go/internal/apperrors"
	"github.com/strefethen/schedule-maker-go/internal/events"
)

// Service provides asset upload and lookup functionality.
type Service struct {
	logger *log.Logger
	repo   *Repository
	bus    *events.Bus
}

// NewService creates a new assets service.
// Accepts a DBPair for optimal SQLite concurrency with separate reader/writer pools.
func NewService(dbPair DBPair, bus *events.Bus, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		logger: logger,
		repo:   NewRepository(dbPair),
		bus:    bus,
	}
}

// Repository exposes the underlying repository for collaborating services.
func (s *Service) Repository() *Repository {
	return s.repo
}

// UploadImage stores file content as a data URL and returns the new image id.
// The content type is sniffed when the caller does not supply one.
func (s *Service) UploadImage(filename, contentType string, content []byte) (int64, error) {
	if len(content) == 0 {
		return 0, apperrors.NewAppError(apperrors.ErrorCodeImageReadFailed, "Uploaded file is empty", 400, nil)
	}

	if contentType == "" {
		contentType = sniffImageType(content)
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(content))

	var name *string
	if filename != "" {
		name = &filename
	}

	id, err := s.repo.Insert(name, dataURL)
	if err != nil {
		return 0, err
	}

	s.logger.Printf("assets: stored image %d (%d bytes, %s)", id, len(content), contentType)
	if s.bus != nil {
		s.bus.Notify("images")
	}
	return id, nil
}

// GetImage retrieves an uploaded image, or a not-found error.
func (s *Service) GetImage(id int64) (*ImageRow, error) {
	img, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, apperrors.NewNotFoundResource("image", fmt.Sprintf("%d", id))
	}
	return img, nil
}

// ResolveDataURLs maps the given image ids to their data URLs in one query.
func (s *Service) ResolveDataURLs(ids []int64) (map[int64]string, error) {
	images, err := s.repo.GetByIDs(ids)
	if err != nil {
		return nil, err
	}

	urls := make(map[int64]string, len(images))
	for id, img := range images {
		urls[id] = img.Data
	}
	return urls, nil
}

// sniffImageType guesses a mime type from magic bytes, defaulting to PNG.
func sniffImageType(content []byte) string {
	switch {
	case len(content) >= 8 && string(content[:8]) == "\x89PNG\r\n\x1a\n":
		return "image/png"
	case len(content) >= 3 && string(content[:3]) == "\xff\xd8\xff":
		return "image/jpeg"
	case len(content) >= 6 && (string(content[:6]) == "GIF87a" || string(content[:6]) == "GIF89a"):
		return "image/gif"
	case len(content) >= 12 && string(content[8:12]) == "WEBP":
		return "image/webp"
	case len(content) >= 5 && strings.HasPrefix(strings.TrimSpace(string(content[:5])), "<svg"):
		return "image/svg+xml"
	default:
		return "image/png"
	}
}
