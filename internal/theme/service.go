package theme

import (
	"log"

	"github.com/strefethen/schedule-maker-go/internal/apperrors"
	"github.com/strefethen/schedule-maker-go/internal/events"
)

// Service provides theme catalog functionality.
type Service struct {
	logger *log.Logger
	repo   *Repository
	bus    *events.Bus
}

// NewService creates a new theme service.
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

// EnsurePresets seeds any built-in theme missing from the catalog. Existing
// rows are left alone so admin edits survive restarts.
func (s *Service) EnsurePresets() error {
	presets, err := LoadPresets()
	if err != nil {
		return err
	}

	seeded := 0
	for _, p := range presets {
		existing, err := s.repo.GetBySlug(p.Slug)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		if _, err := s.repo.Insert(p); err != nil {
			return err
		}
		seeded++
	}

	if seeded > 0 {
		s.logger.Printf("theme: seeded %d preset(s)", seeded)
		if s.bus != nil {
			s.bus.Notify("themes")
		}
	}
	return nil
}

// GetBySlug retrieves a theme or a not-found error.
func (s *Service) GetBySlug(slug string) (*Theme, error) {
	t, err := s.repo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperrors.NewNotFoundResource("theme", slug)
	}
	return t, nil
}

// List retrieves all themes.
func (s *Service) List() ([]Theme, error) {
	return s.repo.List()
}
