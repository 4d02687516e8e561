package schedule

import (
	"time"

	"github.com/strefethen/schedule-maker-go/internal/theme"
)

// RenderComponent is one canvas object as the renderer consumes it: visible
// only, defaults filled in, image references resolved to inline data URLs.
type RenderComponent struct {
	ID       int64          `json:"id"`
	Kind     ComponentKind  `json:"kind"`
	Name     string         `json:"name"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Width    float64        `json:"width"`
	Height   float64        `json:"height"`
	Rotation float64        `json:"rotation"`
	ZIndex   int            `json:"z_index"`
	Locked   bool           `json:"locked"`
	Props    map[string]any `json:"props"`
}

// RenderSnapshot is the complete self-contained input for one export render.
type RenderSnapshot struct {
	Schedule     Schedule          `json:"schedule"`
	Theme        *theme.Theme      `json:"theme"`
	Week         Week              `json:"week"`
	HeroURL      *string           `json:"hero_url"`
	Components   []RenderComponent `json:"components"`
	CanvasWidth  int               `json:"canvas_width"`
	CanvasHeight int               `json:"canvas_height"`
	ExportScale  int               `json:"export_scale"`
	GeneratedAt  time.Time         `json:"generated_at"`
}

// ProjectSnapshot assembles the render snapshot for the active schedule.
// Hidden components are dropped, the rest are ordered by z-index ascending,
// and every image reference is resolved in one batched asset lookup.
func (s *Service) ProjectSnapshot() (*RenderSnapshot, error) {
	schedule, week, err := s.Week()
	if err != nil {
		return nil, err
	}

	components, err := s.repo.ComponentsForSchedule(schedule.ID)
	if err != nil {
		return nil, err
	}

	props, err := s.repo.PropsForSchedule(schedule.ID)
	if err != nil {
		return nil, err
	}

	visible := []Component{}
	imageIDs := []int64{}
	for _, c := range components {
		if !c.Visible {
			continue
		}
		visible = append(visible, c)
		if p, ok := props[c.ID]; ok {
			for _, key := range []string{"imageId", "backgroundImageId"} {
				if id, ok := propInt64(p.Data, key); ok {
					imageIDs = append(imageIDs, id)
				}
			}
		}
	}

	urls := map[int64]string{}
	if s.assets != nil && len(imageIDs) > 0 {
		urls, err = s.assets.ResolveDataURLs(imageIDs)
		if err != nil {
			return nil, err
		}
	}

	rendered := make([]RenderComponent, 0, len(visible))
	for _, c := range visible {
		bag := propsToMap(DefaultProps(c.Kind))
		if p, ok := props[c.ID]; ok && p.Kind == c.Kind {
			for key, value := range p.Data {
				bag[key] = value
			}
		}
		if id, ok := propInt64(bag, "imageId"); ok {
			if url, found := urls[id]; found {
				bag["imageUrl"] = url
			}
		}
		if id, ok := propInt64(bag, "backgroundImageId"); ok {
			if url, found := urls[id]; found {
				bag["backgroundImageUrl"] = url
			}
		}

		rendered = append(rendered, RenderComponent{
			ID:       c.ID,
			Kind:     c.Kind,
			Name:     c.Name,
			X:        c.X,
			Y:        c.Y,
			Width:    c.Width,
			Height:   c.Height,
			Rotation: c.Rotation,
			ZIndex:   c.ZIndex,
			Locked:   c.Locked,
			Props:    bag,
		})
	}

	var appliedTheme *theme.Theme
	if s.themes != nil && schedule.ThemeID != nil {
		appliedTheme, err = s.themes.Repository().GetByID(*schedule.ThemeID)
		if err != nil {
			return nil, err
		}
	}
	if appliedTheme == nil && s.themes != nil {
		appliedTheme, err = s.themes.GetBySlug(s.defaultThemeSlug)
		if err != nil {
			return nil, err
		}
	}

	global, err := s.repo.GetGlobal()
	if err != nil {
		return nil, err
	}

	heroURL, err := s.HeroURL()
	if err != nil {
		return nil, err
	}

	return &RenderSnapshot{
		Schedule:     *schedule,
		Theme:        appliedTheme,
		Week:         week,
		HeroURL:      heroURL,
		Components:   rendered,
		CanvasWidth:  CanvasWidth,
		CanvasHeight: CanvasHeight,
		ExportScale:  global.ExportScale,
		GeneratedAt:  time.Now().UTC(),
	}, nil
}

// propInt64 reads an integer prop that may arrive as float64 (JSON) or int64.
func propInt64(bag map[string]any, key string) (int64, bool) {
	switch v := bag[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}
