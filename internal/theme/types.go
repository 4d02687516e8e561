package theme

import "time"

// ColorToken is a named color resolved by components at render time.
type ColorToken struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// FontToken is a named font family.
type FontToken struct {
	ID     string `json:"id" yaml:"id"`
	Label  string `json:"label" yaml:"label"`
	Family string `json:"family" yaml:"family"`
}

// RadiusScale holds the corner radius steps, in pixels.
type RadiusScale struct {
	None float64 `json:"none" yaml:"none"`
	Sm   float64 `json:"sm" yaml:"sm"`
	Md   float64 `json:"md" yaml:"md"`
	Lg   float64 `json:"lg" yaml:"lg"`
	Pill float64 `json:"pill" yaml:"pill"`
}

// Theme is a named set of color/font/radius tokens.
type Theme struct {
	ID        int64        `json:"id"`
	Slug      string       `json:"slug" yaml:"slug"`
	Name      string       `json:"name" yaml:"name"`
	Colors    []ColorToken `json:"colors" yaml:"colors"`
	Fonts     []FontToken  `json:"fonts" yaml:"fonts"`
	Radii     RadiusScale  `json:"radii" yaml:"radii"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ResolveColor returns the value of the given color token, or the fallback
// when the token is empty or unknown.
func (t *Theme) ResolveColor(token string, fallback string) string {
	if token == "" {
		return fallback
	}
	for _, color := range t.Colors {
		if color.ID == token {
			return color.Value
		}
	}
	return fallback
}

// ResolveFont returns the family of the given font token, or the fallback.
func (t *Theme) ResolveFont(token string, fallback string) string {
	if token == "" {
		return fallback
	}
	for _, font := range t.Fonts {
		if font.ID == token {
			return font.Family
		}
	}
	return fallback
}

// ResolveRadius returns the radius for the given scale step, defaulting to md.
func (t *Theme) ResolveRadius(token string) float64 {
	switch token {
	case "none":
		return t.Radii.None
	case "sm":
		return t.Radii.Sm
	case "md":
		return t.Radii.Md
	case "lg":
		return t.Radii.Lg
	case "pill":
		return t.Radii.Pill
	default:
		return t.Radii.Md
	}
}
