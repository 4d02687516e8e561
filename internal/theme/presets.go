package theme

import (
	"embed"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yaml
var presetFS embed.FS

// preset is the YAML shape of a built-in theme definition.
type preset struct {
	Slug   string       `yaml:"slug"`
	Name   string       `yaml:"name"`
	Colors []ColorToken `yaml:"colors"`
	Fonts  []FontToken  `yaml:"fonts"`
	Radii  RadiusScale  `yaml:"radii"`
}

// LoadPresets parses the built-in theme definitions shipped with the binary.
func LoadPresets() ([]Theme, error) {
	entries, err := fs.ReadDir(presetFS, "presets")
	if err != nil {
		return nil, fmt.Errorf("read presets dir: %w", err)
	}

	var themes []Theme
	for _, entry := range entries {
		raw, err := presetFS.ReadFile("presets/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read preset %s: %w", entry.Name(), err)
		}

		var p preset
		if err := yaml.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("parse preset %s: %w", entry.Name(), err)
		}
		if p.Slug == "" || p.Name == "" {
			return nil, fmt.Errorf("preset %s: slug and name are required", entry.Name())
		}

		themes = append(themes, Theme{
			Slug:   p.Slug,
			Name:   p.Name,
			Colors: p.Colors,
			Fonts:  p.Fonts,
			Radii:  p.Radii,
		})
	}

	return themes, nil
}
