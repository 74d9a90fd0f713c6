package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

type fileTag struct {
	Name          string `yaml:"name"`
	DisplayName   string `yaml:"display_name"`
	Category      string `yaml:"category"`
	Parent        string `yaml:"parent"`
	ComboRelevant bool   `yaml:"combo_relevant"`
}

type taxonomyFile struct {
	Tags []fileTag `yaml:"tags"`
}

// LoadFile reads the tag taxonomy seed and returns tags ordered so that every
// parent precedes its children, ready for a single upsert pass.
func LoadFile(path string) ([]domain.Tag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]domain.Tag, error) {
	var file taxonomyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse taxonomy yaml: %w", err)
	}
	if len(file.Tags) == 0 {
		return nil, fmt.Errorf("taxonomy file has no tags")
	}

	byName := make(map[string]fileTag, len(file.Tags))
	for _, t := range file.Tags {
		if t.Name == "" {
			return nil, fmt.Errorf("taxonomy tag with empty name")
		}
		if _, ok := byName[t.Name]; ok {
			return nil, fmt.Errorf("duplicate taxonomy tag %q", t.Name)
		}
		byName[t.Name] = t
	}
	for _, t := range file.Tags {
		if t.Parent != "" {
			if _, ok := byName[t.Parent]; !ok {
				return nil, fmt.Errorf("tag %q references unknown parent %q", t.Name, t.Parent)
			}
		}
	}

	ordered, err := orderParentsFirst(file.Tags, byName)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Tag, 0, len(ordered))
	for _, t := range ordered {
		display := t.DisplayName
		if display == "" {
			display = t.Name
		}
		out = append(out, domain.Tag{
			Name:          t.Name,
			DisplayName:   display,
			Category:      t.Category,
			ParentName:    t.Parent,
			ComboRelevant: t.ComboRelevant,
		})
	}
	return out, nil
}

func orderParentsFirst(tags []fileTag, byName map[string]fileTag) ([]fileTag, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(tags))
	ordered := make([]fileTag, 0, len(tags))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("taxonomy parent cycle through %q", name)
		}
		state[name] = visiting

		t := byName[name]
		if t.Parent != "" {
			if err := visit(t.Parent); err != nil {
				return err
			}
		}

		state[name] = done
		ordered = append(ordered, t)
		return nil
	}

	for _, t := range tags {
		if err := visit(t.Name); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
