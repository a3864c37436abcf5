package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Team is one entry of the serving-team catalogue.
type Team struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	MinGrade *int     `yaml:"min_grade"`
}

type teamsFile struct {
	Teams []Team `yaml:"teams"`
}

// LoadTeams parses a teams.yaml catalogue. An empty path yields no teams.
func LoadTeams(path string) ([]Team, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read teams file: %w", err)
	}
	return ParseTeams(raw)
}

// ParseTeams decodes and validates a catalogue document.
func ParseTeams(raw []byte) ([]Team, error) {
	var doc teamsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode teams: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Teams))
	for i, t := range doc.Teams {
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			return nil, fmt.Errorf("team %d: id is required", i)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("team %q: duplicate id", t.ID)
		}
		seen[t.ID] = struct{}{}
		if t.Name == "" {
			t.Name = t.ID
		}
		doc.Teams[i] = t
	}
	return doc.Teams, nil
}
