package seed

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Document is the on-disk seed fixture: the profile group, package
// enablement, published shortcuts and scripted predictor output that stand
// in for the platform services in dev deployments.
type Document struct {
	Profiles    []ProfileSeed    `yaml:"profiles"`
	Packages    []PackageSeed    `yaml:"packages"`
	Shortcuts   []ShortcutSeed   `yaml:"shortcuts"`
	Predictions []PredictionSeed `yaml:"predictions"`
}

// ProfileSeed declares one profile group member.
type ProfileSeed struct {
	ID      int32  `yaml:"id"`
	Role    string `yaml:"role"`
	Quiet   bool   `yaml:"quiet"`
	Profile bool   `yaml:"profile"`
}

// PackageSeed declares package enablement; packages not listed are enabled.
type PackageSeed struct {
	Name     string `yaml:"name"`
	Disabled bool   `yaml:"disabled"`
}

// ShortcutSeed declares one published direct-share shortcut.
type ShortcutSeed struct {
	User       int32    `yaml:"user"`
	ShortcutID string   `yaml:"shortcut_id"`
	Package    string   `yaml:"package"`
	Class      string   `yaml:"class"`
	Label      string   `yaml:"label"`
	Rank       int      `yaml:"rank"`
	Actions    []string `yaml:"actions"`
}

// PredictionSeed scripts one predictor record, referencing a declared
// shortcut by owning package and shortcut ID.
type PredictionSeed struct {
	User       int32   `yaml:"user"`
	Package    string  `yaml:"package"`
	ShortcutID string  `yaml:"shortcut_id"`
	Score      float64 `yaml:"score"`
}

// Load reads and parses a seed document.
func Load(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse parses a seed document from YAML bytes.
func Parse(raw []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("parse seed file: %w", err)
	}
	if len(doc.Profiles) == 0 {
		return Document{}, fmt.Errorf("seed file declares no profiles")
	}
	return doc, nil
}
