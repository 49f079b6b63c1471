// Package input reads the geometry a generator runs over, either from a
// YAML file or from a JSON tool call.
package input

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pario-ai/dimsync/pkg/generator"
	"github.com/pario-ai/dimsync/pkg/geometry"
	"github.com/pario-ai/dimsync/pkg/models"
)

// Mode selects the generator sampling mode.
type Mode string

const (
	ModeSequence Mode = "sequence"
	ModeCross    Mode = "cross"
	ModeCurves   Mode = "curves"
)

// DefaultInstance keys identities when the input names no instance.
const DefaultInstance = "default"

// Document is one generator input.
type Document struct {
	Instance        string         `yaml:"instance" json:"instance"`
	Mode            Mode           `yaml:"mode" json:"mode"`
	Points          []models.Point `yaml:"points" json:"points"`
	ReferencePoints []models.Point `yaml:"reference_points" json:"reference_points"`
	Targets         []models.Point `yaml:"targets" json:"targets"`
	Curve1          []models.Point `yaml:"curve1" json:"curve1"`
	Curve2          []models.Point `yaml:"curve2" json:"curve2"`
	Step            float64        `yaml:"step" json:"step"`
	// Offset overrides the configured measurement offset when set.
	Offset *float64 `yaml:"offset" json:"offset"`
}

// Load reads a YAML input file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML (or JSON) input document and fills defaults.
func Parse(data []byte) (*Document, error) {
	var s Document
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Normalize fills the instance and infers the mode from the fields present.
func (s *Document) Normalize() {
	if s.Instance == "" {
		s.Instance = DefaultInstance
	}
	if s.Mode != "" {
		return
	}
	switch {
	case len(s.Curve1) > 0 || len(s.Curve2) > 0:
		s.Mode = ModeCurves
	case len(s.ReferencePoints) > 0 || len(s.Targets) > 0:
		s.Mode = ModeCross
	default:
		s.Mode = ModeSequence
	}
}

// Validate checks the mode is known.
func (s *Document) Validate() error {
	switch s.Mode {
	case ModeSequence, ModeCross, ModeCurves:
		return nil
	}
	return fmt.Errorf("unknown mode %q (want sequence, cross or curves)", s.Mode)
}

// Generate runs g over the input.
func (s *Document) Generate(g *generator.Generator) (*generator.Result, error) {
	switch s.Mode {
	case ModeSequence:
		return g.Sequence(s.Points)
	case ModeCross:
		return g.Cross(s.ReferencePoints, s.Targets)
	case ModeCurves:
		c1, err := geometry.NewPolyline(s.Curve1...)
		if err != nil {
			return nil, fmt.Errorf("%w: curve1: %v", generator.ErrInvalidCurve, err)
		}
		c2, err := geometry.NewPolyline(s.Curve2...)
		if err != nil {
			return nil, fmt.Errorf("%w: curve2: %v", generator.ErrInvalidCurve, err)
		}
		return g.Curves(c1, c2, s.Step)
	}
	return nil, s.Validate()
}
