package models

import (
	"fmt"
	"strings"
)

// UnitSystem is the working unit system of the host document.
type UnitSystem string

const (
	Millimeters UnitSystem = "millimeters"
	Centimeters UnitSystem = "centimeters"
	Meters      UnitSystem = "meters"
	Inches      UnitSystem = "inches"
	Feet        UnitSystem = "feet"
)

// ParseUnitSystem accepts the full unit name or its common abbreviation.
func ParseUnitSystem(s string) (UnitSystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mm", "millimeter", "millimeters":
		return Millimeters, nil
	case "cm", "centimeter", "centimeters":
		return Centimeters, nil
	case "m", "meter", "meters":
		return Meters, nil
	case "in", "inch", "inches":
		return Inches, nil
	case "ft", "foot", "feet":
		return Feet, nil
	}
	return "", fmt.Errorf("unknown unit system %q", s)
}

// ToMeters converts v from u into meters, the remote service's fixed unit.
// Unknown unit systems are treated as millimeters.
func (u UnitSystem) ToMeters(v float64) float64 {
	switch u {
	case Centimeters:
		return v / 100.0
	case Meters:
		return v
	case Inches:
		return v * 0.0254
	case Feet:
		return v * 0.3048
	default:
		return v / 1000.0
	}
}

// FormatLength renders a length in u for display labels.
func (u UnitSystem) FormatLength(v float64) string {
	switch u {
	case Millimeters, "":
		return fmt.Sprintf("%.0f mm", v)
	case Centimeters:
		return fmt.Sprintf("%.2f cm", v)
	case Meters:
		return fmt.Sprintf("%.2f m", v)
	default:
		return fmt.Sprintf("%.2f units", v)
	}
}
