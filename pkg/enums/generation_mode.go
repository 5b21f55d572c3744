package enums

import "fmt"

// GenerationMode is the pricing/feature tier of a single generation request.
// It is unrelated to the account subscription tier.
type GenerationMode string

const (
	GenerationModeBasic    GenerationMode = "basic"
	GenerationModeAdvanced GenerationMode = "advanced"

	// GenerationModeDigitalHuman is assigned internally by the digital
	// human flow. Clients cannot request it directly, so it is excluded
	// from the parseable set.
	GenerationModeDigitalHuman GenerationMode = "digital_human"
)

var validGenerationModes = []GenerationMode{
	GenerationModeBasic,
	GenerationModeAdvanced,
}

// IsValid reports whether the value matches the canonical generation mode enum.
func (m GenerationMode) IsValid() bool {
	for _, candidate := range validGenerationModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseGenerationMode converts the raw string to GenerationMode.
func ParseGenerationMode(value string) (GenerationMode, error) {
	for _, candidate := range validGenerationModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid generation mode %q", value)
}
