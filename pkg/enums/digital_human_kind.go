package enums

import "fmt"

// DigitalHumanKind selects the upstream model family used to render a
// digital human presenter.
type DigitalHumanKind string

const (
	DigitalHumanKindAdvanced DigitalHumanKind = "advanced"
	DigitalHumanKindSora2    DigitalHumanKind = "sora2"
)

var validDigitalHumanKinds = []DigitalHumanKind{
	DigitalHumanKindAdvanced,
	DigitalHumanKindSora2,
}

// IsValid reports whether the value matches the canonical kind enum.
func (k DigitalHumanKind) IsValid() bool {
	for _, candidate := range validDigitalHumanKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseDigitalHumanKind converts the raw string to DigitalHumanKind.
func ParseDigitalHumanKind(value string) (DigitalHumanKind, error) {
	for _, candidate := range validDigitalHumanKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid digital human type %q", value)
}
