package credits

import "github.com/aimagehq/aimage-backend/pkg/enums"

// DigitalHumanVideoCredits is the flat cost of one digital human video,
// regardless of duration.
const DigitalHumanVideoCredits = 10

// CreditsNeeded returns the credit cost for generating a video of the given
// duration. Durations at or below zero price as the shortest tier.
func CreditsNeeded(mode enums.GenerationMode, durationSeconds int) int {
	switch mode {
	case enums.GenerationModeAdvanced:
		switch {
		case durationSeconds <= 15:
			return 2
		case durationSeconds <= 30:
			return 4
		default:
			return 6
		}
	default:
		switch {
		case durationSeconds <= 15:
			return 1
		case durationSeconds <= 30:
			return 2
		default:
			return 3
		}
	}
}
