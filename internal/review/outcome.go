package review

import "fmt"

// Outcome is the user's verdict after seeing a note's explanation.
type Outcome string

const (
	// Forgot resets the note to the bottom of the ladder.
	Forgot Outcome = "forgot"
	// Remembered advances the note one stage.
	Remembered Outcome = "remembered"
	// Mastered permanently retires the note from review.
	Mastered Outcome = "mastered"
)

// ParseOutcome converts a wire value into an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case Forgot, Remembered, Mastered:
		return Outcome(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOutcome, s)
}
