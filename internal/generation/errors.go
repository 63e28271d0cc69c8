package generation

import "fmt"

// Stages a generation can fail in.
const (
	StagePrompt      = "prompt"
	StageAdaptation  = "adaptation"
	StageCoverLetter = "cover_letter"
)

// Error is a fatal generation failure. Scoring never produces one; it falls
// back to keyword scoring instead.
type Error struct {
	Stage string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation failed at %s: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("generation failed at %s", e.Stage)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
