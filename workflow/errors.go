package workflow

import (
	"fmt"

	"auto_linkedin_post_publisher/generator"
)

// QualityNotMetError ends a run whose best score stayed below the floor after
// every attempt. Last is the final critique, kept for diagnostics.
type QualityNotMetError struct {
	Topic     string
	Attempts  int
	BestScore int
	Last      generator.CritiqueReport
}

func (e *QualityNotMetError) Error() string {
	return fmt.Sprintf("quality not met for %q after %d attempts: best score %d, last score %d",
		e.Topic, e.Attempts, e.BestScore, e.Last.Score)
}
