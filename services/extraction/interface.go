// Package extraction wraps the external NLU capability. Given an utterance
// and the current conversation state it returns a structured delta of
// candidate fields; it never mutates state itself.
package extraction

import (
	"context"

	"schedulai/models"
)

// Extractor produces a field delta from one utterance. Fields absent from
// the utterance are left empty in the delta; the dialogue engine's merge
// rules are the real contract, not the extractor's output.
type Extractor interface {
	Extract(ctx context.Context, utterance string, prior *models.ConversationState) (models.ExtractionDelta, error)
}
