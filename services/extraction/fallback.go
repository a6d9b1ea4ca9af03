// File: services/extraction/fallback.go
package extraction

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"schedulai/models"
)

// RegexExtractor pulls fields out of an utterance with fixed patterns. It
// backs the model-based extractor so a turn still makes progress when the
// model returns nothing usable, and is deterministic enough to test alone.
type RegexExtractor struct{}

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	durationNumRe  = regexp.MustCompile(`(\d+)\s*(hours?|hrs?|minutes?|mins?)`)
	durationWordRe = regexp.MustCompile(`(half|quarter|one|two|three)\s*(?:an?\s+)?(hour|hr)`)

	purposeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:schedule|set up|arrange|plan|organize|book)\s+(?:a\s+|an\s+)?(?:\d+\s*(?:minute|min|hour|hr)s?\s+)?(?:meeting|call|session|sync)\s+(?:for|about|to discuss|regarding)\s+(.+?)(?:\s+(?:with|at|on|by|tomorrow|today|next)\b|[.?!]|$)`),
		regexp.MustCompile(`(?i)(?:discuss|talk about|review)\s+(.+?)(?:\s+(?:with|at|on|by|tomorrow|today|next)\b|[.?!]|$)`),
		regexp.MustCompile(`(?i)(?:purpose|topic|agenda)\s+(?:is|will be|would be)\s+(.+?)(?:\s+(?:with|at|on|by)\b|[.?!]|$)`),
	}

	timeExprRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b((?:an?\s+hour|half\s+an?\s+hour|\d+\s*(?:minutes?|mins?|hours?|hrs?))\s+(?:before|after)\s+my\s+.+?(?:meeting|call|appointment|event))`),
		regexp.MustCompile(`(?i)\b((?:before|after)\s+my\s+.+?(?:meeting|call|appointment|event))`),
		regexp.MustCompile(`(?i)\b((?:sometime\s+)?(?:early\s+|late\s+)?(?:this|next)\s+week)\b`),
		regexp.MustCompile(`(?i)\b(next\s+(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)(?:\s+(?:at\s+)?\d{1,2}(?::\d{2})?\s*(?:am|pm)?)?)`),
		regexp.MustCompile(`(?i)\b((?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)\s+(?:morning|afternoon|evening))\b`),
		regexp.MustCompile(`(?i)\b((?:today|tomorrow|day after tomorrow)(?:\s+(?:morning|afternoon|evening))?(?:\s+(?:at\s+)?\d{1,2}(?::\d{2})?\s*(?:am|pm))?)\b`),
		regexp.MustCompile(`(?i)\b(in\s+\d+\s+days?)\b`),
		regexp.MustCompile(`(?i)\b((?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}(?:st|nd|rd|th)?(?:\s+(?:at\s+)?\d{1,2}(?::\d{2})?\s*(?:am|pm)?)?)`),
	}

	fillerRe = regexp.MustCompile(`(?i)^(?:the|a|an|some|this|that|my|our|their)\s+`)
)

func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// Extract never fails; an utterance with nothing recognizable yields an
// empty delta.
func (e *RegexExtractor) Extract(_ context.Context, utterance string, _ *models.ConversationState) (models.ExtractionDelta, error) {
	delta := models.ExtractionDelta{Confidence: 0.5}

	if d := extractDuration(utterance); d > 0 {
		delta.DurationMinutes = &d
	}
	delta.Attendees = emailRe.FindAllString(utterance, -1)
	delta.TimeExpression = extractTimeExpression(utterance)
	delta.Purpose = extractPurpose(utterance)

	return delta, nil
}

func extractDuration(text string) int {
	lower := strings.ToLower(text)
	if m := durationNumRe.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0
		}
		if strings.HasPrefix(m[2], "h") {
			return n * 60
		}
		return n
	}
	if m := durationWordRe.FindStringSubmatch(lower); m != nil {
		switch m[1] {
		case "half":
			return 30
		case "quarter":
			return 15
		case "one":
			return 60
		case "two":
			return 120
		case "three":
			return 180
		}
	}
	return 0
}

func extractTimeExpression(text string) string {
	for _, re := range timeExprRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(strings.ToLower(m[1]))
		}
	}
	return ""
}

func extractPurpose(text string) string {
	for _, re := range purposeRes {
		if m := re.FindStringSubmatch(text); m != nil {
			purpose := strings.TrimSpace(m[1])
			purpose = fillerRe.ReplaceAllString(purpose, "")
			// Strip trailing attendee emails that leaked into the capture.
			purpose = strings.TrimSpace(emailRe.ReplaceAllString(purpose, ""))
			purpose = strings.TrimRight(purpose, " ,.")
			if len(purpose) > 3 {
				return purpose
			}
		}
	}
	return ""
}
