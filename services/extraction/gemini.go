// File: services/extraction/gemini.go
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"schedulai/models"
	"schedulai/utils"

	genai "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const extractionPrompt = `You are the extraction layer of a meeting scheduling assistant.
Read the user's message and extract ONLY fields that are explicitly present.

Current meeting details:
%s

Rules:
1. Never invent a field the user did not state in THIS message.
2. Leave a field null when it is absent; null means "no change", never "clear".
3. timeExpression is the user's own phrasing, verbatim (e.g. "tomorrow afternoon",
   "an hour before my 5 PM meeting"); do not convert it to a date.
4. durationMinutes is an integer number of minutes.
5. attendees is a list of email addresses; set replaceAttendees true only when
   the user explicitly replaces the previous list.

Respond with a single JSON object and nothing else:
{"purpose": string|null, "durationMinutes": int|null, "timeExpression": string|null,
 "attendees": [string]|null, "replaceAttendees": bool, "confidence": float}

User: %s`

// GeminiClient wraps the generative model used for field extraction.
type GeminiClient struct {
	model *genai.GenerativeModel
}

func NewGeminiClient(apiKey, modelName string) *GeminiClient {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		panic(fmt.Sprintf("failed to create Gemini client: %v", err))
	}
	if modelName == "" {
		modelName = "models/gemini-1.5-pro"
	}
	return &GeminiClient{model: client.GenerativeModel(modelName)}
}

func (g *GeminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return sb.String(), nil
}

// generator lets tests stub the model call.
type generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// GeminiExtractor asks the model for a field delta and layers the regex
// fallback underneath for anything the model left absent. When the model
// call fails the fallback alone carries the turn.
type GeminiExtractor struct {
	client   generator
	fallback *RegexExtractor
}

func NewGeminiExtractor(apiKey, modelName string) *GeminiExtractor {
	return &GeminiExtractor{
		client:   NewGeminiClient(apiKey, modelName),
		fallback: NewRegexExtractor(),
	}
}

func (e *GeminiExtractor) Extract(ctx context.Context, utterance string, prior *models.ConversationState) (models.ExtractionDelta, error) {
	logger := utils.GetLogger()

	regexDelta, _ := e.fallback.Extract(ctx, utterance, prior)

	raw, err := e.client.GenerateContent(ctx, fmt.Sprintf(extractionPrompt, stateContext(prior), utterance))
	if err != nil {
		if regexDelta.Empty() {
			return models.ExtractionDelta{}, fmt.Errorf("extraction failed: %w", err)
		}
		logger.Warn("model extraction failed, using pattern fallback", zap.Error(err))
		return regexDelta, nil
	}

	modelDelta, err := parseDelta(raw)
	if err != nil {
		logger.Warn("model returned malformed delta, using pattern fallback",
			zap.Error(err), zap.String("raw", raw))
		return regexDelta, nil
	}

	return mergeDeltas(modelDelta, regexDelta), nil
}

// stateContext renders the accumulated fields the way the prompt expects.
func stateContext(state *models.ConversationState) string {
	if state == nil {
		return "(new conversation, nothing collected yet)"
	}
	var b strings.Builder
	writeField := func(name, value string) {
		if value == "" {
			value = "not specified"
		}
		fmt.Fprintf(&b, "- %s: %s\n", name, value)
	}
	writeField("purpose", state.Purpose)
	if state.DurationMinutes > 0 {
		writeField("duration", fmt.Sprintf("%d minutes", state.DurationMinutes))
	} else {
		writeField("duration", "")
	}
	writeField("time", state.RawTimeExpression)
	writeField("attendees", strings.Join(state.Attendees, ", "))
	return strings.TrimRight(b.String(), "\n")
}

// parseDelta tolerates the model wrapping its JSON in a code fence.
func parseDelta(raw string) (models.ExtractionDelta, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var delta models.ExtractionDelta
	if err := json.Unmarshal([]byte(s), &delta); err != nil {
		return models.ExtractionDelta{}, err
	}
	return delta, nil
}

// mergeDeltas prefers the model's fields and fills gaps from the patterns.
func mergeDeltas(model, regex models.ExtractionDelta) models.ExtractionDelta {
	out := model
	if out.Purpose == "" {
		out.Purpose = regex.Purpose
	}
	if out.DurationMinutes == nil {
		out.DurationMinutes = regex.DurationMinutes
	}
	if out.TimeExpression == "" {
		out.TimeExpression = regex.TimeExpression
	}
	if len(out.Attendees) == 0 {
		out.Attendees = regex.Attendees
	}
	if out.Confidence == 0 {
		out.Confidence = regex.Confidence
	}
	return out
}
