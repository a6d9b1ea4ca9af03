package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	reply string
	err   error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, _ string) (string, error) {
	return f.reply, f.err
}

func newTestGeminiExtractor(reply string, err error) *GeminiExtractor {
	return &GeminiExtractor{
		client:   &fakeGenerator{reply: reply, err: err},
		fallback: NewRegexExtractor(),
	}
}

func TestGeminiExtractorParsesModelDelta(t *testing.T) {
	e := newTestGeminiExtractor(`{"purpose": "budget review", "timeExpression": "next week", "attendees": ["dana@corp.io"], "confidence": 0.92}`, nil)

	delta, err := e.Extract(context.Background(), "let's review the budget next week with dana@corp.io", nil)
	require.NoError(t, err)
	assert.Equal(t, "budget review", delta.Purpose)
	assert.Equal(t, "next week", delta.TimeExpression)
	assert.Equal(t, []string{"dana@corp.io"}, delta.Attendees)
	assert.InDelta(t, 0.92, delta.Confidence, 1e-9)
}

func TestGeminiExtractorFillsGapsFromPatterns(t *testing.T) {
	// The model caught the purpose but missed the email and duration.
	e := newTestGeminiExtractor(`{"purpose": "budget review", "confidence": 0.8}`, nil)

	delta, err := e.Extract(context.Background(), "a 45 minute budget review with dana@corp.io", nil)
	require.NoError(t, err)
	assert.Equal(t, "budget review", delta.Purpose)
	assert.Equal(t, []string{"dana@corp.io"}, delta.Attendees)
	require.NotNil(t, delta.DurationMinutes)
	assert.Equal(t, 45, *delta.DurationMinutes)
}

func TestGeminiExtractorFallsBackOnModelError(t *testing.T) {
	e := newTestGeminiExtractor("", errors.New("quota exceeded"))

	delta, err := e.Extract(context.Background(), "invite dana@corp.io tomorrow afternoon", nil)
	require.NoError(t, err, "pattern fallback carries the turn")
	assert.Equal(t, []string{"dana@corp.io"}, delta.Attendees)
	assert.Equal(t, "tomorrow afternoon", delta.TimeExpression)
}

func TestGeminiExtractorFallsBackOnMalformedReply(t *testing.T) {
	e := newTestGeminiExtractor("Sure! The purpose seems to be a budget review.", nil)

	delta, err := e.Extract(context.Background(), "invite dana@corp.io", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"dana@corp.io"}, delta.Attendees)
}

func TestGeminiExtractorErrorsWhenNothingUsable(t *testing.T) {
	e := newTestGeminiExtractor("", errors.New("quota exceeded"))

	_, err := e.Extract(context.Background(), "hello there", nil)
	require.Error(t, err)
}
