package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexExtractorAttendees(t *testing.T) {
	e := NewRegexExtractor()

	delta, err := e.Extract(context.Background(), "invite alice@example.com and bob.smith@corp.io", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com", "bob.smith@corp.io"}, delta.Attendees)
}

func TestRegexExtractorDuration(t *testing.T) {
	e := NewRegexExtractor()

	cases := map[string]int{
		"make it 45 minutes":           45,
		"a 2 hour workshop":            120,
		"just half an hour":            30,
		"one hour should do":           60,
		"block 90 mins":                90,
		"no duration mentioned at all": 0,
	}
	for utterance, want := range cases {
		delta, err := e.Extract(context.Background(), utterance, nil)
		require.NoError(t, err, utterance)
		if want == 0 {
			assert.Nil(t, delta.DurationMinutes, utterance)
			continue
		}
		require.NotNil(t, delta.DurationMinutes, utterance)
		assert.Equal(t, want, *delta.DurationMinutes, utterance)
	}
}

func TestRegexExtractorTimeExpressions(t *testing.T) {
	e := NewRegexExtractor()

	cases := map[string]string{
		"let's meet tomorrow afternoon":         "tomorrow afternoon",
		"how about early next week":             "early next week",
		"next Tuesday at 10am works for me":     "next tuesday at 10am",
		"an hour before my 5 PM meeting please": "an hour before my 5 pm meeting",
		"can we do it in 3 days":                "in 3 days",
		"put it on March 5 3pm":                 "march 5 3pm",
		"tuesday morning would be great":        "tuesday morning",
	}
	for utterance, want := range cases {
		delta, err := e.Extract(context.Background(), utterance, nil)
		require.NoError(t, err, utterance)
		assert.Equal(t, want, delta.TimeExpression, utterance)
	}
}

func TestRegexExtractorPurpose(t *testing.T) {
	e := NewRegexExtractor()

	delta, err := e.Extract(context.Background(),
		"Schedule a meeting about the Q3 roadmap with alice@example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "Q3 roadmap", delta.Purpose)
	assert.Equal(t, []string{"alice@example.com"}, delta.Attendees)
}

func TestRegexExtractorCombinedUtterance(t *testing.T) {
	e := NewRegexExtractor()

	delta, err := e.Extract(context.Background(),
		"Set up a 45 minute sync to discuss hiring plans with bob@corp.io tomorrow afternoon", nil)
	require.NoError(t, err)
	require.NotNil(t, delta.DurationMinutes)
	assert.Equal(t, 45, *delta.DurationMinutes)
	assert.Equal(t, "hiring plans", delta.Purpose)
	assert.Equal(t, []string{"bob@corp.io"}, delta.Attendees)
	assert.Equal(t, "tomorrow afternoon", delta.TimeExpression)
}

func TestRegexExtractorNothingRecognizable(t *testing.T) {
	e := NewRegexExtractor()

	delta, err := e.Extract(context.Background(), "hello there", nil)
	require.NoError(t, err)
	assert.True(t, delta.Empty())
}

func TestParseDeltaStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"purpose\": \"budget review\", \"durationMinutes\": 60, \"confidence\": 0.9}\n```"
	delta, err := parseDelta(raw)
	require.NoError(t, err)
	assert.Equal(t, "budget review", delta.Purpose)
	require.NotNil(t, delta.DurationMinutes)
	assert.Equal(t, 60, *delta.DurationMinutes)
}

func TestParseDeltaRejectsGarbage(t *testing.T) {
	_, err := parseDelta("I could not find any fields")
	require.Error(t, err)
}
