package summary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSummaryFirstTwoSentences(t *testing.T) {
	out := Extract("The client called about renewal. We reviewed the policy terms. Nothing else happened.")
	assert.Equal(t, "The client called about renewal We reviewed the policy terms", out.Summary)
	assert.Equal(t, "en", out.Language)
}

func TestExtractSummaryCapped(t *testing.T) {
	long := strings.Repeat("word ", 100) + ". " + strings.Repeat("more ", 100) + "."
	out := Extract(long)
	assert.LessOrEqual(t, len(out.Summary), 300)
	assert.True(t, strings.HasSuffix(out.Summary, "..."))
}

func TestExtractGoals(t *testing.T) {
	out := Extract("Hello sir. I want to save for my daughter's education. " +
		"We discussed the weather. The plan is to start a SIP next month.")
	require.Len(t, out.Goals, 2)
	assert.Contains(t, out.Goals[0], "education")
	assert.Contains(t, out.Goals[1], "SIP")
}

func TestExtractGoalsCappedAtFive(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 8; i++ {
		sb.WriteString("I want to invest more money here. ")
	}
	out := Extract(sb.String())
	assert.Len(t, out.Goals, 5)
}

func TestExtractHinglish(t *testing.T) {
	out := Extract("Aap ka plan theek hai sir. We will proceed.")
	assert.Equal(t, "hi-en", out.Language)
}

func TestExtractEmptyTranscript(t *testing.T) {
	out := Extract("   ")
	assert.Empty(t, out.Summary)
	assert.NotNil(t, out.Goals)
	assert.Empty(t, out.Goals)
	assert.Equal(t, "en", out.Language)
}
