// Package summary is the local heuristic fallback for the remote semantic
// service: a keyword/sentence extractor producing a summary, financial
// goals and a coarse language guess.
package summary

import (
	"regexp"
	"strings"

	"finecho-go/internal/types"
)

const maxSummaryLen = 300

var sentenceSplit = regexp.MustCompile(`[.!?]+\s+`)

// Sentences mentioning any of these are surfaced as financial goals.
var goalKeywords = []string{
	"goal", "plan", "save", "saving", "invest", "retirement",
	"education", "buy", "target", "corpus", "premium", "sip",
}

// A handful of common romanized Hindi tokens; any hit marks the call as
// Hinglish rather than plain English.
var hinglishTokens = []string{
	"hai", "nahi", "karna", "paisa", "kyunki", "aap", "theek", "acha",
}

// Extract builds a heuristic summary/goals/language triple from the
// transcript. Compliance fields are left empty; the rule engine fills them.
func Extract(transcript string) types.SemanticAnalysis {
	text := strings.TrimSpace(transcript)
	if text == "" {
		return types.SemanticAnalysis{Goals: []string{}, Language: "en"}
	}

	sentences := splitSentences(text)

	// First two sentences, capped, as the summary.
	sum := strings.Join(firstN(sentences, 2), " ")
	if len(sum) > maxSummaryLen {
		sum = sum[:maxSummaryLen-3] + "..."
	}

	goals := []string{}
	for _, s := range sentences {
		lower := strings.ToLower(s)
		for _, kw := range goalKeywords {
			if strings.Contains(lower, kw) {
				goals = append(goals, s)
				break
			}
		}
		if len(goals) == 5 {
			break
		}
	}

	return types.SemanticAnalysis{
		Summary:  sum,
		Goals:    goals,
		Language: detectLanguage(text),
	}
}

func splitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstN(s []string, n int) []string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

func detectLanguage(text string) string {
	lower := " " + strings.ToLower(text) + " "
	for _, tok := range hinglishTokens {
		if strings.Contains(lower, " "+tok+" ") {
			return "hi-en"
		}
	}
	return "en"
}
