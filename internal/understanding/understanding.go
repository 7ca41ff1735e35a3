// Package understanding is a lightweight, explainable financial NLP layer
// for transcripts: intents, entities, commitments, emotion and regulatory
// phrase coverage. Every heuristic is a keyword/regex table; no category's
// result affects another's.
package understanding

import (
	"regexp"
	"strings"

	"finecho-go/internal/types"
)

// Intent labels with their trigger patterns.
var intentRules = []struct {
	label    string
	patterns []*regexp.Regexp
}{
	{"advisory_discussion", []*regexp.Regexp{
		regexp.MustCompile(`invest`),
		regexp.MustCompile(`(?i)sip\b`),
		regexp.MustCompile(`(?i)mutual\s+fund`),
		regexp.MustCompile(`(?i)portfolio`),
	}},
	{"payment_inquiry", []*regexp.Regexp{
		regexp.MustCompile(`(?i)due\s+date`),
		regexp.MustCompile(`(?i)outstanding`),
		regexp.MustCompile(`(?i)payment\b`),
		regexp.MustCompile(`(?i)bill`),
	}},
	{"payment_commitment", []*regexp.Regexp{
		regexp.MustCompile(`(?i)i\s+will\s+pay`),
		regexp.MustCompile(`(?i)i'll\s+pay`),
		regexp.MustCompile(`(?i)make\s+the\s+payment`),
	}},
	{"complaint", []*regexp.Regexp{
		regexp.MustCompile(`(?i)complain`),
		regexp.MustCompile(`(?i)issue`),
		regexp.MustCompile(`(?i)problem`),
		regexp.MustCompile(`(?i)not\s+happy`),
		regexp.MustCompile(`(?i)bad\s+service`),
	}},
	{"follow_up_required", []*regexp.Regexp{
		regexp.MustCompile(`(?i)call\s+me\s+back`),
		regexp.MustCompile(`(?i)follow[-\s]*up`),
		regexp.MustCompile(`(?i)let\s+you\s+know`),
	}},
}

var (
	amountPattern    = regexp.MustCompile(`₹?\s?(\d{1,3}(?:,\d{3})*|\d+)(?:\.\d+)?\b`)
	ratePattern      = regexp.MustCompile(`\b\d+(?:\.\d+)?\s*%`)
	tenurePattern    = regexp.MustCompile(`(?i)\b\d+\s*(months?|years?)\b`)
	dateWordsPattern = regexp.MustCompile(`(?i)\b(today|tomorrow|next\s+week|next\s+month|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
)

// Product keywords paired with the literal reported in entities.products.
var productRules = []struct {
	pattern *regexp.Regexp
	label   string
}{
	{regexp.MustCompile(`(?i)sip\b`), "sip"},
	{regexp.MustCompile(`(?i)mutual\s+fund`), "mutual fund"},
	{regexp.MustCompile(`(?i)insurance\b`), "insurance"},
	{regexp.MustCompile(`(?i)policy\b`), "policy"},
	{regexp.MustCompile(`(?i)loan\b`), "loan"},
	{regexp.MustCompile(`(?i)credit\s+card`), "credit card"},
}

var obligationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)i\s+will\s+pay`),
	regexp.MustCompile(`(?i)i'll\s+pay`),
	regexp.MustCompile(`(?i)i\s+agree\s+to\s+pay`),
	regexp.MustCompile(`(?i)i\s+commit`),
	regexp.MustCompile(`(?i)i\s+will\s+confirm`),
}

// Follow-up phrases; the first one that matches wins, in this order.
var followUpRules = []struct {
	pattern *regexp.Regexp
	label   string
}{
	{regexp.MustCompile(`(?i)\bnext\s+week\b`), "next week"},
	{regexp.MustCompile(`(?i)\bbefore\s+friday\b`), "before friday"},
	{regexp.MustCompile(`(?i)\bthis\s+week\b`), "this week"},
	{regexp.MustCompile(`(?i)\bnext\s+month\b`), "next month"},
	{regexp.MustCompile(`(?i)\btomorrow\b`), "tomorrow"},
}

var stressPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)angry`),
	regexp.MustCompile(`(?i)upset`),
	regexp.MustCompile(`(?i)not\s+happy`),
	regexp.MustCompile(`(?i)frustrated`),
	regexp.MustCompile(`(?i)escalate`),
}

var urgencyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\burgent\b`),
	regexp.MustCompile(`(?i)\bimmediately\b`),
	regexp.MustCompile(`(?i)\bright\s+now\b`),
}

var interruptionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)stop\s+talking`),
	regexp.MustCompile(`(?i)let\s+me\s+finish`),
	regexp.MustCompile(`(?i)you\s+keep\s+interrupting`),
}

// Required regulatory disclosures. Each is classified present or missing by
// direct phrase match.
var regulatoryRequired = []struct {
	pattern *regexp.Regexp
	label   string
}{
	{regexp.MustCompile(`(?i)this\s+call\s+is\s+recorded`), "Call recording disclosure"},
	{regexp.MustCompile(`(?i)subject\s+to\s+market\s+risk`), "Market risk disclaimer"},
	{regexp.MustCompile(`(?i)not\s+financial\s+advice`), "Not financial advice disclaimer"},
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Analyze extracts a structured understanding object from the transcript.
// Pure and deterministic.
func Analyze(transcript string) types.Understanding {
	text := strings.TrimSpace(transcript)

	intents := []string{}
	for _, r := range intentRules {
		if anyMatch(r.patterns, text) {
			intents = append(intents, r.label)
		}
	}

	entities := types.Entities{
		Amounts:  []string{},
		Dates:    []string{},
		Rates:    []string{},
		Tenures:  []string{},
		Products: []string{},
	}
	for _, m := range amountPattern.FindAllString(text, -1) {
		entities.Amounts = append(entities.Amounts, strings.TrimSpace(m))
	}
	for _, m := range ratePattern.FindAllString(text, -1) {
		entities.Rates = append(entities.Rates, strings.TrimSpace(m))
	}
	for _, m := range tenurePattern.FindAllString(text, -1) {
		entities.Tenures = append(entities.Tenures, strings.TrimSpace(m))
	}
	for _, m := range dateWordsPattern.FindAllString(text, -1) {
		entities.Dates = append(entities.Dates, strings.TrimSpace(m))
	}
	for _, r := range productRules {
		if r.pattern.MatchString(text) {
			entities.Products = append(entities.Products, r.label)
		}
	}

	obligation := anyMatch(obligationPatterns, text)

	var followUp *string
	for _, r := range followUpRules {
		if r.pattern.MatchString(text) {
			label := r.label
			followUp = &label
			break
		}
	}

	hasStress := anyMatch(stressPatterns, text)
	hasUrgency := anyMatch(urgencyPatterns, text)
	hasInterruptions := anyMatch(interruptionPatterns, text)
	emotion := "Neutral"
	if hasStress || (hasUrgency && hasInterruptions) {
		emotion = "Stressed"
	} else if !hasStress && !hasUrgency && !hasInterruptions {
		emotion = "Calm"
	}

	coverage := types.RegulatoryCoverage{Present: []string{}, Missing: []string{}}
	for _, r := range regulatoryRequired {
		if r.pattern.MatchString(text) {
			coverage.Present = append(coverage.Present, r.label)
		} else {
			coverage.Missing = append(coverage.Missing, r.label)
		}
	}

	return types.Understanding{
		Intents:            intents,
		Entities:           entities,
		ObligationDetected: obligation,
		FollowUpDate:       followUp,
		Emotion:            emotion,
		RegulatoryPhrases:  coverage,
	}
}
