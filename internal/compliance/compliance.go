// Package compliance scans transcripts for risky phrasing, PII patterns,
// profanity and missing disclaimers. All rules are plain regex tables so
// each flag can be explained in a sentence.
package compliance

import (
	"regexp"
	"strings"

	"finecho-go/internal/types"
)

type rule struct {
	pattern *regexp.Regexp
	message string
}

// Risky claim phrases. Any match appends its message as a flag; the
// guaranteed/double/100% messages escalate the overall status to risk.
var riskyRules = []rule{
	{regexp.MustCompile(`(?i)guaranteed\s+returns?`), "Mentions guaranteed returns"},
	{regexp.MustCompile(`(?i)no\s+risk`), "Claims no risk"},
	{regexp.MustCompile(`(?i)double\s+your\s+money`), "Promises specific returns"},
	{regexp.MustCompile(`(?i)100%\s+safe`), "Claims 100% safety"},
	{regexp.MustCompile(`(?i)can't\s+lose`), "Suggests no possibility of loss"},
}

// PII patterns for the Indian context (phone, Aadhaar, PAN). Only the fact
// that something matched is surfaced; the matched value is never stored.
var piiRules = []rule{
	{regexp.MustCompile(`\b(\+?\d{1,3}[-\s]?)?\d{10}\b`), "Possible phone number (PII) mentioned"},
	{regexp.MustCompile(`\b\d{4}\s?\d{4}\s?\d{4}\b`), "Possible Aadhaar number (PII) mentioned"},
	{regexp.MustCompile(`\b[A-Z]{5}\d{4}[A-Z]\b`), "Possible PAN number (PII) mentioned"},
}

// Lightweight profanity list (English + a few Hinglish terms). A single
// flag is emitted no matter how many words match.
var profanityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)fuck`),
	regexp.MustCompile(`(?i)\bshit\b`),
	regexp.MustCompile(`(?i)\bdamn\b`),
	regexp.MustCompile(`(?i)\bbastard\b`),
	regexp.MustCompile(`(?i)\bchutiya\b`),
	regexp.MustCompile(`(?i)\bmadarchod\b`),
}

var disclaimerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)past\s+performance`),
	regexp.MustCompile(`(?i)not\s+(a\s+)?guarantee`),
	regexp.MustCompile(`(?i)market\s+risk`),
	regexp.MustCompile(`(?i)please\s+read\s+(the\s+)?scheme\s+document`),
}

const profanityFlag = "Profanity detected in conversation"
const noDisclaimerFlag = "No standard disclaimer detected"

// Analyze evaluates every rule category against the transcript and tiers
// the result: risk for guaranteed-return class claims, warning for any
// other flag, clear otherwise. Pure and deterministic.
func Analyze(transcript string) types.ComplianceResult {
	text := strings.TrimSpace(transcript)
	flags := []string{}

	for _, r := range riskyRules {
		if r.pattern.MatchString(text) {
			flags = append(flags, r.message)
		}
	}

	for _, r := range piiRules {
		if r.pattern.MatchString(text) {
			flags = append(flags, r.message)
		}
	}

	for _, p := range profanityPatterns {
		if p.MatchString(text) {
			flags = append(flags, profanityFlag)
			break
		}
	}

	hasDisclaimer := false
	for _, p := range disclaimerPatterns {
		if p.MatchString(text) {
			hasDisclaimer = true
			break
		}
	}
	if !hasDisclaimer && len(text) > 100 {
		flags = append(flags, noDisclaimerFlag)
	}

	status := types.ComplianceClear
	for _, f := range flags {
		if strings.Contains(f, "guaranteed") || strings.Contains(f, "double") || strings.Contains(f, "100%") {
			status = types.ComplianceRisk
			break
		}
	}
	if status == types.ComplianceClear && len(flags) > 0 {
		status = types.ComplianceWarning
	}

	return types.ComplianceResult{Flags: flags, Status: status}
}
