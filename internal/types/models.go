package types

import "time"

// Call statuses. A pipeline run moves forward along
// uploaded -> transcribing -> transcribed -> completed; the two failed_*
// states are terminal and only a fresh run can replace them.
const (
	StatusUploaded            = "uploaded"
	StatusTranscribing        = "transcribing"
	StatusTranscribed         = "transcribed"
	StatusCompleted           = "completed"
	StatusFailedTranscription = "failed_transcription"
	StatusFailedSummary       = "failed_summary"
)

// Compliance statuses.
const (
	ComplianceClear   = "clear"
	ComplianceWarning = "warning"
	ComplianceRisk    = "risk"
)

// Segment confidence levels derived from ingestion signal quality.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

// Call is one uploaded advisory call and its processing results.
type Call struct {
	ID              string   `json:"id"`
	ClientID        string   `json:"client_id"`
	AdvisorID       string   `json:"advisor_id"`
	AudioPath       string   `json:"-"`
	DurationSeconds int      `json:"duration_seconds"`
	Status          string   `json:"status"`
	Transcript      *string  `json:"transcript"`
	Summary         *string  `json:"summary"`
	Goals           []string `json:"goals"`
	Language        *string  `json:"language"`

	ComplianceStatus *string  `json:"compliance_status"`
	ComplianceFlags  []string `json:"compliance_flags"`

	// IngestionMetadata holds the raw JSON payload emitted by the audio
	// ingestion process, or {"error": "..."} when ingestion failed.
	IngestionMetadata map[string]interface{} `json:"ingestion_metadata"`
	SegmentConfidence *string                `json:"segment_confidence"`

	UnderstandingMetadata *Understanding `json:"understanding_metadata"`

	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IngestionResult is the contract of the audio ingestion process: one JSON
// object on stdout. Raw preserves keys the typed fields don't cover.
type IngestionResult struct {
	AudioFormat       string   `json:"audio_format"`
	DurationSec       float64  `json:"duration_sec"`
	Language          string   `json:"language"`
	NoiseLevel        string   `json:"noise_level"`
	CallQuality       string   `json:"call_quality"`
	SpeakersDetected  int      `json:"speakers_detected"`
	PossibleTampering bool     `json:"possible_tampering"`
	SilenceRatio      *float64 `json:"silence_ratio,omitempty"`

	Raw map[string]interface{} `json:"-"`
}

// Understanding is the structured output of the financial understanding
// extractor.
type Understanding struct {
	Intents            []string           `json:"intents"`
	Entities           Entities           `json:"entities"`
	ObligationDetected bool               `json:"obligation_detected"`
	FollowUpDate       *string            `json:"follow_up_date"`
	Emotion            string             `json:"emotion"`
	RegulatoryPhrases  RegulatoryCoverage `json:"regulatory_phrases"`
}

// Entities are literal substrings matched in the transcript, grouped by kind.
type Entities struct {
	Amounts  []string `json:"amounts"`
	Dates    []string `json:"dates"`
	Rates    []string `json:"rates"`
	Tenures  []string `json:"tenures"`
	Products []string `json:"products"`
}

// RegulatoryCoverage classifies each required disclosure as present or missing.
type RegulatoryCoverage struct {
	Present []string `json:"present"`
	Missing []string `json:"missing"`
}

// ComplianceResult is the output of the compliance rule engine.
type ComplianceResult struct {
	Flags  []string `json:"compliance_flags"`
	Status string   `json:"compliance_status"`
}

// SemanticAnalysis is what the remote semantic analysis service returns for
// a transcript. The heuristic fallback produces the same shape.
type SemanticAnalysis struct {
	Summary          string   `json:"summary"`
	Goals            []string `json:"goals"`
	Language         string   `json:"language"`
	ComplianceFlags  []string `json:"compliance_flags"`
	ComplianceStatus string   `json:"compliance_status"`
}
