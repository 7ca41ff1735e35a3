package store

import (
	"database/sql"
	"encoding/json"
	"strings"

	"finecho-go/internal/types"
)

// buildSelect produces the SELECT list the scanner expects. Optional
// metadata columns missing from the schema are replaced with NULL so one
// scanner handles both schema generations.
func buildSelect(cols map[string]bool) string {
	optional := func(name string) string {
		if cols[name] {
			return name
		}
		return "NULL AS " + name
	}
	fields := []string{
		"id", "client_id", "advisor_id", "audio_path", "duration_seconds", "status",
		"transcript", "summary", "goals", "language", "compliance_status", "compliance_flags",
		optional("ingestion_metadata"), optional("segment_confidence"), optional("understanding_metadata"),
		"notes", "created_at", "updated_at",
	}
	return "SELECT " + strings.Join(fields, ", ")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCall(r rowScanner) (*types.Call, error) {
	var c types.Call
	var transcript, summary, goals, language sql.NullString
	var complianceStatus, complianceFlags sql.NullString
	var ingestion, confidence, understanding, notes sql.NullString

	err := r.Scan(&c.ID, &c.ClientID, &c.AdvisorID, &c.AudioPath, &c.DurationSeconds, &c.Status,
		&transcript, &summary, &goals, &language, &complianceStatus, &complianceFlags,
		&ingestion, &confidence, &understanding,
		&notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.Transcript = strPtr(transcript)
	c.Summary = strPtr(summary)
	c.Language = strPtr(language)
	c.ComplianceStatus = strPtr(complianceStatus)
	c.SegmentConfidence = strPtr(confidence)
	c.Notes = strPtr(notes)

	if goals.Valid && goals.String != "" {
		_ = json.Unmarshal([]byte(goals.String), &c.Goals)
	}
	if complianceFlags.Valid && complianceFlags.String != "" {
		_ = json.Unmarshal([]byte(complianceFlags.String), &c.ComplianceFlags)
	}
	if ingestion.Valid && ingestion.String != "" {
		_ = json.Unmarshal([]byte(ingestion.String), &c.IngestionMetadata)
	}
	if understanding.Valid && understanding.String != "" {
		var u types.Understanding
		if err := json.Unmarshal([]byte(understanding.String), &u); err == nil {
			c.UnderstandingMetadata = &u
		}
	}
	return &c, nil
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
