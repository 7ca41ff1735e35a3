// Package notesmeta embeds structured metadata inside the free-text notes
// field. Deployments that have not run the newer migrations lack dedicated
// metadata columns; the payload is appended after a marker so user-authored
// notes survive intact and the record still carries the analysis results.
package notesmeta

import (
	"encoding/json"
	"strings"
)

// Marker separates user notes from the embedded JSON payload.
const Marker = "\n---FINECHO_META---\n"

// Decode splits notes into the user-authored text and the embedded metadata
// object. The last marker occurrence wins; a missing marker or unparseable
// payload yields empty metadata. Never fails.
func Decode(notes string) (string, map[string]interface{}) {
	idx := strings.LastIndex(notes, Marker)
	if idx == -1 {
		return notes, map[string]interface{}{}
	}
	userNotes := strings.TrimRight(notes[:idx], " \t\r\n")
	metaRaw := strings.TrimSpace(notes[idx+len(Marker):])

	var meta map[string]interface{}
	if err := json.Unmarshal([]byte(metaRaw), &meta); err != nil || meta == nil {
		return userNotes, map[string]interface{}{}
	}
	return userNotes, meta
}

// Encode rebuilds the notes text. Empty metadata returns the trimmed user
// notes unchanged, so encode/decode round-trips are stable.
func Encode(userNotes string, meta map[string]interface{}) string {
	u := strings.TrimRight(userNotes, " \t\r\n")
	if len(meta) == 0 {
		return u
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return u
	}
	if u != "" {
		return u + "\n" + Marker + string(payload)
	}
	return Marker + string(payload)
}

// Merge shallow-merges patch over the metadata already embedded in notes
// and returns the re-encoded text. Patch keys win.
func Merge(notes string, patch map[string]interface{}) string {
	userNotes, meta := Decode(notes)
	for k, v := range patch {
		meta[k] = v
	}
	return Encode(userNotes, meta)
}
