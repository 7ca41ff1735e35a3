package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"finecho-go/internal/notesmeta"
	"finecho-go/internal/types"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// openLegacy creates a calls table without the metadata columns before the
// store probes it, simulating a deployment that has not migrated.
func openLegacy(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE calls (
		id TEXT PRIMARY KEY,
		client_id TEXT, advisor_id TEXT, audio_path TEXT,
		duration_seconds INTEGER DEFAULT 0, status TEXT,
		transcript TEXT, summary TEXT, goals TEXT, language TEXT,
		compliance_status TEXT, compliance_flags TEXT,
		notes TEXT, created_at TIMESTAMP, updated_at TIMESTAMP
	);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insertCall(t *testing.T, s *Store, id string) {
	t.Helper()
	require.NoError(t, s.Insert(context.Background(), &types.Call{
		ID:       id,
		ClientID: "client-1",
		Status:   types.StatusUploaded,
	}))
}

func TestInsertGetRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	notes := "pre-call notes"
	require.NoError(t, s.Insert(ctx, &types.Call{
		ID:              "c1",
		ClientID:        "client-1",
		AdvisorID:       "adv-1",
		AudioPath:       "/tmp/a.wav",
		DurationSeconds: 42,
		Status:          types.StatusUploaded,
		Notes:           &notes,
	}))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "client-1", got.ClientID)
	assert.Equal(t, 42, got.DurationSeconds)
	assert.Equal(t, types.StatusUploaded, got.Status)
	assert.Nil(t, got.Transcript)
	assert.Nil(t, got.ComplianceStatus)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "pre-call notes", *got.Notes)
}

func TestGetMissing(t *testing.T) {
	s := openTemp(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPartialUpdate(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	insertCall(t, s, "c1")

	transcript := "hello world"
	status := types.StatusTranscribed
	require.NoError(t, s.Update(ctx, "c1", Patch{Status: &status, Transcript: &transcript}))

	goals := []string{"save for retirement"}
	flags := []string{"Claims no risk"}
	comp := types.ComplianceWarning
	require.NoError(t, s.Update(ctx, "c1", Patch{
		Goals:            &goals,
		ComplianceFlags:  &flags,
		ComplianceStatus: &comp,
	}))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got.Transcript)
	assert.Equal(t, "hello world", *got.Transcript)
	assert.Equal(t, types.StatusTranscribed, got.Status)
	assert.Equal(t, goals, got.Goals)
	assert.Equal(t, flags, got.ComplianceFlags)
}

func TestUpdateMissingRow(t *testing.T) {
	s := openTemp(t)
	status := types.StatusCompleted
	err := s.Update(context.Background(), "ghost", Patch{Status: &status})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveIngestionColumns(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	insertCall(t, s, "c1")

	lang := "en"
	conf := types.ConfidenceHigh
	meta := map[string]interface{}{"noise_level": "low", "possible_tampering": false}
	require.NoError(t, s.SaveIngestion(ctx, "c1", meta, &lang, &conf))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "low", got.IngestionMetadata["noise_level"])
	require.NotNil(t, got.SegmentConfidence)
	assert.Equal(t, types.ConfidenceHigh, *got.SegmentConfidence)
	require.NotNil(t, got.Language)
	assert.Equal(t, "en", *got.Language)
	// Notes stay untouched when dedicated columns exist.
	assert.Nil(t, got.Notes)
}

func TestLegacySchemaEmbedsMetadataInNotes(t *testing.T) {
	s := openLegacy(t)
	ctx := context.Background()
	notes := "advisor scribbles"
	require.NoError(t, s.Insert(ctx, &types.Call{ID: "c1", ClientID: "cl", Status: types.StatusUploaded, Notes: &notes}))

	lang := "hi"
	conf := types.ConfidenceLow
	require.NoError(t, s.SaveIngestion(ctx, "c1", map[string]interface{}{"noise_level": "high"}, &lang, &conf))

	u := types.Understanding{Emotion: "Calm", Intents: []string{"advisory_discussion"}}
	require.NoError(t, s.SaveUnderstanding(ctx, "c1", &u))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)

	// The reader lifts the embedded payload back into the fields.
	assert.Equal(t, "high", got.IngestionMetadata["noise_level"])
	require.NotNil(t, got.SegmentConfidence)
	assert.Equal(t, types.ConfidenceLow, *got.SegmentConfidence)
	require.NotNil(t, got.UnderstandingMetadata)
	assert.Equal(t, "Calm", got.UnderstandingMetadata.Emotion)
	require.NotNil(t, got.Language)
	assert.Equal(t, "hi", *got.Language)

	// User-authored notes survive in front of the marker.
	require.NotNil(t, got.Notes)
	assert.True(t, strings.HasPrefix(*got.Notes, "advisor scribbles"))
	userNotes, _ := notesmeta.Decode(*got.Notes)
	assert.Equal(t, "advisor scribbles", userNotes)
}

func TestUpdateMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nocol.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE calls (
		id TEXT PRIMARY KEY, client_id TEXT, advisor_id TEXT, audio_path TEXT,
		duration_seconds INTEGER DEFAULT 0, status TEXT, transcript TEXT,
		summary TEXT, goals TEXT, language TEXT,
		notes TEXT, created_at TIMESTAMP, updated_at TIMESTAMP
	);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	insertCall(t, s, "c1")

	comp := types.ComplianceClear
	err = s.Update(context.Background(), "c1", Patch{ComplianceStatus: &comp})
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestMergeNotesMetaAssociative(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	insertCall(t, s, "c1")
	insertCall(t, s, "c2")

	require.NoError(t, s.MergeNotesMeta(ctx, "c1", map[string]interface{}{"a": "1"}))
	require.NoError(t, s.MergeNotesMeta(ctx, "c1", map[string]interface{}{"b": "2"}))
	require.NoError(t, s.MergeNotesMeta(ctx, "c2", map[string]interface{}{"a": "1", "b": "2"}))

	c1, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	c2, err := s.Get(ctx, "c2")
	require.NoError(t, err)

	_, m1 := notesmeta.Decode(*c1.Notes)
	_, m2 := notesmeta.Decode(*c2.Notes)
	assert.Equal(t, m2, m1)
}

func TestListNewestFirst(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	insertCall(t, s, "older")
	insertCall(t, s, "newer")

	calls, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, calls, 2)
}

func TestDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	insertCall(t, s, "c1")
	require.NoError(t, s.Delete(ctx, "c1"))
	_, err := s.Get(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "c1"), ErrNotFound)
}
