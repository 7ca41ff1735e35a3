// Package store persists call records in SQLite. Metadata columns
// (ingestion_metadata, segment_confidence, understanding_metadata) are
// optional: deployments that have not migrated yet lack them, and the
// store degrades to embedding those payloads in the notes column. The
// writer is picked once at Open by probing the schema, so callers never
// branch on column availability.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"finecho-go/internal/logger"
	"finecho-go/internal/notesmeta"
	"finecho-go/internal/types"
)

var (
	// ErrNotFound means no call row exists for the id.
	ErrNotFound = errors.New("call not found")
	// ErrMissingColumn means the schema lacks a column an update needs.
	// This is the error class that selects the notes-embedded fallback.
	ErrMissingColumn = errors.New("missing column")
)

// Patch is a partial update of the core call columns. Nil fields are left
// untouched.
type Patch struct {
	Status           *string
	Transcript       *string
	Summary          *string
	Goals            *[]string
	Language         *string
	ComplianceStatus *string
	ComplianceFlags  *[]string
	Notes            *string
}

// Store wraps SQLite access for call records.
type Store struct {
	db        *sql.DB
	meta      metaWriter
	cols      map[string]bool
	selectQry string
	log       *logger.Logger
}

// metaWriter persists ingestion/understanding metadata either into
// dedicated columns or into the notes field, depending on the schema.
type metaWriter interface {
	saveIngestion(ctx context.Context, id string, meta map[string]interface{}, language, confidence *string) error
	saveUnderstanding(ctx context.Context, id string, u *types.Understanding) error
}

// Open opens (creating if needed) the SQLite database at path and probes
// the calls table for the optional metadata columns.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &Store{db: db, log: logger.New()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	cols, err := s.tableColumns("calls")
	if err != nil {
		db.Close()
		return nil, err
	}
	s.cols = cols
	s.selectQry = buildSelect(cols)
	if cols["ingestion_metadata"] && cols["segment_confidence"] && cols["understanding_metadata"] {
		s.meta = &columnMeta{s}
	} else {
		s.log.WithField("module", "store").Warn("metadata columns missing, embedding metadata in notes")
		s.meta = &notesMeta{s}
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS calls (
		id TEXT PRIMARY KEY,
		client_id TEXT,
		advisor_id TEXT,
		audio_path TEXT,
		duration_seconds INTEGER DEFAULT 0,
		status TEXT,
		transcript TEXT,
		summary TEXT,
		goals TEXT,
		language TEXT,
		compliance_status TEXT,
		compliance_flags TEXT,
		ingestion_metadata TEXT,
		segment_confidence TEXT,
		understanding_metadata TEXT,
		notes TEXT,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	);`)
	if err != nil {
		return fmt.Errorf("migrate calls: %w", err)
	}
	return nil
}

func (s *Store) tableColumns(table string) (map[string]bool, error) {
	rows, err := s.db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", table, err)
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// Insert creates a new call row.
func (s *Store) Insert(ctx context.Context, c *types.Call) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `INSERT INTO calls
		(id, client_id, advisor_id, audio_path, duration_seconds, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ClientID, c.AdvisorID, c.AudioPath, c.DurationSeconds, c.Status, nullable(c.Notes), now, now)
	if err != nil {
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

// Update applies a partial update to the core columns of one call.
func (s *Store) Update(ctx context.Context, id string, p Patch) error {
	sets := []string{}
	args := []interface{}{}
	var missing error
	add := func(col string, v interface{}) {
		if !s.cols[col] {
			missing = fmt.Errorf("%w: %s", ErrMissingColumn, col)
			return
		}
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.Transcript != nil {
		add("transcript", *p.Transcript)
	}
	if p.Summary != nil {
		add("summary", *p.Summary)
	}
	if p.Goals != nil {
		b, _ := json.Marshal(*p.Goals)
		add("goals", string(b))
	}
	if p.Language != nil {
		add("language", *p.Language)
	}
	if p.ComplianceStatus != nil {
		add("compliance_status", *p.ComplianceStatus)
	}
	if p.ComplianceFlags != nil {
		b, _ := json.Marshal(*p.ComplianceFlags)
		add("compliance_flags", string(b))
	}
	if p.Notes != nil {
		add("notes", *p.Notes)
	}
	if missing != nil {
		return missing
	}
	if len(sets) == 0 {
		return nil
	}
	add("updated_at", time.Now().UTC())
	args = append(args, id)

	q := "UPDATE calls SET "
	for i, set := range sets {
		if i > 0 {
			q += ", "
		}
		q += set
	}
	q += " WHERE id = ?"
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update call %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveIngestion persists the ingestion payload plus derived fields via
// whichever metadata writer the schema supports. Language mirrors the
// detected language only when non-nil.
func (s *Store) SaveIngestion(ctx context.Context, id string, meta map[string]interface{}, language, confidence *string) error {
	return s.meta.saveIngestion(ctx, id, meta, language, confidence)
}

// SaveUnderstanding persists the understanding extraction result.
func (s *Store) SaveUnderstanding(ctx context.Context, id string, u *types.Understanding) error {
	return s.meta.saveUnderstanding(ctx, id, u)
}

// MergeNotesMeta shallow-merges patch into the metadata embedded in the
// call's notes, preserving user-authored text.
func (s *Store) MergeNotesMeta(ctx context.Context, id string, patch map[string]interface{}) error {
	var notes sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT notes FROM calls WHERE id = ?`, id).Scan(&notes)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read notes for %s: %w", id, err)
	}
	next := notesmeta.Merge(notes.String, patch)
	return s.Update(ctx, id, Patch{Notes: &next})
}

// Get returns one call by id, with any notes-embedded metadata decoded
// back into the dedicated fields when the columns are absent.
func (s *Store) Get(ctx context.Context, id string) (*types.Call, error) {
	row := s.db.QueryRowContext(ctx, s.selectQry+` FROM calls WHERE id = ?`, id)
	c, err := scanCall(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get call %s: %w", id, err)
	}
	s.liftNotesMeta(c)
	return c, nil
}

// List returns all calls, newest first.
func (s *Store) List(ctx context.Context) ([]*types.Call, error) {
	rows, err := s.db.QueryContext(ctx, s.selectQry+` FROM calls ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	defer rows.Close()
	var out []*types.Call
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		s.liftNotesMeta(c)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a call row.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM calls WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete call %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// liftNotesMeta backfills metadata fields from the notes payload when the
// dedicated columns did not supply them.
func (s *Store) liftNotesMeta(c *types.Call) {
	if c.Notes == nil {
		return
	}
	_, meta := notesmeta.Decode(*c.Notes)
	if len(meta) == 0 {
		return
	}
	if c.IngestionMetadata == nil {
		if m, ok := meta["ingestion_metadata"].(map[string]interface{}); ok {
			c.IngestionMetadata = m
		}
	}
	if c.SegmentConfidence == nil {
		if v, ok := meta["segment_confidence"].(string); ok {
			c.SegmentConfidence = &v
		}
	}
	if c.UnderstandingMetadata == nil {
		if raw, ok := meta["understanding_metadata"]; ok && raw != nil {
			if b, err := json.Marshal(raw); err == nil {
				var u types.Understanding
				if err := json.Unmarshal(b, &u); err == nil {
					c.UnderstandingMetadata = &u
				}
			}
		}
	}
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
