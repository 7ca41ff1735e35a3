package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"finecho-go/internal/types"
)

// columnMeta writes metadata into the dedicated columns.
type columnMeta struct {
	s *Store
}

func (w *columnMeta) saveIngestion(ctx context.Context, id string, meta map[string]interface{}, language, confidence *string) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal ingestion metadata: %w", err)
	}
	q := `UPDATE calls SET ingestion_metadata = ?, segment_confidence = ?, updated_at = ?`
	args := []interface{}{string(b), nullable(confidence), time.Now().UTC()}
	if language != nil {
		q += `, language = ?`
		args = append(args, *language)
	}
	q += ` WHERE id = ?`
	args = append(args, id)
	res, err := w.s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("save ingestion for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (w *columnMeta) saveUnderstanding(ctx context.Context, id string, u *types.Understanding) error {
	var payload interface{}
	if u != nil {
		b, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("marshal understanding metadata: %w", err)
		}
		payload = string(b)
	}
	res, err := w.s.db.ExecContext(ctx,
		`UPDATE calls SET understanding_metadata = ?, updated_at = ? WHERE id = ?`,
		payload, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("save understanding for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// notesMeta embeds metadata in the notes column for legacy schemas.
// Language still has a dedicated column in every schema generation.
type notesMeta struct {
	s *Store
}

func (w *notesMeta) saveIngestion(ctx context.Context, id string, meta map[string]interface{}, language, confidence *string) error {
	if language != nil {
		if err := w.s.Update(ctx, id, Patch{Language: language}); err != nil {
			return err
		}
	}
	patch := map[string]interface{}{"ingestion_metadata": meta}
	if confidence != nil {
		patch["segment_confidence"] = *confidence
	}
	return w.s.MergeNotesMeta(ctx, id, patch)
}

func (w *notesMeta) saveUnderstanding(ctx context.Context, id string, u *types.Understanding) error {
	return w.s.MergeNotesMeta(ctx, id, map[string]interface{}{"understanding_metadata": u})
}
