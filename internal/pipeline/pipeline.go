// Package pipeline drives the full processing run for one uploaded call:
// ingestion, transcription, summarization/compliance, and understanding
// extraction, persisting after each stage so a concurrent reader always
// sees the latest completed stage. Run never returns an error to its
// trigger; failures land in the persisted record and the logs.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"finecho-go/internal/compliance"
	"finecho-go/internal/logger"
	"finecho-go/internal/metrics"
	"finecho-go/internal/store"
	"finecho-go/internal/summary"
	"finecho-go/internal/types"
	"finecho-go/internal/understanding"
)

// persistTimeout bounds each record write. Writes are detached from the
// run context so a timed-out run can still record its terminal state.
const persistTimeout = 10 * time.Second

// CallStore is the slice of the record store the pipeline mutates.
type CallStore interface {
	Update(ctx context.Context, id string, p store.Patch) error
	SaveIngestion(ctx context.Context, id string, meta map[string]interface{}, language, confidence *string) error
	SaveUnderstanding(ctx context.Context, id string, u *types.Understanding) error
}

// Ingester is the audio ingestion collaborator.
type Ingester interface {
	Analyze(ctx context.Context, audioPath string) (*types.IngestionResult, error)
}

// Transcriber is the transcription collaborator.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Analyzer is the remote semantic analysis collaborator.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (*types.SemanticAnalysis, error)
}

// SegmentConfidenceFunc derives a confidence level from ingestion output.
type SegmentConfidenceFunc func(*types.IngestionResult) string

// Runner executes pipeline runs.
type Runner struct {
	store       CallStore
	ingester    Ingester
	transcriber Transcriber
	analyzer    Analyzer
	confidence  SegmentConfidenceFunc
	log         *logger.Logger
}

func New(s CallStore, ing Ingester, tr Transcriber, an Analyzer, conf SegmentConfidenceFunc) *Runner {
	return &Runner{
		store:       s,
		ingester:    ing,
		transcriber: tr,
		analyzer:    an,
		confidence:  conf,
		log:         logger.New(),
	}
}

// Run processes one call. The audio file at audioPath is deleted when the
// run ends, whatever the outcome.
func (r *Runner) Run(ctx context.Context, callID, audioPath string) {
	log := r.log.WithCall(callID)

	defer func() {
		if audioPath != "" {
			if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
				log.WithField("error", err.Error()).Debug("audio cleanup failed")
			}
		}
	}()
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", fmt.Sprint(rec)).Error("pipeline run panicked")
			r.persist(callID, store.Patch{
				Status:  ptr(types.StatusFailedSummary),
				Summary: ptr(fmt.Sprintf("Processing failed: %v", rec)),
			}, log)
			metrics.RunsCompleted.WithLabelValues(types.StatusFailedSummary).Inc()
		}
	}()

	r.run(ctx, callID, audioPath, log)
}

func (r *Runner) run(ctx context.Context, callID, audioPath string, log *logrus.Entry) {
	// Stage 1: ingestion (best-effort, never fatal).
	languageSet := r.stageIngestion(ctx, callID, audioPath, log)

	// Stage 2: transcription (fatal on failure).
	transcript, ok := r.stageTranscription(ctx, callID, audioPath, log)
	if !ok {
		metrics.RunsCompleted.WithLabelValues(types.StatusFailedTranscription).Inc()
		return
	}

	// Stage 3: summarization + compliance, remote-first.
	r.stageSummary(ctx, callID, transcript, languageSet, log)

	// Stage 4: understanding extraction (best-effort).
	r.stageUnderstanding(callID, transcript, log)

	metrics.RunsCompleted.WithLabelValues(types.StatusCompleted).Inc()
	log.Info("pipeline run completed")
}

// stageIngestion reports whether it persisted a detected language.
func (r *Runner) stageIngestion(ctx context.Context, callID, audioPath string, log *logrus.Entry) bool {
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues("ingestion").Observe(time.Since(start).Seconds()) }()

	ing, err := r.ingester.Analyze(ctx, audioPath)
	if err != nil {
		metrics.StageOutcomes.WithLabelValues("ingestion", "failed").Inc()
		log.WithField("error", err.Error()).Error("audio ingestion failed")
		meta := map[string]interface{}{"error": "Ingestion failed: " + err.Error()}
		if perr := r.saveIngestion(callID, meta, nil, nil); perr != nil {
			log.WithField("error", perr.Error()).Error("failed to persist ingestion error marker")
		}
		return false
	}

	conf := r.confidence(ing)
	var language *string
	if ing.Language != "" {
		language = &ing.Language
	}
	if perr := r.saveIngestion(callID, ing.Raw, language, &conf); perr != nil {
		log.WithField("error", perr.Error()).Error("failed to persist ingestion metadata")
		return false
	}
	metrics.StageOutcomes.WithLabelValues("ingestion", "ok").Inc()
	log.WithField("segment_confidence", conf).Info("ingestion metadata stored")
	return language != nil
}

func (r *Runner) stageTranscription(ctx context.Context, callID, audioPath string, log *logrus.Entry) (string, bool) {
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues("transcription").Observe(time.Since(start).Seconds()) }()

	r.persist(callID, store.Patch{Status: ptr(types.StatusTranscribing)}, log)

	transcript, err := r.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		metrics.StageOutcomes.WithLabelValues("transcription", "failed").Inc()
		log.WithField("error", err.Error()).Error("transcription failed")
		r.persist(callID, store.Patch{
			Status:  ptr(types.StatusFailedTranscription),
			Summary: ptr("Transcription failed: " + err.Error()),
		}, log)
		return "", false
	}

	r.persist(callID, store.Patch{
		Transcript: &transcript,
		Status:     ptr(types.StatusTranscribed),
	}, log)
	metrics.StageOutcomes.WithLabelValues("transcription", "ok").Inc()
	return transcript, true
}

func (r *Runner) stageSummary(ctx context.Context, callID, transcript string, languageSet bool, log *logrus.Entry) {
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues("summary").Observe(time.Since(start).Seconds()) }()

	var analysis *types.SemanticAnalysis
	remote, err := r.analyzer.Analyze(ctx, transcript)
	if err == nil {
		analysis = remote
		metrics.StageOutcomes.WithLabelValues("summary", "ok").Inc()
	} else {
		log.WithField("error", err.Error()).Warn("semantic analysis failed, falling back to heuristics")
		basic := summary.Extract(transcript)
		comp := compliance.Analyze(transcript)
		basic.ComplianceFlags = comp.Flags
		basic.ComplianceStatus = comp.Status
		analysis = &basic
		metrics.StageOutcomes.WithLabelValues("summary", "fallback").Inc()
	}

	patch := store.Patch{
		Summary:          &analysis.Summary,
		Goals:            &analysis.Goals,
		ComplianceStatus: &analysis.ComplianceStatus,
		ComplianceFlags:  &analysis.ComplianceFlags,
		Status:           ptr(types.StatusCompleted),
	}
	// Ingestion's detected language wins; only fill the gap.
	if !languageSet && analysis.Language != "" {
		patch.Language = &analysis.Language
	}
	// Non-fatal: the run already produced a usable result.
	r.persist(callID, patch, log)
}

func (r *Runner) stageUnderstanding(callID, transcript string, log *logrus.Entry) {
	start := time.Now()
	defer func() { metrics.StageDuration.WithLabelValues("understanding").Observe(time.Since(start).Seconds()) }()

	u := extractUnderstanding(transcript, log)
	if u == nil {
		metrics.StageOutcomes.WithLabelValues("understanding", "failed").Inc()
	} else {
		metrics.StageOutcomes.WithLabelValues("understanding", "ok").Inc()
	}

	pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.store.SaveUnderstanding(pctx, callID, u); err != nil {
		log.WithField("error", err.Error()).Error("failed to persist understanding metadata")
	}
}

// extractUnderstanding shields the run from extractor panics; a panic
// yields a nil result, logged and non-fatal.
func extractUnderstanding(transcript string, log *logrus.Entry) (u *types.Understanding) {
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", fmt.Sprint(rec)).Error("understanding extraction panicked")
			u = nil
		}
	}()
	res := understanding.Analyze(transcript)
	return &res
}

func (r *Runner) saveIngestion(callID string, meta map[string]interface{}, language, confidence *string) error {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	return r.store.SaveIngestion(ctx, callID, meta, language, confidence)
}

// persist writes a patch on a detached context and logs failures instead
// of propagating them.
func (r *Runner) persist(callID string, p store.Patch, log *logrus.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.store.Update(ctx, callID, p); err != nil {
		log.WithField("error", err.Error()).Error("failed to persist call update")
	}
}

func ptr(s string) *string { return &s }
