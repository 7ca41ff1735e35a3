// Package ingestion runs the lightweight pre-transcription audio analysis
// process (audio_ingestion.py) and parses its JSON payload.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"finecho-go/internal/config"
	"finecho-go/internal/logger"
	"finecho-go/internal/procrun"
	"finecho-go/internal/types"
)

const script = "audio_ingestion.py"

// Analyzer invokes the audio ingestion process.
type Analyzer struct {
	pythonBin string
	aiDir     string
	ffmpegBin string
	timeout   time.Duration
	runner    procrun.Runner
}

func New(cfg *config.Config) *Analyzer {
	return &Analyzer{
		pythonBin: cfg.PythonBin,
		aiDir:     cfg.AIDir,
		ffmpegBin: cfg.FFmpegBin,
		timeout:   cfg.IngestionTimeout,
		runner:    procrun.ExecRunner{},
	}
}

// Analyze runs the ingestion process for one audio file. Non-zero exit or
// empty/unparseable stdout is failure; stdout must be a single JSON object.
func (a *Analyzer) Analyze(ctx context.Context, audioPath string) (*types.IngestionResult, error) {
	if a.pythonBin == "" {
		return nil, fmt.Errorf("python binary not configured")
	}
	log := logger.New().WithField("module", "ingestion").WithField("audio_path", audioPath)
	log.Info("starting audio ingestion")

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	env := append(os.Environ(), "FFMPEG_PATH="+a.ffmpegBin)
	res, err := a.runner.Run(ctx, a.aiDir, env, a.pythonBin, script, audioPath)
	if err != nil {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("ingestion process failed (exit=%d): %s", res.ExitCode, msg)
	}

	out := strings.TrimSpace(res.Stdout)
	if out == "" {
		return nil, fmt.Errorf("ingestion produced empty output (expected JSON)")
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		return nil, fmt.Errorf("parse ingestion output: %w", err)
	}
	var result types.IngestionResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		return nil, fmt.Errorf("parse ingestion output: %w", err)
	}
	result.Raw = raw

	log.WithField("noise_level", result.NoiseLevel).
		WithField("language", result.Language).
		Info("ingestion completed")
	return &result, nil
}

// SegmentConfidence derives a coarse transcription trust level from
// ingestion signals. Tampering and long silences dominate noise.
func SegmentConfidence(r *types.IngestionResult) string {
	if r.PossibleTampering || (r.SilenceRatio != nil && *r.SilenceRatio > 0.6) {
		return types.ConfidenceLow
	}
	switch r.NoiseLevel {
	case "high":
		return types.ConfidenceMedium
	case "low":
		return types.ConfidenceHigh
	default:
		return types.ConfidenceMedium
	}
}
