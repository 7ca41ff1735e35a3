// Package transcribe runs Whisper transcription via the transcribe.py
// process. The transcript arrives on stdout, or in an output file when one
// is requested.
package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"finecho-go/internal/config"
	"finecho-go/internal/logger"
	"finecho-go/internal/procrun"
)

const script = "transcribe.py"

// Transcriber invokes the transcription process.
type Transcriber struct {
	pythonBin string
	aiDir     string
	timeout   time.Duration
	runner    procrun.Runner
}

func New(cfg *config.Config) *Transcriber {
	return &Transcriber{
		pythonBin: cfg.PythonBin,
		aiDir:     cfg.AIDir,
		timeout:   cfg.TranscribeTimeout,
		runner:    procrun.ExecRunner{},
	}
}

// Transcribe returns the transcript text for an audio file. Non-zero exit
// or an empty transcript is failure.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return t.run(ctx, audioPath, "")
}

// TranscribeToFile writes the transcript to outputPath and also returns it.
func (t *Transcriber) TranscribeToFile(ctx context.Context, audioPath, outputPath string) (string, error) {
	return t.run(ctx, audioPath, outputPath)
}

func (t *Transcriber) run(ctx context.Context, audioPath, outputPath string) (string, error) {
	if t.pythonBin == "" {
		return "", fmt.Errorf("python binary not configured")
	}
	log := logger.New().WithField("module", "transcribe").WithField("audio_path", audioPath)
	log.Info("starting transcription")
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	args := []string{script, audioPath}
	if outputPath != "" {
		args = append(args, outputPath)
	}
	res, err := t.runner.Run(ctx, t.aiDir, nil, t.pythonBin, args...)
	if err != nil {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("transcription process failed (exit=%d): %s", res.ExitCode, msg)
	}

	var text string
	if outputPath != "" {
		data, err := os.ReadFile(outputPath)
		if err != nil {
			return "", fmt.Errorf("read transcript file: %w", err)
		}
		text = strings.TrimSpace(string(data))
	} else {
		text = strings.TrimSpace(res.Stdout)
	}
	if text == "" {
		return "", fmt.Errorf("transcription produced empty transcript")
	}

	log.WithField("duration_ms", time.Since(start).Milliseconds()).
		WithField("chars", len(text)).
		Info("transcription completed")
	return text, nil
}
