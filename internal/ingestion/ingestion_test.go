package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finecho-go/internal/config"
	"finecho-go/internal/procrun"
	"finecho-go/internal/types"
)

type stubRunner struct {
	res procrun.Result
	err error

	gotName string
	gotArgs []string
	gotDir  string
}

func (s *stubRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) (procrun.Result, error) {
	s.gotName = name
	s.gotArgs = args
	s.gotDir = dir
	return s.res, s.err
}

func newAnalyzer(r procrun.Runner) *Analyzer {
	a := New(&config.Config{
		PythonBin:        "/usr/bin/python3",
		AIDir:            "/opt/ai",
		FFmpegBin:        "ffmpeg",
		IngestionTimeout: 5 * time.Second,
	})
	a.runner = r
	return a
}

func TestAnalyzeParsesPayload(t *testing.T) {
	stub := &stubRunner{res: procrun.Result{Stdout: `{
		"audio_format": "mp3",
		"duration_sec": 124,
		"language": "en",
		"noise_level": "low",
		"call_quality": "Good",
		"speakers_detected": 2,
		"possible_tampering": false,
		"silence_ratio": 0.1
	}`}}

	out, err := newAnalyzer(stub).Analyze(context.Background(), "/tmp/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, "mp3", out.AudioFormat)
	assert.Equal(t, "low", out.NoiseLevel)
	assert.Equal(t, 2, out.SpeakersDetected)
	require.NotNil(t, out.SilenceRatio)
	assert.InDelta(t, 0.1, *out.SilenceRatio, 1e-9)
	// Raw keeps the full payload for persistence.
	assert.Equal(t, "Good", out.Raw["call_quality"])

	assert.Equal(t, "/usr/bin/python3", stub.gotName)
	assert.Equal(t, []string{"audio_ingestion.py", "/tmp/a.mp3"}, stub.gotArgs)
	assert.Equal(t, "/opt/ai", stub.gotDir)
}

func TestAnalyzeNonZeroExit(t *testing.T) {
	stub := &stubRunner{
		res: procrun.Result{Stderr: "ffmpeg not found", ExitCode: 1},
		err: errors.New("exit status 1"),
	}
	_, err := newAnalyzer(stub).Analyze(context.Background(), "/tmp/a.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg not found")
}

func TestAnalyzeEmptyOutput(t *testing.T) {
	stub := &stubRunner{res: procrun.Result{Stdout: "  \n"}}
	_, err := newAnalyzer(stub).Analyze(context.Background(), "/tmp/a.mp3")
	assert.Error(t, err)
}

func TestAnalyzeUnparseableOutput(t *testing.T) {
	stub := &stubRunner{res: procrun.Result{Stdout: "Traceback (most recent call last)"}}
	_, err := newAnalyzer(stub).Analyze(context.Background(), "/tmp/a.mp3")
	assert.Error(t, err)
}

func TestAnalyzeNoPythonConfigured(t *testing.T) {
	a := New(&config.Config{IngestionTimeout: time.Second})
	_, err := a.Analyze(context.Background(), "/tmp/a.mp3")
	assert.Error(t, err)
}

func TestSegmentConfidence(t *testing.T) {
	ratio := func(v float64) *float64 { return &v }
	cases := []struct {
		name string
		in   types.IngestionResult
		want string
	}{
		{"tampering overrides noise", types.IngestionResult{PossibleTampering: true, NoiseLevel: "low"}, types.ConfidenceLow},
		{"long silence", types.IngestionResult{SilenceRatio: ratio(0.7), NoiseLevel: "low"}, types.ConfidenceLow},
		{"silence at boundary keeps noise rule", types.IngestionResult{SilenceRatio: ratio(0.6), NoiseLevel: "low"}, types.ConfidenceHigh},
		{"high noise", types.IngestionResult{NoiseLevel: "high"}, types.ConfidenceMedium},
		{"low noise", types.IngestionResult{NoiseLevel: "low"}, types.ConfidenceHigh},
		{"unknown noise", types.IngestionResult{NoiseLevel: "medium"}, types.ConfidenceMedium},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SegmentConfidence(&tc.in))
		})
	}
}
