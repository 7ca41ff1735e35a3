// Package duration probes audio duration with ffprobe.
package duration

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"finecho-go/internal/config"
	"finecho-go/internal/procrun"
)

// Prober wraps the ffprobe binary.
type Prober struct {
	ffprobeBin string
	runner     procrun.Runner
}

func New(cfg *config.Config) *Prober {
	return &Prober{ffprobeBin: cfg.FFprobeBin, runner: procrun.ExecRunner{}}
}

// Seconds returns the audio duration rounded to whole seconds.
func (p *Prober) Seconds(ctx context.Context, audioPath string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	}
	res, err := p.runner.Run(ctx, "", nil, p.ffprobeBin, args...)
	if err != nil {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = err.Error()
		}
		return 0, fmt.Errorf("ffprobe failed (exit=%d): %s", res.ExitCode, msg)
	}

	raw := strings.TrimSpace(res.Stdout)
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", raw, err)
	}
	n := int(math.Round(seconds))
	if n < 0 {
		n = 0
	}
	return n, nil
}
