// Package ffmpeg implements audio.Enhancer by shelling out to the ffmpeg
// binary. Each level maps to a fixed audio filter chain; the output is
// always 16 kHz mono 16-bit PCM WAV, the layout the whisper backend expects.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/lexivox/lexivox/pkg/provider/audio"
)

// filterChains maps each enhancement level to its ffmpeg -af argument.
// The chains mirror a conventional speech cleanup progression: normalise,
// strip rumble, then increasingly strong band limiting and gating.
var filterChains = map[audio.Level]string{
	audio.LevelLight:      "loudnorm=I=-16:TP=-1.5:LRA=11,highpass=f=80",
	audio.LevelMedium:     "loudnorm=I=-16:TP=-1.5:LRA=11,highpass=f=80,lowpass=f=7000,afftdn=nr=12,acompressor=threshold=-21dB:ratio=3",
	audio.LevelAggressive: "loudnorm=I=-16:TP=-1.5:LRA=7,highpass=f=100,lowpass=f=6500,afftdn=nr=24,agate=threshold=-45dB,acompressor=threshold=-18dB:ratio=4",
}

// Compile-time assertion that Enhancer satisfies audio.Enhancer.
var _ audio.Enhancer = (*Enhancer)(nil)

// Enhancer conditions audio files using the ffmpeg binary.
type Enhancer struct {
	binary  string
	workDir string
}

// Option is a functional option for configuring an [Enhancer].
type Option func(*Enhancer)

// WithBinary overrides the ffmpeg binary path. Defaults to "ffmpeg"
// resolved via PATH.
func WithBinary(path string) Option {
	return func(e *Enhancer) {
		if path != "" {
			e.binary = path
		}
	}
}

// WithWorkDir sets the directory for enhanced output files. Defaults to the
// system temp directory.
func WithWorkDir(dir string) Option {
	return func(e *Enhancer) {
		if dir != "" {
			e.workDir = dir
		}
	}
}

// New creates an ffmpeg-backed [audio.Enhancer]. It verifies that the binary
// is resolvable so a missing ffmpeg install fails at startup rather than on
// the first job.
func New(opts ...Option) (*Enhancer, error) {
	e := &Enhancer{
		binary:  "ffmpeg",
		workDir: os.TempDir(),
	}
	for _, o := range opts {
		o(e)
	}
	if _, err := exec.LookPath(e.binary); err != nil {
		return nil, fmt.Errorf("ffmpeg: binary %q not found: %w", e.binary, err)
	}
	return e, nil
}

// Enhance implements audio.Enhancer. The output file is created in the work
// directory and must be removed by the caller.
func (e *Enhancer) Enhance(ctx context.Context, inputPath string, level audio.Level) (string, error) {
	if level == audio.LevelNone {
		return inputPath, nil
	}
	chain, ok := filterChains[level]
	if !ok {
		return "", fmt.Errorf("ffmpeg: unknown enhancement level %q", level)
	}
	if inputPath == "" {
		return "", errors.New("ffmpeg: inputPath must not be empty")
	}

	outPath := filepath.Join(e.workDir, fmt.Sprintf("enhanced_%s.wav", uuid.NewString()))

	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", inputPath,
		"-af", chain,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		outPath,
	}

	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	slog.Debug("running ffmpeg enhancement", "input", inputPath, "level", level)
	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("ffmpeg: enhance %q (level %s): %w: %s",
			inputPath, level, err, lastLine(stderr.Bytes()))
	}
	return outPath, nil
}

// lastLine returns the final non-empty line of ffmpeg's stderr, which is
// where it reports the actual failure reason.
func lastLine(out []byte) string {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	return string(bytes.TrimSpace(lines[len(lines)-1]))
}
