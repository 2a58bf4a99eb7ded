// Package audio plays an optional chime when a popup appears.
package audio

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Player plays one sound file for the lifetime of a popup process.
type Player struct {
	logger      *slog.Logger
	initialized bool
	sampleRate  beep.SampleRate
}

func NewPlayer(logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{logger: logger, sampleRate: beep.SampleRate(44100)}
}

// Play decodes path and starts playback at the given volume (0 to 100).
// Playback is asynchronous; the popup outlives any reasonable chime.
// Supports WAV, OGG, and MP3 formats.
func (p *Player) Play(path string, volume int) error {
	if path == "" {
		return nil
	}
	path = expandHome(path)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open sound file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var streamer beep.StreamSeekCloser
	var format beep.Format

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	default:
		return fmt.Errorf("unsupported audio format: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to decode sound: %w", err)
	}
	defer func() { _ = streamer.Close() }()

	// Buffer the whole file so the descriptor can be released now.
	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)

	if err := p.ensureInitialized(format.SampleRate); err != nil {
		return err
	}

	var out beep.Streamer = buffer.Streamer(0, buffer.Len())
	if format.SampleRate != p.sampleRate {
		out = beep.Resample(4, format.SampleRate, p.sampleRate, out)
	}
	if volume < 100 {
		out = &effects.Volume{
			Streamer: out,
			Base:     2,
			Volume:   volumeToDecibels(float64(volume) / 100),
			Silent:   volume <= 0,
		}
	}

	speaker.Play(out)
	p.logger.Debug("playing sound", "path", path, "volume", volume)
	return nil
}

// Close releases the speaker. Safe to call without a prior Play.
func (p *Player) Close() {
	if p.initialized {
		speaker.Close()
		p.initialized = false
	}
}

func (p *Player) ensureInitialized(sampleRate beep.SampleRate) error {
	if p.initialized {
		return nil
	}
	bufferSize := sampleRate.N(100 * time.Millisecond)
	if err := speaker.Init(sampleRate, bufferSize); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	p.sampleRate = sampleRate
	p.initialized = true
	p.logger.Debug("speaker initialized", "sample_rate", sampleRate)
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// volumeToDecibels converts a linear volume (0 to 1) to decibels.
func volumeToDecibels(volume float64) float64 {
	if volume <= 0 {
		return -100
	}
	return 20 * math.Log10(volume)
}
