package resynth

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/pitchdrop/algorithms/pitch"
	"github.com/RyanBlaney/pitchdrop/contour"
	"github.com/RyanBlaney/pitchdrop/logging"
	"github.com/RyanBlaney/pitchdrop/transcode"
)

// Backend adapts the PSOLA engine to contour.Backend. WAV files are read
// directly; anything else goes through the ffmpeg decoder when one is set.
type Backend struct {
	Track   pitch.TrackConfig
	Decoder *transcode.Decoder
}

// NewBackend creates a backend with the given analysis settings
func NewBackend(track pitch.TrackConfig, decoder *transcode.Decoder) *Backend {
	return &Backend{Track: track, Decoder: decoder}
}

// Load reads the audio at path as a mono Sound
func (b *Backend) Load(ctx context.Context, path string) (contour.Waveform, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "psola_backend",
		"function":  "Load",
		"path":      path,
	})

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		s, err := LoadWAV(path)
		if err == nil {
			return s, nil
		}
		if b.Decoder == nil {
			return nil, err
		}
		logger.Debug("Direct WAV read failed, decoding with ffmpeg", logging.Fields{
			"error": err.Error(),
		})
	}

	if b.Decoder == nil {
		return nil, fmt.Errorf("%w: no decoder for %s", ErrUnsupportedWaveform, path)
	}

	audio, err := b.Decoder.DecodeFile(ctx, path)
	if err != nil {
		return nil, err
	}

	return NewSound(downmix(audio.PCM, audio.Channels), audio.SampleRate), nil
}

// Manipulate analyses w and returns an editable pitch manipulation
func (b *Backend) Manipulate(w contour.Waveform) (contour.Manipulation, error) {
	s, ok := w.(*Sound)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedWaveform, w)
	}

	m, err := NewManipulation(s, b.Track)
	if err != nil {
		return nil, err
	}
	return manipulation{m}, nil
}

// Export writes w to path as 16-bit WAV
func (b *Backend) Export(w contour.Waveform, path string) error {
	s, ok := w.(*Sound)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedWaveform, w)
	}
	return WriteWAV(path, s)
}

// manipulation narrows Resynthesize to the contour.Waveform result
type manipulation struct {
	*Manipulation
}

func (m manipulation) Resynthesize(ctx context.Context) (contour.Waveform, error) {
	s, err := m.Manipulation.Resynthesize(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}
