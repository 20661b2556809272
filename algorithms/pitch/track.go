package pitch

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/pitchdrop/algorithms/filters"
	"github.com/RyanBlaney/pitchdrop/logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TrackConfig holds pitch tracking parameters
type TrackConfig struct {
	TimeStep         float64 `json:"time_step" yaml:"time_step"`                 // seconds between frames
	Floor            float64 `json:"floor" yaml:"floor"`                         // lowest F0 considered (Hz)
	Ceiling          float64 `json:"ceiling" yaml:"ceiling"`                     // highest F0 considered (Hz)
	Threshold        float64 `json:"threshold" yaml:"threshold"`                 // YIN absolute threshold
	SilenceThreshold float64 `json:"silence_threshold" yaml:"silence_threshold"` // frame RMS relative to loudest frame
}

// DefaultTrackConfig returns speech-oriented defaults
func DefaultTrackConfig() TrackConfig {
	return TrackConfig{
		TimeStep:         0.01,
		Floor:            75,
		Ceiling:          600,
		Threshold:        0.15,
		SilenceThreshold: 0.03,
	}
}

// Frame is one pitch estimate. Frequency is 0 when the frame is unvoiced.
type Frame struct {
	Time        float64 `json:"time"`
	Frequency   float64 `json:"frequency"`
	Periodicity float64 `json:"periodicity"`
}

// Voiced reports whether the frame carries a pitch estimate
func (f Frame) Voiced() bool {
	return f.Frequency > 0
}

// Track is a pitch contour sampled every TimeStep seconds starting at 0
type Track struct {
	Frames   []Frame `json:"frames"`
	TimeStep float64 `json:"time_step"`
}

// Analyze tracks the fundamental frequency of mono pcm. The signal is DC
// blocked first. Frames are centered at multiples of cfg.TimeStep; samples
// outside the signal read as silence.
func Analyze(pcm []float64, sampleRate int, cfg TrackConfig) (*Track, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "pitch_tracker",
		"function":  "Analyze",
	})

	if cfg.TimeStep <= 0 {
		return nil, fmt.Errorf("time step must be positive: %v", cfg.TimeStep)
	}

	yin, err := NewYIN(sampleRate, cfg.Floor, cfg.Ceiling, cfg.Threshold)
	if err != nil {
		return nil, err
	}

	pcm = filters.NewDCBlocker(sampleRate, filters.DefaultDCCutoff).Apply(pcm)

	duration := float64(len(pcm)) / float64(sampleRate)
	numFrames := int(math.Floor(duration/cfg.TimeStep)) + 1
	if len(pcm) == 0 {
		numFrames = 0
	}

	size := yin.FrameSize()
	half := size / 2
	buf := make([]float64, size)

	frames := make([]Frame, numFrames)
	rms := make([]float64, numFrames)
	for i := range frames {
		center := int(math.Round(float64(i) * cfg.TimeStep * float64(sampleRate)))
		fillFrame(buf, pcm, center-half)
		rms[i] = math.Sqrt(floats.Dot(buf, buf) / float64(size))
		frames[i].Time = float64(i) * cfg.TimeStep

		f0, periodicity, err := yin.Estimate(buf)
		if err != nil {
			return nil, err
		}
		frames[i].Frequency = f0
		frames[i].Periodicity = periodicity
	}

	if numFrames > 0 {
		gate := floats.Max(rms) * cfg.SilenceThreshold
		for i := range frames {
			f := &frames[i]
			if rms[i] < gate || f.Frequency < cfg.Floor || f.Frequency > cfg.Ceiling {
				f.Frequency = 0
			}
		}
	}

	track := &Track{Frames: frames, TimeStep: cfg.TimeStep}

	logger.Debug("Pitch track computed", logging.Fields{
		"frames":         numFrames,
		"voiced_percent": math.Round(track.VoicedFraction() * 100),
		"mean_f0":        math.Round(track.MeanFrequency()),
	})

	return track, nil
}

// fillFrame copies pcm[start:start+len(buf)] into buf, zero filling outside pcm
func fillFrame(buf, pcm []float64, start int) {
	for i := range buf {
		idx := start + i
		if idx < 0 || idx >= len(pcm) {
			buf[i] = 0
			continue
		}
		buf[i] = pcm[idx]
	}
}

// Duration is the time of the last frame
func (t *Track) Duration() float64 {
	if len(t.Frames) == 0 {
		return 0
	}
	return t.Frames[len(t.Frames)-1].Time
}

// ValueAt returns the pitch at time sec using linear interpolation between
// neighbouring voiced frames. When only one neighbour is voiced its value is
// used if it is the nearer frame. The result is undefined (false) in
// unvoiced regions and beyond half a step outside the analysed range.
func (t *Track) ValueAt(sec float64) (float64, bool) {
	n := len(t.Frames)
	if n == 0 || t.TimeStep <= 0 {
		return 0, false
	}

	pos := sec / t.TimeStep
	if pos < -0.5 || pos > float64(n-1)+0.5 {
		return 0, false
	}
	if pos <= 0 {
		return t.frameValue(0)
	}
	if pos >= float64(n-1) {
		return t.frameValue(n - 1)
	}

	i := int(math.Floor(pos))
	frac := pos - float64(i)
	left, right := t.Frames[i], t.Frames[i+1]

	switch {
	case left.Voiced() && right.Voiced():
		return left.Frequency + frac*(right.Frequency-left.Frequency), true
	case left.Voiced() && frac < 0.5:
		return left.Frequency, true
	case right.Voiced() && frac >= 0.5:
		return right.Frequency, true
	default:
		return 0, false
	}
}

func (t *Track) frameValue(i int) (float64, bool) {
	f := t.Frames[i]
	return f.Frequency, f.Voiced()
}

// VoicedFraction is the share of frames with a pitch estimate
func (t *Track) VoicedFraction() float64 {
	if len(t.Frames) == 0 {
		return 0
	}
	voiced := 0
	for _, f := range t.Frames {
		if f.Voiced() {
			voiced++
		}
	}
	return float64(voiced) / float64(len(t.Frames))
}

// MeanFrequency is the mean F0 of voiced frames, 0 if none are voiced
func (t *Track) MeanFrequency() float64 {
	voiced := make([]float64, 0, len(t.Frames))
	for _, f := range t.Frames {
		if f.Voiced() {
			voiced = append(voiced, f.Frequency)
		}
	}
	if len(voiced) == 0 {
		return 0
	}
	return stat.Mean(voiced, nil)
}
