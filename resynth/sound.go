package resynth

// Sound is mono PCM audio with samples nominally in [-1, 1]
type Sound struct {
	Samples    []float64
	SampleRate int
}

// NewSound wraps samples recorded at sampleRate
func NewSound(samples []float64, sampleRate int) *Sound {
	return &Sound{Samples: samples, SampleRate: sampleRate}
}

// Duration is the length of the sound in seconds
func (s *Sound) Duration() float64 {
	if s == nil || s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Clone returns a deep copy of s
func (s *Sound) Clone() *Sound {
	samples := make([]float64, len(s.Samples))
	copy(samples, s.Samples)
	return &Sound{Samples: samples, SampleRate: s.SampleRate}
}

// downmix averages interleaved channels into mono
func downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}

	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		for ch := range channels {
			sum += interleaved[i*channels+ch]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}
