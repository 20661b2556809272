package resynth

import (
	"math"

	"github.com/RyanBlaney/pitchdrop/algorithms/pitch"
)

// Pulses places one mark per glottal cycle through each voiced stretch of the
// track. Each stretch is returned as its own ascending list of times in
// seconds. Marks are snapped to the waveform maximum within a quarter period.
func Pulses(s *Sound, track *pitch.Track) [][]float64 {
	if s == nil || track == nil || len(track.Frames) == 0 || s.SampleRate <= 0 {
		return nil
	}

	var stretches [][]float64
	frames := track.Frames
	half := track.TimeStep / 2

	for i := 0; i < len(frames); {
		if !frames[i].Voiced() {
			i++
			continue
		}
		j := i
		for j+1 < len(frames) && frames[j+1].Voiced() {
			j++
		}

		start := math.Max(0, frames[i].Time-half)
		end := math.Min(s.Duration(), frames[j].Time+half)
		if marks := pulseRun(s, track, frames[i:j+1], start, end); len(marks) > 0 {
			stretches = append(stretches, marks)
		}
		i = j + 1
	}

	return stretches
}

func pulseRun(s *Sound, track *pitch.Track, run []pitch.Frame, start, end float64) []float64 {
	sr := float64(s.SampleRate)
	var marks []float64

	for t := start; t <= end; {
		f0, ok := track.ValueAt(t)
		if !ok || f0 <= 0 {
			f0 = nearestFrequency(run, t)
		}
		period := 1 / f0

		mark := snapToPeak(s.Samples, t, period/4, sr)
		if len(marks) > 0 && mark <= marks[len(marks)-1] {
			mark = t
		}
		if mark > end {
			break
		}
		marks = append(marks, mark)
		t = mark + period
	}

	return marks
}

func nearestFrequency(run []pitch.Frame, t float64) float64 {
	best := run[0]
	for _, f := range run[1:] {
		if math.Abs(f.Time-t) < math.Abs(best.Time-t) {
			best = f
		}
	}
	return best.Frequency
}

// snapToPeak returns the time of the largest sample within radius seconds of t
func snapToPeak(samples []float64, t, radius, sr float64) float64 {
	center := int(math.Round(t * sr))
	r := int(radius * sr)

	best := center
	for i := max(0, center-r); i <= min(len(samples)-1, center+r); i++ {
		if best < 0 || best >= len(samples) || samples[i] > samples[best] {
			best = i
		}
	}
	if best < 0 || best >= len(samples) {
		return t
	}
	return float64(best) / sr
}
