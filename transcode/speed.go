package transcode

import (
	"context"
	"fmt"
	"math"

	"github.com/RyanBlaney/pitchdrop/logging"
)

// SpeedFilter returns the ffmpeg filter that plays audio recorded at
// inputRate back speed times faster, raising pitch with tempo, and resamples
// the result to outputRate.
func SpeedFilter(inputRate, outputRate int, speed float64) string {
	target := int(float64(inputRate) * speed)
	return fmt.Sprintf("asetrate=%d,aresample=%d", target, outputRate)
}

// SpeedUp writes a copy of input to output played back speed times faster.
// Pitch rises together with tempo; timestamps must be divided by speed.
func (d *Decoder) SpeedUp(ctx context.Context, input, output string, speed float64) error {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "SpeedUp",
		"input":     input,
		"speed":     speed,
	})

	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return fmt.Errorf("speed must be a positive number: %v", speed)
	}

	inputRate := d.config.TargetSampleRate
	if metadata, err := d.Probe(ctx, input); err == nil {
		inputRate = metadata.SampleRate
	} else {
		logger.Warn("Could not probe input, assuming target sample rate", logging.Fields{
			"error":       err.Error(),
			"sample_rate": inputRate,
		})
	}

	args := []string{
		"-y",
		"-i", input,
		"-af", SpeedFilter(inputRate, d.config.TargetSampleRate, speed),
		"-v", "error",
		output,
	}

	if _, err := d.run(ctx, d.config.FFmpegPath, args, logger); err != nil {
		return fmt.Errorf("ffmpeg speed-up failed: %w", err)
	}

	logger.Info("Speed curve applied", logging.Fields{"output": output})
	return nil
}
