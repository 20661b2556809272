package main

import (
	"fmt"

	"github.com/RyanBlaney/pitchdrop/contour"
	"github.com/RyanBlaney/pitchdrop/cues"
	"github.com/RyanBlaney/pitchdrop/resynth"
	"github.com/RyanBlaney/pitchdrop/transcode"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply <voice> <pitch_cues.json> <output.wav>",
	Short: "Reshape the voice pitch around each cue",
	Long:  "Analyse the voice, add the cue contours to its pitch and resynthesize it to a WAV file.",
	Args:  cobra.ExactArgs(3),
	RunE:  runApplyCommand,
}

func runApplyCommand(cmd *cobra.Command, args []string) error {
	voice, cuesPath, output := args[0], args[1], args[2]

	loaded, err := cues.Load(cuesPath)
	if err != nil {
		return fmt.Errorf("failed to load cues: %w", err)
	}
	cs := cues.Validate(loaded)
	if dropped := len(loaded) - len(cs); dropped > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Skipped %d malformed cues\n", dropped)
	}

	backend := resynth.NewBackend(cfg.Pitch, transcode.NewDecoder(cfg.DecoderConfig()))
	stats, err := contour.Apply(cmd.Context(), backend, voice, output, cs, cfg.Contour)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Applied %d cues (%d control points) to %s\n", stats.Cues, stats.Points, output)
	return nil
}
