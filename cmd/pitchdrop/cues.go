package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/RyanBlaney/pitchdrop/contour"
	"github.com/RyanBlaney/pitchdrop/cues"
	"github.com/RyanBlaney/pitchdrop/markers"
	"github.com/RyanBlaney/pitchdrop/transcript"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse <script-file>",
	Short: "Extract inline pitch-drop markup from a script",
	Long:  "Print the script with *phrase*(N) markup removed and write the markers it declares.",
	Args:  cobra.ExactArgs(1),
	RunE:  runParseCommand,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <markers.json> <word_timestamps.json>",
	Short: "Bind markers to transcript timing",
	Long:  "Find each marker phrase in the word timestamps and print the resulting cues.",
	Args:  cobra.ExactArgs(2),
	RunE:  runResolveCommand,
}

var contourCmd = &cobra.Command{
	Use:   "contour <pitch_cues.json>",
	Short: "Print the pitch envelope around each cue",
	Long:  "Sample the depth and frequency factor of every cue region for inspection.",
	Args:  cobra.ExactArgs(1),
	RunE:  runContourCommand,
}

var (
	markersOut  string
	cuesOut     string
	contourStep float64
	duration    float64
)

func init() {
	parseCmd.Flags().StringVarP(&markersOut, "output", "o", "pitch_markers.json", "Markers output file")
	resolveCmd.Flags().StringVarP(&cuesOut, "output", "o", "", "Cues output file (stdout when empty)")
	contourCmd.Flags().Float64Var(&contourStep, "step", 0.05, "Sampling step in seconds")
	contourCmd.Flags().Float64Var(&duration, "duration", 0, "Audio duration in seconds (last cue end plus tail when 0)")
}

func runParseCommand(cmd *cobra.Command, args []string) error {
	text, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	clean, found := markers.ParseMarkup(string(text))
	fmt.Fprintln(cmd.OutOrStdout(), clean)

	if err := markers.Save(markersOut, found); err != nil {
		return fmt.Errorf("failed to save markers: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d markers to %s\n", len(found), markersOut)
	return nil
}

func runResolveCommand(cmd *cobra.Command, args []string) error {
	ms, err := markers.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load markers: %w", err)
	}
	words, err := transcript.Load(args[1])
	if err != nil {
		return fmt.Errorf("failed to load word timestamps: %w", err)
	}

	resolved := cues.Resolve(ms, words)
	fmt.Fprintf(cmd.ErrOrStderr(), "Resolved %d of %d markers\n", len(resolved), len(ms))

	if cuesOut != "" {
		return cues.Save(cuesOut, resolved)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resolved)
}

func runContourCommand(cmd *cobra.Command, args []string) error {
	cs, err := cues.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load cues: %w", err)
	}
	if contourStep <= 0 {
		return fmt.Errorf("step must be positive, got %v", contourStep)
	}

	p := cfg.Contour
	total := duration
	if total <= 0 {
		for _, c := range cs {
			total = max(total, c.End+p.TailOut)
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for i, c := range cs {
		r := p.Region(c, total)
		fmt.Fprintf(w, "cue %d\t[%.3f-%.3f]\t%d st\ttarget x%.4f\n", i, c.Start, c.End, c.Semitones, contour.TargetFactor(c.Semitones))
		for _, t := range r.Times(contourStep) {
			fmt.Fprintf(w, "\t%.3f\tdepth %.3f\tfactor %.4f\n", t, r.Depth(t), r.Factor(t))
		}
	}
	return w.Flush()
}
