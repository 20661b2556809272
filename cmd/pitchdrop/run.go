package main

import (
	"fmt"
	"os"

	"github.com/RyanBlaney/pitchdrop/cues"
	"github.com/RyanBlaney/pitchdrop/pipeline"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pitch-drop pipeline over a directory",
	Long: `Speed up the voice, resolve cues (manual, script markers, then the legacy
detector), reshape the pitch and place emphasis effects. Inputs are read from and
outputs written to the run directory.`,
	Args: cobra.NoArgs,
	RunE: runRunCommand,
}

var (
	runDir        string
	runScript     string
	runSpeed      float64
	runManualCues string
	runDetector   bool
)

func init() {
	runCmd.Flags().StringVarP(&runDir, "dir", "d", "output", "Run directory")
	runCmd.Flags().StringVarP(&runScript, "script", "s", "", "Script file with inline *phrase*(N) markup")
	runCmd.Flags().Float64Var(&runSpeed, "speed", 0, "Speed factor (config value when 0)")
	runCmd.Flags().StringVar(&runManualCues, "cues", "", "Manual cues file that overrides every other tier")
	runCmd.Flags().BoolVar(&runDetector, "detect", false, "Enable the legacy detector tier")
}

func runRunCommand(cmd *cobra.Command, args []string) error {
	opts := pipeline.Options{Dir: runDir, Speed: runSpeed}

	if runScript != "" {
		text, err := os.ReadFile(runScript)
		if err != nil {
			return fmt.Errorf("failed to read script: %w", err)
		}
		opts.ScriptText = string(text)
	}
	if runManualCues != "" {
		manual, err := cues.Load(runManualCues)
		if err != nil {
			return fmt.Errorf("failed to load manual cues: %w", err)
		}
		opts.Cues = manual
	}

	c := cfg
	if runDetector {
		c.Detector.Enabled = true
	}

	runner, err := pipeline.NewRunner(c)
	if err != nil {
		return err
	}

	m, err := runner.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", m.RunID)
	fmt.Fprintf(out, "  Speed:      %.2fx (%.1fs)\n", m.Speed, m.Duration)
	fmt.Fprintf(out, "  Tier:       %s\n", tierLabel(m.Tier))
	fmt.Fprintf(out, "  Cues:       %d (%d control points)\n", m.Cues, m.Points)
	fmt.Fprintf(out, "  SFX:        %d placements\n", m.Placements)
	fmt.Fprintf(out, "  Audio:      %s\n", m.Output)
	return nil
}

func tierLabel(tier string) string {
	if tier == "" {
		return "none"
	}
	return tier
}
