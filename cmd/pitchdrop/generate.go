package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/RyanBlaney/pitchdrop/markers"
	"github.com/RyanBlaney/pitchdrop/script"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Generate a script with pitch-drop phrases",
	Long:  "Ask the script model for a short-form script and write it with its pitch-drop markers to the run directory.",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerateCommand,
}

var (
	generateDir   string
	generateStyle string
)

func init() {
	generateCmd.Flags().StringVarP(&generateDir, "dir", "d", "output", "Run directory")
	generateCmd.Flags().StringVar(&generateStyle, "style", "", "Extra style notes for the writer")
}

func runGenerateCommand(cmd *cobra.Command, args []string) error {
	gen, err := script.NewGenerator(cfg.ScriptConfig())
	if err != nil {
		return err
	}

	s, err := gen.Generate(cmd.Context(), script.Request{Topic: args[0], StyleNotes: generateStyle})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(generateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}

	scriptPath := filepath.Join(generateDir, cfg.Files.Script)
	if err := script.Save(scriptPath, s); err != nil {
		return fmt.Errorf("failed to save script: %w", err)
	}
	ms := s.Markers()
	if err := markers.Save(filepath.Join(generateDir, cfg.Files.Markers), ms); err != nil {
		return fmt.Errorf("failed to save markers: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n\n%s\n\n", s.Title, s.FullScript)
	fmt.Fprintf(out, "Pitch drops: %d (%s)\n", len(ms), scriptPath)
	for _, missing := range s.MissingPhrases() {
		fmt.Fprintf(out, "  warning: %q does not appear in the script\n", missing)
	}
	return nil
}
