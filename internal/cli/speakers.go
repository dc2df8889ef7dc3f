package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/scribeflow/scribeflow/internal/client"
	"github.com/spf13/cobra"
)

var speakersCmd = &cobra.Command{
	Use:   "speakers <job-id>",
	Short: "Manage speaker names of a transcript",
	Long: `List, rename, and apply AI-suggested names for the speakers of a
completed transcription.

Subcommands:
  list         List speakers (default)
  rename       Rename speakers
  suggestions  Show AI name suggestions
  apply        Apply the suggestion for one speaker
  apply-all    Apply all pending suggestions

Examples:
  scribeflow speakers ab12cd34
  scribeflow speakers rename ab12cd34 SPEAKER_00=Ana SPEAKER_01=Piotr
  scribeflow speakers suggestions ab12cd34
  scribeflow speakers apply ab12cd34 SPEAKER_00
  scribeflow speakers apply-all ab12cd34`,
	Args: cobra.ExactArgs(1),
	RunE: runSpeakersList,
}

var speakersListCmd = &cobra.Command{
	Use:   "list <job-id>",
	Short: "List speakers",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpeakersList,
}

var speakersRenameCmd = &cobra.Command{
	Use:   "rename <job-id> <speaker>=<name>...",
	Short: "Rename speakers",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSpeakersRename,
}

var speakersSuggestionsCmd = &cobra.Command{
	Use:   "suggestions <job-id>",
	Short: "Show AI name suggestions",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpeakersSuggestions,
}

var speakersApplyCmd = &cobra.Command{
	Use:   "apply <job-id> <speaker>",
	Short: "Apply the suggestion for one speaker",
	Args:  cobra.ExactArgs(2),
	RunE:  runSpeakersApply,
}

var speakersApplyAllCmd = &cobra.Command{
	Use:   "apply-all <job-id>",
	Short: "Apply all pending suggestions",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpeakersApplyAll,
}

func init() {
	speakersCmd.AddCommand(speakersListCmd)
	speakersCmd.AddCommand(speakersRenameCmd)
	speakersCmd.AddCommand(speakersSuggestionsCmd)
	speakersCmd.AddCommand(speakersApplyCmd)
	speakersCmd.AddCommand(speakersApplyAllCmd)
}

// newSpeakerEditor loads the transcript of a job into an editor.
func newSpeakerEditor(ctx context.Context, jobID string) (*client.SpeakerEditor, error) {
	transcript, err := apiClient.Transcript(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return client.NewSpeakerEditor(apiClient, jobID, transcript), nil
}

func runSpeakersList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	editor, err := newSpeakerEditor(ctx, args[0])
	if err != nil {
		return err
	}

	rows := editor.Rows()
	if len(rows) == 0 {
		fmt.Println("No speakers found.")
		return nil
	}

	fmt.Printf("Speakers (%d):\n\n", len(rows))
	for _, row := range rows {
		fmt.Printf("- %-12s %s\n", row.ID, row.Name)
	}

	return nil
}

func runSpeakersRename(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	editor, err := newSpeakerEditor(ctx, args[0])
	if err != nil {
		return err
	}

	for _, pair := range args[1:] {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[1] == "" {
			return fmt.Errorf("invalid rename %q (expected speaker=name)", pair)
		}
		editor.SetName(parts[0], parts[1])
	}

	dirty := editor.Dirty()
	if len(dirty) == 0 {
		fmt.Println("Nothing to rename.")
		return nil
	}

	if err := editor.Save(ctx); err != nil {
		return fmt.Errorf("save speaker names: %w", err)
	}

	fmt.Printf("Renamed %d speakers.\n", len(dirty))
	return nil
}

func runSpeakersSuggestions(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	set, err := apiClient.Suggestions(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get suggestions: %w", err)
	}

	if len(set.Suggestions) == 0 {
		fmt.Println("No suggestions found. Run a cleanup first.")
		return nil
	}

	fmt.Printf("Suggestions (model %s):\n\n", set.Model)
	for _, sug := range set.Suggestions {
		applied := ""
		if sug.Applied {
			applied = " [applied]"
		}
		fmt.Printf("- %-12s %s (%.0f%%)%s\n", sug.SpeakerID, sug.DisplayName, sug.NameConfidence*100, applied)
		if verbose {
			if sug.Role != "" {
				fmt.Printf("  Role: %s (%.0f%%)\n", sug.Role, sug.RoleConfidence*100)
			}
			if sug.NameReason != "" {
				fmt.Printf("  %s\n", sug.NameReason)
			}
		}
	}

	return nil
}

func runSpeakersApply(cmd *cobra.Command, args []string) error {
	jobID, speakerID := args[0], args[1]

	if err := apiClient.ApplySuggestion(context.Background(), jobID, speakerID); err != nil {
		return fmt.Errorf("apply suggestion: %w", err)
	}

	fmt.Printf("Applied suggestion for %s.\n", speakerID)
	return nil
}

func runSpeakersApplyAll(cmd *cobra.Command, args []string) error {
	applied, err := apiClient.ApplyAllSuggestions(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("apply suggestions: %w", err)
	}

	if applied == 0 {
		fmt.Println("No pending suggestions.")
		return nil
	}
	fmt.Printf("Applied %d suggestions.\n", applied)
	return nil
}
