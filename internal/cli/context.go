package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var contextCmd = &cobra.Command{
	Use:   "context <job-id> [text]",
	Short: "Set the transcription context of a job",
	Long: `Set the free-text context that is passed to the transcription
engine as an initial prompt (names, jargon, agenda). With no text
argument the context is read from stdin.

Examples:
  scribeflow context ab12cd34 "Q3 planning, attendees: Ana, Piotr, Yuki"
  cat agenda.txt | scribeflow context ab12cd34`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runContext,
}

func runContext(cmd *cobra.Command, args []string) error {
	id := args[0]

	var text string
	if len(args) == 2 {
		text = args[1]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = strings.TrimSpace(string(data))
	}

	if err := apiClient.UpdateContext(context.Background(), id, text); err != nil {
		return fmt.Errorf("update context: %w", err)
	}

	fmt.Printf("Updated context for %s.\n", id)
	return nil
}
