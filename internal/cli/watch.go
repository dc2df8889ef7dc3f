package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/scribeflow/scribeflow/internal/events"
	"github.com/spf13/cobra"
)

var watchSince int64

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail the server event stream",
	Long: `Tail the server's live event stream: job lifecycle changes and
operation completions. With --since, buffered events after the given
sequence number are replayed first.

Examples:
  scribeflow watch
  scribeflow watch --since 120`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Int64Var(&watchSince, "since", 0, "replay buffered events after this sequence number")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := apiClient.WatchEvents(ctx, watchSince)
	if err != nil {
		return fmt.Errorf("watch events: %w", err)
	}

	for event := range stream {
		printEvent(event)
	}

	return nil
}

func printEvent(e events.Event) {
	ts := e.Timestamp.Format("15:04:05")

	switch e.Type {
	case events.TypeJobStatus:
		detail := string(e.Status)
		if e.Progress > 0 {
			detail = fmt.Sprintf("%s %.0f%%", e.Status, e.Progress)
		}
		fmt.Printf("%s %6d %-18s %s %s\n", ts, e.Seq, e.Type, e.JobID, detail)
	case events.TypeOperationStarted, events.TypeOperationFinished:
		fmt.Printf("%s %6d %-18s %s %s (%s)\n", ts, e.Seq, e.Type, e.JobID, e.Message, e.OperationID)
	default:
		fmt.Printf("%s %6d %-18s %s %s\n", ts, e.Seq, e.Type, e.JobID, e.Message)
	}
}
