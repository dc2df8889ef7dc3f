// Package cli provides the command-line interface for scribeflow.
package cli

import (
	"fmt"

	"github.com/scribeflow/scribeflow/internal/client"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	serverURL string

	// API client, created before every command that talks to the server.
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "scribeflow",
	Short: "Local-first meeting transcription",
	Long: `Scribeflow transcribes meeting recordings locally: upload audio,
queue it for transcription and speaker diarization, then run LLM
cleanup and insight extraction over the result.

All commands talk to a running scribeflow-server instance.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		apiClient = client.New(serverURL)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default $SCRIBEFLOW_SERVER_URL or http://localhost:8090)")

	// Add subcommands
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(startAllCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(speakersCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the scribeflow version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scribeflow %s\n", Version)
	},
}
