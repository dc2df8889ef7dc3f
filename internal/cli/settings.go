package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/scribeflow/scribeflow/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	setEngine           string
	setModel            string
	setDiarization      string
	setMinSpeakers      int
	setMaxSpeakers      int
	setInitialPrompt    string
	setCleanupProvider  string
	setCleanupModel     string
	setInsightsProvider string
	setInsightsModel    string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show and change server settings",
	Long: `Show and change the server-side settings: default engine and model,
diarization bounds, and the LLM providers for cleanup and insights.

API keys are write-only: 'settings' shows only whether a key is
configured, and 'settings key' prompts for the value without echo.

Subcommands:
  set  Change settings
  key  Set an API key (prompted, masked)

Examples:
  scribeflow settings
  scribeflow settings set --engine deepgram --model nova-3
  scribeflow settings set --min-speakers 2 --max-speakers 8
  scribeflow settings key deepgram`,
	RunE: runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change settings",
	RunE:  runSettingsSet,
}

var settingsKeyCmd = &cobra.Command{
	Use:   "key <provider>",
	Short: "Set an API key (prompted, masked)",
	Long: `Set the API key for a provider. The key is read from the terminal
without echo and sent to the server; it is never printed back.

Providers: assemblyai, deepgram, elevenlabs, gemini, openrouter, anthropic.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsKey,
}

func init() {
	settingsSetCmd.Flags().StringVar(&setEngine, "engine", "", "default transcription engine")
	settingsSetCmd.Flags().StringVar(&setModel, "model", "", "default engine model")
	settingsSetCmd.Flags().StringVar(&setDiarization, "diarization", "", "diarization method (silence or none)")
	settingsSetCmd.Flags().IntVar(&setMinSpeakers, "min-speakers", 0, "default minimum speakers")
	settingsSetCmd.Flags().IntVar(&setMaxSpeakers, "max-speakers", 0, "default maximum speakers")
	settingsSetCmd.Flags().StringVar(&setInitialPrompt, "initial-prompt", "", "default whisper initial prompt")
	settingsSetCmd.Flags().StringVar(&setCleanupProvider, "cleanup-provider", "", "LLM provider for cleanup")
	settingsSetCmd.Flags().StringVar(&setCleanupModel, "cleanup-model", "", "LLM model for cleanup")
	settingsSetCmd.Flags().StringVar(&setInsightsProvider, "insights-provider", "", "LLM provider for insights")
	settingsSetCmd.Flags().StringVar(&setInsightsModel, "insights-model", "", "LLM model for insights")

	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeyCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	view, err := apiClient.Settings(context.Background())
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}

	printSettings(view)
	return nil
}

func printSettings(view *config.View) {
	fmt.Println("Transcription:")
	fmt.Printf("  Engine:       %s/%s\n", view.DefaultEngine, view.DefaultModel)
	fmt.Printf("  Diarization:  %s (%d-%d speakers)\n", view.DiarizationMethod, view.MinSpeakers, view.MaxSpeakers)
	if view.WhisperInitialPrompt != "" {
		fmt.Printf("  Prompt:       %s\n", view.WhisperInitialPrompt)
	}

	fmt.Println("\nLLM:")
	fmt.Printf("  Cleanup:      %s/%s\n", view.CleanupProvider, view.CleanupModel)
	fmt.Printf("  Insights:     %s/%s\n", view.InsightsProvider, view.InsightsModel)

	fmt.Println("\nAPI keys:")
	fmt.Printf("  AssemblyAI:   %s\n", keyMark(view.HasAssemblyAIKey))
	fmt.Printf("  Deepgram:     %s\n", keyMark(view.HasDeepgramKey))
	fmt.Printf("  ElevenLabs:   %s\n", keyMark(view.HasElevenLabsKey))
	fmt.Printf("  Gemini:       %s\n", keyMark(view.HasGeminiKey))
	fmt.Printf("  OpenRouter:   %s\n", keyMark(view.HasOpenRouterKey))
	fmt.Printf("  Anthropic:    %s\n", keyMark(view.HasAnthropicKey))
}

func keyMark(configured bool) string {
	if configured {
		return "configured"
	}
	return "not set"
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	var patch config.Patch

	setString := func(flag string, target **string, value string) {
		if cmd.Flags().Changed(flag) {
			v := value
			*target = &v
		}
	}
	setString("engine", &patch.DefaultEngine, setEngine)
	setString("model", &patch.DefaultModel, setModel)
	setString("diarization", &patch.DiarizationMethod, setDiarization)
	setString("initial-prompt", &patch.WhisperInitialPrompt, setInitialPrompt)
	setString("cleanup-provider", &patch.CleanupProvider, setCleanupProvider)
	setString("cleanup-model", &patch.CleanupModel, setCleanupModel)
	setString("insights-provider", &patch.InsightsProvider, setInsightsProvider)
	setString("insights-model", &patch.InsightsModel, setInsightsModel)
	if cmd.Flags().Changed("min-speakers") {
		patch.MinSpeakers = &setMinSpeakers
	}
	if cmd.Flags().Changed("max-speakers") {
		patch.MaxSpeakers = &setMaxSpeakers
	}

	view, err := apiClient.UpdateSettings(context.Background(), patch)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}

	fmt.Println("Settings updated.")
	if verbose {
		fmt.Println()
		printSettings(view)
	}
	return nil
}

func runSettingsKey(cmd *cobra.Command, args []string) error {
	provider := strings.ToLower(args[0])

	fmt.Printf("%s API key: ", provider)
	key, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}
	if len(key) == 0 {
		return fmt.Errorf("empty key")
	}

	var patch config.Patch
	switch provider {
	case "assemblyai":
		patch.AssemblyAIKey = string(key)
	case "deepgram":
		patch.DeepgramKey = string(key)
	case "elevenlabs":
		patch.ElevenLabsKey = string(key)
	case "gemini":
		patch.GeminiKey = string(key)
	case "openrouter":
		patch.OpenRouterKey = string(key)
	case "anthropic":
		patch.AnthropicKey = string(key)
	default:
		return fmt.Errorf("unknown provider %q", provider)
	}

	if _, err := apiClient.UpdateSettings(context.Background(), patch); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}

	fmt.Printf("Saved %s API key.\n", provider)
	return nil
}
