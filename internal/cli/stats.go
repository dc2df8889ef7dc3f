package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/scribeflow/scribeflow/internal/metrics"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server and LLM usage statistics",
	Long: `Show server runtime statistics and the persisted LLM operation
totals for cost monitoring.

Examples:
  scribeflow stats
  scribeflow stats --verbose`,
	RunE: runStats,
}

// operationTotals mirrors the per-type aggregate in the stats response.
type operationTotals struct {
	Count             int      `json:"count"`
	Failed            int      `json:"failed"`
	InputTokens       int      `json:"input_tokens"`
	OutputTokens      int      `json:"output_tokens"`
	ProcessingSeconds float64  `json:"processing_seconds"`
	TotalCostUSD      *float64 `json:"total_cost_usd,omitempty"`
	PricedCount       int      `json:"priced_count"`
}

// statsResponse mirrors the /api/stats payload.
type statsResponse struct {
	Server     metrics.Snapshot `json:"server"`
	Operations struct {
		Cleanup  operationTotals `json:"cleanup"`
		Insights operationTotals `json:"insights"`
	} `json:"operations"`
	PricedOperations int      `json:"priced_operations"`
	TotalCostUSD     *float64 `json:"total_cost_usd,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) error {
	raw, err := apiClient.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	var stats statsResponse
	if err := json.Unmarshal(data, &stats); err != nil {
		return fmt.Errorf("decode stats: %w", err)
	}

	printServerStats(stats.Server)
	fmt.Println()

	fmt.Printf("Operations (persisted)\n")
	fmt.Printf("═══════════════════════════════════════\n")
	printOperationTotals("Cleanup", stats.Operations.Cleanup)
	printOperationTotals("Insights", stats.Operations.Insights)

	if stats.TotalCostUSD != nil {
		fmt.Printf("\nTotal cost: $%.4f (%d priced operations)\n",
			*stats.TotalCostUSD, stats.PricedOperations)
	}

	return nil
}

// printServerStats displays server runtime statistics.
func printServerStats(snap metrics.Snapshot) {
	fmt.Printf("Server Statistics (in-memory, since restart)\n")
	fmt.Printf("═══════════════════════════════════════════════\n")
	fmt.Printf("Uptime: %.1f seconds\n", snap.UptimeSeconds)

	if snap.Transcribe != nil {
		fmt.Printf("\nTranscriptions:\n")
		printOpStats(snap.Transcribe)
	}

	if snap.Cleanup != nil {
		fmt.Printf("\nCleanup:\n")
		printOpStats(snap.Cleanup)
		printTokenStats(snap.Cleanup)
	}

	if snap.Insights != nil {
		fmt.Printf("\nInsights:\n")
		printOpStats(snap.Insights)
		printTokenStats(snap.Insights)
	}

	if verbose && snap.DBQuery != nil {
		fmt.Printf("\nDB Query:\n")
		printOpStats(snap.DBQuery)
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(op *metrics.OperationSnapshot) {
	fmt.Printf("  Calls: %d, Failures: %d, Total: %dms\n", op.Count, op.Failures, op.TotalTimeMs)
	fmt.Printf("  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}

// printTokenStats displays token and cost statistics if available.
func printTokenStats(op *metrics.OperationSnapshot) {
	if op.TotalInputTokens == nil || op.TotalOutputTokens == nil {
		return
	}
	fmt.Printf("  Tokens: %d in / %d out\n", *op.TotalInputTokens, *op.TotalOutputTokens)
	if op.TotalCostUSD != nil {
		fmt.Printf("  Cost:   $%.4f\n", *op.TotalCostUSD)
	}
}

func printOperationTotals(label string, totals operationTotals) {
	if totals.Count == 0 {
		return
	}
	fmt.Printf("\n%s:\n", label)
	fmt.Printf("  Runs: %d (%d failed)\n", totals.Count, totals.Failed)
	fmt.Printf("  Tokens: %d in / %d out\n", totals.InputTokens, totals.OutputTokens)
	fmt.Printf("  Time: %s\n", formatDuration(totals.ProcessingSeconds))
	if totals.TotalCostUSD != nil {
		fmt.Printf("  Cost: $%.4f (%d priced)\n", *totals.TotalCostUSD, totals.PricedCount)
	}
}
