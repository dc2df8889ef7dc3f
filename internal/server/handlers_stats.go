package server

import (
	"net/http"

	"github.com/scribeflow/scribeflow/internal/models"
)

// statsOperations aggregates the persisted operation records by type.
type statsOperations struct {
	Count             int      `json:"count"`
	Failed            int      `json:"failed"`
	InputTokens       int      `json:"input_tokens"`
	OutputTokens      int      `json:"output_tokens"`
	ProcessingSeconds float64  `json:"processing_seconds"`
	TotalCostUSD      *float64 `json:"total_cost_usd,omitempty"`
	PricedCount       int      `json:"priced_count"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ops, err := s.deps.Store.QueryAllOperations(r.Context(), 10000)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	byType := map[models.OperationType][]models.Operation{}
	for _, op := range ops {
		byType[op.Type] = append(byType[op.Type], op)
	}

	totalCost, totalPriced := models.SumCost(ops)
	out := map[string]any{
		"server": s.deps.Metrics.Snapshot(),
		"operations": map[string]any{
			"cleanup":  aggregateOps(byType[models.OperationCleanup]),
			"insights": aggregateOps(byType[models.OperationInsights]),
		},
		"priced_operations": totalPriced,
	}
	if totalPriced > 0 {
		out["total_cost_usd"] = totalCost
	}

	writeJSON(w, http.StatusOK, out)
}

func aggregateOps(ops []models.Operation) statsOperations {
	agg := statsOperations{Count: len(ops)}
	for _, op := range ops {
		if op.Status == models.OperationFailed {
			agg.Failed++
		}
		agg.InputTokens += op.InputTokens
		agg.OutputTokens += op.OutputTokens
		agg.ProcessingSeconds += op.ProcessingSeconds
	}

	cost, priced := models.SumCost(ops)
	if priced > 0 {
		agg.TotalCostUSD = &cost
	}
	agg.PricedCount = priced

	return agg
}
