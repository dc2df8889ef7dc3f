package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// OperationType partitions LLM operations by pipeline stage.
type OperationType string

const (
	OperationCleanup  OperationType = "cleanup"
	OperationInsights OperationType = "insights"
)

// OperationStatus tracks an LLM operation's outcome.
type OperationStatus string

const (
	OperationRunning OperationStatus = "running"
	OperationSuccess OperationStatus = "success"
	OperationFailed  OperationStatus = "failed"
)

// Operation is an append-only record of one cleanup or insights invocation.
// Records are never mutated after reaching a terminal status; aggregates
// (total cost, total time) are computed by summing over them.
type Operation struct {
	ID    surrealmodels.RecordID `json:"id"`
	JobID string                 `json:"job_id"`
	Type  OperationType          `json:"type"`

	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	TemplateID  string  `json:"template_id"`
	Temperature float64 `json:"temperature"`

	InputTokens  int      `json:"input_tokens"`
	OutputTokens int      `json:"output_tokens"`
	CostUSD      *float64 `json:"cost_usd,omitempty"` // nil when pricing not configured

	ProcessingSeconds float64         `json:"processing_seconds"`
	Status            OperationStatus `json:"status"`
	Error             *string         `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// OperationInput creates a new running operation record.
type OperationInput struct {
	JobID       string        `json:"job_id"`
	Type        OperationType `json:"type"`
	Provider    string        `json:"provider"`
	Model       string        `json:"model"`
	TemplateID  string        `json:"template_id"`
	Temperature float64       `json:"temperature"`
}

// OperationResult carries the terminal fields written when an operation finishes.
type OperationResult struct {
	InputTokens       int
	OutputTokens      int
	CostUSD           *float64
	ProcessingSeconds float64
	Status            OperationStatus
	Error             string // verbatim provider message, empty on success
}

// SumCost totals the cost of the given operations, skipping unpriced ones.
// Returns the total and the number of operations that carried a price.
func SumCost(ops []Operation) (float64, int) {
	var total float64
	priced := 0
	for _, op := range ops {
		if op.CostUSD != nil {
			total += *op.CostUSD
			priced++
		}
	}
	return total, priced
}
