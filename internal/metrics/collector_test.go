package metrics

import (
	"testing"
	"time"
)

func TestRecordTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpTranscribe, 100*time.Millisecond)
	c.RecordTiming(OpTranscribe, 300*time.Millisecond)

	snap := c.Snapshot()
	if snap.Transcribe == nil {
		t.Fatal("expected transcribe snapshot")
	}
	if snap.Transcribe.Count != 2 {
		t.Errorf("Count = %d, want 2", snap.Transcribe.Count)
	}
	if snap.Transcribe.MinTimeMs != 100 || snap.Transcribe.MaxTimeMs != 300 {
		t.Errorf("min/max = %d/%d, want 100/300", snap.Transcribe.MinTimeMs, snap.Transcribe.MaxTimeMs)
	}
	if snap.Transcribe.AvgTimeMs != 200 {
		t.Errorf("avg = %f, want 200", snap.Transcribe.AvgTimeMs)
	}
}

func TestRecordLLMUsageCostSum(t *testing.T) {
	c := NewCollector()
	cost := 0.042
	c.RecordLLMUsage(OpCleanup, time.Second, 1000, 200, &cost)
	c.RecordLLMUsage(OpCleanup, time.Second, 500, 100, nil) // unpriced model

	snap := c.Snapshot()
	if snap.Cleanup == nil {
		t.Fatal("expected cleanup snapshot")
	}
	if *snap.Cleanup.TotalInputTokens != 1500 {
		t.Errorf("input tokens = %d, want 1500", *snap.Cleanup.TotalInputTokens)
	}
	if snap.Cleanup.TotalCostUSD == nil || *snap.Cleanup.TotalCostUSD != 0.042 {
		t.Errorf("cost = %v, want 0.042: unpriced calls must not contribute", snap.Cleanup.TotalCostUSD)
	}
}

func TestRecordFailure(t *testing.T) {
	c := NewCollector()
	c.RecordFailure(OpInsights)

	snap := c.Snapshot()
	if snap.Insights == nil || snap.Insights.Failures != 1 {
		t.Errorf("expected one recorded failure, got %+v", snap.Insights)
	}
	if snap.Insights.MinTimeMs != 0 {
		t.Errorf("min time should stay zero with no timed calls")
	}
}

func TestEmptySnapshot(t *testing.T) {
	snap := NewCollector().Snapshot()
	if snap.Transcribe != nil || snap.Cleanup != nil || snap.Insights != nil || snap.DBQuery != nil {
		t.Error("empty collector should produce nil operation snapshots")
	}
}
