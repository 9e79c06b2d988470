package dashboard

import (
	"fmt"
	"testing"

	"github.com/strikeview/strikeview/internal/events"
	"github.com/strikeview/strikeview/internal/models"
)

func logResult(msg string) events.Result {
	return events.Result{Log: &models.LogEntry{Level: models.LevelInfo, Message: msg, Timestamp: "ts"}}
}

func TestApply_LogBufferEviction(t *testing.T) {
	s := NewState()
	s.Reset()

	const extra = 25
	for i := 0; i < MaxLogs+extra; i++ {
		s.Apply(logResult(fmt.Sprintf("line %d", i)))
	}

	view := s.Snapshot()
	if len(view.Logs) != MaxLogs {
		t.Fatalf("expected %d logs, got %d", MaxLogs, len(view.Logs))
	}
	// Buffer must hold the last MaxLogs entries in original order.
	if view.Logs[0].Message != fmt.Sprintf("line %d", extra) {
		t.Errorf("oldest surviving entry is %q, want line %d", view.Logs[0].Message, extra)
	}
	if view.Logs[len(view.Logs)-1].Message != fmt.Sprintf("line %d", MaxLogs+extra-1) {
		t.Errorf("newest entry is %q", view.Logs[len(view.Logs)-1].Message)
	}
}

func TestApply_AgentUpsert(t *testing.T) {
	s := NewState()
	s.Reset()

	qd := 3
	s.Apply(events.Result{Agent: &events.AgentDelta{Name: "recon-1", Status: "active"}})
	s.Apply(events.Result{Agent: &events.AgentDelta{Name: "recon-1", QueueDepth: &qd}})

	view := s.Snapshot()
	if len(view.Agents) != 1 {
		t.Fatalf("expected one agent row, got %d", len(view.Agents))
	}
	a := view.Agents[0]
	if a.Status != "active" || a.QueueDepth != 3 {
		t.Errorf("partial update lost fields: %+v", a)
	}
}

func TestApply_FindingsAppendOnly(t *testing.T) {
	s := NewState()
	s.Reset()

	f := models.Finding{Title: "IDOR", Severity: "high"}
	s.Apply(events.Result{Finding: &f})
	s.Apply(events.Result{Finding: &f})

	if got := len(s.Snapshot().Findings); got != 2 {
		t.Errorf("findings are not deduplicated by the reducer: want 2, got %d", got)
	}
}

func TestApply_TerminalIdempotent(t *testing.T) {
	s := NewState()
	s.Reset()

	term := events.Result{Terminal: true}
	s.Apply(term)
	first := s.Snapshot()
	s.Apply(term)
	second := s.Snapshot()

	if first.Scanning || second.Scanning {
		t.Error("terminal result must clear the scanning flag")
	}
	if first.Progress != 100 || second.Progress != 100 {
		t.Error("terminal result must pin progress at 100")
	}
	if len(first.Logs) != len(second.Logs) || len(first.Findings) != len(second.Findings) {
		t.Error("re-applying a terminal result changed state")
	}
}

func TestApply_PipelineAndMetricsLastWriteWins(t *testing.T) {
	s := NewState()
	s.Reset()

	s.Apply(events.Result{Pipeline: &models.PipelineState{Phase: "recon", Progress: 0.3}})
	s.Apply(events.Result{Pipeline: &models.PipelineState{Phase: "exploit", Progress: 0.1}})
	s.Apply(events.Result{Metrics: &models.Metrics{URLsDiscovered: 10, URLsAnalyzed: 4}})
	s.Apply(events.Result{Metrics: &models.Metrics{URLsDiscovered: 12, URLsAnalyzed: 9}})

	view := s.Snapshot()
	if view.Pipeline.Phase != "exploit" || view.Pipeline.Progress != 0.1 {
		t.Errorf("pipeline not replaced: %+v", view.Pipeline)
	}
	if view.Metrics.URLsDiscovered != 12 || view.Metrics.URLsAnalyzed != 9 {
		t.Errorf("metrics not replaced: %+v", view.Metrics)
	}
}

// The concrete end-to-end sequence from the engine contract: three events,
// three log lines, final progress 100, scanning cleared, and no findings
// because none of the events is finding_discovered.
func TestApply_ScanLifecycleScenario(t *testing.T) {
	s := NewState()
	s.Reset()

	seq := []struct {
		eventType string
		data      map[string]any
	}{
		{"scan_started", map[string]any{"target": "http://t.example"}},
		{"pipeline_progress", map[string]any{"phase": "recon", "progress": 0.5}},
		{"scan_complete", map[string]any{"status": "ok", "findings_count": 2}},
	}
	for _, ev := range seq {
		s.Apply(events.Map(ev.eventType, ev.data, "1", "ts"))
	}

	view := s.Snapshot()
	if len(view.Logs) != 3 {
		t.Errorf("expected 3 log lines, got %d", len(view.Logs))
	}
	if view.Progress != 100 {
		t.Errorf("expected final progress 100, got %v", view.Progress)
	}
	if view.Scanning {
		t.Error("scanning flag must be false after scan_complete")
	}
	if len(view.Findings) != 0 {
		t.Errorf("findings come only from finding_discovered, got %d", len(view.Findings))
	}
}
