package models

import (
	"encoding/json"
	"fmt"
)

// ScanID is a scan identifier as delivered by the scan engine. The engine
// sends it either as a JSON number or a string depending on the event source,
// so it unmarshals from both.
type ScanID string

func (s *ScanID) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = ScanID(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("scan_id is neither string nor number: %w", err)
	}
	*s = ScanID(num.String())
	return nil
}

func (s ScanID) String() string { return string(s) }

// EventEnvelope is one unit of telemetry pushed by the scan engine.
// Seq is assigned by the producer and is strictly non-decreasing per scan;
// gaps are possible, duplicates across reconnects must be tolerated.
type EventEnvelope struct {
	EventType string         `json:"event_type"`
	Seq       uint64         `json:"seq"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data"`
	ScanID    ScanID         `json:"scan_id,omitempty"`
}

// LogLevel mirrors the severity levels used by the scan engine.
type LogLevel string

const (
	LevelDebug    LogLevel = "DEBUG"
	LevelInfo     LogLevel = "INFO"
	LevelWarning  LogLevel = "WARNING"
	LevelError    LogLevel = "ERROR"
	LevelCritical LogLevel = "CRITICAL"
)

// LogEntry is a single human-readable line in the dashboard log buffer.
type LogEntry struct {
	Level     LogLevel `json:"level"`
	Message   string   `json:"message"`
	Timestamp string   `json:"timestamp"`
}

// Finding is a structured, user-facing vulnerability record, distinct from a
// raw log line.
type Finding struct {
	ScanID      string `json:"scan_id,omitempty"`
	Title       string `json:"title"`
	Severity    string `json:"severity"`
	URL         string `json:"url,omitempty"`
	Parameter   string `json:"parameter,omitempty"`
	Description string `json:"description,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// PipelineState describes the overall scan pipeline position.
// Progress is a fraction in [0,1] for the current phase.
type PipelineState struct {
	Phase         string  `json:"phase"`
	Progress      float64 `json:"progress"`
	StatusMessage string  `json:"status_message,omitempty"`
}

// AgentState is one row of the per-agent status table, keyed by agent name.
type AgentState struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	QueueDepth   int    `json:"queue_depth"`
	Processed    int    `json:"processed"`
	VulnFindings int    `json:"vuln_findings"`
}

// Metrics holds scan-wide discovery counters.
type Metrics struct {
	URLsDiscovered int `json:"urls_discovered"`
	URLsAnalyzed   int `json:"urls_analyzed"`
}
