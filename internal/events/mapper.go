// Package events classifies scan-engine telemetry into log lines and typed
// dashboard deltas. Mapping is pure: no I/O, deterministic for the same
// inputs, and every event yields some log line so nothing is silently
// dropped.
package events

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/strikeview/strikeview/internal/models"
)

// AgentDelta is a partial update for one row of the agent status table.
// Nil counters mean "unchanged"; an empty Status means the same.
type AgentDelta struct {
	Name         string
	Status       string
	QueueDepth   *int
	Processed    *int
	VulnFindings *int
}

// Result is the outcome of mapping one event. Any subset of the fields may
// be set; a zero Result with a nil Log never leaves Map for a well-formed
// call because the fallback formatter always produces a line.
type Result struct {
	Log      *models.LogEntry
	Finding  *models.Finding
	Pipeline *models.PipelineState
	Agent    *AgentDelta
	Metrics  *models.Metrics
	// Progress is the overall scan progress in percent, when the event
	// carries one.
	Progress *float64
	// Terminal marks events that end the scan lifecycle.
	Terminal bool
}

// mapCtx bundles the per-event inputs handed to each transform.
type mapCtx struct {
	data      map[string]any
	scanID    string
	timestamp string
}

// Map classifies eventType and its payload. Dispatch order: exact-match
// table first, then the namespaced template table for dotted identifiers,
// then the auto-formatter so unknown identifiers still produce a line.
func Map(eventType string, data map[string]any, scanID, timestamp string) Result {
	c := mapCtx{data: data, scanID: scanID, timestamp: timestamp}

	if h, ok := exactHandlers[eventType]; ok {
		return h(c)
	}
	if t, ok := verboseTemplates[eventType]; ok {
		return Result{Log: &models.LogEntry{
			Level:     t.level,
			Message:   substitute(t.template, data),
			Timestamp: timestamp,
		}}
	}
	return autoFormat(eventType, c)
}

// log builds a Result carrying only a log entry.
func (c mapCtx) log(level models.LogLevel, msg string) Result {
	return Result{Log: c.entry(level, msg)}
}

func (c mapCtx) entry(level models.LogLevel, msg string) *models.LogEntry {
	return &models.LogEntry{Level: level, Message: msg, Timestamp: c.timestamp}
}

// str extracts a payload field as a trimmed string, treating the literal
// "undefined"/"null" junk some emitters produce as absent.
func (c mapCtx) str(key string) string {
	v, ok := c.data[key]
	if !ok {
		return ""
	}
	s := strings.TrimSpace(stringify(v))
	if s == "undefined" || s == "null" {
		return ""
	}
	return s
}

// strOr returns the first non-empty of the named payload fields, or fallback.
func (c mapCtx) strOr(fallback string, keys ...string) string {
	for _, k := range keys {
		if s := c.str(k); s != "" {
			return s
		}
	}
	return fallback
}

// num extracts a payload field as float64, tolerating string-encoded numbers.
func (c mapCtx) num(key string) (float64, bool) {
	v, ok := c.data[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (c mapCtx) intOr(key string, fallback int) int {
	if f, ok := c.num(key); ok {
		return int(f)
	}
	return fallback
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

var (
	placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)
	multiSpaceRe  = regexp.MustCompile(`\s{2,}`)
)

// substitute fills {name} placeholders in tmpl from the payload. Unresolved
// placeholders are stripped rather than rendered literally, and the residual
// punctuation they leave behind is trimmed away.
func substitute(tmpl string, data map[string]any) string {
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := data[key]
		if !ok {
			return ""
		}
		s := strings.TrimSpace(stringify(v))
		if s == "undefined" || s == "null" {
			return ""
		}
		return s
	})
	return tidy(out)
}

// tidy cleans up artifacts of empty substitutions: empty parentheses,
// doubled spaces, and dangling connectives or separators at the end.
func tidy(s string) string {
	s = strings.ReplaceAll(s, "()", "")
	s = strings.ReplaceAll(s, "''", "")
	s = strings.ReplaceAll(s, `""`, "")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	for {
		prev := s
		for _, suffix := range []string{" via", " at", " on", " for", " from", " in", " to", " against", " as", " position", ":", ",", ";", "-"} {
			s = strings.TrimSuffix(s, suffix)
		}
		s = strings.TrimSpace(s)
		if s == prev {
			return s
		}
	}
}

// severityLevel maps a finding severity onto a log level.
func severityLevel(severity string) models.LogLevel {
	switch strings.ToLower(severity) {
	case "critical":
		return models.LevelCritical
	case "high":
		return models.LevelError
	case "medium":
		return models.LevelWarning
	default:
		return models.LevelInfo
	}
}

// parseLevel normalizes a payload-supplied level string, defaulting to INFO.
func parseLevel(s string) models.LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return models.LevelDebug
	case "WARNING", "WARN":
		return models.LevelWarning
	case "ERROR":
		return models.LevelError
	case "CRITICAL", "FATAL":
		return models.LevelCritical
	default:
		return models.LevelInfo
	}
}

// autoFormat derives a log line for an identifier with no registered
// mapping: tag from the first path segment, label from the last, with
// parameter and URL context appended when the payload carries them.
func autoFormat(eventType string, c mapCtx) Result {
	parts := strings.Split(eventType, ".")
	tag := strings.ToUpper(parts[0])
	label := strings.ReplaceAll(parts[len(parts)-1], "_", " ")
	if label != "" {
		label = strings.ToUpper(label[:1]) + label[1:]
	}

	var b strings.Builder
	b.WriteString("[" + tag + "] " + label)
	if p := c.strOr("", "param", "parameter"); p != "" {
		b.WriteString(" (param: " + p + ")")
	}
	if u := c.strOr("", "url", "target", "endpoint"); u != "" {
		b.WriteString(" at " + u)
	}
	if m := c.strOr("", "message", "detail"); m != "" {
		b.WriteString(": " + m)
	}

	level := models.LevelInfo
	for _, part := range parts {
		switch {
		case strings.Contains(part, "error") || strings.Contains(part, "fail") || strings.Contains(part, "crash"):
			level = models.LevelError
		case strings.Contains(part, "warn") || strings.Contains(part, "suspect") || strings.Contains(part, "missing"):
			if level == models.LevelInfo {
				level = models.LevelWarning
			}
		}
	}

	return c.log(level, b.String())
}
