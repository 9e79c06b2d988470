package events

import (
	"fmt"

	"github.com/strikeview/strikeview/internal/models"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// exactHandlers is the first-priority dispatch table: one bespoke transform
// per known event identifier. Handlers are pure and extract only the fields
// they understand; anything unregistered falls through to the verbose table
// or the auto-formatter.
var exactHandlers = map[string]func(mapCtx) Result{
	// Scan lifecycle -------------------------------------------------------

	"scan_created": func(c mapCtx) Result {
		return c.log(models.LevelInfo, tidy(fmt.Sprintf("Scan %s created for %s", c.strOr(c.scanID, "scan_id", "id"), c.strOr("", "target", "url"))))
	},
	"scan_queued": func(c mapCtx) Result {
		return c.log(models.LevelInfo, tidy("Scan queued at position "+c.str("position")))
	},
	"scan_started": func(c mapCtx) Result {
		res := c.log(models.LevelInfo, tidy("Scan started against "+c.strOr("", "target", "url")))
		res.Progress = floatPtr(0)
		return res
	},
	"scan_paused": func(c mapCtx) Result {
		return c.log(models.LevelWarning, tidy("Scan paused: "+c.strOr("operator request", "reason")))
	},
	"scan_resumed": func(c mapCtx) Result {
		return c.log(models.LevelInfo, "Scan resumed")
	},
	"scan_cancelled": func(c mapCtx) Result {
		return c.log(models.LevelWarning, "Scan cancelled by operator")
	},
	"scan_failed": func(c mapCtx) Result {
		res := c.log(models.LevelCritical, tidy("Scan failed: "+c.strOr("unknown error", "error", "message")))
		res.Terminal = true
		return res
	},
	"scan_complete": func(c mapCtx) Result {
		res := c.log(models.LevelInfo, tidy("Scan complete: "+c.strOr("finished", "status")))
		res.Terminal = true
		res.Progress = floatPtr(100)
		return res
	},
	"scan_complete_summary": func(c mapCtx) Result {
		msg := "Scan complete"
		if n := c.str("findings_count"); n != "" {
			msg += ", " + n + " findings"
		}
		if d := c.str("duration"); d != "" {
			msg += " in " + d
		}
		res := c.log(models.LevelInfo, msg)
		res.Terminal = true
		res.Progress = floatPtr(100)
		return res
	},
	"error": func(c mapCtx) Result {
		res := c.log(models.LevelError, tidy("Error: "+c.strOr("unspecified error", "message", "error")))
		// A non-recoverable error ends the scan lifecycle.
		if rec, ok := c.data["recoverable"].(bool); ok && !rec {
			res.Terminal = true
		}
		if fatal, ok := c.data["fatal"].(bool); ok && fatal {
			res.Terminal = true
		}
		return res
	},
	"warning": func(c mapCtx) Result {
		return c.log(models.LevelWarning, c.strOr("unspecified warning", "message", "warning"))
	},
	"log": func(c mapCtx) Result {
		msg := c.strOr("", "message", "msg")
		if msg == "" {
			// Nothing to show; avoid an entry reading just the level name.
			return Result{}
		}
		return c.log(parseLevel(c.str("level")), msg)
	},

	// Progress and pipeline ------------------------------------------------

	"progress": func(c mapCtx) Result {
		pct, ok := c.num("progress")
		if !ok {
			pct, ok = c.num("percent")
		}
		if !ok {
			return c.log(models.LevelDebug, "Progress update")
		}
		res := c.log(models.LevelDebug, fmt.Sprintf("Progress: %.0f%%", pct))
		res.Progress = floatPtr(pct)
		return res
	},
	"pipeline_progress": func(c mapCtx) Result {
		phase := c.strOr("unknown", "phase", "stage")
		frac, _ := c.num("progress")
		res := c.log(models.LevelInfo, tidy(fmt.Sprintf("Pipeline: %s %.0f%% %s", phase, frac*100, c.str("message"))))
		res.Pipeline = &models.PipelineState{
			Phase:         phase,
			Progress:      frac,
			StatusMessage: c.str("message"),
		}
		return res
	},
	"phase_started": func(c mapCtx) Result {
		phase := c.strOr("unknown", "phase", "name")
		res := c.log(models.LevelInfo, "Phase started: "+phase)
		res.Pipeline = &models.PipelineState{Phase: phase, Progress: 0}
		return res
	},
	"phase_complete": func(c mapCtx) Result {
		phase := c.strOr("unknown", "phase", "name")
		res := c.log(models.LevelInfo, "Phase complete: "+phase)
		res.Pipeline = &models.PipelineState{Phase: phase, Progress: 1}
		return res
	},
	"phase_skipped": func(c mapCtx) Result {
		return c.log(models.LevelInfo, tidy("Phase skipped: "+c.strOr("unknown", "phase")+" - "+c.str("reason")))
	},

	// Agents ---------------------------------------------------------------

	"agent_started": func(c mapCtx) Result {
		name := c.strOr("agent", "agent", "name")
		res := c.log(models.LevelInfo, "Agent started: "+name)
		res.Agent = &AgentDelta{Name: name, Status: "starting"}
		return res
	},
	"agent_active": func(c mapCtx) Result {
		name := c.strOr("agent", "agent", "name")
		res := c.log(models.LevelDebug, tidy("Agent active: "+name+" on "+c.strOr("", "task", "url")))
		res.Agent = &AgentDelta{Name: name, Status: "active"}
		return res
	},
	"agent_idle": func(c mapCtx) Result {
		name := c.strOr("agent", "agent", "name")
		res := c.log(models.LevelDebug, "Agent idle: "+name)
		res.Agent = &AgentDelta{Name: name, Status: "idle"}
		return res
	},
	"agent_stopped": func(c mapCtx) Result {
		name := c.strOr("agent", "agent", "name")
		res := c.log(models.LevelInfo, "Agent stopped: "+name)
		res.Agent = &AgentDelta{Name: name, Status: "stopped"}
		return res
	},
	"agent_error": func(c mapCtx) Result {
		name := c.strOr("agent", "agent", "name")
		res := c.log(models.LevelError, tidy("Agent "+name+" error: "+c.strOr("unknown error", "error", "message")))
		res.Agent = &AgentDelta{Name: name, Status: "error"}
		return res
	},
	"agent_update": func(c mapCtx) Result {
		name := c.strOr("agent", "agent", "name")
		delta := &AgentDelta{Name: name, Status: c.str("status")}
		if v, ok := c.num("queue_depth"); ok {
			delta.QueueDepth = intPtr(int(v))
		}
		if v, ok := c.num("processed"); ok {
			delta.Processed = intPtr(int(v))
		}
		if v, ok := c.num("vuln_findings"); ok {
			delta.VulnFindings = intPtr(int(v))
		}
		res := c.log(models.LevelDebug, tidy("Agent update: "+name+" "+c.str("status")))
		res.Agent = delta
		return res
	},
	"queue_update": func(c mapCtx) Result {
		name := c.strOr("agent", "agent", "name")
		depth := c.intOr("queue_depth", 0)
		res := c.log(models.LevelDebug, fmt.Sprintf("Queue for %s: %d pending", name, depth))
		res.Agent = &AgentDelta{Name: name, QueueDepth: intPtr(depth)}
		return res
	},

	// Metrics --------------------------------------------------------------

	"metrics_update": func(c mapCtx) Result {
		m := &models.Metrics{
			URLsDiscovered: c.intOr("urls_discovered", 0),
			URLsAnalyzed:   c.intOr("urls_analyzed", 0),
		}
		res := c.log(models.LevelDebug, fmt.Sprintf("Metrics: %d discovered, %d analyzed", m.URLsDiscovered, m.URLsAnalyzed))
		res.Metrics = m
		return res
	},
	"scan_stats": func(c mapCtx) Result {
		m := &models.Metrics{
			URLsDiscovered: c.intOr("urls_discovered", 0),
			URLsAnalyzed:   c.intOr("urls_analyzed", 0),
		}
		res := c.log(models.LevelInfo, fmt.Sprintf("Stats: %d URLs discovered, %d analyzed", m.URLsDiscovered, m.URLsAnalyzed))
		res.Metrics = m
		return res
	},
	"url_discovered": func(c mapCtx) Result {
		return c.log(models.LevelDebug, tidy("URL discovered: "+c.strOr("", "url")))
	},
	"url_analyzed": func(c mapCtx) Result {
		return c.log(models.LevelDebug, tidy("URL analyzed: "+c.strOr("", "url")))
	},

	// Crawling -------------------------------------------------------------

	"crawl_started": func(c mapCtx) Result {
		return c.log(models.LevelInfo, tidy("Crawl started at "+c.strOr("", "url", "target")))
	},
	"crawl_progress": func(c mapCtx) Result {
		visited := c.intOr("visited", 0)
		queued := c.intOr("queued", 0)
		return c.log(models.LevelDebug, fmt.Sprintf("Crawl: %d visited, %d queued", visited, queued))
	},
	"crawl_complete": func(c mapCtx) Result {
		return c.log(models.LevelInfo, tidy(fmt.Sprintf("Crawl complete: %d pages", c.intOr("visited", 0))))
	},

	// Findings -------------------------------------------------------------

	"finding_discovered": func(c mapCtx) Result {
		severity := c.strOr("high", "severity")
		finding := &models.Finding{
			ScanID:      c.scanID,
			Title:       c.strOr("Unnamed finding", "title", "type", "name"),
			Severity:    severity,
			URL:         c.strOr("", "url", "location"),
			Parameter:   c.strOr("", "parameter", "param"),
			Description: c.strOr("", "description", "detail"),
			Timestamp:   c.timestamp,
		}
		msg := tidy(fmt.Sprintf("Finding [%s]: %s at %s", severity, finding.Title, finding.URL))
		res := c.log(severityLevel(severity), msg)
		res.Finding = finding
		return res
	},
	"finding_verified": func(c mapCtx) Result {
		return c.log(models.LevelInfo, tidy("Finding verified: "+c.strOr("", "title", "type")))
	},
	"finding_dismissed": func(c mapCtx) Result {
		return c.log(models.LevelInfo, tidy("Finding dismissed: "+c.strOr("", "title", "type")+" - "+c.str("reason")))
	},
	"vulnerability_confirmed": func(c mapCtx) Result {
		return c.log(models.LevelError, tidy("Vulnerability confirmed: "+c.strOr("", "type", "title")+" at "+c.str("url")))
	},

	// Wire traffic ---------------------------------------------------------

	"payload_sent": func(c mapCtx) Result {
		return c.log(models.LevelDebug, tidy("Payload sent to "+c.strOr("", "url")+": "+c.str("payload")))
	},
	"request_sent": func(c mapCtx) Result {
		return c.log(models.LevelDebug, tidy(c.strOr("GET", "method")+" "+c.strOr("", "url")))
	},
	"response_received": func(c mapCtx) Result {
		return c.log(models.LevelDebug, tidy(fmt.Sprintf("Response %d from %s", c.intOr("status", 0), c.strOr("", "url"))))
	},

	// Authentication -------------------------------------------------------

	"auth_started": func(c mapCtx) Result {
		return c.log(models.LevelInfo, tidy("Authentication started for "+c.strOr("", "username", "user")))
	},
	"auth_success": func(c mapCtx) Result {
		return c.log(models.LevelInfo, tidy("Authenticated as "+c.strOr("", "username", "user")))
	},
	"auth_failed": func(c mapCtx) Result {
		return c.log(models.LevelWarning, tidy("Authentication failed for "+c.strOr("", "username", "user")+": "+c.str("reason")))
	},
	"session_refreshed": func(c mapCtx) Result {
		return c.log(models.LevelDebug, "Session credentials refreshed")
	},

	// Environment ----------------------------------------------------------

	"rate_limited": func(c mapCtx) Result {
		return c.log(models.LevelWarning, tidy("Rate limited by target, backing off "+c.str("backoff")))
	},
	"target_unreachable": func(c mapCtx) Result {
		return c.log(models.LevelError, tidy("Target unreachable: "+c.strOr("", "url", "target")))
	},
	"waf_detected": func(c mapCtx) Result {
		return c.log(models.LevelWarning, tidy("WAF detected: "+c.strOr("unknown vendor", "vendor", "name")))
	},
	"tech_detected": func(c mapCtx) Result {
		return c.log(models.LevelInfo, tidy("Technology detected: "+c.strOr("", "technology", "name")+" "+c.str("version")))
	},
	"fingerprint_complete": func(c mapCtx) Result {
		return c.log(models.LevelInfo, tidy(fmt.Sprintf("Fingerprinting complete: %d technologies", c.intOr("count", 0))))
	},

	// Setup ----------------------------------------------------------------

	"config_loaded": func(c mapCtx) Result {
		return c.log(models.LevelDebug, "Scan configuration loaded")
	},
	"scope_updated": func(c mapCtx) Result {
		return c.log(models.LevelInfo, tidy(fmt.Sprintf("Scope updated: %d hosts in scope", c.intOr("count", 0))))
	},
	"wordlist_loaded": func(c mapCtx) Result {
		return c.log(models.LevelDebug, tidy(fmt.Sprintf("Wordlist loaded: %s (%d entries)", c.strOr("default", "name"), c.intOr("count", 0))))
	},
	"connection_established": func(c mapCtx) Result {
		return c.log(models.LevelDebug, "Telemetry connection established")
	},
	"heartbeat": func(c mapCtx) Result {
		return c.log(models.LevelDebug, "Heartbeat")
	},

	// Planning and tasks ---------------------------------------------------

	"plan_generated": func(c mapCtx) Result {
		return c.log(models.LevelInfo, tidy(fmt.Sprintf("Attack plan generated: %d steps", c.intOr("steps", 0))))
	},
	"plan_updated": func(c mapCtx) Result {
		return c.log(models.LevelInfo, tidy("Attack plan updated: "+c.str("reason")))
	},
	"task_assigned": func(c mapCtx) Result {
		return c.log(models.LevelDebug, tidy("Task assigned to "+c.strOr("agent", "agent")+": "+c.str("task")))
	},
	"task_complete": func(c mapCtx) Result {
		return c.log(models.LevelDebug, tidy("Task complete: "+c.str("task")))
	},

	// Reporting ------------------------------------------------------------

	"report_started": func(c mapCtx) Result {
		return c.log(models.LevelInfo, "Report generation started")
	},
	"report_complete": func(c mapCtx) Result {
		return c.log(models.LevelInfo, tidy("Report ready: "+c.str("path")))
	},

	// Model traffic --------------------------------------------------------

	"llm_request": func(c mapCtx) Result {
		return c.log(models.LevelDebug, tidy("Model request from "+c.strOr("agent", "agent")))
	},
	"llm_response": func(c mapCtx) Result {
		return c.log(models.LevelDebug, tidy(fmt.Sprintf("Model response: %d tokens", c.intOr("tokens", 0))))
	},
	"llm_error": func(c mapCtx) Result {
		return c.log(models.LevelError, tidy("Model call failed: "+c.strOr("unknown error", "error", "message")))
	},
	"tool_invoked": func(c mapCtx) Result {
		return c.log(models.LevelDebug, tidy("Tool invoked: "+c.strOr("", "tool", "name")))
	},
	"tool_result": func(c mapCtx) Result {
		return c.log(models.LevelDebug, tidy("Tool result from "+c.strOr("", "tool", "name")+": "+c.str("status")))
	},
}
