// Package dashboard folds mapped telemetry deltas into the aggregate scan
// view. The State has exactly one writer (the telemetry message handler);
// readers take snapshots.
package dashboard

import (
	"sort"
	"sync"

	"github.com/strikeview/strikeview/internal/events"
	"github.com/strikeview/strikeview/internal/models"
)

// MaxLogs caps the log buffer; the oldest entries are evicted first.
const MaxLogs = 10000

// State is the aggregate dashboard view for one scan.
type State struct {
	mu sync.RWMutex

	scanning bool
	// progress is the overall scan progress in percent.
	progress float64
	pipeline models.PipelineState
	agents   map[string]models.AgentState
	metrics  models.Metrics
	findings []models.Finding
	logs     []models.LogEntry
}

// View is a point-in-time copy of the dashboard state, safe to hand to
// concurrent readers.
type View struct {
	Scanning bool                 `json:"scanning"`
	Progress float64              `json:"progress"`
	Pipeline models.PipelineState `json:"pipeline"`
	Agents   []models.AgentState  `json:"agents"`
	Metrics  models.Metrics       `json:"metrics"`
	Findings []models.Finding     `json:"findings"`
	Logs     []models.LogEntry    `json:"logs"`
}

func NewState() *State {
	return &State{agents: make(map[string]models.AgentState)}
}

// Reset clears all per-scan state and marks the scan as running. Called when
// a new subscription is established.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scanning = true
	s.progress = 0
	s.pipeline = models.PipelineState{}
	s.agents = make(map[string]models.AgentState)
	s.metrics = models.Metrics{}
	s.findings = nil
	s.logs = nil
}

// Apply merges one mapped result into the state. Append/merge semantics:
// logs append with FIFO eviction, agents upsert by name, findings append
// (the emitter is authoritative for uniqueness), pipeline and metrics
// replace wholesale. Terminal results clear the scanning flag and pin
// progress at 100; applying a terminal result twice is safe.
func (s *State) Apply(res events.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res.Log != nil {
		s.logs = append(s.logs, *res.Log)
		if len(s.logs) > MaxLogs {
			s.logs = s.logs[len(s.logs)-MaxLogs:]
		}
	}

	if res.Finding != nil {
		s.findings = append(s.findings, *res.Finding)
	}

	if res.Pipeline != nil {
		s.pipeline = *res.Pipeline
	}

	if res.Metrics != nil {
		s.metrics = *res.Metrics
	}

	if res.Agent != nil {
		s.applyAgent(res.Agent)
	}

	if res.Progress != nil {
		s.progress = *res.Progress
	}

	if res.Terminal {
		s.scanning = false
		s.progress = 100
	}
}

func (s *State) applyAgent(delta *events.AgentDelta) {
	agent, ok := s.agents[delta.Name]
	if !ok {
		agent = models.AgentState{Name: delta.Name}
	}
	if delta.Status != "" {
		agent.Status = delta.Status
	}
	if delta.QueueDepth != nil {
		agent.QueueDepth = *delta.QueueDepth
	}
	if delta.Processed != nil {
		agent.Processed = *delta.Processed
	}
	if delta.VulnFindings != nil {
		agent.VulnFindings = *delta.VulnFindings
	}
	s.agents[delta.Name] = agent
}

// Scanning reports whether the scan is believed to still be running.
func (s *State) Scanning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanning
}

// SetScanning is used by the connection manager on deliberate unsubscribe;
// a transient transport drop never calls this.
func (s *State) SetScanning(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanning = v
}

// Snapshot returns a consistent copy of the state. Agents are sorted by
// name so successive snapshots are stable.
func (s *State) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agents := make([]models.AgentState, 0, len(s.agents))
	for _, a := range s.agents {
		agents = append(agents, a)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })

	return View{
		Scanning: s.scanning,
		Progress: s.progress,
		Pipeline: s.pipeline,
		Agents:   agents,
		Metrics:  s.metrics,
		Findings: append([]models.Finding(nil), s.findings...),
		Logs:     append([]models.LogEntry(nil), s.logs...),
	}
}
