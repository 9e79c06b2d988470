package websocket

import (
	"github.com/strikeview/strikeview/internal/models"
)

// EventDTO is the single message type relayed to the frontend: one mapped
// telemetry event plus the deltas it produced.
type EventDTO struct {
	ScanID   string           `json:"scan_id"`
	Log      *models.LogEntry `json:"log,omitempty"`
	Finding  *models.Finding  `json:"finding,omitempty"`
	Progress *float64         `json:"progress,omitempty"`
	Terminal bool             `json:"terminal,omitempty"`
}
