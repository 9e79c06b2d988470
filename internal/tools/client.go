// Package tools executes model-requested tool calls against a persona's
// HTTP execution endpoint.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/strikeview/strikeview/internal/models"
	"github.com/strikeview/strikeview/internal/persona"
)

const maxResultBytes = 1 << 20

// ClientConfig configures the execution client.
type ClientConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// Client issues tool execution requests. One client serves all personas;
// the endpoint and payload shape come from the persona per call.
type Client struct {
	httpClient *http.Client
	config     ClientConfig
	log        *logrus.Entry
}

func NewClient(config ClientConfig, log *logrus.Entry) *Client {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "strikeview-agent/1.0"
	}
	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
		log:        log,
	}
}

type commandPayload struct {
	Command string `json:"command"`
}

type toolArgsPayload struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

type resultEnvelope struct {
	Result json.RawMessage `json:"result"`
}

// Execute runs one tool call and returns the result as text. Structured
// results are serialized to indented JSON so they read well inside
// conversation history. The caller folds errors into tool turns; Execute
// itself only reports them.
func (c *Client) Execute(ctx context.Context, p persona.Persona, call models.ToolCall) (string, error) {
	body, err := c.buildPayload(p, call)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating tool request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	c.log.WithFields(logrus.Fields{"tool": call.Name, "endpoint": p.Endpoint}).Debug("executing tool call")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing tool %s: %w", call.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBytes))
	if err != nil {
		return "", fmt.Errorf("reading tool result: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("tool %s returned status %d: %s", call.Name, resp.StatusCode, raw)
	}

	return renderResult(raw)
}

func (c *Client) buildPayload(p persona.Persona, call models.ToolCall) ([]byte, error) {
	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return nil, fmt.Errorf("tool %s arguments are not valid JSON: %w", call.Name, err)
		}
	}

	switch p.Payload {
	case persona.PayloadCommand:
		command, _ := args["command"].(string)
		if command == "" {
			// The model occasionally puts the whole line under another key;
			// fall back to the raw argument string rather than sending nothing.
			command = call.Arguments
		}
		return json.Marshal(commandPayload{Command: command})
	default:
		return json.Marshal(toolArgsPayload{Tool: call.Name, Args: args})
	}
}

// renderResult turns {result: string|object} into display text.
func renderResult(raw []byte) (string, error) {
	var env resultEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Result) == 0 {
		// Endpoints that return a bare body instead of the envelope.
		return string(raw), nil
	}

	var text string
	if err := json.Unmarshal(env.Result, &text); err == nil {
		return text, nil
	}

	var structured any
	if err := json.Unmarshal(env.Result, &structured); err != nil {
		return string(env.Result), nil
	}
	pretty, err := json.MarshalIndent(structured, "", "  ")
	if err != nil {
		return string(env.Result), nil
	}
	return string(pretty), nil
}
