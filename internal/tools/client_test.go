package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/strikeview/strikeview/internal/models"
	"github.com/strikeview/strikeview/internal/persona"
)

func testClient() *Client {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewClient(ClientConfig{}, log.WithField("component", "tools"))
}

func TestExecute_CommandPayload(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"result":"Starting Nmap 7.94"}`))
	}))
	defer server.Close()

	p := persona.Persona{Name: "recon", Endpoint: server.URL, Payload: persona.PayloadCommand}
	call := models.ToolCall{ID: "call_1", Name: "run_command", Arguments: `{"command":"nmap -F target"}`}

	result, err := testClient().Execute(context.Background(), p, call)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result != "Starting Nmap 7.94" {
		t.Errorf("result = %q", result)
	}
	if captured["command"] != "nmap -F target" {
		t.Errorf("single-tool payload must be {command}, got %v", captured)
	}
	if _, present := captured["tool"]; present {
		t.Error("command payload must not carry a tool field")
	}
}

func TestExecute_ToolArgsPayload(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(`{"result":"ok"}`))
	}))
	defer server.Close()

	p := persona.Persona{Name: "web-pentest", Endpoint: server.URL, Payload: persona.PayloadToolArgs}
	call := models.ToolCall{ID: "call_2", Name: "http_probe", Arguments: `{"url":"http://t.example","method":"GET"}`}

	if _, err := testClient().Execute(context.Background(), p, call); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if captured["tool"] != "http_probe" {
		t.Errorf("multi-tool payload must carry the tool name, got %v", captured)
	}
	args, ok := captured["args"].(map[string]any)
	if !ok || args["url"] != "http://t.example" {
		t.Errorf("args not forwarded: %v", captured["args"])
	}
}

func TestExecute_StructuredResultIsIndented(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"open_ports":[22,80],"host":"t.example"}}`))
	}))
	defer server.Close()

	p := persona.Persona{Name: "recon", Endpoint: server.URL, Payload: persona.PayloadCommand}
	result, err := testClient().Execute(context.Background(), p, models.ToolCall{Name: "run_command", Arguments: `{"command":"x"}`})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !strings.Contains(result, "\n  ") {
		t.Errorf("structured result must be indented, got %q", result)
	}
	if !strings.Contains(result, `"host": "t.example"`) {
		t.Errorf("structured fields lost: %q", result)
	}
}

func TestExecute_NonSuccessStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "tool crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	p := persona.Persona{Name: "recon", Endpoint: server.URL, Payload: persona.PayloadCommand}
	_, err := testClient().Execute(context.Background(), p, models.ToolCall{Name: "run_command", Arguments: `{"command":"x"}`})
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should name the status, got %v", err)
	}
}

func TestExecute_BadArgumentsJSON(t *testing.T) {
	p := persona.Persona{Name: "web-pentest", Endpoint: "http://127.0.0.1:1", Payload: persona.PayloadToolArgs}
	_, err := testClient().Execute(context.Background(), p, models.ToolCall{Name: "x", Arguments: `{broken`})
	if err == nil {
		t.Fatal("expected an error for malformed arguments")
	}
}
