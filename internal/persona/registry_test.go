package persona

import "testing"

func TestLoad_Builtin(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("loading built-in personas: %v", err)
	}

	names := reg.Names()
	if len(names) == 0 {
		t.Fatal("registry is empty")
	}

	p, err := reg.Get("recon")
	if err != nil {
		t.Fatalf("recon persona missing: %v", err)
	}
	if p.SystemPrompt == "" || p.Endpoint == "" {
		t.Errorf("recon persona incomplete: %+v", p)
	}
	if p.Payload != PayloadCommand {
		t.Errorf("recon is a single-tool persona, payload = %q", p.Payload)
	}
	if len(p.Tools) != 1 || p.Tools[0].Name != "run_command" {
		t.Errorf("unexpected recon tool set: %+v", p.Tools)
	}
}

func TestLoad_MultiToolPersona(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("loading built-in personas: %v", err)
	}

	p, err := reg.Get("web-pentest")
	if err != nil {
		t.Fatalf("web-pentest persona missing: %v", err)
	}
	if p.Payload != PayloadToolArgs {
		t.Errorf("multi-tool persona must use the tool/args payload, got %q", p.Payload)
	}
	if len(p.Tools) < 2 {
		t.Errorf("expected several tools, got %d", len(p.Tools))
	}
	for _, tool := range p.Tools {
		if tool.Parameters["type"] != "object" {
			t.Errorf("tool %s parameters are not an object schema", tool.Name)
		}
	}
}

func TestGet_Unknown(t *testing.T) {
	reg, err := Load()
	if err != nil {
		t.Fatalf("loading built-in personas: %v", err)
	}
	if _, err := reg.Get("no-such-persona"); err == nil {
		t.Error("expected an error for an unknown persona")
	}
}

func TestParse_Validation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing name", "personas:\n  - endpoint: http://x\n"},
		{"missing endpoint", "personas:\n  - name: a\n"},
		{"duplicate", "personas:\n  - name: a\n    endpoint: http://x\n  - name: a\n    endpoint: http://y\n"},
	}
	for _, tc := range cases {
		if _, err := parse([]byte(tc.yaml)); err == nil {
			t.Errorf("%s: expected parse error", tc.name)
		}
	}
}
