package yaml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/semscan/semscan/internal/domain/entities"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".semscan.yml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeSettings(t, `
delivery:
  endpoint: http://storage.internal/api/results
  api_key: from-file
rules:
  bundled_dir: custom-rules
  fallback: p/owasp-top-ten
  verify_signature: true
  keyring: /etc/semscan/keyring.asc
output:
  mount_dir: /mnt/results
timeouts:
  clone_seconds: 120
  scan_seconds: 900
`)

	settings, err := NewSettingsRepository(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if settings.Delivery.Endpoint != "http://storage.internal/api/results" {
		t.Errorf("Delivery.Endpoint = %q", settings.Delivery.Endpoint)
	}
	if settings.Delivery.APIKey != "from-file" {
		t.Errorf("Delivery.APIKey = %q", settings.Delivery.APIKey)
	}
	if settings.Rules.BundledDir != "custom-rules" {
		t.Errorf("Rules.BundledDir = %q", settings.Rules.BundledDir)
	}
	if settings.Rules.Fallback != "p/owasp-top-ten" {
		t.Errorf("Rules.Fallback = %q", settings.Rules.Fallback)
	}
	if !settings.Rules.VerifySignature {
		t.Error("Rules.VerifySignature = false")
	}
	if settings.Output.MountDir != "/mnt/results" {
		t.Errorf("Output.MountDir = %q", settings.Output.MountDir)
	}
	if settings.Timeouts.CloneSeconds != 120 {
		t.Errorf("Timeouts.CloneSeconds = %d", settings.Timeouts.CloneSeconds)
	}
	if settings.Timeouts.ScanSeconds != 900 {
		t.Errorf("Timeouts.ScanSeconds = %d", settings.Timeouts.ScanSeconds)
	}
	// Absent sections stay zero.
	if settings.Timeouts.PublishSeconds != 0 {
		t.Errorf("Timeouts.PublishSeconds = %d, want 0", settings.Timeouts.PublishSeconds)
	}
}

// TestLoad_UnknownField checks that typos in the file are rejected
// instead of silently ignored.
func TestLoad_UnknownField(t *testing.T) {
	path := writeSettings(t, `
delivery:
  endpont: http://typo.example
`)

	if _, err := NewSettingsRepository(path).Load(); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	repo := NewSettingsRepository(filepath.Join(t.TempDir(), "nope.yml"))
	if _, err := repo.Load(); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := writeSettings(t, "delivery: [unclosed")
	if _, err := NewSettingsRepository(path).Load(); err == nil {
		t.Fatal("expected error for malformed YAML, got nil")
	}
}

// TestApply_FlagsWin checks precedence: values already set on the
// request survive, settings only fill the gaps.
func TestApply_FlagsWin(t *testing.T) {
	settings := &Settings{}
	settings.Delivery.Endpoint = "http://from-file.internal"
	settings.Delivery.APIKey = "file-key"
	settings.Rules.Fallback = "p/from-file"
	settings.Output.MountDir = "/mnt/from-file"
	settings.Timeouts.ScanSeconds = 600

	req := &entities.ScanRequest{
		EndpointURL: "http://from-flag.internal",
		Rules:       entities.RulesPolicy{FallbackRef: "p/from-flag"},
		Timeouts:    entities.Timeouts{ScanSeconds: 60},
	}
	settings.Apply(req)

	if req.EndpointURL != "http://from-flag.internal" {
		t.Errorf("EndpointURL = %q, flag value should win", req.EndpointURL)
	}
	if req.Rules.FallbackRef != "p/from-flag" {
		t.Errorf("Rules.FallbackRef = %q, flag value should win", req.Rules.FallbackRef)
	}
	if req.Timeouts.ScanSeconds != 60 {
		t.Errorf("Timeouts.ScanSeconds = %d, flag value should win", req.Timeouts.ScanSeconds)
	}

	// Unset fields take the file value.
	if req.APIKey != "file-key" {
		t.Errorf("APIKey = %q, want file value", req.APIKey)
	}
	if req.MountDir != "/mnt/from-file" {
		t.Errorf("MountDir = %q, want file value", req.MountDir)
	}
}

func TestApply_EmptySettingsChangeNothing(t *testing.T) {
	req := &entities.ScanRequest{}
	(&Settings{}).Apply(req)

	if req.EndpointURL != "" || req.APIKey != "" || req.MountDir != "" {
		t.Errorf("empty settings mutated the request: %+v", req)
	}
}
