package gateways

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/semscan/semscan/internal/domain/entities"
	"github.com/semscan/semscan/internal/domain/interfaces"
)

func writeOutput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

const nativeOutput = `{
  "version": "1.86.0",
  "results": [
    {
      "check_id": "rules.hardcoded-password",
      "path": "app/config.py",
      "start": {"line": 12, "col": 1},
      "end": {"line": 12},
      "extra": {"message": "Hardcoded password", "severity": "ERROR", "lines": "password = \"hunter2\""}
    },
    {
      "check_id": "rules.insecure-http",
      "path": "app/client.py",
      "start": {"line": 30, "col": 5},
      "end": {"line": 30},
      "extra": {"message": "Plain http URL", "severity": "WARNING", "lines": "url = \"http://api\""}
    },
    {
      "check_id": "rules.todo-comment",
      "path": "app/main.py",
      "start": {"line": 3, "col": 1},
      "end": {"line": 3},
      "extra": {"message": "TODO left in code", "severity": "INFO", "lines": "# TODO"}
    }
  ],
  "errors": []
}`

const sarifOutput = `{
  "version": "2.1.0",
  "runs": [
    {
      "tool": {"driver": {"name": "semgrep", "semanticVersion": "1.86.0"}},
      "results": [
        {
          "ruleId": "rules.hardcoded-password",
          "level": "error",
          "message": {"text": "Hardcoded password"},
          "locations": [{"physicalLocation": {"artifactLocation": {"uri": "app/config.py"}, "region": {"startLine": 12, "startColumn": 1, "endLine": 12}}}]
        },
        {
          "ruleId": "rules.insecure-http",
          "level": "warning",
          "message": {"text": "Plain http URL"},
          "locations": [{"physicalLocation": {"artifactLocation": {"uri": "app/client.py"}, "region": {"startLine": 30}}}]
        },
        {
          "ruleId": "rules.missing-level",
          "message": {"text": "No level field"}
        }
      ]
    }
  ]
}`

func TestSummarize_NativeOutput(t *testing.T) {
	agg := NewAggregator(&interfaces.NoOpLogger{})
	path := writeOutput(t, nativeOutput)

	summary := agg.Summarize(path, entities.FormatJSON)

	if summary.Degraded {
		t.Error("Degraded = true for well-formed native output")
	}
	if summary.TotalFindings != 3 {
		t.Errorf("TotalFindings = %d, want 3", summary.TotalFindings)
	}
	if summary.Errors != 1 || summary.Warnings != 1 || summary.Notes != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", summary.Errors, summary.Warnings, summary.Notes)
	}
	if summary.Runs != 1 {
		t.Errorf("Runs = %d, want 1", summary.Runs)
	}
	if summary.EngineVersion != "1.86.0" {
		t.Errorf("EngineVersion = %q, want 1.86.0", summary.EngineVersion)
	}
}

func TestSummarize_SARIFOutput(t *testing.T) {
	agg := NewAggregator(&interfaces.NoOpLogger{})
	path := writeOutput(t, sarifOutput)

	summary := agg.Summarize(path, entities.FormatSARIF)

	if summary.Degraded {
		t.Error("Degraded = true for well-formed SARIF output")
	}
	if summary.TotalFindings != 3 {
		t.Errorf("TotalFindings = %d, want 3", summary.TotalFindings)
	}
	// The result without a level defaults to note.
	if summary.Errors != 1 || summary.Warnings != 1 || summary.Notes != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", summary.Errors, summary.Warnings, summary.Notes)
	}
}

// TestSummarize_FormatMismatch checks that a SARIF file declared as
// json still parses structurally.
func TestSummarize_FormatMismatch(t *testing.T) {
	agg := NewAggregator(&interfaces.NoOpLogger{})
	path := writeOutput(t, sarifOutput)

	summary := agg.Summarize(path, entities.FormatJSON)

	if summary.Degraded {
		t.Error("Degraded = true, want structured parse via SARIF tier")
	}
	if summary.TotalFindings != 3 {
		t.Errorf("TotalFindings = %d, want 3", summary.TotalFindings)
	}
}

func TestSummarize_MissingFile(t *testing.T) {
	agg := NewAggregator(&interfaces.NoOpLogger{})

	summary := agg.Summarize(filepath.Join(t.TempDir(), "absent.json"), entities.FormatJSON)

	if !summary.Degraded {
		t.Error("Degraded = false for missing file")
	}
	if summary.TotalFindings != 0 || summary.Errors != 0 || summary.Warnings != 0 || summary.Notes != 0 {
		t.Errorf("counts not zero: %+v", summary)
	}
}

func TestSummarize_NotJSON(t *testing.T) {
	agg := NewAggregator(&interfaces.NoOpLogger{})
	path := writeOutput(t, "plain text scan output\nruleId: not-a-json-key\n")

	summary := agg.Summarize(path, entities.FormatText)

	if !summary.Degraded {
		t.Error("Degraded = false for text output")
	}
	if summary.TotalFindings != 0 {
		t.Errorf("TotalFindings = %d, want 0", summary.TotalFindings)
	}
}

// TestSummarize_Fallback exercises the token-stream counter on JSON
// neither structured tier understands.
func TestSummarize_Fallback(t *testing.T) {
	// ruleId appearing inside a string value must not be counted; the
	// same document minified must count identically.
	pretty := `{
  "items": [
    {"ruleId": "rules.a", "level": "error"},
    {"ruleId": "rules.b", "level": "warning", "note": "message mentions ruleId and level words"}
  ]
}`
	minified := `{"items":[{"ruleId":"rules.a","level":"error"},{"ruleId":"rules.b","level":"warning","note":"message mentions ruleId and level words"}]}`

	agg := NewAggregator(&interfaces.NoOpLogger{})
	for _, tt := range []struct {
		name    string
		content string
	}{
		{"pretty", pretty},
		{"minified", minified},
	} {
		t.Run(tt.name, func(t *testing.T) {
			summary := agg.Summarize(writeOutput(t, tt.content), entities.FormatJSON)

			if !summary.Degraded {
				t.Error("Degraded = false, want fallback tier")
			}
			if summary.TotalFindings != 2 {
				t.Errorf("TotalFindings = %d, want 2", summary.TotalFindings)
			}
			if summary.Errors != 1 || summary.Warnings != 1 {
				t.Errorf("errors/warnings = %d/%d, want 1/1", summary.Errors, summary.Warnings)
			}
		})
	}
}

func TestFindings_Native(t *testing.T) {
	agg := NewAggregator(&interfaces.NoOpLogger{})
	path := writeOutput(t, nativeOutput)

	findings := agg.Findings(path, entities.FormatJSON)

	if len(findings) != 3 {
		t.Fatalf("Findings length = %d, want 3", len(findings))
	}

	first := findings[0]
	if first.RuleID != "rules.hardcoded-password" {
		t.Errorf("RuleID = %q", first.RuleID)
	}
	if first.Severity != entities.SeverityError {
		t.Errorf("Severity = %q, want error", first.Severity)
	}
	if first.Path != "app/config.py" || first.Line != 12 {
		t.Errorf("location = %s:%d, want app/config.py:12", first.Path, first.Line)
	}
	if first.Snippet == "" {
		t.Error("Snippet is empty, want the matched lines")
	}
}

func TestFindings_Malformed(t *testing.T) {
	agg := NewAggregator(&interfaces.NoOpLogger{})
	path := writeOutput(t, "{broken")

	findings := agg.Findings(path, entities.FormatJSON)

	if findings == nil {
		t.Error("Findings is nil, want empty slice")
	}
	if len(findings) != 0 {
		t.Errorf("Findings length = %d, want 0", len(findings))
	}
}

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ERROR", entities.SeverityError},
		{"error", entities.SeverityError},
		{"WARNING", entities.SeverityWarning},
		{"warning", entities.SeverityWarning},
		{"INFO", entities.SeverityNote},
		{"note", entities.SeverityNote},
		{"", entities.SeverityNote},
		{"bizarre", entities.SeverityNote},
	}

	for _, tt := range tests {
		if got := entities.NormalizeSeverity(tt.in); got != tt.want {
			t.Errorf("NormalizeSeverity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
