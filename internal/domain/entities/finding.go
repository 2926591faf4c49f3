package entities

// Severity levels findings are bucketed into for summary reporting.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityNote    = "note"
)

// Finding is a single normalized issue reported by the analysis engine.
type Finding struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	EndLine  int    `json:"end_line"`

	// Snippet is the offending code when the engine included one.
	Snippet string `json:"snippet,omitempty"`
}

// NormalizeSeverity maps the engine's severity spellings onto the
// three summary buckets. SARIF uses error/warning/note, semgrep's
// native output uses ERROR/WARNING/INFO. Unknown values bucket as note.
func NormalizeSeverity(s string) string {
	switch s {
	case "error", "ERROR", "high", "HIGH":
		return SeverityError
	case "warning", "WARNING", "medium", "MEDIUM":
		return SeverityWarning
	default:
		return SeverityNote
	}
}
