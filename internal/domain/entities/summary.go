package entities

// FindingsSummary is the read-only aggregate derived from a scan
// outcome. All counts are zero when the outcome is absent or
// unparseable; aggregation degrades, it never fails.
type FindingsSummary struct {
	Runs          int
	TotalFindings int
	Errors        int
	Warnings      int
	Notes         int

	// Degraded is set when the structured parse failed and counts came
	// from the token-stream fallback (or nothing parsed at all).
	Degraded bool

	// EngineVersion is the engine version when the outcome recorded
	// one, empty otherwise.
	EngineVersion string
}

// Count increments the bucket for a normalized severity level.
func (s *FindingsSummary) Count(severity string) {
	switch severity {
	case SeverityError:
		s.Errors++
	case SeverityWarning:
		s.Warnings++
	default:
		s.Notes++
	}
}
