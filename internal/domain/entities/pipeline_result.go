package entities

// PipelineResult is the terminal value of one pipeline invocation.
// The driver uses it to decide final messaging and the process exit
// code.
type PipelineResult struct {
	ExitCode int

	OutputPath string
	ReportPath string

	Summary FindingsSummary

	DeliveryAttempted bool
	DeliverySucceeded bool

	// Warnings collects every non-fatal degradation surfaced during
	// the run (revision mismatch, fallback aggregation, report or
	// delivery failure).
	Warnings []string
}

// Warn appends a non-fatal degradation message.
func (r *PipelineResult) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
