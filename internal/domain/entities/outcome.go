package entities

import "time"

// ScanOutcome is the raw product of one engine run: the output
// artifact on disk plus the engine's classified exit status. Finding
// issues is not a failure; only the engine erroring out is.
type ScanOutcome struct {
	OutputPath string
	Format     OutputFormat
	ExitCode   int
	Stderr     string
	Duration   time.Duration
}

// Succeeded reports whether the engine ran cleanly. Semgrep exits 0
// whether or not findings were produced, so any non-zero exit is a
// tool error rather than "issues found".
func (o *ScanOutcome) Succeeded() bool {
	return o != nil && o.ExitCode == 0
}
