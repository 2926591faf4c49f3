// Package entities defines core domain models and data structures.
package entities

// OutputFormat is the engine output format requested by the caller.
type OutputFormat string

// Supported engine output formats.
const (
	FormatJSON  OutputFormat = "json"
	FormatSARIF OutputFormat = "sarif"
	FormatText  OutputFormat = "text"
)

// Valid reports whether the format is one the engine supports.
func (f OutputFormat) Valid() bool {
	switch f {
	case FormatJSON, FormatSARIF, FormatText:
		return true
	}
	return false
}

// ScanRequest is the immutable input to one pipeline invocation.
// It is built once at entry from flags and the optional settings file,
// validated before any side effect, and passed through the pipeline
// unchanged.
type ScanRequest struct {
	Revision      string
	RepositoryURL string

	OutputFormat OutputFormat
	OutputFile   string
	ReportFile   string

	EndpointURL string
	APIKey      string

	// Rulesets holds caller-supplied ruleset references in the order
	// they were given on the command line.
	Rulesets []string

	Rules    RulesPolicy
	Timeouts Timeouts

	// MountDir is a caller-visible directory artifacts are copied into
	// when it exists (container volume convention).
	MountDir string
}

// RulesPolicy controls ruleset resolution and verification.
type RulesPolicy struct {
	BundledDir      string
	FallbackRef     string
	VerifySignature bool
	KeyringPath     string
}

// Timeouts bounds the pipeline's blocking operations, in seconds.
// Zero values fall back to built-in defaults.
type Timeouts struct {
	CloneSeconds    int
	CheckoutSeconds int
	ScanSeconds     int
	PublishSeconds  int
}
