// Package gateways defines contracts for infrastructure adapters the
// pipeline depends on.
package gateways

import (
	"context"

	"github.com/semscan/semscan/internal/domain/entities"
)

// Workspace is a single-use scan directory with exclusive ownership.
// Release removes it recursively and is safe to call more than once;
// removal failures are logged by the implementation, never escalated.
type Workspace interface {
	Path() string
	Release()
}

// WorkspaceFactory creates disposable workspaces, one per pipeline
// invocation.
type WorkspaceFactory interface {
	Acquire() (Workspace, error)
}

// FetchResult describes what a clone/checkout actually produced.
type FetchResult struct {
	// HeadRevision is the commit the working tree ended up on.
	HeadRevision string

	// Mismatch is set when HeadRevision does not match the requested
	// revision (short hash, or unreachable at shallow depth).
	Mismatch bool
}

// RepositoryFetcher clones a repository at depth 1 into a directory
// and checks out a specific revision.
type RepositoryFetcher interface {
	Fetch(ctx context.Context, url, revision, dir string) (*FetchResult, error)
}

// ScanEngine runs the analysis engine against a checked-out tree.
type ScanEngine interface {
	Scan(ctx context.Context, targetDir string, format entities.OutputFormat, rulesets []string, outputPath string) (*entities.ScanOutcome, error)
}

// ResultAggregator derives a findings summary and a normalized
// findings list from a raw output file. Neither method fails: parse
// problems degrade to zero counts / empty lists.
type ResultAggregator interface {
	Summarize(outputPath string, format entities.OutputFormat) entities.FindingsSummary
	Findings(outputPath string, format entities.OutputFormat) []entities.Finding
}

// ResultPublisher delivers a payload to the remote endpoint. One
// attempt per run; a false return with nil error means the endpoint
// rejected the payload (non-2xx), which is non-fatal to the pipeline.
type ResultPublisher interface {
	Publish(ctx context.Context, endpoint, apiKey string, payload *entities.DeliveryPayload) (bool, error)
}

// ReportRenderer produces the standalone human-readable report.
type ReportRenderer interface {
	Render(findings []entities.Finding, summary entities.FindingsSummary, repoURL, revision, destPath string) error
}

// RulesetVerifier checks detached signatures on local ruleset files.
type RulesetVerifier interface {
	VerifyRuleset(ctx context.Context, path string) error
}
