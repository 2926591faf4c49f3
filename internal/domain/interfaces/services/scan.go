// Package services defines contracts for domain business logic.
package services

import (
	"github.com/semscan/semscan/internal/domain/entities"
)

// ScanService holds the pipeline's pure business logic: request
// validation, defaulting, ruleset resolution, and payload
// construction. It performs no I/O beyond checking for the bundled
// ruleset directory.
type ScanService interface {
	// ApplyDefaults fills unset request fields before the request is
	// frozen and validated.
	ApplyDefaults(req *entities.ScanRequest)

	// ValidateRequest checks the request. A returned error is always a
	// *entities.ValidationError; no side effect has happened yet.
	ValidateRequest(req *entities.ScanRequest) error

	// ResolveRulesets produces the ordered ruleset references for the
	// engine invocation: bundled directory when present, then either
	// the caller-supplied references or the baseline fallback.
	ResolveRulesets(req *entities.ScanRequest) []string

	// BuildPayload constructs the delivery payload for publishing.
	BuildPayload(req *entities.ScanRequest, summary entities.FindingsSummary, findings []entities.Finding) *entities.DeliveryPayload
}
