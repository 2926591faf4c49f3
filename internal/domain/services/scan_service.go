// Package services implements domain business logic and use cases.
package services

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/semscan/semscan/internal/domain/entities"
	"github.com/semscan/semscan/internal/domain/interfaces/services"
)

// Defaults applied to unset request fields.
const (
	DefaultReportFile  = "security-report.html"
	DefaultEndpointURL = "http://webserver.internal:8080/api/results"
	DefaultMountDir    = "/output"
	DefaultBundledDir  = "rules"
	DefaultFallbackRef = "p/default"

	defaultCloneSeconds    = 300
	defaultCheckoutSeconds = 60
	defaultScanSeconds     = 1800
	defaultPublishSeconds  = 30
)

var revisionPattern = regexp.MustCompile(`^[a-f0-9]{7,40}$`)

// scanService implements ScanService with pure business logic
type scanService struct{}

// NewScanService creates a new scan service
func NewScanService() services.ScanService {
	return &scanService{}
}

// ApplyDefaults fills unset request fields in place. The request is
// treated as immutable after this point.
func (s *scanService) ApplyDefaults(req *entities.ScanRequest) {
	if req.OutputFormat == "" {
		req.OutputFormat = entities.FormatJSON
	}
	if req.OutputFile == "" {
		req.OutputFile = fmt.Sprintf("semgrep-results.%s", req.OutputFormat)
	}
	if req.ReportFile == "" {
		req.ReportFile = DefaultReportFile
	}
	if req.EndpointURL == "" {
		req.EndpointURL = DefaultEndpointURL
	}
	if req.MountDir == "" {
		req.MountDir = DefaultMountDir
	}
	if req.Rules.BundledDir == "" {
		req.Rules.BundledDir = DefaultBundledDir
	}
	if req.Rules.FallbackRef == "" {
		req.Rules.FallbackRef = DefaultFallbackRef
	}
	if req.Timeouts.CloneSeconds <= 0 {
		req.Timeouts.CloneSeconds = defaultCloneSeconds
	}
	if req.Timeouts.CheckoutSeconds <= 0 {
		req.Timeouts.CheckoutSeconds = defaultCheckoutSeconds
	}
	if req.Timeouts.ScanSeconds <= 0 {
		req.Timeouts.ScanSeconds = defaultScanSeconds
	}
	if req.Timeouts.PublishSeconds <= 0 {
		req.Timeouts.PublishSeconds = defaultPublishSeconds
	}
}

// ValidateRequest checks revision, repository URL, and format before
// any side effect. Failing here means no workspace was ever created.
func (s *scanService) ValidateRequest(req *entities.ScanRequest) error {
	if !revisionPattern.MatchString(req.Revision) {
		return &entities.ValidationError{
			Field:  "revision",
			Reason: "must be a 7-40 character lowercase hex string",
		}
	}

	if !strings.HasPrefix(req.RepositoryURL, "http://") && !strings.HasPrefix(req.RepositoryURL, "https://") {
		return &entities.ValidationError{
			Field:  "repository-url",
			Reason: "must use an http or https scheme",
		}
	}
	if _, err := url.Parse(req.RepositoryURL); err != nil {
		return &entities.ValidationError{
			Field:  "repository-url",
			Reason: fmt.Sprintf("not a valid URL: %v", err),
		}
	}

	if !req.OutputFormat.Valid() {
		return &entities.ValidationError{
			Field:  "output-format",
			Reason: fmt.Sprintf("%q is not one of json, sarif, text", req.OutputFormat),
		}
	}

	return nil
}

// ResolveRulesets builds the ordered ruleset list for the engine.
// The bundled directory rides along whenever it exists; the baseline
// fallback applies only when the caller supplied no references, so
// bundled and fallback are both active only in that case.
func (s *scanService) ResolveRulesets(req *entities.ScanRequest) []string {
	rulesets := make([]string, 0, len(req.Rulesets)+2)

	if info, err := os.Stat(req.Rules.BundledDir); err == nil && info.IsDir() {
		rulesets = append(rulesets, req.Rules.BundledDir)
	}

	if len(req.Rulesets) > 0 {
		rulesets = append(rulesets, req.Rulesets...)
	} else {
		rulesets = append(rulesets, req.Rules.FallbackRef)
	}

	return rulesets
}

// BuildPayload assembles the delivery document. Findings may be empty
// when extraction degraded; the payload is still well-formed.
func (s *scanService) BuildPayload(req *entities.ScanRequest, summary entities.FindingsSummary, findings []entities.Finding) *entities.DeliveryPayload {
	if findings == nil {
		findings = []entities.Finding{}
	}

	return &entities.DeliveryPayload{
		Commit:     req.Revision,
		Repository: req.RepositoryURL,
		Findings:   findings,
		Summary: entities.DeliverySummary{
			Errors:   summary.Errors,
			Warnings: summary.Warnings,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		ScanID:    uuid.NewString(),
	}
}
