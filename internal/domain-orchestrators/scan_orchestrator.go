// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/semscan/semscan/internal/domain/entities"
	"github.com/semscan/semscan/internal/domain/interfaces"
	"github.com/semscan/semscan/internal/domain/interfaces/gateways"
	"github.com/semscan/semscan/internal/domain/interfaces/services"
)

// pipelineState names the driver's position in the run. Reported and
// Published are optional branches that degrade to warnings; Failed is
// terminal and always followed by workspace release.
type pipelineState string

const (
	stateValidating     pipelineState = "Validating"
	stateWorkspaceReady pipelineState = "WorkspaceReady"
	stateFetched        pipelineState = "Fetched"
	stateScanned        pipelineState = "Scanned"
	stateAggregated     pipelineState = "Aggregated"
	stateReported       pipelineState = "Reported"
	statePublished      pipelineState = "Published"
	stateDone           pipelineState = "Done"
	stateFailed         pipelineState = "Failed"
)

// ScanOrchestrator sequences the scan pipeline and owns the overall
// success/failure contract and exit code.
type ScanOrchestrator struct {
	service    services.ScanService
	workspaces gateways.WorkspaceFactory
	fetcher    gateways.RepositoryFetcher
	engine     gateways.ScanEngine
	aggregator gateways.ResultAggregator
	renderer   gateways.ReportRenderer
	publisher  gateways.ResultPublisher
	verifier   gateways.RulesetVerifier
	logger     interfaces.Logger

	state pipelineState
}

// ScanOrchestratorConfig injects the pipeline's collaborators.
// Renderer and Verifier are optional; the matching stages are skipped
// when they are absent.
type ScanOrchestratorConfig struct {
	Service    services.ScanService
	Workspaces gateways.WorkspaceFactory
	Fetcher    gateways.RepositoryFetcher
	Engine     gateways.ScanEngine
	Aggregator gateways.ResultAggregator
	Renderer   gateways.ReportRenderer
	Publisher  gateways.ResultPublisher
	Verifier   gateways.RulesetVerifier
	Logger     interfaces.Logger
}

// NewScanOrchestrator creates a new scan orchestrator
func NewScanOrchestrator(config ScanOrchestratorConfig) *ScanOrchestrator {
	return &ScanOrchestrator{
		service:    config.Service,
		workspaces: config.Workspaces,
		fetcher:    config.Fetcher,
		engine:     config.Engine,
		aggregator: config.Aggregator,
		renderer:   config.Renderer,
		publisher:  config.Publisher,
		verifier:   config.Verifier,
		logger:     config.Logger,
	}
}

// Run executes one complete pipeline pass. The returned result always
// carries the process exit code; err is non-nil only for the fatal
// classes (validation, fetch, engine). The workspace never outlives
// this call, whatever path it exits through.
func (o *ScanOrchestrator) Run(ctx context.Context, req *entities.ScanRequest) (*entities.PipelineResult, error) {
	result := &entities.PipelineResult{}

	o.transition(stateValidating)
	if err := o.service.ValidateRequest(req); err != nil {
		return o.fail(result, err)
	}

	rulesets := o.service.ResolveRulesets(req)
	if err := o.verifyRulesets(ctx, rulesets); err != nil {
		return o.fail(result, err)
	}

	ws, err := o.workspaces.Acquire()
	if err != nil {
		return o.fail(result, err)
	}
	defer ws.Release()
	o.transition(stateWorkspaceReady)

	repoDir := filepath.Join(ws.Path(), "repo")
	fetch, err := o.fetcher.Fetch(ctx, req.RepositoryURL, req.Revision, repoDir)
	if err != nil {
		return o.fail(result, err)
	}
	o.transition(stateFetched)
	if fetch.Mismatch {
		msg := fmt.Sprintf("checked-out revision %s does not match requested %s", fetch.HeadRevision, req.Revision)
		o.logger.Warn(msg)
		result.Warn(msg)
	}

	// The engine writes inside the workspace; the artifact is copied
	// to the caller-visible path before teardown.
	rawPath := filepath.Join(ws.Path(), filepath.Base(req.OutputFile))
	outcome, err := o.engine.Scan(ctx, repoDir, req.OutputFormat, rulesets, rawPath)
	if err != nil {
		return o.fail(result, err)
	}
	if !outcome.Succeeded() {
		return o.fail(result, &entities.EngineError{ExitCode: outcome.ExitCode, Stderr: outcome.Stderr})
	}
	o.transition(stateScanned)

	if err := copyFile(rawPath, req.OutputFile); err != nil {
		return o.fail(result, fmt.Errorf("failed to copy results out of workspace: %w", err))
	}
	result.OutputPath = req.OutputFile

	result.Summary = o.aggregator.Summarize(req.OutputFile, req.OutputFormat)
	o.transition(stateAggregated)
	if result.Summary.Degraded {
		result.Warn("structured result parsing degraded; summary counts are best-effort")
	}

	o.renderReport(req, result)
	o.publish(ctx, req, result)
	o.copyToMount(req, result)

	o.transition(stateDone)
	return result, nil
}

// verifyRulesets checks detached signatures on local ruleset files
// before any side effect. A bad signature aborts the run; remote
// registry references are not verifiable and pass through.
func (o *ScanOrchestrator) verifyRulesets(ctx context.Context, rulesets []string) error {
	if o.verifier == nil {
		return nil
	}

	for _, ref := range rulesets {
		if _, err := os.Stat(ref); err != nil {
			continue // registry reference, nothing on disk to verify
		}
		if err := o.verifier.VerifyRuleset(ctx, ref); err != nil {
			return fmt.Errorf("ruleset %s failed signature verification: %w", ref, err)
		}
	}

	return nil
}

// renderReport generates the HTML report when the format is json and
// the raw file exists. Failure is a warning; a missing report never
// fails an otherwise-successful scan.
func (o *ScanOrchestrator) renderReport(req *entities.ScanRequest, result *entities.PipelineResult) {
	if o.renderer == nil || req.OutputFormat != entities.FormatJSON || !fileExists(req.OutputFile) {
		return
	}

	findings := o.aggregator.Findings(req.OutputFile, req.OutputFormat)
	if err := o.renderer.Render(findings, result.Summary, req.RepositoryURL, req.Revision, req.ReportFile); err != nil {
		msg := fmt.Sprintf("report generation failed: %v", err)
		o.logger.Warn(msg)
		result.Warn(msg)
		return
	}

	result.ReportPath = req.ReportFile
	o.transition(stateReported)
}

// publish delivers the payload when an API key is configured and the
// raw file exists. No key or no file is a logged no-op; a failed
// delivery is a warning and leaves the exit code alone.
func (o *ScanOrchestrator) publish(ctx context.Context, req *entities.ScanRequest, result *entities.PipelineResult) {
	if req.APIKey == "" {
		o.logger.Info("no API key configured, skipping delivery")
		return
	}
	if !fileExists(req.OutputFile) {
		o.logger.Info("no results file present, skipping delivery")
		return
	}

	payload := o.service.BuildPayload(req, result.Summary, o.aggregator.Findings(req.OutputFile, req.OutputFormat))

	result.DeliveryAttempted = true
	ok, err := o.publisher.Publish(ctx, req.EndpointURL, req.APIKey, payload)
	if err != nil {
		msg := fmt.Sprintf("delivery failed: %v", err)
		o.logger.Warn(msg)
		result.Warn(msg)
		return
	}
	if !ok {
		result.Warn("delivery rejected by endpoint")
		return
	}

	result.DeliverySucceeded = true
	o.transition(statePublished)
}

// copyToMount copies produced artifacts into the caller-mounted
// output directory when one exists (container volume convention).
func (o *ScanOrchestrator) copyToMount(req *entities.ScanRequest, result *entities.PipelineResult) {
	info, err := os.Stat(req.MountDir)
	if err != nil || !info.IsDir() {
		return
	}

	for _, src := range []string{result.OutputPath, result.ReportPath} {
		if src == "" {
			continue
		}
		dest := filepath.Join(req.MountDir, filepath.Base(src))
		if err := copyFile(src, dest); err != nil {
			msg := fmt.Sprintf("failed to copy %s to %s: %v", src, req.MountDir, err)
			o.logger.Warn(msg)
			result.Warn(msg)
		}
	}
}

func (o *ScanOrchestrator) fail(result *entities.PipelineResult, err error) (*entities.PipelineResult, error) {
	o.transition(stateFailed)
	result.ExitCode = 1
	return result, err
}

func (o *ScanOrchestrator) transition(next pipelineState) {
	o.state = next
	o.logger.Debug("pipeline state", interfaces.F("state", string(next)))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func copyFile(src, dest string) error {
	//nolint:gosec // G304: both paths are pipeline-owned artifacts
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	//nolint:errcheck // Defer close on read-only file
	defer in.Close()

	//nolint:gosec // G304: both paths are pipeline-owned artifacts
	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
