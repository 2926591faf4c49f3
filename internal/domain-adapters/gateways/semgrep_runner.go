package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/semscan/semscan/internal/domain/entities"
	"github.com/semscan/semscan/internal/domain/interfaces"
)

// SemgrepRunner builds and executes semgrep invocations against a
// checked-out source tree.
type SemgrepRunner struct {
	binary  string
	timeout time.Duration
	logger  interfaces.Logger
}

// NewSemgrepRunner creates a new semgrep runner with a bounded scan
// timeout.
func NewSemgrepRunner(timeout time.Duration, logger interfaces.Logger) *SemgrepRunner {
	return &SemgrepRunner{
		binary:  "semgrep",
		timeout: timeout,
		logger:  logger,
	}
}

// BuildArgs constructs the engine argument list from the declarative
// option set. Exported so the construction rules are testable without
// a semgrep binary.
func (r *SemgrepRunner) BuildArgs(targetDir string, format entities.OutputFormat, rulesets []string, outputPath string) []string {
	args := []string{"scan", "--metrics=off"}

	switch format {
	case entities.FormatSARIF:
		args = append(args, "--sarif")
	case entities.FormatText:
		args = append(args, "--text")
	default:
		args = append(args, "--json")
	}

	for _, ref := range rulesets {
		args = append(args, "--config", ref)
	}

	args = append(args, "--output", outputPath, targetDir)
	return args
}

// Scan runs the engine against targetDir. A non-zero exit is captured
// in the outcome rather than returned as an error; the pipeline
// decides that it is fatal. Errors are reserved for failures to run
// the process at all.
func (r *SemgrepRunner) Scan(ctx context.Context, targetDir string, format entities.OutputFormat, rulesets []string, outputPath string) (*entities.ScanOutcome, error) {
	scanCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := r.BuildArgs(targetDir, format, rulesets, outputPath)
	r.logger.Info("running scan", interfaces.F("rulesets", len(rulesets)), interfaces.F("format", format))

	//nolint:gosec // G204: engine arguments are built from validated request fields
	cmd := exec.CommandContext(scanCtx, r.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	outcome := &entities.ScanOutcome{
		OutputPath: outputPath,
		Format:     format,
		Stderr:     stderr.String(),
		Duration:   time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			outcome.ExitCode = exitErr.ExitCode()
		case scanCtx.Err() == context.DeadlineExceeded:
			outcome.ExitCode = -1
			return outcome, fmt.Errorf("scan timeout after %v", r.timeout)
		default:
			outcome.ExitCode = -1
			return outcome, fmt.Errorf("failed to run %s: %w", r.binary, err)
		}
	}

	return outcome, nil
}
