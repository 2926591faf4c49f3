package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	gatewayimpl "github.com/semscan/semscan/internal/domain-adapters/gateways"
	orchestrators "github.com/semscan/semscan/internal/domain-orchestrators"
	"github.com/semscan/semscan/internal/domain/entities"
	"github.com/semscan/semscan/internal/domain/interfaces"
	"github.com/semscan/semscan/internal/domain/interfaces/gateways"
	"github.com/semscan/semscan/internal/domain/services"
	"github.com/semscan/semscan/internal/external-adapters/gpg"
	"github.com/semscan/semscan/internal/external-adapters/html"
	settingsyaml "github.com/semscan/semscan/internal/external-adapters/yaml"
)

const defaultSettingsFile = ".semscan.yml"

func main() {
	fs := flag.NewFlagSet("semscan", flag.ContinueOnError)
	var (
		outputFormat = fs.String("output-format", "json", "Engine output format: json, sarif, or text")
		outputFile   = fs.String("output-file", "", "Raw results path (default semgrep-results.<format>)")
		htmlReport   = fs.String("html-report", "", "Rendered report path (default security-report.html)")
		webserverURL = fs.String("webserver-url", "", "Result delivery endpoint")
		apiKey       = fs.String("api-key", "", "Delivery API key; delivery is skipped without one")
		configs      = fs.StringArray("config", nil, "Additional ruleset reference (repeatable)")
		settingsPath = fs.String("settings", "", "Settings file path (default "+defaultSettingsFile+" when present)")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: semscan [options] <revision> <repository-url>

Clone a repository at a specific commit, run a semgrep scan against
it, and deliver the findings.

Arguments:
  <revision>        Commit to scan (7-40 character hex string)
  <repository-url>  Repository to clone (http or https)

Options:
%s
Examples:
  semscan abc123def4567 https://github.com/example/repo.git
  semscan --output-format sarif --config p/owasp-top-ten abc123def4567 https://github.com/example/repo.git
`, fs.FlagUsages())
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		fs.Usage()
		os.Exit(1)
	}

	if fs.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "Error: expected <revision> and <repository-url> arguments\n\n")
		fs.Usage()
		os.Exit(1)
	}

	// Interrupts cancel the context so in-flight clone/scan/publish
	// operations stop and the workspace is still released on the way
	// out.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := &entities.ScanRequest{
		Revision:      fs.Arg(0),
		RepositoryURL: fs.Arg(1),
		OutputFormat:  entities.OutputFormat(*outputFormat),
		OutputFile:    *outputFile,
		ReportFile:    *htmlReport,
		EndpointURL:   *webserverURL,
		APIKey:        *apiKey,
		Rulesets:      *configs,
	}

	logger := &interfaces.StderrLogger{}

	if err := applySettings(req, *settingsPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	service := services.NewScanService()
	service.ApplyDefaults(req)

	var verifier gateways.RulesetVerifier
	if req.Rules.VerifySignature {
		if req.Rules.KeyringPath == "" {
			fmt.Fprintf(os.Stderr, "Error: rules.verify_signature requires rules.keyring in the settings file\n")
			os.Exit(1)
		}
		v, err := gpg.NewVerifier(req.Rules.KeyringPath, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		verifier = v
	}

	orch := orchestrators.NewScanOrchestrator(orchestrators.ScanOrchestratorConfig{
		Service:    service,
		Workspaces: gatewayimpl.NewWorkspaceFactory(logger),
		Fetcher: gatewayimpl.NewGitFetcher(
			time.Duration(req.Timeouts.CloneSeconds)*time.Second,
			time.Duration(req.Timeouts.CheckoutSeconds)*time.Second,
			logger,
		),
		Engine:     gatewayimpl.NewSemgrepRunner(time.Duration(req.Timeouts.ScanSeconds)*time.Second, logger),
		Aggregator: gatewayimpl.NewAggregator(logger),
		Renderer:   html.NewRenderer(logger),
		Publisher:  gatewayimpl.NewHTTPPublisher(time.Duration(req.Timeouts.PublishSeconds)*time.Second, logger),
		Verifier:   verifier,
		Logger:     logger,
	})

	result, err := orch.Run(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	displayResult(result, req)
	os.Exit(result.ExitCode)
}

// applySettings merges the optional settings file into request fields
// the flags left unset.
func applySettings(req *entities.ScanRequest, path string) error {
	if path == "" {
		if _, err := os.Stat(defaultSettingsFile); err != nil {
			return nil
		}
		path = defaultSettingsFile
	}

	settings, err := settingsyaml.NewSettingsRepository(path).Load()
	if err != nil {
		return err
	}
	settings.Apply(req)
	return nil
}

func displayResult(result *entities.PipelineResult, req *entities.ScanRequest) {
	if result.ExitCode != 0 {
		fmt.Printf("Scan failed for %s at %s\n", req.RepositoryURL, req.Revision)
		return
	}

	summary := result.Summary
	fmt.Printf("Scan complete: %s at %s\n", req.RepositoryURL, req.Revision)
	fmt.Printf("  Findings: %d total (%d error, %d warning, %d note)\n",
		summary.TotalFindings, summary.Errors, summary.Warnings, summary.Notes)
	fmt.Printf("  Results:  %s\n", result.OutputPath)
	if result.ReportPath != "" {
		fmt.Printf("  Report:   %s\n", result.ReportPath)
	}
	if result.DeliveryAttempted {
		if result.DeliverySucceeded {
			fmt.Printf("  Delivery: succeeded\n")
		} else {
			fmt.Printf("  Delivery: failed (non-fatal)\n")
		}
	}
	for _, warning := range result.Warnings {
		fmt.Printf("  Warning:  %s\n", warning)
	}
}
