package gateways

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/semscan/semscan/internal/domain/entities"
	"github.com/semscan/semscan/internal/domain/interfaces"
)

// Aggregator derives findings and summary counts from a raw engine
// output file. It tolerates two structured encodings (SARIF runs and
// semgrep's native results array) and degrades to a token-stream
// counter when neither parses. It never fails: any problem yields
// zero-valued counts.
type Aggregator struct {
	logger interfaces.Logger
}

// NewAggregator creates a new result aggregator
func NewAggregator(logger interfaces.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// sarifReport is the minimum SARIF shape the pipeline needs.
type sarifReport struct {
	Runs []struct {
		Tool struct {
			Driver struct {
				Name            string `json:"name"`
				SemanticVersion string `json:"semanticVersion"`
				Version         string `json:"version"`
			} `json:"driver"`
		} `json:"tool"`
		Results []sarifResult `json:"results"`
	} `json:"runs"`
}

type sarifResult struct {
	RuleID  string `json:"ruleId"`
	Level   string `json:"level"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
	Locations []struct {
		PhysicalLocation struct {
			ArtifactLocation struct {
				URI string `json:"uri"`
			} `json:"artifactLocation"`
			Region struct {
				StartLine   int `json:"startLine"`
				StartColumn int `json:"startColumn"`
				EndLine     int `json:"endLine"`
				Snippet     struct {
					Text string `json:"text"`
				} `json:"snippet"`
			} `json:"region"`
		} `json:"physicalLocation"`
	} `json:"locations"`
	CodeFlows []struct {
		ThreadFlows []struct {
			Locations []struct {
				Location struct {
					Snippet struct {
						Text string `json:"text"`
					} `json:"snippet"`
				} `json:"location"`
			} `json:"locations"`
		} `json:"threadFlows"`
	} `json:"codeFlows"`
}

// semgrepReport is the engine's native JSON output shape.
type semgrepReport struct {
	Version string `json:"version"`
	Results []struct {
		CheckID string `json:"check_id"`
		Path    string `json:"path"`
		Start   struct {
			Line int `json:"line"`
			Col  int `json:"col"`
		} `json:"start"`
		End struct {
			Line int `json:"line"`
		} `json:"end"`
		Extra struct {
			Message  string `json:"message"`
			Severity string `json:"severity"`
			Lines    string `json:"lines"`
		} `json:"extra"`
	} `json:"results"`
}

// Summarize computes the findings summary for a raw output file.
func (a *Aggregator) Summarize(outputPath string, format entities.OutputFormat) entities.FindingsSummary {
	data, err := os.ReadFile(outputPath) //nolint:gosec // G304: path is the pipeline's own output artifact
	if err != nil {
		a.logger.Warn("output file unreadable, reporting zero counts", interfaces.F("error", err))
		return entities.FindingsSummary{Degraded: true}
	}

	findings, runs, version, ok := a.parseStructured(data, format)
	if !ok {
		a.logger.Warn("structured parse failed, using token-stream fallback counts")
		return fallbackSummary(data)
	}

	summary := entities.FindingsSummary{
		Runs:          runs,
		TotalFindings: len(findings),
		EngineVersion: version,
	}
	for _, f := range findings {
		summary.Count(f.Severity)
	}
	return summary
}

// Findings extracts the normalized findings list. Empty on any parse
// failure; the delivery payload tolerates an empty list.
func (a *Aggregator) Findings(outputPath string, format entities.OutputFormat) []entities.Finding {
	data, err := os.ReadFile(outputPath) //nolint:gosec // G304: path is the pipeline's own output artifact
	if err != nil {
		return []entities.Finding{}
	}

	findings, _, _, ok := a.parseStructured(data, format)
	if !ok {
		return []entities.Finding{}
	}
	return findings
}

// parseStructured tries both structured encodings, declared format
// first, so a SARIF file handed in as json (or vice versa) still
// parses.
func (a *Aggregator) parseStructured(data []byte, format entities.OutputFormat) ([]entities.Finding, int, string, bool) {
	if format == entities.FormatSARIF {
		if findings, runs, version, ok := parseSARIF(data); ok {
			return findings, runs, version, true
		}
		return parseSemgrepNative(data)
	}

	if findings, runs, version, ok := parseSemgrepNative(data); ok {
		return findings, runs, version, true
	}
	return parseSARIF(data)
}

func parseSARIF(data []byte) ([]entities.Finding, int, string, bool) {
	var report sarifReport
	if err := json.Unmarshal(data, &report); err != nil || len(report.Runs) == 0 {
		return nil, 0, "", false
	}

	findings := make([]entities.Finding, 0)
	version := ""
	for _, run := range report.Runs {
		if version == "" {
			if run.Tool.Driver.SemanticVersion != "" {
				version = run.Tool.Driver.SemanticVersion
			} else {
				version = run.Tool.Driver.Version
			}
		}
		for _, res := range run.Results {
			level := res.Level
			if level == "" {
				level = entities.SeverityNote
			}

			finding := entities.Finding{
				RuleID:   res.RuleID,
				Severity: entities.NormalizeSeverity(level),
				Message:  res.Message.Text,
				Snippet:  sarifSnippet(res),
			}
			if len(res.Locations) > 0 {
				loc := res.Locations[0].PhysicalLocation
				finding.Path = loc.ArtifactLocation.URI
				finding.Line = loc.Region.StartLine
				finding.Column = loc.Region.StartColumn
				finding.EndLine = loc.Region.EndLine
			}
			findings = append(findings, finding)
		}
	}

	return findings, len(report.Runs), version, true
}

// sarifSnippet prefers the region snippet and falls back to the first
// code-flow snippet, which is where semgrep's SARIF output puts the
// matched code.
func sarifSnippet(res sarifResult) string {
	if len(res.Locations) > 0 {
		if text := res.Locations[0].PhysicalLocation.Region.Snippet.Text; text != "" {
			return text
		}
	}
	for _, flow := range res.CodeFlows {
		for _, thread := range flow.ThreadFlows {
			for _, loc := range thread.Locations {
				if text := loc.Location.Snippet.Text; text != "" {
					return text
				}
			}
		}
	}
	return ""
}

func parseSemgrepNative(data []byte) ([]entities.Finding, int, string, bool) {
	var report semgrepReport
	if err := json.Unmarshal(data, &report); err != nil || report.Results == nil {
		return nil, 0, "", false
	}

	findings := make([]entities.Finding, 0, len(report.Results))
	for _, res := range report.Results {
		findings = append(findings, entities.Finding{
			RuleID:   res.CheckID,
			Severity: entities.NormalizeSeverity(res.Extra.Severity),
			Message:  res.Extra.Message,
			Path:     res.Path,
			Line:     res.Start.Line,
			Column:   res.Start.Col,
			EndLine:  res.End.Line,
			Snippet:  res.Extra.Lines,
		})
	}

	// Native output is a single logical run.
	return findings, 1, report.Version, true
}

// fallbackSummary walks the raw bytes as a JSON token stream and
// counts ruleId/check_id keys and level/severity values. Tracking key
// versus value position makes the counts immune to formatting and to
// rule names appearing inside message strings, unlike a substring
// search. Non-JSON input simply yields zeroes.
func fallbackSummary(data []byte) entities.FindingsSummary {
	summary := entities.FindingsSummary{Degraded: true}

	type frame struct {
		inObject  bool
		expectKey bool
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var stack []frame
	lastKey := ""

	for {
		tok, err := dec.Token()
		if err != nil {
			// EOF or malformed input: keep whatever was counted.
			return summary
		}

		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{':
				stack = append(stack, frame{inObject: true, expectKey: true})
			case '[':
				stack = append(stack, frame{inObject: false})
			default: // '}' or ']'
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
				if len(stack) > 0 && stack[len(stack)-1].inObject {
					stack[len(stack)-1].expectKey = true
				}
			}
			lastKey = ""

		case string:
			if len(stack) == 0 || !stack[len(stack)-1].inObject {
				continue
			}
			top := &stack[len(stack)-1]
			if top.expectKey {
				if t == "ruleId" || t == "check_id" {
					summary.TotalFindings++
				}
				lastKey = t
				top.expectKey = false
			} else {
				if lastKey == "level" || lastKey == "severity" {
					summary.Count(entities.NormalizeSeverity(t))
				}
				lastKey = ""
				top.expectKey = true
			}

		default:
			// Number, bool, or null value completes a key/value pair.
			if len(stack) > 0 && stack[len(stack)-1].inObject {
				stack[len(stack)-1].expectKey = true
			}
			lastKey = ""
		}
	}
}
