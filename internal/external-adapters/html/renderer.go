// Package html renders scan findings into a standalone report
// document.
package html

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/semscan/semscan/internal/domain/entities"
	"github.com/semscan/semscan/internal/domain/interfaces"
)

//go:embed report_template.html
var reportTemplate string

// fallbackTemplate keeps report generation working even if the
// embedded template is edited into something unparseable.
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head><title>Security Scan Report</title></head>
<body>
<h1>Security Scan Report</h1>
<p><strong>Repository:</strong> {{.RepositoryURL}}</p>
<p><strong>Commit:</strong> {{.Commit}}</p>
<p><strong>Generated:</strong> {{.ScanDate}}</p>
<p><strong>Total findings:</strong> {{.TotalFindings}}</p>
{{range .Findings}}
<div>
<h3>{{.RuleID}}</h3>
<p>{{.SeverityLabel}}: {{.Message}}</p>
<p>{{.Path}}:{{.Line}}</p>
</div>
{{end}}
</body>
</html>`

// Renderer produces the HTML report from normalized findings and scan
// metadata.
type Renderer struct {
	tmpl   *template.Template
	logger interfaces.Logger
}

// NewRenderer creates a renderer from the embedded template, falling
// back to a minimal inline template if it fails to parse.
func NewRenderer(logger interfaces.Logger) *Renderer {
	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		logger.Warn("embedded report template unparseable, using fallback", interfaces.F("error", err))
		tmpl = template.Must(template.New("report").Parse(fallbackTemplate))
	}
	return &Renderer{tmpl: tmpl, logger: logger}
}

// reportData is the template's view of one scan.
type reportData struct {
	RepositoryURL string
	Commit        string
	ScanDate      string
	EngineVersion string

	TotalFindings int
	HighCount     int
	MediumCount   int
	LowCount      int

	Findings []reportFinding
}

type reportFinding struct {
	RuleID        string
	SeverityLabel string
	SeverityClass string
	Message       string
	Path          string
	Line          int
	Snippet       template.HTML
	HasSnippet    bool
}

// Render writes the report for destPath. Failure here is always
// non-fatal to the pipeline; the caller downgrades it to a warning.
func (r *Renderer) Render(findings []entities.Finding, summary entities.FindingsSummary, repoURL, revision, destPath string) error {
	data := reportData{
		RepositoryURL: repoURL,
		Commit:        revision,
		ScanDate:      time.Now().UTC().Format("2006-01-02 15:04:05 UTC"),
		EngineVersion: summary.EngineVersion,
		TotalFindings: len(findings),
		HighCount:     summary.Errors,
		MediumCount:   summary.Warnings,
		LowCount:      summary.Notes,
	}

	for _, f := range findings {
		label, class := severityPresentation(f.Severity)
		rf := reportFinding{
			RuleID:        f.RuleID,
			SeverityLabel: label,
			SeverityClass: class,
			Message:       f.Message,
			Path:          f.Path,
			Line:          f.Line,
		}
		if f.Snippet != "" {
			rf.Snippet = r.highlight(f.Snippet, f.Path)
			rf.HasSnippet = true
		}
		data.Findings = append(data.Findings, rf)
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execution failed: %w", err)
	}

	if err := os.WriteFile(destPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	r.logger.Info("report written", interfaces.F("path", destPath), interfaces.F("findings", len(findings)))
	return nil
}

// highlight renders a code snippet through chroma, keyed by the file
// extension. Anything chroma cannot handle degrades to an escaped
// <pre> block.
func (r *Renderer) highlight(snippet, path string) template.HTML {
	lexer := strings.TrimPrefix(filepath.Ext(path), ".")

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, snippet, lexer, "html", "github"); err != nil {
		escaped := template.HTMLEscapeString(snippet)
		//nolint:gosec // G203: content is escaped above
		return template.HTML("<pre><code>" + escaped + "</code></pre>")
	}

	//nolint:gosec // G203: chroma's HTML formatter escapes its input
	return template.HTML(buf.String())
}

// severityPresentation maps the summary buckets onto the report's
// high/medium/low vocabulary.
func severityPresentation(severity string) (label, class string) {
	switch severity {
	case entities.SeverityError:
		return "HIGH", "high"
	case entities.SeverityWarning:
		return "MEDIUM", "medium"
	default:
		return "LOW", "low"
	}
}
