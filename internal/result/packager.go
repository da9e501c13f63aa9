// Package result merges execution outcome, error classification and
// collected output files into the response returned to the host platform.
package result

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ohler55/ojg/oj"

	"pyrunner/internal/output"
	"pyrunner/internal/runner"
)

// ExecutionResult is the full record of one script invocation.
type ExecutionResult struct {
	ExitCode     int                 `json:"exit_code"`
	Success      bool                `json:"success"`
	Stdout       string              `json:"stdout"`
	Stderr       string              `json:"stderr"`
	Timestamp    time.Time           `json:"timestamp"`
	DurationMS   int64               `json:"duration_ms"`
	TimedOut     bool                `json:"timed_out,omitempty"`
	ParsedStdout any                 `json:"parsed_stdout,omitempty"`
	StdoutParsed bool                `json:"stdout_parsed"`
	Error        *runner.ErrorDetail `json:"error,omitempty"`
}

// Payload is the response object handed back to the caller.
type Payload struct {
	Result          ExecutionResult     `json:"result"`
	OutputFiles     []output.FileRecord `json:"output_files,omitempty"`
	OutputDirectory string              `json:"output_directory,omitempty"`
}

// Artifact is a downloadable export file.
type Artifact struct {
	Filename   string `json:"filename"`
	MimeType   string `json:"mimetype"`
	Base64Data string `json:"base64_data"`
}

// Export metadata markers.
const (
	exportFormatVersion = "1.0"
	exportRunner        = "pyrunner"
	exportDescription   = "Python Function execution export"
)

// Package builds the response payload from a finished process. Stdout is
// decoded as JSON on a best-effort basis; a failed parse is recorded, never
// an error. The classified detail rides along verbatim.
func Package(proc *runner.ProcessResult, detail *runner.ErrorDetail, files []output.FileRecord, outputDir string) *Payload {
	res := ExecutionResult{
		ExitCode:   proc.ExitCode,
		Success:    proc.ExitCode == 0,
		Stdout:     proc.Stdout,
		Stderr:     proc.Stderr,
		Timestamp:  time.Now().UTC(),
		DurationMS: proc.Duration.Milliseconds(),
		TimedOut:   proc.TimedOut,
		Error:      detail,
	}

	if parsed, ok := parseStdout(proc.Stdout); ok {
		res.ParsedStdout = parsed
		res.StdoutParsed = true
	}

	return &Payload{
		Result:          res,
		OutputFiles:     files,
		OutputDirectory: outputDir,
	}
}

// parseStdout attempts a lenient structured decode of captured stdout.
func parseStdout(stdout string) (any, bool) {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return nil, false
	}
	parsed, err := oj.Parse([]byte(trimmed))
	if err != nil {
		return nil, false
	}
	return parsed, true
}

// BuildExportArtifacts produces the two optional export files: the exact
// script text that was executed and a metadata document wrapping the full
// execution result. Both come back as attachment-shaped artifacts.
func BuildExportArtifacts(scriptText string, res ExecutionResult) (script Artifact, metadata Artifact, err error) {
	script = Artifact{
		Filename:   "script.py",
		MimeType:   "text/x-python",
		Base64Data: base64.StdEncoding.EncodeToString([]byte(scriptText)),
	}

	doc := map[string]any{
		"execution_results": res,
		"export_info": map[string]any{
			"format_version": exportFormatVersion,
			"runner":         exportRunner,
			"description":    exportDescription,
			"exported_at":    time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Artifact{}, Artifact{}, fmt.Errorf("encoding export metadata: %w", err)
	}

	metadata = Artifact{
		Filename:   "output.json",
		MimeType:   "application/json",
		Base64Data: base64.StdEncoding.EncodeToString(raw),
	}
	return script, metadata, nil
}
