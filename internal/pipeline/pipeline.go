// Package pipeline wires script generation, subprocess execution, output
// collection and result packaging into one orchestrated flow.
package pipeline

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pyrunner/internal/config"
	"pyrunner/internal/monitor"
	"pyrunner/internal/output"
	"pyrunner/internal/result"
	"pyrunner/internal/runner"
	"pyrunner/internal/script"
	"pyrunner/internal/storage"
)

// Pipeline runs user-submitted Python code end to end: compose a script,
// execute it in a subprocess, classify failures, collect output files and
// package the response.
type Pipeline struct {
	cfg       config.RunnerConfig
	env       config.EnvConfig
	executor  *runner.Executor
	scratch   *runner.ScratchManager
	inspector *monitor.CodeInspector
	metrics   *monitor.Metrics
	tracer    *monitor.Tracer
	audit     *storage.AuditWriter // nil when audit logging is disabled

	sem    chan struct{}
	active atomic.Int64
}

// New creates a pipeline from configuration. audit may be nil.
func New(cfg *config.Config, metrics *monitor.Metrics, audit *storage.AuditWriter) *Pipeline {
	maxConcurrent := cfg.Runner.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 10
	}

	return &Pipeline{
		cfg:       cfg.Runner,
		env:       cfg.Env,
		executor:  runner.NewExecutor(cfg.Runner.Interpreter, cfg.Runner.InterpreterArgs),
		scratch:   runner.NewScratchManager(cfg.Runner.ScratchRoot),
		inspector: monitor.NewCodeInspector(),
		metrics:   metrics,
		tracer:    monitor.NewTracer(),
		audit:     audit,
		sem:       make(chan struct{}, maxConcurrent),
	}
}

// Active reports the number of executions currently in flight.
func (p *Pipeline) Active() int64 {
	return p.active.Load()
}

// InterpreterAvailable reports whether the configured interpreter can be
// found on PATH.
func (p *Pipeline) InterpreterAvailable() bool {
	return p.executor.Available()
}

// Generate composes the script for a request without running it. The
// result is syntax-checked; output_dir is bound to a placeholder path
// since no scratch directory is provisioned.
func (p *Pipeline) Generate(req Request) (string, error) {
	if err := p.validate(req); err != nil {
		return "", err
	}

	refs, err := BuildFileRefs(req.Items, "")
	if err != nil {
		p.metrics.RecordGenerationError("attachment_decode")
		return "", fmt.Errorf("%w: %v", script.ErrGeneration, err)
	}

	outputDir := ""
	if req.Options.EnableOutputDir {
		outputDir = "/tmp/" + runner.ScratchPrefix + "preview"
	}

	text, err := script.Compose(req.Code, toScriptItems(req.Items),
		MergeEnv(req.EnvVars, p.env.PassThrough), refs, outputDir, req.Options)
	if err != nil {
		p.metrics.RecordGenerationError("compose")
		return "", err
	}

	if err := script.CheckSyntax(text); err != nil {
		p.metrics.RecordGenerationError("syntax")
		return "", err
	}

	p.metrics.ScriptSizeBytes.Observe(float64(len(text)))
	return text, nil
}

// Run executes a request end to end and returns the packaged payload.
// Script-level failures (non-zero exit, timeout) are reported inside the
// payload; an error return means the pipeline itself could not run.
func (p *Pipeline) Run(ctx context.Context, req Request) (*result.Payload, error) {
	execID := uuid.New().String()
	codeHash := fmt.Sprintf("%x", sha256.Sum256([]byte(req.Code)))

	logger := log.With().
		Str("exec_id", execID).
		Str("code_hash", codeHash[:16]).
		Logger()

	logger.Info().Msg("execution requested")

	if err := p.validate(req); err != nil {
		return nil, &runner.ExecError{ExecID: execID, Op: "validate", Err: err}
	}

	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-ctx.Done():
		return nil, &runner.ExecError{ExecID: execID, Op: "acquire_slot", Err: ctx.Err()}
	}

	p.active.Add(1)
	p.metrics.ActiveExecutions.Inc()
	defer func() {
		p.active.Add(-1)
		p.metrics.ActiveExecutions.Dec()
	}()

	ctx, span := p.tracer.StartSpan(ctx, "run",
		monitor.AttrExecID.String(execID))
	defer span.End()

	findings := p.inspector.Inspect(req.Code)
	for _, f := range findings {
		p.metrics.RecordRiskyPattern(f.Pattern)
	}

	timeout := p.clampTimeout(req.Timeout)
	start := time.Now()

	// The script lives in its own directory so the output scan never
	// picks it up.
	scriptDir, err := os.MkdirTemp("", "pyrunner_script_")
	if err != nil {
		return nil, &runner.ExecError{ExecID: execID, Op: "create_script_dir", Err: err}
	}
	defer func() {
		if rmErr := os.RemoveAll(scriptDir); rmErr != nil {
			logger.Error().Err(rmErr).Msg("script dir cleanup failed")
		}
	}()

	outputDir := ""
	if req.Options.EnableOutputDir {
		outputDir, err = p.scratch.Create()
		if err != nil {
			return nil, &runner.ExecError{ExecID: execID, Op: "create_scratch", Err: err}
		}
		if p.cfg.CleanupScratch {
			defer p.scratch.Remove(outputDir)
		}
	}

	fileDir := ""
	if req.Options.MaterializeInputFiles {
		fileDir = scriptDir
	}
	refs, err := BuildFileRefs(req.Items, fileDir)
	if err != nil {
		p.metrics.RecordGenerationError("attachment_decode")
		return nil, &runner.ExecError{ExecID: execID, Op: "materialize_files",
			Err: fmt.Errorf("%w: %v", script.ErrGeneration, err)}
	}

	text, err := script.Compose(req.Code, toScriptItems(req.Items),
		MergeEnv(req.EnvVars, p.env.PassThrough), refs, outputDir, req.Options)
	if err != nil {
		p.metrics.RecordGenerationError("compose")
		return nil, &runner.ExecError{ExecID: execID, Op: "compose", Err: err}
	}

	if err := script.CheckSyntax(text); err != nil {
		p.metrics.RecordGenerationError("syntax")
		return nil, &runner.ExecError{ExecID: execID, Op: "check_syntax", Err: err}
	}

	p.metrics.ScriptSizeBytes.Observe(float64(len(text)))
	span.SetAttributes(monitor.AttrScriptBytes.Int(len(text)))

	scriptPath := filepath.Join(scriptDir, "script.py")
	if err := os.WriteFile(scriptPath, []byte(text), 0600); err != nil {
		return nil, &runner.ExecError{ExecID: execID, Op: "write_script", Err: err}
	}

	proc, err := p.executor.Run(ctx, scriptPath, timeout)
	if err != nil {
		p.metrics.RecordExecution("launch_failure", time.Since(start))
		return nil, &runner.ExecError{ExecID: execID, Op: "execute", Err: err}
	}

	detail := runner.Classify(proc.ExitCode, proc.Stderr)
	if proc.TimedOut {
		detail = &runner.ErrorDetail{
			Kind:    runner.ErrorKindGeneric,
			Message: runner.TimeoutMessage,
		}
	}
	if detail != nil {
		p.metrics.RecordClassifiedError(string(detail.Kind))
		span.SetAttributes(monitor.AttrErrorKind.String(string(detail.Kind)))
	}

	var files []output.FileRecord
	if outputDir != "" {
		files, err = output.Collect(outputDir, p.cfg.MaxOutputFileBytes)
		if err != nil {
			logger.Error().Err(err).Msg("output collection failed")
		}
		for _, f := range files {
			p.metrics.RecordOutputFile(f.Size)
		}
	}

	payload := result.Package(proc, detail, files, outputDir)

	status := runStatus(proc)
	p.metrics.RecordExecution(status, proc.Duration)
	p.metrics.StdoutSizeBytes.Observe(float64(len(proc.Stdout)))
	span.SetAttributes(
		monitor.AttrExitCode.Int(proc.ExitCode),
		monitor.AttrOutputFiles.Int(len(files)),
		monitor.AttrDurationMS.Int64(proc.Duration.Milliseconds()),
	)

	logger.Info().
		Int("exit_code", proc.ExitCode).
		Dur("duration", proc.Duration).
		Bool("timed_out", proc.TimedOut).
		Int("output_files", len(files)).
		Msg("execution completed")

	p.recordAudit(execID, codeHash, req.RequestIP, proc, detail, len(files), len(findings), start)

	return payload, nil
}

// RunScript executes an already-composed script text: write it to a temp
// file, run the interpreter against it, classify the outcome. No scratch
// directory is provisioned and no outputs are collected; use Run for the
// full flow.
func (p *Pipeline) RunScript(ctx context.Context, scriptText string, timeout time.Duration) (*result.ExecutionResult, error) {
	if scriptText == "" {
		return nil, fmt.Errorf("%w: empty script", runner.ErrInvalidRequest)
	}

	dir, err := os.MkdirTemp("", "pyrunner_script_")
	if err != nil {
		return nil, &runner.ExecError{Op: "create_script_dir", Err: err}
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.Error().Err(rmErr).Msg("script dir cleanup failed")
		}
	}()

	scriptPath := filepath.Join(dir, "script.py")
	if err := os.WriteFile(scriptPath, []byte(scriptText), 0600); err != nil {
		return nil, &runner.ExecError{Op: "write_script", Err: err}
	}

	proc, err := p.executor.Run(ctx, scriptPath, p.clampTimeout(timeout))
	if err != nil {
		return nil, &runner.ExecError{Op: "execute", Err: err}
	}

	detail := runner.Classify(proc.ExitCode, proc.Stderr)
	if proc.TimedOut {
		detail = &runner.ErrorDetail{
			Kind:    runner.ErrorKindGeneric,
			Message: runner.TimeoutMessage,
		}
	}

	payload := result.Package(proc, detail, nil, "")
	p.metrics.RecordExecution(runStatus(proc), proc.Duration)
	return &payload.Result, nil
}

func (p *Pipeline) validate(req Request) error {
	if len(req.Code) == 0 {
		return fmt.Errorf("%w: empty code", runner.ErrInvalidRequest)
	}
	if p.cfg.MaxScriptBytes > 0 && int64(len(req.Code)) > p.cfg.MaxScriptBytes {
		return fmt.Errorf("%w: code exceeds %d bytes", runner.ErrInvalidRequest, p.cfg.MaxScriptBytes)
	}
	return nil
}

func (p *Pipeline) clampTimeout(requested time.Duration) time.Duration {
	timeout := requested
	if timeout <= 0 {
		timeout = p.cfg.DefaultTimeout
	}
	if p.cfg.MaxTimeout > 0 && timeout > p.cfg.MaxTimeout {
		timeout = p.cfg.MaxTimeout
	}
	return timeout
}

// SweepOrphans removes scratch directories older than the configured age.
func (p *Pipeline) SweepOrphans() (int, error) {
	return p.scratch.SweepOrphans(p.cfg.OrphanSweepAge)
}

func (p *Pipeline) recordAudit(execID, codeHash, requestIP string, proc *runner.ProcessResult,
	detail *runner.ErrorDetail, fileCount, findingCount int, start time.Time) {

	if p.audit == nil {
		return
	}

	completed := time.Now()
	rec := &storage.Execution{
		ID:            execID,
		CodeHash:      codeHash,
		ExitCode:      proc.ExitCode,
		Stdout:        proc.Stdout,
		Stderr:        proc.Stderr,
		DurationMS:    proc.Duration.Milliseconds(),
		OutputFiles:   fileCount,
		RiskyFindings: findingCount,
		TimedOut:      proc.TimedOut,
		Status:        runStatus(proc),
		RequestIP:     requestIP,
		CreatedAt:     start,
		CompletedAt:   &completed,
	}
	if detail != nil {
		rec.ErrorKind = string(detail.Kind)
	}
	p.audit.Log(rec)
}

func runStatus(proc *runner.ProcessResult) string {
	switch {
	case proc.TimedOut:
		return "timeout"
	case proc.ExitCode == 0:
		return "completed"
	default:
		return "error"
	}
}
