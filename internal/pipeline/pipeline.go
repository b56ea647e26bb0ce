// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     pipeline
// Description: Clean, build, tokenize, flatten and parse one test input
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/msto63/parsecheck/internal/artifact"
	"github.com/msto63/parsecheck/internal/procrun"
	"github.com/msto63/parsecheck/pkg/core/config"
	pcerror "github.com/msto63/parsecheck/pkg/core/error"
	"github.com/msto63/parsecheck/pkg/core/logging"
)

// Config holds the resolved tool locations and limits of a pipeline
type Config struct {
	BuildDir     string
	BuildCommand string
	CleanTarget  string
	BuildTarget  string
	SkipClean    bool
	SkipBuild    bool
	BuildTimeout time.Duration

	TokenizerPath   string
	TokenizeTimeout time.Duration

	ParserCommand string
	ParserArgs    []string
	GrammarPath   string
	ParseTimeout  time.Duration
	FailOnReject  bool

	ArtifactRoot string
}

// ConfigFrom resolves a pipeline configuration from application settings
func ConfigFrom(c *config.Config) Config {
	return Config{
		BuildDir:        c.BuildDir(),
		BuildCommand:    c.Build.Command,
		CleanTarget:     c.Build.CleanTarget,
		BuildTarget:     c.Build.BuildTarget,
		SkipClean:       c.Build.SkipClean,
		SkipBuild:       c.Build.SkipBuild,
		BuildTimeout:    c.Build.Timeout.Duration,
		TokenizerPath:   c.TokenizerPath(),
		TokenizeTimeout: c.Tokenizer.Timeout.Duration,
		ParserCommand:   c.Parser.Command,
		ParserArgs:      append([]string(nil), c.Parser.Args...),
		GrammarPath:     c.GrammarPath(),
		ParseTimeout:    c.Parser.Timeout.Duration,
		FailOnReject:    c.FailOnReject(),
		ArtifactRoot:    c.ArtifactRoot(),
	}
}

// Options holds per-run settings
type Options struct {
	// Keep leaves the workspace with both artifacts on disk
	Keep bool
	// Stdout receives the parser-interpreter output
	Stdout io.Writer
	// Diagnostics receives build output and tool stderr
	Diagnostics io.Writer
	// Observer is called for every stage transition
	Observer func(StageEvent)
}

func (o Options) stdout() io.Writer {
	if o.Stdout == nil {
		return io.Discard
	}
	return o.Stdout
}

func (o Options) diagnostics() io.Writer {
	if o.Diagnostics == nil {
		return io.Discard
	}
	return o.Diagnostics
}

// Pipeline runs acceptance checks against external tools
type Pipeline struct {
	cfg    Config
	runner procrun.Runner
	logger *logging.Logger
}

// New creates a pipeline
func New(cfg Config, runner procrun.Runner, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{
		cfg:    cfg,
		runner: runner,
		logger: logger.Named("pipeline"),
	}
}

// Config returns the pipeline configuration
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run builds the tokenizer and checks one input file. The returned
// report is never nil; its ExitCode matches the returned error.
func (p *Pipeline) Run(ctx context.Context, input string, opts Options) (*Report, error) {
	rep := p.newReport(input)

	stages, err := p.build(ctx, rep.RunID, opts)
	rep.Stages = append(rep.Stages, stages...)
	if err != nil {
		return p.finish(rep, err)
	}

	return p.finish(rep, p.check(ctx, input, opts, rep))
}

// Build runs the clean and build stages only
func (p *Pipeline) Build(ctx context.Context, opts Options) ([]StageResult, error) {
	return p.build(ctx, uuid.NewString(), opts)
}

// Check tokenizes, flattens and parses one input against an already
// built tokenizer
func (p *Pipeline) Check(ctx context.Context, input string, opts Options) (*Report, error) {
	rep := p.newReport(input)
	return p.finish(rep, p.check(ctx, input, opts, rep))
}

func (p *Pipeline) newReport(input string) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Input:     input,
		StartedAt: time.Now(),
	}
}

func (p *Pipeline) finish(rep *Report, err error) (*Report, error) {
	rep.Duration = time.Since(rep.StartedAt)
	if err != nil {
		rep.Code = pcerror.GetCode(err).String()
		rep.ExitCode = pcerror.ExitCode(err)
		rep.Error = err.Error()
	}
	return rep, err
}

func (p *Pipeline) build(ctx context.Context, runID string, opts Options) ([]StageResult, error) {
	var results []StageResult

	steps := []struct {
		stage  Stage
		target string
		skip   bool
		code   pcerror.Code
	}{
		{StageClean, p.cfg.CleanTarget, p.cfg.SkipClean, pcerror.CodeCleanFailed},
		{StageBuild, p.cfg.BuildTarget, p.cfg.SkipBuild, pcerror.CodeBuildFailed},
	}

	for _, step := range steps {
		if step.skip || step.target == "" {
			results = append(results, p.skip(runID, step.stage, opts))
			continue
		}

		res, err := p.runStage(ctx, runID, step.stage, step.code, opts, procrun.Spec{
			Name:    string(step.stage),
			Command: p.cfg.BuildCommand,
			Args:    []string{step.target},
			Dir:     p.cfg.BuildDir,
			Stdout:  opts.diagnostics(),
			Stderr:  opts.diagnostics(),
			Timeout: p.cfg.BuildTimeout,
		})
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}

	return results, nil
}

func (p *Pipeline) check(ctx context.Context, input string, opts Options, rep *Report) error {
	info, err := os.Stat(input)
	if err != nil {
		return pcerror.Wrapf(err, "test file %s", input).
			WithCode(pcerror.CodeInputNotFound).
			WithOperation("input")
	}
	if info.IsDir() {
		return pcerror.Newf("test file %s is a directory", input).
			WithCode(pcerror.CodeInputNotFound).
			WithOperation("input")
	}

	ws, err := artifact.NewWorkspace(p.cfg.ArtifactRoot)
	if err != nil {
		return pcerror.Wrap(err, "workspace").WithCode(pcerror.CodeInternal)
	}
	rep.Workspace = ws.Dir()
	rep.TokenizedPath = ws.TokenizedPath()
	rep.FormattedPath = ws.FormattedPath()

	err = p.checkIn(ctx, input, ws, opts, rep)
	p.cleanup(rep, ws, opts)
	return err
}

func (p *Pipeline) checkIn(ctx context.Context, input string, ws *artifact.Workspace, opts Options, rep *Report) error {
	if err := p.tokenize(ctx, input, ws, opts, rep); err != nil {
		return err
	}

	// exit status 2 when the tokenizer left nothing readable
	tokenized, err := os.Open(ws.TokenizedPath())
	if err != nil {
		rep.Stages = append(rep.Stages, StageResult{Stage: StageFlatten, Status: StageFailed.String(), Error: err.Error()})
		p.emit(opts, StageEvent{RunID: rep.RunID, Stage: StageFlatten, Status: StageFailed, Err: err})
		return pcerror.Wrap(err, "cannot open tokenized output").
			WithCode(pcerror.CodeArtifactUnreadable).
			WithOperation(string(StageFlatten)).
			WithDetail("path", ws.TokenizedPath())
	}
	defer tokenized.Close()

	if err := p.flatten(tokenized, ws, opts, rep); err != nil {
		return err
	}

	return p.parse(ctx, ws, opts, rep)
}

func (p *Pipeline) tokenize(ctx context.Context, input string, ws *artifact.Workspace, opts Options, rep *Report) error {
	in, err := os.Open(input)
	if err != nil {
		return pcerror.Wrapf(err, "test file %s", input).
			WithCode(pcerror.CodeInputNotFound).
			WithOperation("input")
	}
	defer in.Close()

	out, err := ws.CreateTokenized()
	if err != nil {
		return pcerror.Wrap(err, "create tokenized output").
			WithCode(pcerror.CodeTokenizeFailed).
			WithOperation(string(StageTokenize))
	}

	res, err := p.runStage(ctx, rep.RunID, StageTokenize, pcerror.CodeTokenizeFailed, opts, procrun.Spec{
		Name:    string(StageTokenize),
		Command: p.cfg.TokenizerPath,
		Dir:     p.cfg.BuildDir,
		Stdin:   in,
		Stdout:  out,
		Stderr:  opts.diagnostics(),
		Timeout: p.cfg.TokenizeTimeout,
	})
	rep.Stages = append(rep.Stages, res)

	if cerr := out.Close(); err == nil && cerr != nil {
		err = pcerror.Wrap(cerr, "close tokenized output").
			WithCode(pcerror.CodeTokenizeFailed).
			WithOperation(string(StageTokenize))
	}
	return err
}

func (p *Pipeline) flatten(tokenized io.Reader, ws *artifact.Workspace, opts Options, rep *Report) error {
	p.emit(opts, StageEvent{RunID: rep.RunID, Stage: StageFlatten, Status: StageStarted})
	start := time.Now()

	fail := func(err error) error {
		d := time.Since(start)
		rep.Stages = append(rep.Stages, StageResult{Stage: StageFlatten, Status: StageFailed.String(), Duration: d, Error: err.Error()})
		p.emit(opts, StageEvent{RunID: rep.RunID, Stage: StageFlatten, Status: StageFailed, Duration: d, Err: err})
		return pcerror.Wrap(err, "flatten tokenized output").
			WithCode(pcerror.CodeFlattenFailed).
			WithOperation(string(StageFlatten))
	}

	out, err := os.OpenFile(ws.FormattedPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fail(err)
	}
	n, err := artifact.Flatten(tokenized, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fail(err)
	}

	rep.Tokens = n
	d := time.Since(start)
	rep.Stages = append(rep.Stages, StageResult{Stage: StageFlatten, Status: StageSucceeded.String(), Duration: d})
	p.emit(opts, StageEvent{RunID: rep.RunID, Stage: StageFlatten, Status: StageSucceeded, Duration: d})
	return nil
}

func (p *Pipeline) parse(ctx context.Context, ws *artifact.Workspace, opts Options, rep *Report) error {
	in, err := os.Open(ws.FormattedPath())
	if err != nil {
		return pcerror.Wrap(err, "open formatted output").
			WithCode(pcerror.CodeParseFailed).
			WithOperation(string(StageParse))
	}
	defer in.Close()

	var captured bytes.Buffer
	args := append(append([]string(nil), p.cfg.ParserArgs...), p.cfg.GrammarPath)

	res, err := p.runStage(ctx, rep.RunID, StageParse, pcerror.CodeParseFailed, opts, procrun.Spec{
		Name:    string(StageParse),
		Command: p.cfg.ParserCommand,
		Args:    args,
		Dir:     p.cfg.BuildDir,
		Stdin:   in,
		Stdout:  io.MultiWriter(opts.stdout(), &captured),
		Stderr:  opts.diagnostics(),
		Timeout: p.cfg.ParseTimeout,
	})
	rep.Stages = append(rep.Stages, res)
	rep.ParserOutput = captured.String()
	if err != nil {
		return err
	}

	rep.Verdict = ClassifyVerdict(captured.Bytes())
	if rep.Verdict.Failed() && p.cfg.FailOnReject {
		return pcerror.Newf("parser reported %s", rep.Verdict).
			WithCode(pcerror.CodeParseRejected).
			WithOperation(string(StageParse)).
			WithDetail("verdict", string(rep.Verdict))
	}
	return nil
}

func (p *Pipeline) cleanup(rep *Report, ws *artifact.Workspace, opts Options) {
	if opts.Keep {
		rep.Kept = true
		rep.Stages = append(rep.Stages, p.skip(rep.RunID, StageCleanup, opts))
		p.logger.Info("Keeping intermediate files",
			"tokenized", ws.TokenizedPath(), "formatted", ws.FormattedPath())
		return
	}

	start := time.Now()
	if err := ws.Remove(); err != nil {
		// a leftover temp directory never changes the run's outcome
		p.logger.Warn("Failed to remove workspace", "dir", ws.Dir(), "error", err)
		rep.Stages = append(rep.Stages, StageResult{Stage: StageCleanup, Status: StageFailed.String(), Error: err.Error()})
		p.emit(opts, StageEvent{RunID: rep.RunID, Stage: StageCleanup, Status: StageFailed, Err: err})
		return
	}
	d := time.Since(start)
	rep.Stages = append(rep.Stages, StageResult{Stage: StageCleanup, Status: StageSucceeded.String(), Duration: d})
	p.emit(opts, StageEvent{RunID: rep.RunID, Stage: StageCleanup, Status: StageSucceeded, Duration: d})
}

// runStage runs one external tool and converts its failure into the
// stage's error code
func (p *Pipeline) runStage(ctx context.Context, runID string, stage Stage, code pcerror.Code, opts Options, spec procrun.Spec) (StageResult, error) {
	p.emit(opts, StageEvent{RunID: runID, Stage: stage, Status: StageStarted})
	start := time.Now()

	res, err := p.runner.Run(ctx, spec)
	d := time.Since(start)
	if res != nil && res.Duration > 0 {
		d = res.Duration
	}

	result := StageResult{Stage: stage, Status: StageSucceeded.String(), Duration: d}
	if res != nil {
		result.ExitCode = res.ExitCode
	}

	if err == nil {
		p.emit(opts, StageEvent{RunID: runID, Stage: stage, Status: StageSucceeded, Duration: d})
		return result, nil
	}

	result.Status = StageFailed.String()
	result.Error = err.Error()
	p.emit(opts, StageEvent{RunID: runID, Stage: stage, Status: StageFailed, Duration: d, Err: err})

	if errors.Is(err, context.Canceled) {
		code = pcerror.CodeCanceled
	}
	perr := pcerror.Wrap(err, fmt.Sprintf("%s stage failed", stage)).
		WithCode(code).
		WithOperation(string(stage)).
		WithDetail("command", spec.CommandLine())

	var exitErr *procrun.ExitError
	if errors.As(err, &exitErr) {
		perr.WithDetail("exit_code", exitErr.ExitCode)
	}
	if errors.Is(err, procrun.ErrTimeout) {
		perr.WithDetail("timeout", spec.Timeout.String())
	}
	return result, perr
}

func (p *Pipeline) skip(runID string, stage Stage, opts Options) StageResult {
	p.emit(opts, StageEvent{RunID: runID, Stage: stage, Status: StageSkipped})
	return StageResult{Stage: stage, Status: StageSkipped.String()}
}

func (p *Pipeline) emit(opts Options, ev StageEvent) {
	ev.Timestamp = time.Now()

	switch ev.Status {
	case StageFailed:
		p.logger.Warn("Stage failed", "run_id", ev.RunID, "stage", ev.Stage, "duration", ev.Duration, "error", ev.Err)
	case StageSucceeded:
		p.logger.Debug("Stage succeeded", "run_id", ev.RunID, "stage", ev.Stage, "duration", ev.Duration)
	default:
		p.logger.Debug("Stage "+ev.Status.String(), "run_id", ev.RunID, "stage", ev.Stage)
	}

	if opts.Observer != nil {
		opts.Observer(ev)
	}
}
