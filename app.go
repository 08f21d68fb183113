package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chazu/dfmcheck/pkg/analysis"
	"github.com/chazu/dfmcheck/pkg/build"
	"github.com/chazu/dfmcheck/pkg/config"
	"github.com/chazu/dfmcheck/pkg/dfm"
	"github.com/chazu/dfmcheck/pkg/engine"
	"github.com/chazu/dfmcheck/pkg/graph"
	"github.com/chazu/dfmcheck/pkg/kernel"
	"github.com/chazu/dfmcheck/pkg/kernel/sdfx"
	"github.com/chazu/dfmcheck/pkg/metrics"
	"github.com/chazu/dfmcheck/pkg/report"
	"go.uber.org/zap"
)

// ScriptError reports errors in the model script itself.
type ScriptError struct {
	Errors []engine.EvalError
}

func (e *ScriptError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ee := range e.Errors {
		msgs[i] = ee.Error()
	}
	return "script: " + strings.Join(msgs, "; ")
}

// InvalidModelError reports blocking design graph validation findings.
type InvalidModelError struct {
	Errors []graph.ValidationError
}

func (e *InvalidModelError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return "invalid model: " + strings.Join(msgs, "; ")
}

// App runs the pipeline: script, design graph, solids, report.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	engine  *engine.Engine
	kernel  kernel.Builder
	checker *dfm.Checker
	metrics *metrics.Recorder
}

// NewApp creates an App with the sdfx kernel. rec may be nil.
func NewApp(cfg config.Config, logger *zap.Logger, rec *metrics.Recorder) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:     cfg,
		logger:  logger,
		engine:  engine.NewEngine(engine.WithTimeout(cfg.Timeout), engine.WithLogger(logger.Named("engine"))),
		kernel:  sdfx.New(),
		checker: dfm.NewChecker(cfg.Rules, logger.Named("dfm")),
		metrics: rec,
	}
}

// Load evaluates source, validates the design graph and builds its solids.
func (a *App) Load(ctx context.Context, source string) (*build.Model, error) {
	g, evalErrs, err := a.engine.Evaluate(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	if len(evalErrs) > 0 {
		return nil, &ScriptError{Errors: evalErrs}
	}

	res := graph.ValidateAll(g)
	for _, w := range res.Warnings {
		a.logger.Warn("model warning", zap.String("node", w.NodeID.Short()), zap.String("message", w.Message))
	}
	if len(res.Errors) > 0 {
		return nil, &InvalidModelError{Errors: res.Errors}
	}

	m, err := build.Build(g, a.kernel)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("model built", zap.Strings("parts", m.Names()))
	return m, nil
}

// LoadFile reads and loads a model script.
func (a *App) LoadFile(ctx context.Context, path string) (*build.Model, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return a.Load(ctx, string(src))
}

// Check loads source and composes the report for process p. The analysis
// runs under the configured timeout.
func (a *App) Check(ctx context.Context, source string, p dfm.Process) (report.Report, error) {
	m, err := a.Load(ctx, source)
	if err != nil {
		return report.Report{}, err
	}

	composer := report.NewComposer(a.checker, a.cfg.Density, a.logger.Named("report"))
	start := time.Now()
	r, err := engine.Guard(ctx, a.cfg.Timeout, func() (report.Report, error) {
		return composer.Compose(ctx, m, p), nil
	})
	if err != nil {
		return report.Report{}, fmt.Errorf("analysis: %w", err)
	}

	if a.metrics != nil {
		a.metrics.Observe(dfm.Result{
			Process:    r.Process,
			Issues:     r.Issues,
			Skipped:    r.Skipped,
			SolidCount: r.Analysis.Assembly.Solids,
		}, time.Since(start))
	}
	return r, nil
}

// CheckFile reads a model script and checks it.
func (a *App) CheckFile(ctx context.Context, path string, p dfm.Process) (report.Report, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return report.Report{}, fmt.Errorf("read model: %w", err)
	}
	return a.Check(ctx, string(src), p)
}

// Physical computes the mass properties of a built model.
func (a *App) Physical(m kernel.Model) analysis.Physical {
	return analysis.New(a.logger.Named("physical")).Physical(m, a.cfg.Density)
}
