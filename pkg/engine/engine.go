// Package engine evaluates model scripts. It wraps zygomys in a sandboxed
// environment and produces a DesignGraph from user source code.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/dfmcheck/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
	"go.uber.org/zap"
)

// DefaultTimeout is the hard limit for a single evaluation.
const DefaultTimeout = 5 * time.Second

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	timeout time.Duration
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds each evaluation. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: DefaultTimeout, logger: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// evalResult carries one evaluation's output through Guard.
type evalResult struct {
	graph  *graph.DesignGraph
	errors []EvalError
}

// Evaluate takes Lisp source code and produces a new DesignGraph.
//
// Return semantics:
//   - On success: returns graph + nil errors + nil error
//   - On parse/eval failure: returns nil graph + eval errors + nil error
//   - On fatal failure (timeout, panic, cancellation, a newer evaluation):
//     returns nil + nil + error
func (e *Engine) Evaluate(ctx context.Context, source string) (*graph.DesignGraph, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	start := time.Now()
	res, err := Guard(ctx, e.timeout, func() (evalResult, error) {
		g, evalErrs := e.evaluate(source)
		return evalResult{graph: g, errors: evalErrs}, nil
	})
	if err != nil {
		e.logger.Warn("evaluation failed", zap.Error(err))
		return nil, nil, err
	}

	e.mu.Lock()
	current := e.generation
	e.mu.Unlock()
	if gen != current {
		return nil, nil, ErrSuperseded
	}

	if len(res.errors) > 0 {
		e.logger.Debug("script errors", zap.Int("count", len(res.errors)), zap.String("first", res.errors[0].Error()))
		return nil, res.errors, nil
	}
	res.graph.Version = gen
	e.logger.Debug("evaluated",
		zap.Int("nodes", res.graph.NodeCount()),
		zap.Int("roots", len(res.graph.Roots)),
		zap.Duration("elapsed", time.Since(start)))
	return res.graph, nil, nil
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*graph.DesignGraph, []EvalError) {
	g := graph.New()

	// Empty source is a valid program that produces an empty graph.
	if strings.TrimSpace(source) == "" {
		return g, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := &builder{g: g}
	b.register(env)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err)
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err)
	}

	finalizeRoots(g)
	return g, nil
}

// finalizeRoots makes every top-level node a root when the script declared
// no assembly.
func finalizeRoots(g *graph.DesignGraph) {
	if len(g.Roots) > 0 {
		return
	}
	for _, id := range g.Unreferenced() {
		g.AddRoot(id)
	}
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
