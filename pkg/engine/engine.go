// Package engine provides the Lisp evaluation engine for facetrim.
// It wraps zygomys in a sandboxed environment and runs trim pipelines
// described by user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/facetrim/pkg/coverage"
	"github.com/chazu/facetrim/pkg/extend"
	"github.com/chazu/facetrim/pkg/project"
	"github.com/chazu/facetrim/pkg/trim"
	"github.com/chazu/facetrim/pkg/trim/sdfxtrim"
)

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

// Outcome bundles everything a script produced: one trim.Result per
// (trim-face ...) form, in evaluation order.
type Outcome struct {
	Results []*trim.Result
}

// Engine wraps the zygomys interpreter for facetrim evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	executor *trim.Executor

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates an Engine running trim pipelines on executor.
// A nil executor gets the default wiring: a projection solver with
// default options, the transverse-span coverage checker, and the sdfx
// trim backend.
func NewEngine(executor *trim.Executor) *Engine {
	if executor == nil {
		solver := project.New(project.DefaultOptions())
		executor = trim.NewExecutor(
			coverage.NewChecker(solver, nil, 0),
			extend.New(solver, 0),
			sdfxtrim.New(solver, sdfxtrim.Options{}),
		)
	}
	return &Engine{executor: executor}
}

// Evaluate takes Lisp source code and runs every trim pipeline it
// describes. Each call creates a fresh zygomys sandbox for
// deterministic evaluation.
//
// Return semantics:
//   - On success: returns outcome + nil errors + nil error
//   - On parse/eval failure: returns nil outcome + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Outcome, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		out, evalErrs, err := e.evaluate(source)
		ch <- evalResult{outcome: out, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Outcome, []EvalError, error) {
	// Empty source is a valid program that produces an empty outcome.
	if strings.TrimSpace(source) == "" {
		return &Outcome{}, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or
	// syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	out := &Outcome{}
	registerBuiltins(env, e.executor, out)

	err := env.LoadString(preprocessSource(source))
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	_, err = env.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	return out, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}

	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
