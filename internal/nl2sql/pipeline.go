/*-------------------------------------------------------------------------
 *
 * pgEdge NL2SQL - Correction Loop
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package nl2sql turns a question into executed SQL. Each question gets one
// generation attempt and, if that fails to execute, exactly one correction.
package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pgedge-nl2sql/internal/executor"
	"pgedge-nl2sql/internal/extract"
	"pgedge-nl2sql/internal/llm"
	"pgedge-nl2sql/internal/logging"
	"pgedge-nl2sql/internal/prompt"
)

// Limits per question
const (
	MaxModelCalls = 2
	MaxExecutions = 2
)

// Failure messages for extraction misses
const (
	ErrMsgNoSQL          = "could not extract SQL from model response"
	ErrMsgNoCorrectedSQL = "could not extract SQL from corrected response"
)

// Executor runs SQL and reports the outcome without returning errors
type Executor interface {
	Execute(ctx context.Context, sql string) executor.Outcome
}

// PromptBuilder renders the generation and correction prompts
type PromptBuilder interface {
	Generation(question, schemaText string, examples []prompt.Example) (string, error)
	Correction(failedSQL, errText string) (string, error)
}

// Options configures a Pipeline. Generator and Executor are required.
type Options struct {
	Generator llm.Generator
	Executor  Executor
	Extractor extract.Extractor
	Builder   PromptBuilder

	// Schema is the rendered schema summary embedded in every prompt
	Schema   string
	Examples []prompt.Example

	// ModelTimeout bounds each model call; zero disables the bound
	ModelTimeout time.Duration
}

// Attempt records one model call
type Attempt struct {
	Prompt    string
	RawOutput string
	SQL       string
	Extracted bool
}

// Result is the final answer to a question. When Succeeded is true SQL is
// set and Rows is non-nil; otherwise Error is set.
type Result struct {
	SQL        string
	Columns    []string
	Rows       [][]any
	Succeeded  bool
	Error      string
	Kind       Kind
	State      State
	ModelCalls int
	Executions int
	Attempts   []Attempt
}

// Pipeline runs the correction loop. It holds no per-question state and
// its configuration is fixed at construction.
type Pipeline struct {
	gen          llm.Generator
	exec         Executor
	extractor    extract.Extractor
	builder      PromptBuilder
	schema       string
	examples     []prompt.Example
	modelTimeout time.Duration
}

// New validates opts and creates a Pipeline
func New(opts Options) (*Pipeline, error) {
	if opts.Generator == nil {
		return nil, fmt.Errorf("nl2sql: generator is required")
	}
	if opts.Executor == nil {
		return nil, fmt.Errorf("nl2sql: executor is required")
	}
	if opts.Extractor == nil {
		opts.Extractor = extract.Keyword{}
	}
	if opts.Builder == nil {
		opts.Builder = prompt.NewBuilder()
	}

	examples := make([]prompt.Example, len(opts.Examples))
	copy(examples, opts.Examples)

	return &Pipeline{
		gen:          opts.Generator,
		exec:         opts.Executor,
		extractor:    opts.Extractor,
		builder:      opts.Builder,
		schema:       opts.Schema,
		examples:     examples,
		modelTimeout: opts.ModelTimeout,
	}, nil
}

// run is the mutable state of one question
type run struct {
	question string
	state    State

	genPrompt string
	raw       string
	sql       string
	outcome   executor.Outcome

	result Result
}

// Ask answers one question. Failures are reported in the Result, never as
// a panic or error return.
func (p *Pipeline) Ask(ctx context.Context, question string) Result {
	r := &run{question: question, state: StateStart}

	for r.state != StateDone {
		next := p.step(ctx, r)
		logging.Debug("state_transition", "from", r.state.String(), "to", next.String())
		r.state = next
	}

	r.result.State = StateDone
	if r.result.ModelCalls > MaxModelCalls || r.result.Executions > MaxExecutions {
		// unreachable unless step is broken; keep the bound observable
		logging.Error("correction_loop_bound_exceeded",
			"model_calls", r.result.ModelCalls, "executions", r.result.Executions)
	}
	return r.result
}

// step performs the work of leaving r.state and returns the next state
func (p *Pipeline) step(ctx context.Context, r *run) State {
	switch r.state {
	case StateStart:
		text, err := p.builder.Generation(r.question, p.schema, p.examples)
		if err != nil {
			return p.fail(r, &Error{Kind: KindPrompt, Msg: "failed to build prompt", Err: err})
		}
		r.genPrompt = text

		raw, err := p.generate(ctx, r, text)
		if err != nil {
			// a failed model call counts as a failed execution
			logging.Warn("model_call_failed", "attempt", 1, "error", err)
			r.outcome = executor.Outcome{Error: err.Error()}
			return StateExecuted
		}
		r.raw = raw
		return StateGenerated

	case StateGenerated:
		sql, ok := p.extract(r)
		if !ok {
			return p.fail(r, &Error{Kind: KindExtraction, Msg: ErrMsgNoSQL})
		}
		r.sql = sql
		return StateExtracted

	case StateExtracted:
		p.execute(ctx, r)
		return StateExecuted

	case StateExecuted:
		if r.outcome.Succeeded {
			return p.succeed(r)
		}

		correction, err := p.correctionPrompt(r)
		if err != nil {
			return p.fail(r, &Error{Kind: KindPrompt, Msg: "failed to build prompt", Err: err})
		}
		raw, err := p.generate(ctx, r, correction)
		if err != nil {
			logging.Warn("model_call_failed", "attempt", 2, "error", err)
			return p.fail(r, &Error{Kind: KindModelService, Err: err})
		}
		r.raw = raw
		return StateCorrected

	case StateCorrected:
		sql, ok := p.extract(r)
		if !ok {
			return p.fail(r, &Error{Kind: KindExtraction, Msg: ErrMsgNoCorrectedSQL})
		}
		r.sql = sql
		p.execute(ctx, r)
		return StateReExecuted

	case StateReExecuted:
		if r.outcome.Succeeded {
			return p.succeed(r)
		}
		return p.fail(r, &Error{Kind: KindExecution, Msg: r.outcome.Error})

	default:
		return p.fail(r, &Error{Kind: KindNone, Msg: fmt.Sprintf("invalid state %s", r.state)})
	}
}

// correctionPrompt embeds the failed SQL and error. With no SQL to fix (the
// first model call failed) the generation prompt is sent again.
func (p *Pipeline) correctionPrompt(r *run) (string, error) {
	if r.sql == "" {
		return r.genPrompt, nil
	}
	return p.builder.Correction(r.sql, r.outcome.Error)
}

func (p *Pipeline) generate(ctx context.Context, r *run, text string) (string, error) {
	if r.result.ModelCalls >= MaxModelCalls {
		return "", fmt.Errorf("model call limit of %d reached", MaxModelCalls)
	}
	r.result.ModelCalls++
	r.result.Attempts = append(r.result.Attempts, Attempt{Prompt: text})

	if p.modelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.modelTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := p.gen.Generate(ctx, text)
	logging.Debug("model_call", "call", r.result.ModelCalls, "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !llm.IsServiceError(err) {
			err = &llm.ServiceError{Provider: "model", Msg: "call timed out", Err: err}
		}
		return "", err
	}

	r.result.Attempts[len(r.result.Attempts)-1].RawOutput = raw
	return raw, nil
}

func (p *Pipeline) extract(r *run) (string, bool) {
	sql, ok := p.extractor.Extract(r.raw)
	if ok {
		last := &r.result.Attempts[len(r.result.Attempts)-1]
		last.SQL = sql
		last.Extracted = true
	}
	return sql, ok
}

func (p *Pipeline) execute(ctx context.Context, r *run) {
	if r.result.Executions >= MaxExecutions {
		r.outcome = executor.Outcome{Error: fmt.Sprintf("execution limit of %d reached", MaxExecutions)}
		return
	}
	r.result.Executions++
	r.outcome = p.exec.Execute(ctx, r.sql)
	if !r.outcome.Succeeded {
		logging.Warn("execution_failed", "execution", r.result.Executions, "sql", r.sql, "error", r.outcome.Error)
	}
}

func (p *Pipeline) succeed(r *run) State {
	r.result.SQL = r.sql
	r.result.Columns = r.outcome.Columns
	r.result.Rows = r.outcome.Rows
	if r.result.Rows == nil {
		r.result.Rows = [][]any{}
	}
	r.result.Succeeded = true
	r.result.Error = ""
	r.result.Kind = KindNone
	return StateDone
}

func (p *Pipeline) fail(r *run, e *Error) State {
	r.result.SQL = r.sql
	r.result.Succeeded = false
	r.result.Rows = nil
	r.result.Kind = e.Kind
	r.result.Error = e.Error()
	if r.result.Error == "" {
		r.result.Error = "query failed"
	}
	return StateDone
}
