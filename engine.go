// Package notesolve is an equation-solving engine for note-taking math.
//
// An Engine reads one line of text at a time ("x = 5", "F = m * a",
// "A = pi * r^2", "integrate(x^2, x, 0, 3)") and either stores it as a
// variable value or a reusable formula, evaluates it, verifies it, or solves
// it for the single quantity that is still unknown. Every result carries an
// ordered step trace that explains what the engine decided.
//
// Quick start:
//
//	eng := notesolve.New(notesolve.DefaultConfig())
//	eng.Solve("d = 100")
//	eng.Solve("t = 5")
//	res := eng.Solve("v = d / t") // res.Result is 20
//
// An Engine is owned by one editing session and is not safe for concurrent
// use; callers that share one must serialise access.
package notesolve

import (
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/njchilds90/notesolve"

// Engine holds the variable and formula stores of one session.
type Engine struct {
	cfg     Config
	store   *Store
	library *Library
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracer sets the tracer used for solve spans. The default comes from
// the global otel provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithLibrary replaces the embedded physics library used for suggestions.
func WithLibrary(lib *Library) Option {
	return func(e *Engine) {
		if lib != nil {
			e.library = lib
		}
	}
}

// New returns an Engine with empty stores. A zero Config is replaced by
// DefaultConfig.
func New(cfg Config, opts ...Option) *Engine {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	e := &Engine{
		cfg:     cfg,
		store:   NewStore(),
		library: DefaultLibrary(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:  otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Config() Config       { return e.cfg }
func (e *Engine) Library() *Library    { return e.library }
func (e *Engine) Logger() *slog.Logger { return e.logger }

// ============================================================
// Evaluator
// ============================================================

// Parse parses expression text into an Expr.
func (e *Engine) Parse(text string) (Expr, error) { return Parse(text) }

// Evaluate evaluates text against the numeric variables in the store.
// A top-level derivative without an evaluation point yields symbolic text.
func (e *Engine) Evaluate(text string) (Value, error) {
	return e.EvaluateIn(text, e.store.Scope())
}

// EvaluateIn evaluates text against scope only.
func (e *Engine) EvaluateIn(text string, scope Scope) (Value, error) {
	ex, err := Parse(text)
	if err != nil {
		return Value{}, err
	}
	v, _, err := evaluateExpr(ex, scope)
	return v, err
}

// evaluateExpr evaluates ex, returning the derivative tree alongside the
// value when the result is symbolic.
func evaluateExpr(ex Expr, scope Scope) (Value, Expr, error) {
	if f, ok := ex.(*Func); ok && (f.name == "derivative" || f.name == "diff") && len(f.args) == 2 {
		v, err := boundVar(f)
		if err != nil {
			return Value{}, nil, err
		}
		d := Diff(f.args[0], v)
		return Symbolic(d.String()), d, nil
	}
	n, err := ex.Eval(scope)
	if err != nil {
		return Value{}, nil, err
	}
	return Number(n), nil, nil
}

// Differentiate returns the simplified derivative of text with respect to v.
func (e *Engine) Differentiate(text, v string) (Expr, error) {
	if !IsIdentifier(v) {
		return nil, &NameError{Name: v, Err: ErrInvalidName}
	}
	ex, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return Diff(ex, v), nil
}

// ExtractVariables returns the sorted free variable names in text.
func (e *Engine) ExtractVariables(text string) []string { return ExtractVariables(text) }

// ============================================================
// Store
// ============================================================

// StoreVariable binds name to value. Numbers are stored as is. Strings are
// evaluated against the current variables first; text that does not
// evaluate is kept verbatim as a symbolic value.
func (e *Engine) StoreVariable(name string, value interface{}) error {
	if err := checkName(name); err != nil {
		return err
	}
	v, err := valueOf(value)
	if err != nil {
		return err
	}
	if v.IsSymbolic() {
		if evaluated, err := e.Evaluate(v.String()); err == nil {
			v = evaluated
		} else {
			e.logger.Debug("storing symbolic value", "name", name, "text", v.String(), "reason", err)
		}
	}
	return e.store.SetVariable(name, v)
}

// StoreFormula binds name to expression, which must parse.
func (e *Engine) StoreFormula(name, expression string) error {
	return e.store.SetFormula(name, expression)
}

func (e *Engine) GetVariable(name string) (Value, bool) { return e.store.Variable(name) }
func (e *Engine) GetFormula(name string) (string, bool) { return e.store.Formula(name) }
func (e *Engine) GetAllVariables() map[string]Value     { return e.store.Variables() }
func (e *Engine) GetAllFormulas() map[string]string     { return e.store.Formulas() }
func (e *Engine) ClearVariable(name string) bool        { return e.store.DeleteVariable(name) }
func (e *Engine) ClearFormula(name string) bool         { return e.store.DeleteFormula(name) }
func (e *Engine) ClearAllVariables()                    { e.store.ClearVariables() }
func (e *Engine) ClearAllFormulas()                     { e.store.ClearFormulas() }
func (e *Engine) ClearAll()                             { e.store.Clear() }

// Reset forgets everything, as when the document owning the session closes.
func (e *Engine) Reset() {
	e.store.Clear()
	e.logger.Debug("engine reset")
}

// formulaExpr parses the stored formula for name.
func (e *Engine) formulaExpr(name string) (Expr, string, bool, error) {
	body, ok := e.store.Formula(name)
	if !ok {
		return nil, "", false, nil
	}
	ex, err := Parse(body)
	if err != nil {
		return nil, body, true, fmt.Errorf("%w: formula %s: %w", ErrInvalidExpression, name, err)
	}
	return ex, body, true, nil
}
