package notesolve

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ResultType tags a SolveResult.
type ResultType string

const (
	TypeExpression        ResultType = "expression"
	TypeAssignment        ResultType = "assignment"
	TypeFormulaStorage    ResultType = "formula_storage"
	TypeFormulaEvaluation ResultType = "formula_evaluation"
	TypeVerification      ResultType = "verification"
	TypeSolved            ResultType = "solved"
	TypeNumericalSolution ResultType = "numerical_solution"
	TypeUnsolvable        ResultType = "unsolvable"
	TypeNumericalFailed   ResultType = "numerical_failed"
)

// Solve methods.
const (
	MethodAlgebraic = "algebraic"
	MethodNewton    = "newton"
)

// Step is one entry of the decision trace returned with every result.
type Step struct {
	Action     string `json:"action"`
	Expression string `json:"expression,omitempty"`
	Variable   string `json:"variable,omitempty"`
	Value      *Value `json:"value,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// SolveResult is the outcome of solving one line. Failures set Success to
// false and carry a message in Error; the cause stays in Err.
type SolveResult struct {
	Success          bool       `json:"success"`
	Type             ResultType `json:"type,omitempty"`
	Result           *Value     `json:"result,omitempty"`
	Variable         string     `json:"variable,omitempty"`
	Formula          string     `json:"formula,omitempty"`
	Verified         *bool      `json:"verified,omitempty"`
	MissingVariables []string   `json:"missingVariables,omitempty"`
	Unknowns         []string   `json:"unknowns,omitempty"`
	Method           string     `json:"method,omitempty"`
	Iterations       int        `json:"iterations,omitempty"`
	Topic            string     `json:"topic,omitempty"`
	LaTeX            string     `json:"latex,omitempty"`
	Error            string     `json:"error,omitempty"`
	Err              error      `json:"-"`
	Steps            []Step     `json:"steps"`
}

// Number returns the numeric result, if there is one.
func (r SolveResult) Number() (float64, bool) {
	if r.Result == nil {
		return 0, false
	}
	return r.Result.Float64()
}

func valuePtr(v Value) *Value { return &v }

func boolPtr(b bool) *bool { return &b }

// stepLog is the append-only trace of one solve.
type stepLog struct{ steps []Step }

func (l *stepLog) add(s Step) { l.steps = append(l.steps, s) }

// Solve classifies line and runs the matching strategy. It never returns an
// error; failures are reported inside the result.
func (e *Engine) Solve(line string) SolveResult {
	return e.solve(context.Background(), line)
}

func (e *Engine) solve(ctx context.Context, line string) SolveResult {
	_, span := e.tracer.Start(ctx, "notesolve.Solve")
	defer span.End()
	span.SetAttributes(attribute.String("notesolve.line", line))

	log := &stepLog{}
	res, shape := e.dispatch(line, log)
	res.Steps = log.steps
	if res.Steps == nil {
		res.Steps = []Step{}
	}
	if res.Err != nil && res.Error == "" {
		res.Error = res.Err.Error()
	}

	span.SetAttributes(
		attribute.String("notesolve.shape", shape),
		attribute.String("notesolve.type", string(res.Type)),
		attribute.Bool("notesolve.success", res.Success),
	)
	if !res.Success {
		span.SetStatus(codes.Error, res.Error)
	}
	e.logger.Debug("solve", "line", line, "shape", shape, "type", res.Type, "success", res.Success)
	return res
}

func failure(err error) SolveResult {
	return SolveResult{Success: false, Err: err, Error: err.Error()}
}

func (e *Engine) dispatch(line string, log *stepLog) (SolveResult, string) {
	c, err := e.Classify(line)
	if err != nil {
		log.add(Step{Action: "parse", Expression: line, Detail: err.Error()})
		return failure(err), "invalid"
	}
	log.add(Step{Action: "parse", Expression: strings.TrimSpace(line), Detail: c.Shape.String()})

	var res SolveResult
	switch c.Shape {
	case ShapeExpression:
		res = e.solveExpression(c, log)
	case ShapeEvaluateLeft:
		res = e.solveEvaluateLeft(c, log)
	case ShapeAssignment:
		res = e.solveAssignment(c, log)
	case ShapeFormula:
		res = e.solveFormula(c, log)
	default:
		res = e.solveEquation(c, log)
	}
	if res.Topic == "" {
		res.Topic = e.topicOf(c)
	}
	return res, c.Shape.String()
}

// ============================================================
// Strategies
// ============================================================

func (e *Engine) solveExpression(c Classification, log *stepLog) SolveResult {
	v, sym, err := evaluateExpr(c.Right, e.store.Scope())
	if err != nil {
		log.add(Step{Action: "error", Expression: c.Equation.Right, Detail: err.Error()})
		return failure(err)
	}
	log.add(Step{Action: "calculate", Expression: c.Equation.Right, Value: valuePtr(v)})
	res := SolveResult{Success: true, Type: TypeExpression, Result: valuePtr(v)}
	if sym != nil {
		res.LaTeX = sym.LaTeX()
	}
	return res
}

func (e *Engine) solveEvaluateLeft(c Classification, log *stepLog) SolveResult {
	target := c.Left
	if c.Name != "" {
		ex, body, ok, err := e.formulaExpr(c.Name)
		if err != nil {
			return failure(err)
		}
		if ok {
			log.add(Step{Action: "formula_substitution", Variable: c.Name, Expression: body})
			target = ex
		}
	}
	v, sym, err := evaluateExpr(target, e.store.Scope())
	if err != nil {
		log.add(Step{Action: "error", Expression: target.String(), Detail: err.Error()})
		return failure(err)
	}
	log.add(Step{Action: "calculate", Expression: target.String(), Value: valuePtr(v)})
	res := SolveResult{Success: true, Type: TypeExpression, Result: valuePtr(v), Variable: c.Name}
	if sym != nil {
		res.LaTeX = sym.LaTeX()
	}
	return res
}

func (e *Engine) solveAssignment(c Classification, log *stepLog) SolveResult {
	v, sym, err := evaluateExpr(c.Right, e.store.Scope())
	if err != nil {
		log.add(Step{Action: "error", Expression: c.Equation.Right, Detail: err.Error()})
		return failure(err)
	}
	if err := e.store.SetVariable(c.Name, v); err != nil {
		return failure(err)
	}
	log.add(Step{Action: "assign", Variable: c.Name, Expression: c.Equation.Right, Value: valuePtr(v)})
	res := SolveResult{Success: true, Type: TypeAssignment, Result: valuePtr(v), Variable: c.Name}
	if sym != nil {
		res.LaTeX = S(c.Name).LaTeX() + " = " + sym.LaTeX()
	}
	return res
}

func (e *Engine) solveFormula(c Classification, log *stepLog) SolveResult {
	body := c.Equation.Right
	log.add(Step{Action: "formula_detected", Variable: c.Name, Expression: body})
	if err := e.store.SetFormula(c.Name, body); err != nil {
		return failure(err)
	}
	log.add(Step{Action: "formula_stored", Variable: c.Name, Expression: body})

	res := SolveResult{
		Success:  true,
		Variable: c.Name,
		Formula:  body,
		LaTeX:    S(c.Name).LaTeX() + " = " + c.Right.LaTeX(),
	}
	var missing []string
	for _, v := range c.RightVars {
		if !e.store.Known(v) {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		log.add(Step{Action: "missing_variables", Variable: c.Name, Detail: strings.Join(missing, ", ")})
		res.Type = TypeFormulaStorage
		res.Result = valuePtr(Symbolic(body))
		res.MissingVariables = missing
		return res
	}

	v, _, err := evaluateExpr(c.Right, e.store.Scope())
	if err != nil {
		log.add(Step{Action: "error", Expression: body, Detail: err.Error()})
		res.Success = false
		res.Err = err
		return res
	}
	if err := e.store.SetVariable(c.Name, v); err != nil {
		return failure(err)
	}
	log.add(Step{Action: "calculate", Variable: c.Name, Expression: body, Value: valuePtr(v)})
	res.Type = TypeFormulaEvaluation
	res.Result = valuePtr(v)
	return res
}

func (e *Engine) solveEquation(c Classification, log *stepLog) SolveResult {
	set := map[string]struct{}{}
	for _, v := range c.LeftVars {
		set[v] = struct{}{}
	}
	for _, v := range c.RightVars {
		set[v] = struct{}{}
	}
	var unknowns []string
	for _, v := range sortedNames(set) {
		if !e.store.Known(v) || (c.SelfReference && v == c.Name) {
			unknowns = append(unknowns, v)
		}
	}
	log.add(Step{Action: "analyze", Expression: c.Equation.Left + " = " + c.Equation.Right,
		Detail: fmt.Sprintf("%d unknown(s): %s", len(unknowns), strings.Join(unknowns, ", "))})

	switch len(unknowns) {
	case 0:
		return e.verify(c, log)
	case 1:
		return e.solveFor(c, unknowns[0], log)
	}
	err := fmt.Errorf("cannot solve: multiple unknowns (%s); provide values for all but one", strings.Join(unknowns, ", "))
	log.add(Step{Action: "unsolvable", Detail: err.Error()})
	return SolveResult{Success: false, Type: TypeUnsolvable, Unknowns: unknowns, Err: err, Error: err.Error()}
}

func (e *Engine) verify(c Classification, log *stepLog) SolveResult {
	scope := e.store.Scope()
	l, err := c.Left.Eval(scope)
	if err != nil {
		log.add(Step{Action: "error", Expression: c.Equation.Left, Detail: err.Error()})
		return failure(err)
	}
	r, err := c.Right.Eval(scope)
	if err != nil {
		log.add(Step{Action: "error", Expression: c.Equation.Right, Detail: err.Error()})
		return failure(err)
	}
	ok := math.Abs(l-r) < e.cfg.VerifyTolerance
	log.add(Step{Action: "verify", Expression: c.Equation.Left + " = " + c.Equation.Right,
		Detail: fmt.Sprintf("%s vs %s", formatNumber(l), formatNumber(r))})
	return SolveResult{
		Success:  true,
		Type:     TypeVerification,
		Result:   valuePtr(Number(l)),
		Verified: boolPtr(ok),
	}
}

func (e *Engine) solveFor(c Classification, v string, log *stepLog) SolveResult {
	log.add(Step{Action: "solve_for", Variable: v})
	g := &Add{terms: []Expr{c.Left, &Mul{factors: []Expr{N(-1), c.Right}}}}
	scope := e.store.Scope().without(v)

	res := SolveResult{Variable: v}
	if root, ok := e.solveLinear(g, v, scope); ok {
		log.add(Step{Action: "algebraic", Variable: v, Value: valuePtr(Number(root))})
		res.Type, res.Method = TypeSolved, MethodAlgebraic
		return e.storeRoot(res, v, root, log)
	}
	log.add(Step{Action: "numerical_fallback", Variable: v, Detail: "equation is not linear in " + v})
	e.logger.Debug("algebraic solve declined", "variable", v)

	root, iters, err := e.newton(g, v, scope)
	res.Method, res.Iterations = MethodNewton, iters
	if err != nil {
		e.logger.Debug("newton failed", "variable", v, "iterations", iters, "err", err)
		log.add(Step{Action: "newton_failed", Variable: v, Detail: err.Error()})
		res.Type, res.Err, res.Error = TypeNumericalFailed, err, err.Error()
		return res
	}
	log.add(Step{Action: "newton", Variable: v, Value: valuePtr(Number(root)),
		Detail: fmt.Sprintf("converged in %d iterations", iters)})
	res.Type = TypeNumericalSolution
	return e.storeRoot(res, v, root, log)
}

func (e *Engine) storeRoot(res SolveResult, v string, root float64, log *stepLog) SolveResult {
	if err := e.store.SetVariable(v, Number(root)); err != nil {
		res.Err, res.Error = err, err.Error()
		return res
	}
	log.add(Step{Action: "assign", Variable: v, Value: valuePtr(Number(root))})
	res.Success = true
	res.Result = valuePtr(Number(root))
	return res
}

// ============================================================
// Solvers
// ============================================================

// solveLinear treats g as a*v + b. It declines when dg/dv still depends on
// v or cannot be evaluated, and when the slope vanishes.
func (e *Engine) solveLinear(g Expr, v string, scope Scope) (float64, bool) {
	a, err := Diff(g, v).Eval(scope)
	if err != nil || !isFinite(a) || math.Abs(a) < e.cfg.MinDerivative {
		return 0, false
	}
	b, err := g.Eval(scope.with(v, 0))
	if err != nil || !isFinite(b) {
		return 0, false
	}
	root := -b / a
	if !isFinite(root) {
		return 0, false
	}
	return root, true
}

// newton runs Newton-Raphson on g from the configured initial guess. The
// symbolic derivative is used when it evaluates; otherwise a central
// difference stands in.
func (e *Engine) newton(g Expr, v string, scope Scope) (float64, int, error) {
	dg := Diff(g, v)
	inner := scope.with(v, e.cfg.InitialGuess)
	at := func(ex Expr, x float64) (float64, error) {
		inner[v] = x
		return ex.Eval(inner)
	}

	x := e.cfg.InitialGuess
	for i := 1; i <= e.cfg.MaxIterations; i++ {
		gx, err := at(g, x)
		if err != nil {
			return x, i, err
		}
		slope, err := at(dg, x)
		if err != nil {
			if slope, err = centralDifference(g, x, at); err != nil {
				return x, i, err
			}
		}
		if math.IsNaN(slope) {
			return x, i, fmt.Errorf("%w: derivative undefined at %s = %s", ErrConvergenceFailure, v, formatNumber(x))
		}
		if math.Abs(slope) < e.cfg.MinDerivative {
			return x, i, fmt.Errorf("%w: |g'(%s)| = %g at iteration %d", ErrDerivativeTooSmall, v, math.Abs(slope), i)
		}
		next := x - gx/slope
		if !isFinite(next) {
			return x, i, fmt.Errorf("%w: iteration diverged at %s = %s", ErrConvergenceFailure, v, formatNumber(x))
		}
		if math.Abs(next-x) < e.cfg.Tolerance {
			return next, i, nil
		}
		x = next
	}
	return x, e.cfg.MaxIterations, fmt.Errorf("%w after %d iterations", ErrConvergenceFailure, e.cfg.MaxIterations)
}

func centralDifference(g Expr, x float64, at func(Expr, float64) (float64, error)) (float64, error) {
	h := 1e-6 * math.Max(1, math.Abs(x))
	hi, err := at(g, x+h)
	if err != nil {
		return 0, err
	}
	lo, err := at(g, x-h)
	if err != nil {
		return 0, err
	}
	return (hi - lo) / (2 * h), nil
}

// ============================================================
// Topic
// ============================================================

var trigFuncs = map[string]struct{}{
	"sin": {}, "cos": {}, "tan": {}, "asin": {}, "acos": {}, "atan": {}, "atan2": {},
	"sinh": {}, "cosh": {}, "tanh": {},
}

// topicOf tags a line as calculus, trigonometry, physics, algebra or
// arithmetic.
func (e *Engine) topicOf(c Classification) string {
	names := map[string]struct{}{}
	for _, ex := range []Expr{c.Left, c.Right} {
		if ex != nil {
			collectFuncNames(ex, names)
		}
	}
	for n := range names {
		if n == "derivative" || n == "diff" || n == "integrate" {
			return "calculus"
		}
	}
	for n := range names {
		if _, ok := trigFuncs[n]; ok {
			return "trigonometry"
		}
	}
	vars := append(append([]string{}, c.LeftVars...), c.RightVars...)
	if c.Name != "" && len(c.LeftVars) == 0 {
		vars = append(vars, c.Name)
	}
	if len(vars) > 1 {
		if _, ok := e.library.Covering(vars); ok {
			return "physics"
		}
	}
	if len(vars) > 0 {
		return "algebra"
	}
	return "arithmetic"
}

func collectFuncNames(ex Expr, out map[string]struct{}) {
	switch v := ex.(type) {
	case *Add:
		for _, t := range v.terms {
			collectFuncNames(t, out)
		}
	case *Mul:
		for _, f := range v.factors {
			collectFuncNames(f, out)
		}
	case *Pow:
		collectFuncNames(v.base, out)
		collectFuncNames(v.exp, out)
	case *Func:
		out[v.name] = struct{}{}
		for _, a := range v.args {
			collectFuncNames(a, out)
		}
	}
}

// unboundName returns the variable named by an UnboundVariableError in err.
func unboundName(err error) (string, bool) {
	var ue *UnboundVariableError
	if errors.As(err, &ue) {
		return ue.Name, true
	}
	return "", false
}
