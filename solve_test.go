package notesolve_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/njchilds90/notesolve"
)

type SolveSuite struct {
	suite.Suite
	eng *notesolve.Engine
}

func (s *SolveSuite) SetupTest() {
	s.eng = notesolve.New(notesolve.DefaultConfig())
}

func (s *SolveSuite) store(name string, v float64) {
	require.NoError(s.T(), s.eng.StoreVariable(name, v))
}

func (s *SolveSuite) number(res notesolve.SolveResult) float64 {
	f, ok := res.Number()
	require.True(s.T(), ok, "result %v is not numeric", res.Result)
	return f
}

func (s *SolveSuite) actions(res notesolve.SolveResult) []string {
	out := make([]string, 0, len(res.Steps))
	for _, st := range res.Steps {
		out = append(out, st.Action)
	}
	return out
}

func (s *SolveSuite) TestExpression() {
	res := s.eng.Solve("2 + 3 * 4")
	require.True(s.T(), res.Success)
	require.Equal(s.T(), notesolve.TypeExpression, res.Type)
	require.Equal(s.T(), 14.0, s.number(res))
	require.Equal(s.T(), "arithmetic", res.Topic)
	require.Contains(s.T(), s.actions(res), "calculate")
}

func (s *SolveSuite) TestExpressionUsesStoredVariables() {
	s.store("r", 2)
	res := s.eng.Solve("pi * r^2")
	require.True(s.T(), res.Success)
	require.InDelta(s.T(), 4*math.Pi, s.number(res), 1e-12)
	require.Equal(s.T(), "algebra", res.Topic)
}

func (s *SolveSuite) TestAssignment() {
	res := s.eng.Solve("x = 2 + 3")
	require.True(s.T(), res.Success)
	require.Equal(s.T(), notesolve.TypeAssignment, res.Type)
	require.Equal(s.T(), "x", res.Variable)
	require.Equal(s.T(), 5.0, s.number(res))
	require.Contains(s.T(), s.actions(res), "assign")

	v, ok := s.eng.GetVariable("x")
	require.True(s.T(), ok)
	require.Equal(s.T(), "5", v.String())
}

func (s *SolveSuite) TestAssignmentOverwrites() {
	s.eng.Solve("x = 1")
	s.eng.Solve("x = 7")
	v, _ := s.eng.GetVariable("x")
	require.Equal(s.T(), "7", v.String())
}

func (s *SolveSuite) TestFormulaEvaluation() {
	s.store("d", 100)
	s.store("t", 5)
	res := s.eng.Solve("v = d / t")
	require.True(s.T(), res.Success)
	require.Equal(s.T(), notesolve.TypeFormulaEvaluation, res.Type)
	require.Equal(s.T(), "v", res.Variable)
	require.Equal(s.T(), 20.0, s.number(res))
	require.Equal(s.T(), []string{"parse", "formula_detected", "formula_stored", "calculate"}, s.actions(res))

	f, ok := s.eng.GetFormula("v")
	require.True(s.T(), ok)
	require.Equal(s.T(), "d / t", f)
	v, ok := s.eng.GetVariable("v")
	require.True(s.T(), ok)
	require.Equal(s.T(), "20", v.String())
}

func (s *SolveSuite) TestFormulaStorage() {
	res := s.eng.Solve("F = m * a")
	require.True(s.T(), res.Success)
	require.Equal(s.T(), notesolve.TypeFormulaStorage, res.Type)
	require.Equal(s.T(), []string{"a", "m"}, res.MissingVariables)
	require.Equal(s.T(), "physics", res.Topic)
	require.NotNil(s.T(), res.Result)
	require.True(s.T(), res.Result.IsSymbolic())
	require.Contains(s.T(), s.actions(res), "missing_variables")

	f, ok := s.eng.GetFormula("F")
	require.True(s.T(), ok)
	require.Equal(s.T(), "m * a", f)
	_, ok = s.eng.GetVariable("F")
	require.False(s.T(), ok)
}

func (s *SolveSuite) TestStoredFormulaEvaluatesOnceInputsAreKnown() {
	s.eng.Solve("F = m * a")
	s.eng.Solve("m = 5")
	s.eng.Solve("a = 10")

	res := s.eng.Solve("F =")
	require.True(s.T(), res.Success)
	require.Equal(s.T(), "F", res.Variable)
	require.Equal(s.T(), 50.0, s.number(res))
	require.Contains(s.T(), s.actions(res), "formula_substitution")

	res = s.eng.Solve("F = m * a")
	require.True(s.T(), res.Success)
	require.Equal(s.T(), notesolve.TypeFormulaEvaluation, res.Type)
	require.Equal(s.T(), 50.0, s.number(res))

	// Repeating the line with F now known re-evaluates instead of verifying.
	res = s.eng.Solve("F = m*a")
	require.Equal(s.T(), notesolve.TypeFormulaEvaluation, res.Type)
}

func (s *SolveSuite) TestEvaluateLeftWithQuestionMark() {
	s.store("x", 3)
	res := s.eng.Solve("x^2 + 1 = ?")
	require.True(s.T(), res.Success)
	require.Equal(s.T(), 10.0, s.number(res))
}

func (s *SolveSuite) TestEvaluateLeftUnknown() {
	res := s.eng.Solve("x = ?")
	require.False(s.T(), res.Success)
	require.NotEmpty(s.T(), res.Error)
	require.True(s.T(), errors.Is(res.Err, notesolve.ErrUnboundVariable))
}

func (s *SolveSuite) TestSolveLinear() {
	s.store("F", 50)
	s.store("m", 5)
	res := s.eng.Solve("F = m * a")
	require.True(s.T(), res.Success)
	require.Equal(s.T(), notesolve.TypeSolved, res.Type)
	require.Equal(s.T(), notesolve.MethodAlgebraic, res.Method)
	require.Equal(s.T(), "a", res.Variable)
	require.InDelta(s.T(), 10.0, s.number(res), 1e-12)
	require.Equal(s.T(),
		[]string{"parse", "analyze", "solve_for", "algebraic", "assign"},
		s.actions(res))

	v, ok := s.eng.GetVariable("a")
	require.True(s.T(), ok)
	f, _ := v.Float64()
	require.InDelta(s.T(), 10.0, f, 1e-12)
}

func (s *SolveSuite) TestSolveOnLeftSide() {
	s.store("b", 4)
	res := s.eng.Solve("3 * x + b = 19")
	require.True(s.T(), res.Success)
	require.Equal(s.T(), notesolve.TypeSolved, res.Type)
	require.Equal(s.T(), "x", res.Variable)
	require.InDelta(s.T(), 5.0, s.number(res), 1e-12)
}

func (s *SolveSuite) TestSolveNewton() {
	s.store("y", 0)
	res := s.eng.Solve("y = x^2 - 4")
	require.True(s.T(), res.Success)
	require.Equal(s.T(), notesolve.TypeNumericalSolution, res.Type)
	require.Equal(s.T(), notesolve.MethodNewton, res.Method)
	require.Greater(s.T(), res.Iterations, 0)
	x := s.number(res)
	require.InDelta(s.T(), 4.0, x*x, 1e-9)
	require.Contains(s.T(), s.actions(res), "numerical_fallback")
	require.Contains(s.T(), s.actions(res), "newton")
}

func (s *SolveSuite) TestSolveNewtonTranscendental() {
	s.store("y", 0.5)
	res := s.eng.Solve("y = sin(x)")
	require.True(s.T(), res.Success)
	require.Equal(s.T(), notesolve.TypeNumericalSolution, res.Type)
	require.InDelta(s.T(), 0.5, math.Sin(s.number(res)), 1e-9)
	require.Equal(s.T(), "trigonometry", res.Topic)
}

func (s *SolveSuite) TestSolveNewtonDiverges() {
	res := s.eng.Solve("exp(p) = 1000000")
	require.False(s.T(), res.Success)
	require.Equal(s.T(), notesolve.TypeNumericalFailed, res.Type)
	require.True(s.T(), errors.Is(res.Err, notesolve.ErrConvergenceFailure))
	require.Contains(s.T(), res.Error, "iteration diverged")
	require.Contains(s.T(), s.actions(res), "newton_failed")
	_, ok := s.eng.GetVariable("p")
	require.False(s.T(), ok)
}

func (s *SolveSuite) TestSolveNewtonIterationCap() {
	cfg := notesolve.DefaultConfig()
	cfg.MaxIterations = 1
	eng := notesolve.New(cfg)
	require.NoError(s.T(), eng.StoreVariable("y", 0))

	res := eng.Solve("y = x^2 - 4")
	require.False(s.T(), res.Success)
	require.Equal(s.T(), notesolve.TypeNumericalFailed, res.Type)
	require.True(s.T(), errors.Is(res.Err, notesolve.ErrConvergenceFailure))
	require.Contains(s.T(), res.Error, "after 1 iterations")
	require.Equal(s.T(), 1, res.Iterations)
	_, ok := eng.GetVariable("x")
	require.False(s.T(), ok)
}

func (s *SolveSuite) TestSolveNewtonUndefinedDerivative() {
	res := s.eng.Solve("sqrt(r) = -1")
	require.False(s.T(), res.Success)
	require.Equal(s.T(), notesolve.TypeNumericalFailed, res.Type)
	require.True(s.T(), errors.Is(res.Err, notesolve.ErrConvergenceFailure))
	require.False(s.T(), errors.Is(res.Err, notesolve.ErrDerivativeTooSmall))
	require.Contains(s.T(), res.Error, "derivative undefined at r = -3")
}

func (s *SolveSuite) TestSelfReferenceFails() {
	res := s.eng.Solve("x = x + 1")
	require.False(s.T(), res.Success)
	require.Equal(s.T(), notesolve.TypeNumericalFailed, res.Type)
	require.True(s.T(), errors.Is(res.Err, notesolve.ErrDerivativeTooSmall))
	_, ok := s.eng.GetVariable("x")
	require.False(s.T(), ok)
}

func (s *SolveSuite) TestSelfReferenceSolvesForLeftName() {
	s.store("x", 10)
	res := s.eng.Solve("x = 6 - x")
	require.True(s.T(), res.Success)
	require.Equal(s.T(), "x", res.Variable)
	require.InDelta(s.T(), 3.0, s.number(res), 1e-12)
}

func (s *SolveSuite) TestVerification() {
	s.store("F", 50)
	s.store("m", 5)
	s.store("a", 10)
	res := s.eng.Solve("m * a = F")
	require.True(s.T(), res.Success)
	require.Equal(s.T(), notesolve.TypeVerification, res.Type)
	require.NotNil(s.T(), res.Verified)
	require.True(s.T(), *res.Verified)
	require.Contains(s.T(), s.actions(res), "verify")

	s.store("a", 11)
	res = s.eng.Solve("m * a = F")
	require.True(s.T(), res.Success)
	require.False(s.T(), *res.Verified)
}

func (s *SolveSuite) TestVerificationEvalFailureLogsError() {
	s.store("x", 1)
	res := s.eng.Solve("frobnicate(x) = 1")
	require.False(s.T(), res.Success)
	require.True(s.T(), errors.Is(res.Err, notesolve.ErrUnsupportedOperation))
	require.NotEmpty(s.T(), res.Steps)
	last := res.Steps[len(res.Steps)-1]
	require.Equal(s.T(), "error", last.Action)
	require.Equal(s.T(), "frobnicate(x)", last.Expression)
	require.Equal(s.T(), res.Error, last.Detail)
}

func (s *SolveSuite) TestMultipleUnknownsLeavesStoresUnchanged() {
	s.store("k", 1)
	before := s.eng.GetAllVariables()

	res := s.eng.Solve("m * a = F")
	require.False(s.T(), res.Success)
	require.Equal(s.T(), notesolve.TypeUnsolvable, res.Type)
	require.Equal(s.T(), []string{"F", "a", "m"}, res.Unknowns)
	require.Contains(s.T(), res.Error, "multiple unknowns")

	require.Equal(s.T(), before, s.eng.GetAllVariables())
	require.Empty(s.T(), s.eng.GetAllFormulas())
}

func (s *SolveSuite) TestParseFailures() {
	for _, line := range []string{"a = b = c", "= 5", "2 +", "x = (1"} {
		res := s.eng.Solve(line)
		require.False(s.T(), res.Success, line)
		require.NotEmpty(s.T(), res.Error, line)
		require.True(s.T(), errors.Is(res.Err, notesolve.ErrParse), line)
		require.NotEmpty(s.T(), res.Steps, line)
	}
}

func (s *SolveSuite) TestEveryResultCarriesSteps() {
	lines := []string{"1 + 1", "x = 3", "F = m * a", "x =", "p * q = 12", "sin(x) + "}
	for _, line := range lines {
		res := s.eng.Solve(line)
		require.NotNil(s.T(), res.Steps, line)
		require.NotEmpty(s.T(), res.Steps, line)
		require.Equal(s.T(), "parse", res.Steps[0].Action, line)
	}
}

func (s *SolveSuite) TestCalculusTopic() {
	res := s.eng.Solve("integrate(x^2, x, 0, 3)")
	require.True(s.T(), res.Success)
	require.InDelta(s.T(), 9.0, s.number(res), 1e-9)
	require.Equal(s.T(), "calculus", res.Topic)
}

func (s *SolveSuite) TestSymbolicDerivativeResult() {
	res := s.eng.Solve("derivative(x^3, x)")
	require.True(s.T(), res.Success)
	require.NotNil(s.T(), res.Result)
	require.True(s.T(), res.Result.IsSymbolic())
	require.Equal(s.T(), "3 * x^2", res.Result.String())
}

func (s *SolveSuite) TestDeterministic() {
	s.store("F", 50)
	s.store("m", 5)
	first := s.eng.Solve("F = m * a")
	s.eng.ClearVariable("a")
	second := s.eng.Solve("F = m * a")
	require.Equal(s.T(), first, second)
}

func TestSolveSuite(t *testing.T) {
	suite.Run(t, new(SolveSuite))
}
