package notesolve_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/notesolve"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"2x":            "2*x",
		"3(a+b)":        "3*(a+b)",
		"(a)(b)":        "(a)*(b)",
		"x^{2}":         "x^(2)",
		`\frac{a}{b}`:   "(a)/(b)",
		`\sqrt{x}`:      "sqrt(x)",
		`a \cdot b`:     "a * b",
		"x²":            "x^2",
		"6 ÷ 3 × 2":     "6 / 3 * 2",
		"2π":            "2*pi",
		"1e5 + 2.5e-3x": "1e5 + 2.5e-3*x",
		"x2 + y":        "x2 + y",
	}
	for in, want := range cases {
		assert.Equal(t, want, notesolve.Normalize(in), "Normalize(%q)", in)
	}
}

func TestParse_KeepsRawTree(t *testing.T) {
	e, err := notesolve.Parse("x - x")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, notesolve.ExtractVariables("x - x"))
	v, err := e.Eval(notesolve.Scope{"x": 7})
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestParse_ImplicitMultiplication(t *testing.T) {
	e, err := notesolve.Parse("2x + 3(x - 1)")
	require.NoError(t, err)
	v, err := e.Eval(notesolve.Scope{"x": 2})
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
}

func TestParse_LaTeXFraction(t *testing.T) {
	e, err := notesolve.Parse(`\frac{1}{2}m \cdot v^{2}`)
	require.NoError(t, err)
	v, err := e.Eval(notesolve.Scope{"m": 4, "v": 3})
	require.NoError(t, err)
	assert.Equal(t, 18.0, v)
}

func TestParse_Modulo(t *testing.T) {
	e, err := notesolve.Parse("7 % 4")
	require.NoError(t, err)
	v, err := e.Eval(nil)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{"", "   ", "2 +", "(x", "x == 1"} {
		_, err := notesolve.Parse(in)
		require.Error(t, err, "Parse(%q)", in)
		assert.True(t, errors.Is(err, notesolve.ErrParse), "Parse(%q) should be a parse error", in)

		var pe *notesolve.ParseError
		assert.True(t, errors.As(err, &pe))
	}
}

func TestParseEquation_Shapes(t *testing.T) {
	eq, err := notesolve.ParseEquation("2 + 2")
	require.NoError(t, err)
	assert.False(t, eq.IsEquation)
	assert.Equal(t, "2 + 2", eq.Right)
	assert.Empty(t, eq.Left)

	eq, err = notesolve.ParseEquation(" F = m * a ")
	require.NoError(t, err)
	assert.True(t, eq.IsEquation)
	assert.Equal(t, "F", eq.Left)
	assert.Equal(t, "m * a", eq.Right)

	eq, err = notesolve.ParseEquation("f =")
	require.NoError(t, err)
	assert.True(t, eq.IsEquation)
	assert.Equal(t, "", eq.Right)
}

func TestParseEquation_MultipleEquals(t *testing.T) {
	_, err := notesolve.ParseEquation("a = b = c")
	require.Error(t, err)
	assert.True(t, errors.Is(err, notesolve.ErrParse))
	assert.Contains(t, err.Error(), "more than one")
}
