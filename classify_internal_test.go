package notesolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name string
		f    lineFacts
		want Shape
	}{
		{"bare expression", lineFacts{}, ShapeExpression},
		{"blank right", lineFacts{hasEquals: true, rightBlank: true, leftIsName: true}, ShapeEvaluateLeft},
		{"closed assignment", lineFacts{hasEquals: true, leftIsName: true}, ShapeAssignment},
		{"assignment over known name", lineFacts{hasEquals: true, leftIsName: true, leftKnown: true}, ShapeAssignment},
		{"new formula", lineFacts{hasEquals: true, leftIsName: true, rightVars: 2}, ShapeFormula},
		{"repeated formula, inputs known", lineFacts{
			hasEquals: true, leftIsName: true, leftKnown: true,
			leftFormulaSame: true, rightAllKnown: true, rightVars: 2,
		}, ShapeFormula},
		{"repeated formula, input missing", lineFacts{
			hasEquals: true, leftIsName: true, leftKnown: true,
			leftFormulaSame: true, rightVars: 2,
		}, ShapeSolve},
		{"known name, different body", lineFacts{
			hasEquals: true, leftIsName: true, leftKnown: true, rightAllKnown: true, rightVars: 1,
		}, ShapeSolve},
		{"self reference", lineFacts{hasEquals: true, leftIsName: true, selfReference: true, rightVars: 1}, ShapeSolve},
		{"expression on the left", lineFacts{hasEquals: true, leftVars: 2}, ShapeSolve},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, decide(tc.f))
		})
	}
}

func TestClassify(t *testing.T) {
	eng := New(DefaultConfig())
	require.NoError(t, eng.StoreVariable("F", 50))

	c, err := eng.Classify("F = m * a")
	require.NoError(t, err)
	assert.Equal(t, ShapeSolve, c.Shape)
	assert.Equal(t, "F", c.Name)
	assert.Equal(t, []string{"a", "m"}, c.RightVars)
	assert.Equal(t, "solve", c.Shape.String())

	c, err = eng.Classify("p = q * 2")
	require.NoError(t, err)
	assert.Equal(t, ShapeFormula, c.Shape)

	c, err = eng.Classify("y = y * 2")
	require.NoError(t, err)
	assert.True(t, c.SelfReference)
	assert.Equal(t, ShapeSolve, c.Shape)

	c, err = eng.Classify("F = ?")
	require.NoError(t, err)
	assert.Equal(t, ShapeEvaluateLeft, c.Shape)
	assert.Nil(t, c.Right)

	_, err = eng.Classify("= 4")
	assert.ErrorIs(t, err, ErrParse)
}

func TestSameFormula(t *testing.T) {
	right, err := Parse("m*a")
	require.NoError(t, err)
	assert.True(t, sameFormula("m * a", right))
	assert.False(t, sameFormula("m * a + 1", right))
	assert.False(t, sameFormula("m +", right))
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "expression", ShapeExpression.String())
	assert.Equal(t, "evaluate_left", ShapeEvaluateLeft.String())
	assert.Equal(t, "unknown", Shape(42).String())
}
