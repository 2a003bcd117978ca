package notesolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/notesolve"
)

const rampNotes = `Block on a ramp
m = 12
g = 9.81

W = m * g
m = 15
x + y = 3
h = h + 1
r = 2pi
bad = = 1
y = 2 +
`

func TestScanForFormulas(t *testing.T) {
	res := notesolve.ScanForFormulas(rampNotes)

	type row struct {
		line int
		kind string
		name string
	}
	var got []row
	for _, eq := range res.Equations {
		got = append(got, row{eq.Line, eq.Kind, eq.Name})
	}
	assert.Equal(t, []row{
		{2, notesolve.ScanVariable, "m"},
		{3, notesolve.ScanVariable, "g"},
		{5, notesolve.ScanFormula, "W"},
		{6, notesolve.ScanVariable, "m"},
		{7, notesolve.ScanEquation, ""},
		{8, notesolve.ScanEquation, "h"},
		{9, notesolve.ScanVariable, "r"},
	}, got)
}

func TestScanForFormulas_LaterLinesOverride(t *testing.T) {
	res := notesolve.ScanForFormulas(rampNotes)

	require.Len(t, res.Variables, 3)
	assert.Equal(t, "m", res.Variables[0].Name)
	assert.Equal(t, notesolve.Number(15), res.Variables[0].Value)
	assert.Equal(t, "g", res.Variables[1].Name)
	assert.Equal(t, "r", res.Variables[2].Name)
	for _, v := range res.Variables {
		assert.Equal(t, notesolve.SourceSpatial, v.Source)
	}

	require.Len(t, res.Formulas, 1)
	assert.Equal(t, notesolve.ContextFormula{Name: "W", Expression: "m * g", Source: notesolve.SourceSpatial}, res.Formulas[0])
}

func TestScanForFormulas_EvaluatesWithConstantsOnly(t *testing.T) {
	res := notesolve.ScanForFormulas("r = 2pi")
	require.Len(t, res.Equations, 1)
	require.NotNil(t, res.Equations[0].Value)
	f, ok := res.Equations[0].Value.Float64()
	require.True(t, ok)
	assert.InDelta(t, 6.283185307179586, f, 1e-12)
}

func TestScanForFormulas_Empty(t *testing.T) {
	res := notesolve.ScanForFormulas("no equations here\n\n")
	assert.NotNil(t, res.Equations)
	assert.NotNil(t, res.Variables)
	assert.NotNil(t, res.Formulas)
	assert.Empty(t, res.Equations)
}

func TestScanResult_Context(t *testing.T) {
	res := notesolve.ScanForFormulas("a = 1\nb = a + 1\n")
	c := res.Context()
	require.Len(t, c.Variables, 1)
	require.Len(t, c.Formulas, 1)

	c.Variables[0].Name = "changed"
	assert.Equal(t, "a", res.Variables[0].Name)
}

func TestScanForFormulas_DoesNotTouchEngine(t *testing.T) {
	eng := notesolve.New(notesolve.DefaultConfig())
	notesolve.ScanForFormulas(rampNotes)
	assert.Empty(t, eng.GetAllVariables())
}
