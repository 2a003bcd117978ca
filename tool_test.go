package notesolve_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/njchilds90/notesolve"
)

type ToolSuite struct {
	suite.Suite
	eng *notesolve.Engine
	ctx context.Context
}

func (s *ToolSuite) SetupTest() {
	s.eng = notesolve.New(notesolve.DefaultConfig())
	s.ctx = context.Background()
}

func (s *ToolSuite) call(tool string, params map[string]interface{}) notesolve.ToolResponse {
	return s.eng.HandleToolCall(s.ctx, notesolve.ToolRequest{Tool: tool, Params: params})
}

// roundTrip re-decodes a response the way an HTTP client would see it.
func (s *ToolSuite) roundTrip(resp notesolve.ToolResponse) map[string]interface{} {
	b, err := json.Marshal(resp)
	require.NoError(s.T(), err)
	var out map[string]interface{}
	require.NoError(s.T(), json.Unmarshal(b, &out))
	return out
}

func (s *ToolSuite) TestSolve() {
	s.call("store_variable", map[string]interface{}{"name": "d", "value": 100.0})
	s.call("store_variable", map[string]interface{}{"name": "t", "value": "5"})
	resp := s.call("solve", map[string]interface{}{"line": "v = d / t"})
	require.Empty(s.T(), resp.Error)
	require.Equal(s.T(), "20", resp.String)

	res, ok := resp.Result.(notesolve.SolveResult)
	require.True(s.T(), ok)
	require.Equal(s.T(), notesolve.TypeFormulaEvaluation, res.Type)

	out := s.roundTrip(resp)
	result := out["result"].(map[string]interface{})
	require.Equal(s.T(), "formula_evaluation", result["type"])
	require.Equal(s.T(), 20.0, result["result"])
	require.NotEmpty(s.T(), result["steps"])
}

func (s *ToolSuite) TestSolveFailureIsInResult() {
	resp := s.call("solve", map[string]interface{}{"line": "p * q = 12"})
	require.Empty(s.T(), resp.Error)
	res := resp.Result.(notesolve.SolveResult)
	require.False(s.T(), res.Success)
	require.Equal(s.T(), notesolve.TypeUnsolvable, res.Type)
}

func (s *ToolSuite) TestSolveWithContext() {
	resp := s.call("solve_with_context", map[string]interface{}{
		"line": "W = ?",
		"context": map[string]interface{}{
			"variables": []interface{}{
				map[string]interface{}{"name": "m", "value": 2},
				map[string]interface{}{"name": "g", "value": "9.81"},
			},
			"formulas": []interface{}{
				map[string]interface{}{"name": "W", "expression": "m * g"},
			},
		},
	})
	require.Empty(s.T(), resp.Error)
	require.Equal(s.T(), "19.62", resp.String)

	res := resp.Result.(notesolve.ContextResult)
	require.Len(s.T(), res.UsedContext, 3)
	require.NotNil(s.T(), res.Confidence)
	require.Empty(s.T(), s.eng.GetAllVariables())
}

func (s *ToolSuite) TestSolveWithContextBadContext() {
	resp := s.call("solve_with_context", map[string]interface{}{"line": "x", "context": "nope"})
	require.Contains(s.T(), resp.Error, "context")
}

func (s *ToolSuite) TestMissingParam() {
	resp := s.call("solve", map[string]interface{}{})
	require.Equal(s.T(), "missing param: line", resp.Error)

	resp = s.call("solve", map[string]interface{}{"line": 4})
	require.Equal(s.T(), "param line must be a string", resp.Error)
}

func (s *ToolSuite) TestUnknownTool() {
	resp := s.call("factor", nil)
	require.Equal(s.T(), "unknown tool: factor", resp.Error)
}

func (s *ToolSuite) TestClassify() {
	resp := s.call("classify", map[string]interface{}{"line": "F = m * a"})
	require.Empty(s.T(), resp.Error)
	require.Equal(s.T(), "formula", resp.String)
	require.Empty(s.T(), s.eng.GetAllFormulas())
}

func (s *ToolSuite) TestEvaluateAndDifferentiate() {
	resp := s.call("evaluate", map[string]interface{}{"expr": "2^10"})
	require.Empty(s.T(), resp.Error)
	require.Equal(s.T(), "1024", resp.String)

	resp = s.call("evaluate", map[string]interface{}{"expr": "q + 1"})
	require.Contains(s.T(), resp.Error, "q")

	resp = s.call("differentiate", map[string]interface{}{"expr": "x^2", "var": "x"})
	require.Empty(s.T(), resp.Error)
	require.Equal(s.T(), "2 * x", resp.String)
	require.NotEmpty(s.T(), resp.LaTeX)
}

func (s *ToolSuite) TestExtractVariables() {
	resp := s.call("extract_variables", map[string]interface{}{"expr": "m * c^2 + sin(theta)"})
	require.Equal(s.T(), []string{"c", "m", "theta"}, resp.Result)
	require.Equal(s.T(), "c, m, theta", resp.String)
}

func (s *ToolSuite) TestStoreGetClear() {
	resp := s.call("store_variable", map[string]interface{}{"name": "x", "value": 4.0})
	require.Empty(s.T(), resp.Error)
	require.Equal(s.T(), "x = 4", resp.String)

	resp = s.call("store_formula", map[string]interface{}{"name": "A", "expression": "pi * r^2"})
	require.Empty(s.T(), resp.Error)

	resp = s.call("get_variable", map[string]interface{}{"name": "x"})
	require.Equal(s.T(), "4", resp.String)
	resp = s.call("get_formula", map[string]interface{}{"name": "A"})
	require.Equal(s.T(), "pi * r^2", resp.String)

	resp = s.call("list_variables", nil)
	require.Equal(s.T(), "x = 4", resp.String)
	resp = s.call("list_formulas", nil)
	require.Equal(s.T(), "A = pi * r^2", resp.String)

	require.Equal(s.T(), true, s.call("clear_variable", map[string]interface{}{"name": "x"}).Result)
	require.Equal(s.T(), false, s.call("clear_variable", map[string]interface{}{"name": "x"}).Result)
	require.Equal(s.T(), true, s.call("clear_formula", map[string]interface{}{"name": "A"}).Result)

	resp = s.call("get_variable", map[string]interface{}{"name": "x"})
	require.Equal(s.T(), "variable x is not defined", resp.Error)
	resp = s.call("get_formula", map[string]interface{}{"name": "A"})
	require.Equal(s.T(), "formula A is not defined", resp.Error)
}

func (s *ToolSuite) TestStoreGuards() {
	resp := s.call("store_variable", map[string]interface{}{"name": "sin", "value": 1.0})
	require.Contains(s.T(), resp.Error, "reserved")

	resp = s.call("store_formula", map[string]interface{}{"name": "2x", "expression": "y"})
	require.Contains(s.T(), resp.Error, "not a valid name")

	resp = s.call("store_formula", map[string]interface{}{"name": "y", "expression": "x +"})
	require.Contains(s.T(), resp.Error, "invalid expression")

	resp = s.call("store_variable", map[string]interface{}{"name": "x"})
	require.Equal(s.T(), "missing param: value", resp.Error)
}

func (s *ToolSuite) TestReset() {
	s.call("store_variable", map[string]interface{}{"name": "x", "value": 1.0})
	s.call("store_formula", map[string]interface{}{"name": "F", "expression": "m * a"})
	resp := s.call("reset", nil)
	require.Equal(s.T(), true, resp.Result)
	require.Empty(s.T(), s.eng.GetAllVariables())
	require.Empty(s.T(), s.eng.GetAllFormulas())
}

func (s *ToolSuite) TestScan() {
	resp := s.call("scan", map[string]interface{}{"text": "a = 1\nb = a * 2\n"})
	require.Empty(s.T(), resp.Error)
	res := resp.Result.(notesolve.ScanResult)
	require.Len(s.T(), res.Variables, 1)
	require.Len(s.T(), res.Formulas, 1)
	require.Empty(s.T(), s.eng.GetAllVariables())
}

func (s *ToolSuite) TestToolSpec() {
	var spec struct {
		Tools []struct {
			Name        string `json:"name"`
			InputSchema struct {
				Required []string `json:"required"`
			} `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(s.T(), json.Unmarshal([]byte(notesolve.ToolSpec()), &spec))

	names := map[string]bool{}
	for _, t := range spec.Tools {
		names[t.Name] = true
		resp := s.call(t.Name, map[string]interface{}{})
		if len(t.InputSchema.Required) > 0 {
			assert.Contains(s.T(), resp.Error, "missing param", t.Name)
		} else {
			assert.Empty(s.T(), resp.Error, t.Name)
		}
	}
	for _, want := range []string{"solve", "solve_with_context", "store_variable", "store_formula", "scan"} {
		assert.True(s.T(), names[want], want)
	}

	resp := s.call("tool_spec", nil)
	raw, ok := resp.Result.(json.RawMessage)
	require.True(s.T(), ok)
	require.True(s.T(), json.Valid(raw))
}

func TestToolSuite(t *testing.T) {
	suite.Run(t, new(ToolSuite))
}
