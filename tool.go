package notesolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ============================================================
// JSON tool interface
// ============================================================

// ToolRequest is one JSON tool call against an Engine.
type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

// ToolResponse is the reply to a ToolRequest. Error is set on failure.
type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	LaTeX  string      `json:"latex,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func errResponse(err error) ToolResponse { return ToolResponse{Error: err.Error()} }

// HandleToolCall dispatches req to the engine.
func (e *Engine) HandleToolCall(ctx context.Context, req ToolRequest) ToolResponse {
	ctx, span := e.tracer.Start(ctx, "notesolve.HandleToolCall")
	defer span.End()
	span.SetAttributes(attribute.String("notesolve.tool", req.Tool))

	resp := e.handleTool(ctx, req)
	if resp.Error != "" {
		span.SetStatus(codes.Error, resp.Error)
	}
	return resp
}

func (e *Engine) handleTool(ctx context.Context, req ToolRequest) ToolResponse {
	getString := func(key string) (string, error) {
		v, ok := req.Params[key]
		if !ok {
			return "", fmt.Errorf("missing param: %s", key)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("param %s must be a string", key)
		}
		return s, nil
	}
	getContext := func(key string) (Context, error) {
		var c Context
		raw, ok := req.Params[key]
		if !ok || raw == nil {
			return c, nil
		}
		b, err := json.Marshal(raw)
		if err != nil {
			return c, fmt.Errorf("param %s: %w", key, err)
		}
		if err := json.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("param %s must be {variables, formulas}: %w", key, err)
		}
		return c, nil
	}
	guard := func(err error) ToolResponse {
		if errors.Is(err, ErrReservedName) || errors.Is(err, ErrInvalidName) {
			e.logger.Warn("store guard rejected name", "tool", req.Tool, "err", err)
		}
		return errResponse(err)
	}
	solveResponse := func(res SolveResult) ToolResponse {
		resp := ToolResponse{Result: res, LaTeX: res.LaTeX}
		if res.Result != nil {
			resp.String = res.Result.String()
		}
		return resp
	}

	switch req.Tool {
	case "solve":
		line, err := getString("line")
		if err != nil {
			return errResponse(err)
		}
		return solveResponse(e.solve(ctx, line))

	case "solve_with_context":
		line, err := getString("line")
		if err != nil {
			return errResponse(err)
		}
		c, err := getContext("context")
		if err != nil {
			return errResponse(err)
		}
		res := e.solveWithContext(ctx, line, c)
		resp := ToolResponse{Result: res, LaTeX: res.LaTeX}
		if res.Result != nil {
			resp.String = res.Result.String()
		}
		return resp

	case "classify":
		line, err := getString("line")
		if err != nil {
			return errResponse(err)
		}
		c, err := e.Classify(line)
		if err != nil {
			return errResponse(err)
		}
		return ToolResponse{
			Result: map[string]interface{}{
				"shape":         c.Shape.String(),
				"equation":      c.Equation,
				"name":          c.Name,
				"leftVars":      c.LeftVars,
				"rightVars":     c.RightVars,
				"selfReference": c.SelfReference,
			},
			String: c.Shape.String(),
		}

	case "evaluate":
		text, err := getString("expr")
		if err != nil {
			return errResponse(err)
		}
		v, err := e.Evaluate(text)
		if err != nil {
			return errResponse(err)
		}
		return ToolResponse{Result: v, String: v.String()}

	case "differentiate":
		text, err := getString("expr")
		if err != nil {
			return errResponse(err)
		}
		v, err := getString("var")
		if err != nil {
			return errResponse(err)
		}
		d, err := e.Differentiate(text, v)
		if err != nil {
			return errResponse(err)
		}
		return ToolResponse{Result: String(d), LaTeX: LaTeX(d), String: String(d)}

	case "extract_variables":
		text, err := getString("expr")
		if err != nil {
			return errResponse(err)
		}
		vars := ExtractVariables(text)
		return ToolResponse{Result: vars, String: strings.Join(vars, ", ")}

	case "store_variable":
		name, err := getString("name")
		if err != nil {
			return errResponse(err)
		}
		raw, ok := req.Params["value"]
		if !ok {
			return errResponse(fmt.Errorf("missing param: value"))
		}
		if err := e.StoreVariable(name, raw); err != nil {
			return guard(err)
		}
		v, _ := e.GetVariable(name)
		return ToolResponse{Result: v, String: name + " = " + v.String()}

	case "store_formula":
		name, err := getString("name")
		if err != nil {
			return errResponse(err)
		}
		body, err := getString("expression")
		if err != nil {
			return errResponse(err)
		}
		if err := e.StoreFormula(name, body); err != nil {
			return guard(err)
		}
		stored, _ := e.GetFormula(name)
		return ToolResponse{Result: stored, String: name + " = " + stored}

	case "get_variable":
		name, err := getString("name")
		if err != nil {
			return errResponse(err)
		}
		v, ok := e.GetVariable(name)
		if !ok {
			return ToolResponse{Error: fmt.Sprintf("variable %s is not defined", name)}
		}
		return ToolResponse{Result: v, String: v.String()}

	case "get_formula":
		name, err := getString("name")
		if err != nil {
			return errResponse(err)
		}
		f, ok := e.GetFormula(name)
		if !ok {
			return ToolResponse{Error: fmt.Sprintf("formula %s is not defined", name)}
		}
		return ToolResponse{Result: f, String: f}

	case "list_variables":
		vars := e.GetAllVariables()
		names := make([]string, 0, len(vars))
		for n := range vars {
			names = append(names, n)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = n + " = " + vars[n].String()
		}
		return ToolResponse{Result: vars, String: strings.Join(parts, "\n")}

	case "list_formulas":
		formulas := e.GetAllFormulas()
		names := make([]string, 0, len(formulas))
		for n := range formulas {
			names = append(names, n)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = n + " = " + formulas[n]
		}
		return ToolResponse{Result: formulas, String: strings.Join(parts, "\n")}

	case "clear_variable":
		name, err := getString("name")
		if err != nil {
			return errResponse(err)
		}
		return ToolResponse{Result: e.ClearVariable(name)}

	case "clear_formula":
		name, err := getString("name")
		if err != nil {
			return errResponse(err)
		}
		return ToolResponse{Result: e.ClearFormula(name)}

	case "reset":
		e.Reset()
		return ToolResponse{Result: true, String: "reset"}

	case "scan":
		text, err := getString("text")
		if err != nil {
			return errResponse(err)
		}
		return ToolResponse{Result: ScanForFormulas(text)}

	case "tool_spec":
		return ToolResponse{Result: json.RawMessage(ToolSpec())}
	}
	return ToolResponse{Error: fmt.Sprintf("unknown tool: %s", req.Tool)}
}

// ToolSpec returns the JSON schema of every tool HandleToolCall accepts.
func ToolSpec() string {
	tools := []map[string]interface{}{
		ts("solve", "Solve, store or evaluate one line such as \"F = m * a\"", []string{"line"}, map[string]string{"line": "string"}),
		ts("solve_with_context", "Solve a line with nearby variables/formulas as hints. context={variables:[{name,value,source}],formulas:[{name,expression,source}]}", []string{"line"}, map[string]string{"line": "string", "context": "object"}),
		ts("classify", "Report how a line would be handled without running it", []string{"line"}, map[string]string{"line": "string"}),
		ts("evaluate", "Evaluate an expression against the stored variables", []string{"expr"}, map[string]string{"expr": "string"}),
		ts("differentiate", "Symbolic derivative d/dvar", []string{"expr", "var"}, map[string]string{"expr": "string", "var": "string"}),
		ts("extract_variables", "Free variable names of an expression", []string{"expr"}, map[string]string{"expr": "string"}),
		ts("store_variable", "Store a number or expression text under name", []string{"name", "value"}, map[string]string{"name": "string", "value": "string"}),
		ts("store_formula", "Store a formula body under name", []string{"name", "expression"}, map[string]string{"name": "string", "expression": "string"}),
		ts("get_variable", "Read one variable", []string{"name"}, map[string]string{"name": "string"}),
		ts("get_formula", "Read one formula", []string{"name"}, map[string]string{"name": "string"}),
		ts("list_variables", "All stored variables", []string{}, map[string]string{}),
		ts("list_formulas", "All stored formulas", []string{}, map[string]string{}),
		ts("clear_variable", "Forget one variable", []string{"name"}, map[string]string{"name": "string"}),
		ts("clear_formula", "Forget one formula", []string{"name"}, map[string]string{"name": "string"}),
		ts("reset", "Forget every variable and formula", []string{}, map[string]string{}),
		ts("scan", "Find variables and formulas in a multi-line document without storing them", []string{"text"}, map[string]string{"text": "string"}),
		ts("tool_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
