package notesolve

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Provenance tags for context entries.
const (
	SourceSpatial = "spatial"
	SourceStored  = "stored"
	SourceLibrary = "library"
)

// ContextVariable is a candidate variable found near the line being solved.
// Value may be a number or expression text.
type ContextVariable struct {
	Name   string      `json:"name"`
	Value  interface{} `json:"value"`
	Source string      `json:"source,omitempty"`
}

// ContextFormula is a candidate formula found near the line being solved.
type ContextFormula struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Source     string `json:"source,omitempty"`
}

// Context is the set of hints passed to SolveWithContext.
type Context struct {
	Variables []ContextVariable `json:"variables,omitempty"`
	Formulas  []ContextFormula  `json:"formulas,omitempty"`
}

// Entry kinds.
const (
	EntryVariable = "variable"
	EntryFormula  = "formula"
)

// ContextEntry is a merged hint that the solve actually relied on.
type ContextEntry struct {
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Value      *Value `json:"value,omitempty"`
	Expression string `json:"expression,omitempty"`
	Source     string `json:"source"`
}

// Confidence scores a produced result from 0 to 100.
type Confidence struct {
	Score   int      `json:"score"`
	Level   string   `json:"level"`
	Reasons []string `json:"reasons,omitempty"`
}

// ContextResult is a SolveResult plus the context it used, suggestions on
// failure and a confidence score on success.
type ContextResult struct {
	SolveResult
	UsedContext []ContextEntry `json:"usedContext"`
	Suggestions []Suggestion   `json:"suggestions,omitempty"`
	Confidence  *Confidence    `json:"confidence,omitempty"`
}

// SolveWithContext merges the hints in c that are absent from the store,
// solves line, and removes the merged hints again. A merged variable that
// the line itself solved or assigned is kept.
func (e *Engine) SolveWithContext(line string, c Context) ContextResult {
	return e.solveWithContext(context.Background(), line, c)
}

func (e *Engine) solveWithContext(ctx context.Context, line string, c Context) ContextResult {
	ctx, span := e.tracer.Start(ctx, "notesolve.SolveWithContext")
	defer span.End()

	merged := e.mergeContext(c)
	res := e.solve(ctx, line)
	used := e.usedContext(line, merged)

	out := ContextResult{SolveResult: res, UsedContext: used}
	// Suggestions see the merged hints, so a typo can match a context name.
	if !res.Success || res.Type == TypeFormulaStorage {
		out.Suggestions = e.GenerateSuggestions(line, res)
	}
	e.rollback(merged, res)
	if res.Success {
		conf := CalculateConfidence(res, used)
		out.Confidence = &conf
	}
	span.SetAttributes(
		attribute.Int("notesolve.context.merged", len(merged)),
		attribute.Int("notesolve.context.used", len(used)),
		attribute.Int("notesolve.suggestions", len(out.Suggestions)),
	)
	return out
}

// mergeContext copies hints into the store without overwriting anything.
// The first hint for a name wins.
func (e *Engine) mergeContext(c Context) []ContextEntry {
	var merged []ContextEntry
	for _, cv := range c.Variables {
		if _, exists := e.store.Variable(cv.Name); exists {
			continue
		}
		v, err := valueOf(cv.Value)
		if err != nil {
			e.logger.Warn("context variable skipped", "name", cv.Name, "err", err)
			continue
		}
		if v.IsSymbolic() {
			if evaluated, err := e.Evaluate(v.String()); err == nil {
				v = evaluated
			}
		}
		if err := e.store.SetVariable(cv.Name, v); err != nil {
			e.logger.Warn("context variable skipped", "name", cv.Name, "err", err)
			continue
		}
		merged = append(merged, ContextEntry{
			Kind:   EntryVariable,
			Name:   cv.Name,
			Value:  valuePtr(v),
			Source: e.source(cv.Source),
		})
	}
	for _, cf := range c.Formulas {
		if _, exists := e.store.Formula(cf.Name); exists {
			continue
		}
		if err := e.store.SetFormula(cf.Name, cf.Expression); err != nil {
			e.logger.Warn("context formula skipped", "name", cf.Name, "err", err)
			continue
		}
		body, _ := e.store.Formula(cf.Name)
		merged = append(merged, ContextEntry{
			Kind:       EntryFormula,
			Name:       cf.Name,
			Expression: body,
			Source:     e.source(cf.Source),
		})
	}
	return merged
}

func (e *Engine) source(s string) string {
	if s == "" {
		return e.cfg.DefaultSource
	}
	return s
}

// usedContext keeps the merged entries the line refers to, directly or
// through a formula it names.
func (e *Engine) usedContext(line string, merged []ContextEntry) []ContextEntry {
	refs := map[string]struct{}{}
	for _, v := range lineVariables(line) {
		refs[v] = struct{}{}
		if body, ok := e.store.Formula(v); ok {
			for _, fv := range ExtractVariables(body) {
				refs[fv] = struct{}{}
			}
		}
	}
	used := []ContextEntry{}
	for _, m := range merged {
		if _, ok := refs[m.Name]; ok {
			used = append(used, m)
		}
	}
	return used
}

// rollback removes merged hints, keeping a binding the solve produced.
func (e *Engine) rollback(merged []ContextEntry, res SolveResult) {
	for _, m := range merged {
		switch m.Kind {
		case EntryVariable:
			if m.Name == res.Variable && res.Success && res.Type != TypeExpression {
				continue
			}
			e.store.DeleteVariable(m.Name)
		case EntryFormula:
			if m.Name == res.Variable && (res.Type == TypeFormulaStorage || res.Type == TypeFormulaEvaluation) {
				continue
			}
			e.store.DeleteFormula(m.Name)
		}
	}
}

// lineVariables returns the free variables of both sides of line.
func lineVariables(line string) []string {
	eq, err := ParseEquation(strings.TrimRight(strings.TrimSpace(line), "?"))
	if err != nil {
		return ExtractVariables(line)
	}
	set := map[string]struct{}{}
	for _, side := range []string{eq.Left, eq.Right} {
		if strings.TrimSpace(side) == "" {
			continue
		}
		for _, v := range ExtractVariables(side) {
			set[v] = struct{}{}
		}
		if IsIdentifier(side) && !IsReserved(side) {
			set[side] = struct{}{}
		}
	}
	return sortedNames(set)
}

// CalculateConfidence scores a result: 100, minus 10 per spatial variable
// used, 15 for a numerical solution, 10 for more than 50 iterations and 30
// for an unevaluated formula.
func CalculateConfidence(res SolveResult, used []ContextEntry) Confidence {
	score := 100
	var reasons []string
	for _, u := range used {
		if u.Kind == EntryVariable && u.Source == SourceSpatial {
			score -= 10
			reasons = append(reasons, fmt.Sprintf("%s taken from nearby text", u.Name))
		}
	}
	if res.Type == TypeNumericalSolution {
		score -= 15
		reasons = append(reasons, "numerical solution")
	}
	if res.Iterations > 50 {
		score -= 10
		reasons = append(reasons, fmt.Sprintf("%d iterations", res.Iterations))
	}
	if res.Type == TypeFormulaStorage {
		score -= 30
		reasons = append(reasons, "formula not evaluated")
	}
	if score < 0 {
		score = 0
	}
	return Confidence{Score: score, Level: confidenceLevel(score), Reasons: reasons}
}

func confidenceLevel(score int) string {
	switch {
	case score >= 90:
		return "high"
	case score >= 70:
		return "medium"
	case score >= 50:
		return "low"
	}
	return "very-low"
}
