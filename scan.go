package notesolve

import (
	"bufio"
	"strings"
)

// Scanned line kinds.
const (
	ScanVariable = "variable"
	ScanFormula  = "formula"
	ScanEquation = "equation"
)

// ScannedLine is one '='-containing line found by ScanForFormulas.
type ScannedLine struct {
	Line       int    `json:"line"`
	Text       string `json:"text"`
	Kind       string `json:"kind"`
	Name       string `json:"name,omitempty"`
	Value      *Value `json:"value,omitempty"`
	Expression string `json:"expression,omitempty"`
}

// ScanResult holds what a document mentions. Later lines override earlier
// ones with the same name.
type ScanResult struct {
	Equations []ScannedLine     `json:"equations"`
	Variables []ContextVariable `json:"variables"`
	Formulas  []ContextFormula  `json:"formulas"`
}

// ScanForFormulas classifies every non-blank line containing '=' into a
// variable, a formula or a plain equation. It touches no engine state;
// closed right-hand sides are evaluated with constants only.
func ScanForFormulas(text string) ScanResult {
	res := ScanResult{
		Equations: []ScannedLine{},
		Variables: []ContextVariable{},
		Formulas:  []ContextFormula{},
	}
	varIdx := map[string]int{}
	formulaIdx := map[string]int{}

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || !strings.Contains(line, "=") {
			continue
		}
		sl, ok := scanLine(line)
		if !ok {
			continue
		}
		sl.Line = n
		res.Equations = append(res.Equations, sl)

		switch sl.Kind {
		case ScanVariable:
			cv := ContextVariable{Name: sl.Name, Value: *sl.Value, Source: SourceSpatial}
			if i, seen := varIdx[sl.Name]; seen {
				res.Variables[i] = cv
				continue
			}
			varIdx[sl.Name] = len(res.Variables)
			res.Variables = append(res.Variables, cv)
		case ScanFormula:
			cf := ContextFormula{Name: sl.Name, Expression: sl.Expression, Source: SourceSpatial}
			if i, seen := formulaIdx[sl.Name]; seen {
				res.Formulas[i] = cf
				continue
			}
			formulaIdx[sl.Name] = len(res.Formulas)
			res.Formulas = append(res.Formulas, cf)
		}
	}
	return res
}

func scanLine(line string) (ScannedLine, bool) {
	eq, err := ParseEquation(strings.TrimRight(line, "?"))
	if err != nil || !eq.IsEquation || eq.Left == "" || eq.Right == "" {
		return ScannedLine{}, false
	}
	right, err := Parse(eq.Right)
	if err != nil {
		return ScannedLine{}, false
	}
	sl := ScannedLine{Text: line, Kind: ScanEquation, Expression: eq.Right}
	if !IsIdentifier(eq.Left) || IsReserved(eq.Left) {
		if _, err := Parse(eq.Left); err != nil {
			return ScannedLine{}, false
		}
		return sl, true
	}
	sl.Name = eq.Left

	vars := FreeSymbols(right)
	if _, self := vars[eq.Left]; self {
		return sl, true
	}
	if len(vars) > 0 {
		sl.Kind = ScanFormula
		return sl, true
	}
	v, _, err := evaluateExpr(right, Scope{})
	if err != nil {
		return sl, true
	}
	sl.Kind = ScanVariable
	sl.Value = valuePtr(v)
	return sl, true
}

// Context turns a scan into hints for SolveWithContext.
func (r ScanResult) Context() Context {
	return Context{
		Variables: append([]ContextVariable(nil), r.Variables...),
		Formulas:  append([]ContextFormula(nil), r.Formulas...),
	}
}
