package notesolve

import (
	"fmt"
	"sort"
	"strings"
)

// SuggestionType names the kind of advice a Suggestion carries.
type SuggestionType string

const (
	SuggestDefineVariable SuggestionType = "define_variable"
	SuggestConstant       SuggestionType = "use_constant"
	SuggestFormula        SuggestionType = "use_formula"
	SuggestTypo           SuggestionType = "typo"
	SuggestRelatedFormula SuggestionType = "related_formula"
)

// Suggestion is advisory; producing one never changes engine state.
type Suggestion struct {
	Type     SuggestionType    `json:"type"`
	Message  string            `json:"message"`
	Variable string            `json:"variable,omitempty"`
	Constant *PhysicalConstant `json:"constant,omitempty"`
	// Formula is printed as "name = expression".
	Formula     string `json:"formula,omitempty"`
	FormulaName string `json:"formulaName,omitempty"`
	Topic       string `json:"topic,omitempty"`
	Source      string `json:"source,omitempty"`
	Existing    string `json:"existing,omitempty"`
}

// GenerateSuggestions proposes ways to make line solvable given its result.
func (e *Engine) GenerateSuggestions(line string, res SolveResult) []Suggestion {
	missing := missingNames(res)
	out := []Suggestion{}
	seen := map[string]struct{}{}

	for _, v := range missing {
		out = append(out, Suggestion{
			Type:     SuggestDefineVariable,
			Message:  fmt.Sprintf("Define %s, for example \"%s = <value>\"", v, v),
			Variable: v,
		})
		if pc, ok := e.library.Constant(v); ok {
			pc := pc
			out = append(out, Suggestion{
				Type:     SuggestConstant,
				Message:  fmt.Sprintf("%s may be the %s: %s = %s %s", v, pc.Description, v, formatNumber(pc.Value), pc.Unit),
				Variable: v,
				Constant: &pc,
				Source:   SourceLibrary,
			})
		}
		out = append(out, e.formulaSuggestions(v, res.Variable, seen)...)
		out = append(out, e.typoSuggestions(v)...)
	}

	vars := lineVariables(line)
	related := 0
	for _, f := range e.library.Related(vars, -1) {
		if related >= e.cfg.MaxRelatedFormulas {
			break
		}
		key := SourceLibrary + ":" + f.Name
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		related++
		out = append(out, Suggestion{
			Type:        SuggestRelatedFormula,
			Message:     fmt.Sprintf("Related: %s (%s)", f.Description, f.Variable+" = "+f.Expression),
			Formula:     f.Variable + " = " + f.Expression,
			FormulaName: f.Name,
			Topic:       f.Topic,
			Source:      SourceLibrary,
		})
	}
	return out
}

// missingNames collects the unresolved variables a result reports, plus the
// name behind an unbound-variable failure.
func missingNames(res SolveResult) []string {
	set := map[string]struct{}{}
	for _, v := range res.MissingVariables {
		set[v] = struct{}{}
	}
	for _, v := range res.Unknowns {
		set[v] = struct{}{}
	}
	if name, ok := unboundName(res.Err); ok && !IsReserved(name) {
		set[name] = struct{}{}
	}
	return sortedNames(set)
}

// formulaSuggestions lists stored formulas that define or use v, then
// library formulas that define it, then up to MaxRelatedFormulas library
// formulas that use it. self is the formula the line itself stored, which
// is never suggested back.
func (e *Engine) formulaSuggestions(v, self string, seen map[string]struct{}) []Suggestion {
	var out []Suggestion
	formulas := e.store.Formulas()
	names := make([]string, 0, len(formulas))
	for n := range formulas {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if n == self {
			continue
		}
		body := formulas[n]
		uses := false
		for _, fv := range ExtractVariables(body) {
			if fv == v {
				uses = true
				break
			}
		}
		if n != v && !uses {
			continue
		}
		key := SourceStored + ":" + n
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		verb := "uses"
		if n == v {
			verb = "defines"
		}
		out = append(out, Suggestion{
			Type:        SuggestFormula,
			Message:     fmt.Sprintf("Stored formula %s = %s %s %s", n, body, verb, v),
			Variable:    v,
			Formula:     n + " = " + body,
			FormulaName: n,
			Source:      SourceStored,
		})
	}
	for _, f := range e.library.Defining(v) {
		key := SourceLibrary + ":" + f.Name
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Suggestion{
			Type:        SuggestFormula,
			Message:     fmt.Sprintf("%s can be computed from %s (%s)", v, f.Variable+" = "+f.Expression, f.Description),
			Variable:    v,
			Formula:     f.Variable + " = " + f.Expression,
			FormulaName: f.Name,
			Topic:       f.Topic,
			Source:      SourceLibrary,
		})
	}
	users := 0
	for _, f := range e.library.Using(v) {
		if users >= e.cfg.MaxRelatedFormulas {
			break
		}
		key := SourceLibrary + ":" + f.Name
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		users++
		out = append(out, Suggestion{
			Type:        SuggestFormula,
			Message:     fmt.Sprintf("%s appears in %s (%s)", v, f.Variable+" = "+f.Expression, f.Description),
			Variable:    v,
			Formula:     f.Variable + " = " + f.Expression,
			FormulaName: f.Name,
			Topic:       f.Topic,
			Source:      SourceLibrary,
		})
	}
	return out
}

// typoSuggestions finds stored variables that differ from v only by case.
func (e *Engine) typoSuggestions(v string) []Suggestion {
	var names []string
	for n := range e.store.Variables() {
		if n != v && strings.EqualFold(n, v) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	out := make([]Suggestion, 0, len(names))
	for _, n := range names {
		out = append(out, Suggestion{
			Type:     SuggestTypo,
			Message:  fmt.Sprintf("Did you mean %s instead of %s?", n, v),
			Variable: v,
			Existing: n,
		})
	}
	return out
}
