package notesolve

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
)

// ============================================================
// Free Symbols
// ============================================================

// FreeSymbols returns the free variable names of e. A name bound by a
// calculus form is excluded inside the form's first argument only; bounds
// and evaluation points stay in the outer scope. Reserved names and
// constants are never free.
func FreeSymbols(e Expr) map[string]struct{} {
	out := map[string]struct{}{}
	collectSymbols(e, nil, out)
	return out
}

func collectSymbols(e Expr, bound map[string]struct{}, out map[string]struct{}) {
	switch v := e.(type) {
	case *Sym:
		if _, ok := bound[v.name]; ok {
			return
		}
		if IsReserved(v.name) {
			return
		}
		if _, ok := mathConstants[v.name]; ok {
			return
		}
		out[v.name] = struct{}{}
	case *Add:
		for _, t := range v.terms {
			collectSymbols(t, bound, out)
		}
	case *Mul:
		for _, f := range v.factors {
			collectSymbols(f, bound, out)
		}
	case *Pow:
		collectSymbols(v.base, bound, out)
		collectSymbols(v.exp, bound, out)
	case *Func:
		if v.bindsVariable() {
			if s, ok := v.args[1].(*Sym); ok {
				inner := make(map[string]struct{}, len(bound)+1)
				for k := range bound {
					inner[k] = struct{}{}
				}
				inner[s.name] = struct{}{}
				collectSymbols(v.args[0], inner, out)
				for _, a := range v.args[2:] {
					collectSymbols(a, bound, out)
				}
				return
			}
		}
		for _, a := range v.args {
			collectSymbols(a, bound, out)
		}
	}
}

func sortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ============================================================
// Variable extraction from text
// ============================================================

// ExtractVariables returns the sorted free variable names in text. When the
// text does not parse it falls back to a best-effort lexical scan.
func ExtractVariables(text string) []string {
	if e, err := Parse(text); err == nil {
		return sortedNames(FreeSymbols(e))
	}
	return scanIdentifiers(text)
}

var (
	// reCalculusCall takes the first argument up to its first comma, so a
	// first argument that itself holds commas, such as pow(x, 2), is not
	// matched and its bound variable is reported as free.
	reCalculusCall = regexp.MustCompile(`\b(integrate|diff|derivative)\s*\(([^,]*),\s*([A-Za-z_][A-Za-z0-9_]*)\s*`)
	reIdentifier   = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\b`)
)

// stripBoundVariables removes the bound variable of calculus calls, both as
// the second argument and inside the first.
func stripBoundVariables(text string) string {
	return reCalculusCall.ReplaceAllStringFunc(text, func(m string) string {
		sub := reCalculusCall.FindStringSubmatch(m)
		word := regexp.MustCompile(`\b` + regexp.QuoteMeta(sub[3]) + `\b`)
		return sub[1] + "(" + word.ReplaceAllString(sub[2], "1")
	})
}

// lexicalStubs lets govaluate tokenize calls to the engine's functions.
var lexicalStubs = func() map[string]govaluate.ExpressionFunction {
	stub := func(args ...interface{}) (interface{}, error) { return 0.0, nil }
	out := map[string]govaluate.ExpressionFunction{}
	for name := range reservedNames {
		if _, isConst := mathConstants[name]; isConst {
			continue
		}
		out[name] = stub
	}
	return out
}()

// scanIdentifiers is the fallback extractor. It tokenizes with govaluate
// and, if even that fails, with a plain identifier pattern.
func scanIdentifiers(text string) []string {
	src := stripBoundVariables(Normalize(text))
	set := map[string]struct{}{}
	keep := func(name string) {
		if name == "" || IsReserved(name) {
			return
		}
		if _, ok := mathConstants[name]; ok {
			return
		}
		set[name] = struct{}{}
	}

	if expr, err := govaluate.NewEvaluableExpressionWithFunctions(src, lexicalStubs); err == nil {
		for _, tok := range expr.Tokens() {
			if tok.Kind != govaluate.VARIABLE {
				continue
			}
			if name, ok := tok.Value.(string); ok {
				keep(name)
			}
		}
		return sortedNames(set)
	}

	for _, loc := range reIdentifier.FindAllStringIndex(src, -1) {
		name := src[loc[0]:loc[1]]
		rest := strings.TrimLeft(src[loc[1]:], " ")
		if strings.HasPrefix(rest, "(") {
			continue
		}
		keep(name)
	}
	return sortedNames(set)
}
