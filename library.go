package notesolve

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed library.yaml
var defaultLibraryYAML []byte

// PhysicalConstant is a named constant offered when a variable is missing.
type PhysicalConstant struct {
	Name        string  `yaml:"name" json:"name"`
	Value       float64 `yaml:"value" json:"value"`
	Unit        string  `yaml:"unit" json:"unit"`
	Description string  `yaml:"description" json:"description"`
}

// LibraryFormula is a reference relation Variable = Expression.
type LibraryFormula struct {
	Name        string `yaml:"name" json:"name"`
	Variable    string `yaml:"variable" json:"variable"`
	Expression  string `yaml:"expression" json:"expression"`
	Description string `yaml:"description" json:"description"`
	Topic       string `yaml:"topic" json:"topic"`

	vars []string
}

// Variables returns every variable the formula mentions, its defined
// variable included.
func (f LibraryFormula) Variables() []string { return f.vars }

func (f LibraryFormula) mentions(name string) bool {
	for _, v := range f.vars {
		if v == name {
			return true
		}
	}
	return false
}

// Library is the reference set of constants and formulas.
type Library struct {
	Constants []PhysicalConstant `yaml:"constants"`
	Formulas  []LibraryFormula   `yaml:"formulas"`

	constants map[string]PhysicalConstant
}

// ParseLibrary decodes a YAML library and checks every formula parses.
func ParseLibrary(data []byte) (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("notesolve: decode library: %w", err)
	}
	lib.constants = make(map[string]PhysicalConstant, len(lib.Constants))
	for _, c := range lib.Constants {
		lib.constants[c.Name] = c
	}
	for i := range lib.Formulas {
		f := &lib.Formulas[i]
		e, err := Parse(f.Expression)
		if err != nil {
			return nil, fmt.Errorf("notesolve: library formula %s: %w", f.Name, err)
		}
		set := FreeSymbols(e)
		set[f.Variable] = struct{}{}
		f.vars = sortedNames(set)
	}
	return &lib, nil
}

var (
	defaultLibraryOnce sync.Once
	defaultLibrary     *Library
)

// DefaultLibrary returns the embedded physics library. It panics if the
// embedded file is broken, which the package tests guard against.
func DefaultLibrary() *Library {
	defaultLibraryOnce.Do(func() {
		lib, err := ParseLibrary(defaultLibraryYAML)
		if err != nil {
			panic(err)
		}
		defaultLibrary = lib
	})
	return defaultLibrary
}

// Constant looks up a physical constant by exact name.
func (l *Library) Constant(name string) (PhysicalConstant, bool) {
	c, ok := l.constants[name]
	return c, ok
}

// Defining returns the formulas whose left-hand side is name.
func (l *Library) Defining(name string) []LibraryFormula {
	var out []LibraryFormula
	for _, f := range l.Formulas {
		if f.Variable == name {
			out = append(out, f)
		}
	}
	return out
}

// Using returns the formulas that mention name on their right-hand side.
func (l *Library) Using(name string) []LibraryFormula {
	var out []LibraryFormula
	for _, f := range l.Formulas {
		if f.Variable != name && f.mentions(name) {
			out = append(out, f)
		}
	}
	return out
}

// Related returns up to limit formulas sharing at least one variable with
// vars, most shared variables first.
func (l *Library) Related(vars []string, limit int) []LibraryFormula {
	type scored struct {
		f     LibraryFormula
		score int
	}
	var hits []scored
	for _, f := range l.Formulas {
		n := 0
		for _, v := range vars {
			if f.mentions(v) {
				n++
			}
		}
		if n > 0 {
			hits = append(hits, scored{f: f, score: n})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if limit >= 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]LibraryFormula, len(hits))
	for i, h := range hits {
		out[i] = h.f
	}
	return out
}

// Covering returns the first formula that mentions every name in vars.
func (l *Library) Covering(vars []string) (LibraryFormula, bool) {
	if len(vars) == 0 {
		return LibraryFormula{}, false
	}
	for _, f := range l.Formulas {
		all := true
		for _, v := range vars {
			if !f.mentions(v) {
				all = false
				break
			}
		}
		if all {
			return f, true
		}
	}
	return LibraryFormula{}, false
}
