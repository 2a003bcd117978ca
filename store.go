package notesolve

import (
	"fmt"
	"strings"
	"unicode"
)

// exprKeywords cannot appear as plain names in parsed text.
var exprKeywords = map[string]struct{}{
	"in": {}, "not": {}, "and": {}, "or": {}, "matches": {}, "contains": {},
	"startsWith": {}, "endsWith": {}, "let": {}, "if": {}, "else": {},
}

// IsIdentifier reports whether name can be stored as a variable or formula:
// a letter or underscore followed by letters, digits or underscores.
func IsIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	_, kw := exprKeywords[name]
	return !kw
}

// checkName is the guard every store operation runs first.
func checkName(name string) error {
	if IsReserved(name) {
		return &NameError{Name: name, Err: ErrReservedName}
	}
	if !IsIdentifier(name) {
		return &NameError{Name: name, Err: ErrInvalidName}
	}
	return nil
}

// Store holds the two namespaces an engine remembers: variable values and
// formula bodies. The maps are independent; one name may appear in both.
type Store struct {
	variables map[string]Value
	formulas  map[string]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		variables: map[string]Value{},
		formulas:  map[string]string{},
	}
}

// SetVariable binds name to v, replacing any previous value.
func (s *Store) SetVariable(name string, v Value) error {
	if err := checkName(name); err != nil {
		return err
	}
	s.variables[name] = v
	return nil
}

// SetFormula binds name to expression text after checking that it parses.
func (s *Store) SetFormula(name, expression string) error {
	if err := checkName(name); err != nil {
		return err
	}
	expression = strings.TrimSpace(expression)
	if _, err := Parse(expression); err != nil {
		return fmt.Errorf("%w: formula %s: %w", ErrInvalidExpression, name, err)
	}
	s.formulas[name] = expression
	return nil
}

func (s *Store) Variable(name string) (Value, bool) {
	v, ok := s.variables[name]
	return v, ok
}

func (s *Store) Formula(name string) (string, bool) {
	f, ok := s.formulas[name]
	return f, ok
}

// Known reports whether name has a numeric value.
func (s *Store) Known(name string) bool {
	v, ok := s.variables[name]
	if !ok {
		return false
	}
	_, numeric := v.Float64()
	return numeric
}

// Variables returns a copy of every variable binding.
func (s *Store) Variables() map[string]Value {
	out := make(map[string]Value, len(s.variables))
	for k, v := range s.variables {
		out[k] = v
	}
	return out
}

// Formulas returns a copy of every formula binding.
func (s *Store) Formulas() map[string]string {
	out := make(map[string]string, len(s.formulas))
	for k, v := range s.formulas {
		out[k] = v
	}
	return out
}

// Scope returns the numeric variables as an evaluation scope.
func (s *Store) Scope() Scope {
	scope := make(Scope, len(s.variables))
	for k, v := range s.variables {
		if f, ok := v.Float64(); ok {
			scope[k] = f
		}
	}
	return scope
}

func (s *Store) DeleteVariable(name string) bool {
	_, ok := s.variables[name]
	delete(s.variables, name)
	return ok
}

func (s *Store) DeleteFormula(name string) bool {
	_, ok := s.formulas[name]
	delete(s.formulas, name)
	return ok
}

func (s *Store) ClearVariables() { s.variables = map[string]Value{} }
func (s *Store) ClearFormulas()  { s.formulas = map[string]string{} }

// Clear empties both namespaces.
func (s *Store) Clear() {
	s.ClearVariables()
	s.ClearFormulas()
}
