package notesolve

import "strings"

// Shape is the classifier's verdict on a line.
type Shape int

const (
	// ShapeExpression is a line without '=': evaluate it.
	ShapeExpression Shape = iota
	// ShapeEvaluateLeft is "lhs =" or "lhs = ?": evaluate the left side.
	ShapeEvaluateLeft
	// ShapeAssignment is "name = <closed expression>".
	ShapeAssignment
	// ShapeFormula is "name = <expression with variables>".
	ShapeFormula
	// ShapeSolve is every other equation: verify it or solve it.
	ShapeSolve
)

var shapeNames = [...]string{"expression", "evaluate_left", "assignment", "formula", "solve"}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return "unknown"
}

// Classification is what the classifier learned about a line.
type Classification struct {
	Shape    Shape
	Equation ParsedEquation
	// Left is nil for bare expressions and Right is nil for "lhs =" lines.
	Left, Right Expr
	LeftVars    []string
	RightVars   []string
	// Name is the left side when it is a plain identifier.
	Name          string
	SelfReference bool
}

// lineFacts are the inputs of the decision table.
type lineFacts struct {
	hasEquals       bool
	rightBlank      bool
	leftIsName      bool
	leftKnown       bool
	leftFormulaSame bool
	rightAllKnown   bool
	selfReference   bool
	leftVars        int
	rightVars       int
}

type rule struct {
	shape Shape
	when  func(lineFacts) bool
}

// decisionTable is evaluated top to bottom; the first matching rule wins.
// A known left name only turns into a formula again when the line repeats
// its stored formula and every input is known, otherwise the line is read
// as an equation to solve.
var decisionTable = []rule{
	{ShapeExpression, func(f lineFacts) bool { return !f.hasEquals }},
	{ShapeEvaluateLeft, func(f lineFacts) bool { return f.rightBlank }},
	{ShapeAssignment, func(f lineFacts) bool { return f.leftIsName && f.rightVars == 0 }},
	{ShapeFormula, func(f lineFacts) bool {
		return f.leftIsName && !f.selfReference && f.rightVars >= 1 &&
			(!f.leftKnown || (f.leftFormulaSame && f.rightAllKnown))
	}},
	{ShapeSolve, func(lineFacts) bool { return true }},
}

func decide(f lineFacts) Shape {
	for _, r := range decisionTable {
		if r.when(f) {
			return r.shape
		}
	}
	return ShapeSolve
}

// Classify splits line on '=', parses both sides, and runs the decision
// table against the current store. It does not mutate the engine.
func (e *Engine) Classify(line string) (Classification, error) {
	text := strings.TrimSpace(line)
	text = strings.TrimSpace(strings.TrimRight(text, "?"))

	eq, err := ParseEquation(text)
	if err != nil {
		return Classification{}, err
	}
	c := Classification{Equation: eq}
	f := lineFacts{hasEquals: eq.IsEquation}

	if !eq.IsEquation {
		if c.Right, err = Parse(eq.Right); err != nil {
			return c, err
		}
		c.RightVars = sortedNames(FreeSymbols(c.Right))
		c.Shape = decide(f)
		return c, nil
	}

	if eq.Left == "" {
		return c, &ParseError{Input: line, Msg: "missing left side of '='"}
	}
	if c.Left, err = Parse(eq.Left); err != nil {
		return c, err
	}
	c.LeftVars = sortedNames(FreeSymbols(c.Left))
	f.leftVars = len(c.LeftVars)
	if IsIdentifier(eq.Left) && !IsReserved(eq.Left) {
		c.Name = eq.Left
		f.leftIsName = true
		f.leftKnown = e.store.Known(c.Name)
	}

	f.rightBlank = eq.Right == ""
	if !f.rightBlank {
		if c.Right, err = Parse(eq.Right); err != nil {
			return c, err
		}
		c.RightVars = sortedNames(FreeSymbols(c.Right))
		f.rightVars = len(c.RightVars)
		f.rightAllKnown = true
		for _, v := range c.RightVars {
			if v == c.Name {
				c.SelfReference = true
			}
			if !e.store.Known(v) {
				f.rightAllKnown = false
			}
		}
		f.selfReference = c.SelfReference
		if body, ok := e.store.Formula(c.Name); ok && f.leftIsName {
			f.leftFormulaSame = sameFormula(body, c.Right)
		}
	}

	c.Shape = decide(f)
	return c, nil
}

// sameFormula compares a stored formula body with a parsed right side by
// printed form, so spacing differences do not matter.
func sameFormula(body string, right Expr) bool {
	stored, err := Parse(body)
	if err != nil {
		return false
	}
	return stored.String() == right.String()
}
