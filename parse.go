package notesolve

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// ============================================================
// Input normalisation
// ============================================================

var (
	reFrac      = regexp.MustCompile(`\\frac\{([^{}]+)\}\{([^{}]+)\}`)
	reSqrtBrace = regexp.MustCompile(`\\sqrt\{([^{}]+)\}`)
	reSupBrace  = regexp.MustCompile(`\^\{([^{}]+)\}`)
	reSubBrace  = regexp.MustCompile(`_\{([A-Za-z0-9]+)\}`)
	reRadical   = regexp.MustCompile(`√([A-Za-z0-9_.]+)`)
	reLatexCmd  = regexp.MustCompile(`\\([A-Za-z]+)`)
)

var symbolReplacer = strings.NewReplacer(
	`\cdot`, "*",
	`\times`, "*",
	`\div`, "/",
	`\left`, "",
	`\right`, "",
	"×", "*",
	"·", "*",
	"÷", "/",
	"−", "-",
	"π", "pi",
	"²", "^2",
	"³", "^3",
	"√", "sqrt",
	"≈", "=",
)

// Normalize rewrites handwritten and LaTeX-flavoured math into the plain
// syntax the parser accepts: x^{2} -> x^(2), \frac{a}{b} -> (a)/(b),
// 2x -> 2*x, x² -> x^2.
func Normalize(text string) string {
	for {
		next := reFrac.ReplaceAllString(text, "($1)/($2)")
		if next == text {
			break
		}
		text = next
	}
	text = reSqrtBrace.ReplaceAllString(text, "sqrt($1)")
	text = reSupBrace.ReplaceAllString(text, "^($1)")
	text = reSubBrace.ReplaceAllString(text, "_$1")
	text = reRadical.ReplaceAllString(text, "sqrt($1)")
	text = symbolReplacer.Replace(text)
	text = reLatexCmd.ReplaceAllString(text, "$1")
	text = strings.NewReplacer("{", "(", "}", ")").Replace(text)
	return strings.TrimSpace(insertImplicitMul(text))
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// insertImplicitMul adds the '*' a reader assumes in 2x, 3(a+b) and (a)(b).
// Exponent literals such as 1e5 are left alone.
func insertImplicitMul(s string) string {
	rs := []rune(s)
	var sb strings.Builder
	sb.Grow(len(s) + 8)
	i := 0
	for i < len(rs) {
		r := rs[i]
		startsNumber := unicode.IsDigit(r) || (r == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1]))
		if startsNumber && (i == 0 || !isIdentRune(rs[i-1])) {
			j := i
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.') {
				j++
			}
			if j < len(rs) && (rs[j] == 'e' || rs[j] == 'E') {
				k := j + 1
				if k < len(rs) && (rs[k] == '+' || rs[k] == '-') {
					k++
				}
				if k < len(rs) && unicode.IsDigit(rs[k]) {
					for k < len(rs) && unicode.IsDigit(rs[k]) {
						k++
					}
					j = k
				}
			}
			sb.WriteString(string(rs[i:j]))
			if j < len(rs) && (rs[j] == '(' || rs[j] == '_' || unicode.IsLetter(rs[j])) {
				sb.WriteByte('*')
			}
			i = j
			continue
		}
		sb.WriteRune(r)
		if r == ')' && i+1 < len(rs) && (rs[i+1] == '(' || unicode.IsLetter(rs[i+1])) {
			sb.WriteByte('*')
		}
		i++
	}
	return sb.String()
}

// ============================================================
// Parsing
// ============================================================

// Parse turns expression text into an unsimplified Expr tree.
func Parse(text string) (Expr, error) {
	src := Normalize(text)
	if src == "" {
		return nil, &ParseError{Input: text, Msg: "empty expression"}
	}
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, &ParseError{Input: text, Msg: firstLine(err.Error())}
	}
	e, err := convertNode(tree.Node)
	if err != nil {
		return nil, &ParseError{Input: text, Msg: err.Error()}
	}
	return e, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// convertNode maps an expr-lang AST onto the symbolic tree. Anything that is
// not arithmetic, a number, a name or a call is rejected.
func convertNode(node ast.Node) (Expr, error) {
	switch n := node.(type) {
	case *ast.IntegerNode:
		return N(float64(n.Value)), nil
	case *ast.FloatNode:
		return N(n.Value), nil
	case *ast.IdentifierNode:
		return S(n.Value), nil
	case *ast.UnaryNode:
		x, err := convertNode(n.Node)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "-":
			return &Mul{factors: []Expr{N(-1), x}}, nil
		case "+":
			return x, nil
		}
		return nil, fmt.Errorf("unsupported operator %q", n.Operator)
	case *ast.BinaryNode:
		l, err := convertNode(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := convertNode(n.Right)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "+":
			return &Add{terms: []Expr{l, r}}, nil
		case "-":
			return &Add{terms: []Expr{l, &Mul{factors: []Expr{N(-1), r}}}}, nil
		case "*":
			return &Mul{factors: []Expr{l, r}}, nil
		case "/":
			return &Mul{factors: []Expr{l, &Pow{base: r, exp: N(-1)}}}, nil
		case "^", "**":
			return &Pow{base: l, exp: r}, nil
		case "%":
			return funcOf("mod", l, r), nil
		}
		return nil, fmt.Errorf("unsupported operator %q", n.Operator)
	case *ast.CallNode:
		id, ok := n.Callee.(*ast.IdentifierNode)
		if !ok {
			return nil, fmt.Errorf("unsupported call target (%T)", n.Callee)
		}
		args, err := convertArgs(n.Arguments)
		if err != nil {
			return nil, err
		}
		return funcOf(id.Value, args...), nil
	case *ast.BuiltinNode:
		args, err := convertArgs(n.Arguments)
		if err != nil {
			return nil, err
		}
		return funcOf(n.Name, args...), nil
	}
	return nil, fmt.Errorf("unsupported syntax (%T)", node)
}

func convertArgs(nodes []ast.Node) ([]Expr, error) {
	args := make([]Expr, len(nodes))
	for i, a := range nodes {
		e, err := convertNode(a)
		if err != nil {
			return nil, err
		}
		args[i] = e
	}
	return args, nil
}

// ============================================================
// Equations
// ============================================================

// ParsedEquation is a line split on its single '='.
type ParsedEquation struct {
	Left       string `json:"left,omitempty"`
	Right      string `json:"right"`
	IsEquation bool   `json:"isEquation"`
}

// ParseEquation splits a line on '='. Zero signs yields a bare expression
// in Right; more than one is a ParseError.
func ParseEquation(line string) (ParsedEquation, error) {
	text := strings.TrimSpace(symbolReplacer.Replace(line))
	switch strings.Count(text, "=") {
	case 0:
		return ParsedEquation{Right: text}, nil
	case 1:
		left, right, _ := strings.Cut(text, "=")
		return ParsedEquation{
			Left:       strings.TrimSpace(left),
			Right:      strings.TrimSpace(right),
			IsEquation: true,
		}, nil
	}
	return ParsedEquation{}, &ParseError{Input: line, Msg: "more than one '=' sign"}
}
