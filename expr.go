package notesolve

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// ============================================================
// Core Interface
// ============================================================

// Expr is a node of a parsed expression tree.
//
// Trees built by Parse are kept exactly as written; only the output of Diff
// and explicit Simplify calls is rewritten.
type Expr interface {
	Simplify() Expr
	String() string
	LaTeX() string
	Sub(varName string, value Expr) Expr
	Diff(varName string) Expr
	Eval(scope Scope) (float64, error)
	Equal(other Expr) bool
	exprType() string
}

// Scope binds variable names to numbers during evaluation.
type Scope map[string]float64

// with returns a copy of s with name bound to v.
func (s Scope) with(name string, v float64) Scope {
	out := make(Scope, len(s)+1)
	for k, val := range s {
		out[k] = val
	}
	out[name] = v
	return out
}

// without returns a copy of s with name unbound.
func (s Scope) without(name string) Scope {
	out := make(Scope, len(s))
	for k, val := range s {
		if k != name {
			out[k] = val
		}
	}
	return out
}

// mathConstants are the named constants every scope can see.
var mathConstants = map[string]float64{
	"pi":       math.Pi,
	"e":        math.E,
	"tau":      2 * math.Pi,
	"phi":      math.Phi,
	"Infinity": math.Inf(1),
	"NaN":      math.NaN(),
}

// formatNumber renders a float the way results are shown to users:
// fourteen significant digits, so 0.1+0.2 prints as 0.3.
func formatNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case math.IsNaN(v):
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', 14, 64)
}

// ============================================================
// Num: numeric literal
// ============================================================

type Num struct{ val float64 }

func N(v float64) *Num { return &Num{val: v} }

func (n *Num) Simplify() Expr                { return n }
func (n *Num) Sub(string, Expr) Expr         { return n }
func (n *Num) Diff(string) Expr              { return N(0) }
func (n *Num) Eval(Scope) (float64, error)   { return n.val, nil }
func (n *Num) Equal(other Expr) bool         { o, ok := other.(*Num); return ok && n.val == o.val }
func (n *Num) exprType() string              { return "num" }
func (n *Num) Float64() float64              { return n.val }
func (n *Num) IsZero() bool                  { return n.val == 0 }
func (n *Num) IsOne() bool                   { return n.val == 1 }
func (n *Num) IsNegOne() bool                { return n.val == -1 }
func (n *Num) IsNegative() bool              { return n.val < 0 }
func (n *Num) String() string                { return formatNumber(n.val) }
func (n *Num) IsInteger() bool {
	return !math.IsInf(n.val, 0) && n.val == math.Trunc(n.val)
}

func (n *Num) LaTeX() string {
	switch {
	case math.IsInf(n.val, 1):
		return "\\infty"
	case math.IsInf(n.val, -1):
		return "-\\infty"
	}
	s := formatNumber(n.val)
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		exp := strings.TrimPrefix(s[i+1:], "+")
		return s[:i] + " \\times 10^{" + exp + "}"
	}
	return s
}

func isNumEqual(e Expr, v float64) bool {
	n, ok := e.(*Num)
	return ok && n.val == v
}

// ============================================================
// Sym: symbolic variable
// ============================================================

type Sym struct{ name string }

func S(name string) *Sym { return &Sym{name: name} }

func (s *Sym) Simplify() Expr        { return s }
func (s *Sym) String() string        { return s.name }
func (s *Sym) Name() string          { return s.name }
func (s *Sym) Equal(other Expr) bool { o, ok := other.(*Sym); return ok && s.name == o.name }
func (s *Sym) exprType() string      { return "sym" }

func (s *Sym) LaTeX() string {
	if _, ok := greekLetters[s.name]; ok {
		return "\\" + s.name
	}
	if base, sub, ok := strings.Cut(s.name, "_"); ok && base != "" && sub != "" {
		return (&Sym{name: base}).LaTeX() + "_{" + sub + "}"
	}
	return s.name
}

func (s *Sym) Eval(scope Scope) (float64, error) {
	if v, ok := scope[s.name]; ok {
		return v, nil
	}
	if v, ok := mathConstants[s.name]; ok {
		return v, nil
	}
	return 0, &UnboundVariableError{Name: s.name}
}

func (s *Sym) Sub(varName string, value Expr) Expr {
	if s.name == varName {
		return value
	}
	return s
}

func (s *Sym) Diff(varName string) Expr {
	if s.name == varName {
		return N(1)
	}
	return N(0)
}

var greekLetters = map[string]struct{}{
	"alpha": {}, "beta": {}, "gamma": {}, "delta": {}, "epsilon": {}, "theta": {},
	"lambda": {}, "mu": {}, "nu": {}, "rho": {}, "sigma": {}, "tau": {},
	"phi": {}, "omega": {}, "pi": {},
}

// ============================================================
// Add: sum of terms
// ============================================================

type Add struct{ terms []Expr }

// AddOf builds a simplified sum.
func AddOf(terms ...Expr) Expr { return (&Add{terms: terms}).Simplify() }

func (a *Add) Simplify() Expr {
	flat := make([]Expr, 0, len(a.terms))
	for _, t := range a.terms {
		s := t.Simplify()
		if inner, ok := s.(*Add); ok {
			flat = append(flat, inner.terms...)
		} else {
			flat = append(flat, s)
		}
	}
	numAccum := 0.0
	coeffs := map[string]float64{}
	rests := map[string]Expr{}
	order := []string{}
	for _, t := range flat {
		c, rest := splitCoeff(t)
		if rest == nil {
			numAccum += c
			continue
		}
		key := rest.String()
		if _, seen := coeffs[key]; !seen {
			order = append(order, key)
			rests[key] = rest
		}
		coeffs[key] += c
	}
	result := []Expr{}
	for _, key := range order {
		c := coeffs[key]
		switch c {
		case 0:
			continue
		case 1:
			result = append(result, rests[key])
		default:
			result = append(result, MulOf(N(c), rests[key]))
		}
	}
	if numAccum != 0 {
		result = append(result, N(numAccum))
	}
	if len(result) == 0 {
		return N(0)
	}
	if len(result) == 1 {
		return result[0]
	}
	return &Add{terms: result}
}

// splitCoeff separates a numeric coefficient from the rest of a term.
// A nil rest means the term is a plain number.
func splitCoeff(e Expr) (float64, Expr) {
	switch v := e.(type) {
	case *Num:
		return v.val, nil
	case *Mul:
		if len(v.factors) > 1 {
			if c, ok := v.factors[0].(*Num); ok {
				rest := v.factors[1:]
				if len(rest) == 1 {
					return c.val, rest[0]
				}
				return c.val, &Mul{factors: rest}
			}
		}
	}
	return 1, e
}

func (a *Add) String() string {
	if len(a.terms) == 0 {
		return "0"
	}
	var sb strings.Builder
	for i, t := range a.terms {
		if i == 0 {
			sb.WriteString(t.String())
			continue
		}
		if neg, ok := negated(t); ok {
			sb.WriteString(" - ")
			if _, isAdd := neg.(*Add); isAdd {
				sb.WriteString("(" + neg.String() + ")")
			} else {
				sb.WriteString(neg.String())
			}
			continue
		}
		sb.WriteString(" + ")
		sb.WriteString(t.String())
	}
	return sb.String()
}

func (a *Add) LaTeX() string {
	var sb strings.Builder
	for i, t := range a.terms {
		if i == 0 {
			sb.WriteString(t.LaTeX())
			continue
		}
		if neg, ok := negated(t); ok {
			sb.WriteString(" - ")
			if _, isAdd := neg.(*Add); isAdd {
				sb.WriteString("\\left(" + neg.LaTeX() + "\\right)")
			} else {
				sb.WriteString(neg.LaTeX())
			}
			continue
		}
		sb.WriteString(" + ")
		sb.WriteString(t.LaTeX())
	}
	return sb.String()
}

// negated reports whether e prints with a leading minus sign and, if so,
// returns e without it.
func negated(e Expr) (Expr, bool) {
	switch v := e.(type) {
	case *Num:
		if v.val < 0 {
			return N(-v.val), true
		}
	case *Mul:
		if len(v.factors) > 1 {
			if c, ok := v.factors[0].(*Num); ok && c.val < 0 {
				rest := v.factors[1:]
				if c.val != -1 {
					rest = append([]Expr{N(-c.val)}, rest...)
				}
				if len(rest) == 1 {
					return rest[0], true
				}
				return &Mul{factors: rest}, true
			}
		}
	}
	return nil, false
}

func (a *Add) Sub(varName string, value Expr) Expr {
	newTerms := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		newTerms[i] = t.Sub(varName, value)
	}
	return &Add{terms: newTerms}
}

func (a *Add) Diff(varName string) Expr {
	dTerms := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		dTerms[i] = t.Diff(varName)
	}
	return AddOf(dTerms...)
}

func (a *Add) Eval(scope Scope) (float64, error) {
	acc := 0.0
	for _, t := range a.terms {
		v, err := t.Eval(scope)
		if err != nil {
			return 0, err
		}
		acc += v
	}
	return acc, nil
}

func (a *Add) Equal(other Expr) bool {
	o, ok := other.(*Add)
	if !ok || len(a.terms) != len(o.terms) {
		return false
	}
	for i := range a.terms {
		if !a.terms[i].Equal(o.terms[i]) {
			return false
		}
	}
	return true
}

func (a *Add) exprType() string { return "add" }
func (a *Add) Terms() []Expr    { return a.terms }

// ============================================================
// Mul: product of factors
// ============================================================

type Mul struct{ factors []Expr }

// MulOf builds a simplified product.
func MulOf(factors ...Expr) Expr { return (&Mul{factors: factors}).Simplify() }

func (m *Mul) Simplify() Expr {
	flat := make([]Expr, 0, len(m.factors))
	for _, f := range m.factors {
		s := f.Simplify()
		if inner, ok := s.(*Mul); ok {
			flat = append(flat, inner.factors...)
		} else {
			flat = append(flat, s)
		}
	}
	coeff := 1.0
	exps := map[string][]Expr{}
	bases := map[string]Expr{}
	order := []string{}
	for _, f := range flat {
		if v, ok := f.(*Num); ok {
			coeff *= v.val
			continue
		}
		base, exp := f, Expr(N(1))
		if p, ok := f.(*Pow); ok {
			base, exp = p.base, p.exp
		}
		key := base.String()
		if _, seen := bases[key]; !seen {
			order = append(order, key)
			bases[key] = base
		}
		exps[key] = append(exps[key], exp)
	}
	if coeff == 0 {
		return N(0)
	}
	others := []Expr{}
	for _, key := range order {
		merged := PowOf(bases[key], AddOf(exps[key]...))
		if v, ok := merged.(*Num); ok {
			coeff *= v.val
			continue
		}
		others = append(others, merged)
	}
	if len(others) == 0 {
		return N(coeff)
	}

	// Precompute sort keys to avoid repeated String() calls in comparator.
	type keyed struct {
		e   Expr
		key string
	}
	ks := make([]keyed, len(others))
	for i, e := range others {
		ks[i] = keyed{e: e, key: e.String()}
	}
	sort.SliceStable(ks, func(i, j int) bool { return ks[i].key < ks[j].key })
	sorted := make([]Expr, len(ks))
	for i := range ks {
		sorted[i] = ks[i].e
	}

	if coeff == 1 {
		if len(sorted) == 1 {
			return sorted[0]
		}
		return &Mul{factors: sorted}
	}
	return &Mul{factors: append([]Expr{N(coeff)}, sorted...)}
}

// fraction splits the factors into numerator and denominator, turning
// negative numeric exponents positive.
func (m *Mul) fraction() (num, den []Expr) {
	for _, f := range m.factors {
		if p, ok := f.(*Pow); ok {
			if e, ok := p.exp.(*Num); ok && e.val < 0 {
				if e.val == -1 {
					den = append(den, p.base)
				} else {
					den = append(den, &Pow{base: p.base, exp: N(-e.val)})
				}
				continue
			}
		}
		num = append(num, f)
	}
	return num, den
}

func (m *Mul) String() string {
	if len(m.factors) == 0 {
		return "1"
	}
	num, den := m.fraction()
	sign := ""
	if len(num) > 1 {
		if c, ok := num[0].(*Num); ok && c.val == -1 {
			sign = "-"
			num = num[1:]
		}
	}
	parts := make([]string, len(num))
	for i, f := range num {
		parts[i] = factorString(f, i == 0)
	}
	out := strings.Join(parts, " * ")
	if len(num) == 0 {
		out = "1"
	}
	if sign != "" && len(num) > 1 {
		out = sign + "(" + out + ")"
	} else {
		out = sign + out
	}
	if len(den) == 0 {
		return out
	}
	dparts := make([]string, len(den))
	for i, f := range den {
		dparts[i] = factorString(f, true)
	}
	if len(den) == 1 {
		return out + " / " + dparts[0]
	}
	return out + " / (" + strings.Join(dparts, " * ") + ")"
}

func factorString(f Expr, leading bool) string {
	switch v := f.(type) {
	case *Add:
		return "(" + v.String() + ")"
	case *Mul:
		return "(" + v.String() + ")"
	case *Num:
		if v.val < 0 && !leading {
			return "(" + v.String() + ")"
		}
	}
	return f.String()
}

func (m *Mul) LaTeX() string {
	num, den := m.fraction()
	render := func(fs []Expr) string {
		if len(fs) == 0 {
			return "1"
		}
		parts := make([]string, len(fs))
		for i, f := range fs {
			if _, isAdd := f.(*Add); isAdd {
				parts[i] = "\\left(" + f.LaTeX() + "\\right)"
			} else {
				parts[i] = f.LaTeX()
			}
		}
		return strings.Join(parts, " \\cdot ")
	}
	if len(den) == 0 {
		if len(num) > 1 && isNumEqual(num[0], -1) {
			return "-" + render(num[1:])
		}
		return render(num)
	}
	return "\\frac{" + render(num) + "}{" + render(den) + "}"
}

func (m *Mul) Sub(varName string, value Expr) Expr {
	newFactors := make([]Expr, len(m.factors))
	for i, f := range m.factors {
		newFactors[i] = f.Sub(varName, value)
	}
	return &Mul{factors: newFactors}
}

func (m *Mul) Diff(varName string) Expr {
	terms := make([]Expr, len(m.factors))
	for i, fi := range m.factors {
		dfi := fi.Diff(varName)
		others := make([]Expr, 0, len(m.factors))
		others = append(others, dfi)
		for j, fj := range m.factors {
			if j != i {
				others = append(others, fj)
			}
		}
		terms[i] = MulOf(others...)
	}
	return AddOf(terms...)
}

func (m *Mul) Eval(scope Scope) (float64, error) {
	acc := 1.0
	for _, f := range m.factors {
		v, err := f.Eval(scope)
		if err != nil {
			return 0, err
		}
		acc *= v
	}
	return acc, nil
}

func (m *Mul) Equal(other Expr) bool {
	o, ok := other.(*Mul)
	if !ok || len(m.factors) != len(o.factors) {
		return false
	}
	for i := range m.factors {
		if !m.factors[i].Equal(o.factors[i]) {
			return false
		}
	}
	return true
}

func (m *Mul) exprType() string { return "mul" }
func (m *Mul) Factors() []Expr  { return m.factors }

// ============================================================
// Pow: base^exponent
// ============================================================

type Pow struct{ base, exp Expr }

// PowOf builds a simplified power.
func PowOf(base, exp Expr) Expr { return (&Pow{base: base, exp: exp}).Simplify() }

func (p *Pow) Simplify() Expr {
	base := p.base.Simplify()
	exp := p.exp.Simplify()

	if isNumEqual(exp, 0) {
		return N(1)
	}
	if isNumEqual(exp, 1) {
		return base
	}
	if bn, ok := base.(*Num); ok {
		if bn.val == 1 {
			return N(1)
		}
		if en, ok := exp.(*Num); ok {
			v := math.Pow(bn.val, en.val)
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				return N(v)
			}
		}
	}
	// (b^e1)^e2 = b^(e1*e2) only for integer exponents, so sqrt(x^2) stays put.
	if inner, ok := base.(*Pow); ok {
		e1, ok1 := inner.exp.(*Num)
		e2, ok2 := exp.(*Num)
		if ok1 && ok2 && e1.IsInteger() && e2.IsInteger() {
			return PowOf(inner.base, N(e1.val*e2.val))
		}
	}
	return &Pow{base: base, exp: exp}
}

func (p *Pow) String() string {
	if e, ok := p.exp.(*Num); ok && e.val < 0 {
		return (&Mul{factors: []Expr{p}}).String()
	}
	return p.powString()
}

func (p *Pow) powString() string {
	baseStr := p.base.String()
	switch b := p.base.(type) {
	case *Add, *Mul, *Pow:
		baseStr = "(" + baseStr + ")"
	case *Num:
		if b.val < 0 {
			baseStr = "(" + baseStr + ")"
		}
	}
	expStr := p.exp.String()
	switch e := p.exp.(type) {
	case *Sym, *Func:
	case *Num:
		if e.val < 0 {
			expStr = "(" + expStr + ")"
		}
	default:
		expStr = "(" + expStr + ")"
	}
	return baseStr + "^" + expStr
}

func (p *Pow) LaTeX() string {
	if e, ok := p.exp.(*Num); ok && e.val == 0.5 {
		return "\\sqrt{" + p.base.LaTeX() + "}"
	}
	baseStr := p.base.LaTeX()
	switch p.base.(type) {
	case *Add, *Mul, *Pow:
		baseStr = "\\left(" + baseStr + "\\right)"
	}
	return baseStr + "^{" + p.exp.LaTeX() + "}"
}

func (p *Pow) Sub(varName string, value Expr) Expr {
	return &Pow{base: p.base.Sub(varName, value), exp: p.exp.Sub(varName, value)}
}

func (p *Pow) Diff(varName string) Expr {
	du := p.base.Diff(varName)
	dv := p.exp.Diff(varName)
	if _, expIsNum := p.exp.(*Num); expIsNum {
		return MulOf(p.exp, PowOf(p.base, AddOf(p.exp, N(-1))), du)
	}
	if _, baseIsNum := p.base.(*Num); baseIsNum {
		return MulOf(PowOf(p.base, p.exp), LogOf(p.base), dv)
	}
	logTerm := MulOf(dv, LogOf(p.base))
	divTerm := MulOf(p.exp, du, PowOf(p.base, N(-1)))
	return MulOf(PowOf(p.base, p.exp), AddOf(logTerm, divTerm))
}

func (p *Pow) Eval(scope Scope) (float64, error) {
	b, err := p.base.Eval(scope)
	if err != nil {
		return 0, err
	}
	e, err := p.exp.Eval(scope)
	if err != nil {
		return 0, err
	}
	return math.Pow(b, e), nil
}

func (p *Pow) Equal(other Expr) bool {
	o, ok := other.(*Pow)
	return ok && p.base.Equal(o.base) && p.exp.Equal(o.exp)
}

func (p *Pow) exprType() string { return "pow" }
func (p *Pow) Base() Expr       { return p.base }
func (p *Pow) ExpExpr() Expr    { return p.exp }

// ============================================================
// Func: named function applications
// ============================================================

// Func is a call such as sin(x), log(x, 10) or integrate(f, x, 0, 1).
type Func struct {
	name string
	args []Expr
}

func funcOf(name string, args ...Expr) *Func { return &Func{name: name, args: args} }

func SinOf(arg Expr) Expr  { return funcOf("sin", arg).Simplify() }
func CosOf(arg Expr) Expr  { return funcOf("cos", arg).Simplify() }
func TanOf(arg Expr) Expr  { return funcOf("tan", arg).Simplify() }
func ExpOf(arg Expr) Expr  { return funcOf("exp", arg).Simplify() }
func LogOf(arg Expr) Expr  { return funcOf("log", arg).Simplify() }
func SqrtOf(arg Expr) Expr { return funcOf("sqrt", arg).Simplify() }
func AbsOf(arg Expr) Expr  { return funcOf("abs", arg).Simplify() }
func SinhOf(arg Expr) Expr { return funcOf("sinh", arg).Simplify() }
func CoshOf(arg Expr) Expr { return funcOf("cosh", arg).Simplify() }
func TanhOf(arg Expr) Expr { return funcOf("tanh", arg).Simplify() }

func (f *Func) FuncName() string { return f.name }
func (f *Func) Args() []Expr     { return f.args }
func (f *Func) exprType() string { return "func" }

func (f *Func) isCalculus() bool {
	switch f.name {
	case "derivative", "diff", "integrate":
		return true
	}
	return false
}

// bindsVariable reports whether the second argument is a bound variable,
// which also holds for the opaque D[...] wrappers Diff produces.
func (f *Func) bindsVariable() bool {
	name := strings.TrimSuffix(strings.TrimPrefix(f.name, "D["), "]")
	switch name {
	case "derivative", "diff", "integrate":
		return len(f.args) >= 2
	}
	return false
}

func (f *Func) Simplify() Expr {
	args := make([]Expr, len(f.args))
	allNum := true
	for i, a := range f.args {
		args[i] = a.Simplify()
		if _, ok := args[i].(*Num); !ok {
			allNum = false
		}
	}
	if allNum && !f.isCalculus() {
		vals := make([]float64, len(args))
		for i, a := range args {
			vals[i] = a.(*Num).val
		}
		if v, err := applyFunc(f.name, vals); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return N(v)
		}
	}
	if len(args) == 1 {
		arg := args[0]
		switch f.name {
		case "log", "ln":
			if inner, ok := arg.(*Func); ok && inner.name == "exp" {
				return inner.args[0]
			}
		case "exp":
			if inner, ok := arg.(*Func); ok && (inner.name == "log" || inner.name == "ln") && len(inner.args) == 1 {
				return inner.args[0]
			}
		case "abs":
			if m, ok := arg.(*Mul); ok && len(m.factors) >= 2 && isNumEqual(m.factors[0], -1) {
				return AbsOf(MulOf(m.factors[1:]...))
			}
		}
	}
	return &Func{name: f.name, args: args}
}

func (f *Func) String() string {
	parts := make([]string, len(f.args))
	for i, a := range f.args {
		parts[i] = a.String()
	}
	return f.name + "(" + strings.Join(parts, ", ") + ")"
}

func (f *Func) LaTeX() string {
	arg := func(i int) string { return f.args[i].LaTeX() }
	switch f.name {
	case "sin", "cos", "tan", "exp", "sinh", "cosh", "tanh":
		if len(f.args) == 1 {
			return "\\" + f.name + "\\left(" + arg(0) + "\\right)"
		}
	case "log", "ln":
		if len(f.args) == 1 {
			return "\\ln\\left(" + arg(0) + "\\right)"
		}
		if len(f.args) == 2 {
			return "\\log_{" + arg(1) + "}\\left(" + arg(0) + "\\right)"
		}
	case "asin", "acos", "atan":
		if len(f.args) == 1 {
			return "\\arc" + f.name[1:] + "\\left(" + arg(0) + "\\right)"
		}
	case "sqrt":
		if len(f.args) == 1 {
			return "\\sqrt{" + arg(0) + "}"
		}
	case "abs":
		if len(f.args) == 1 {
			return "\\left|" + arg(0) + "\\right|"
		}
	case "floor":
		if len(f.args) == 1 {
			return "\\lfloor " + arg(0) + " \\rfloor"
		}
	case "ceil":
		if len(f.args) == 1 {
			return "\\lceil " + arg(0) + " \\rceil"
		}
	case "derivative", "diff":
		if len(f.args) == 2 {
			return "\\frac{d}{d" + arg(1) + "}\\left(" + arg(0) + "\\right)"
		}
		if len(f.args) == 3 {
			return "\\left.\\frac{d}{d" + arg(1) + "}\\left(" + arg(0) + "\\right)\\right|_{" + arg(1) + "=" + arg(2) + "}"
		}
	case "integrate":
		if len(f.args) >= 4 {
			return "\\int_{" + arg(2) + "}^{" + arg(3) + "} " + arg(0) + " \\, d" + arg(1)
		}
	}
	parts := make([]string, len(f.args))
	for i := range f.args {
		parts[i] = arg(i)
	}
	return "\\operatorname{" + f.name + "}\\left(" + strings.Join(parts, ", ") + "\\right)"
}

func (f *Func) Sub(varName string, value Expr) Expr {
	if f.isCalculus() && len(f.args) >= 2 {
		// The bound variable shadows varName inside the integrand.
		if bound, ok := f.args[1].(*Sym); ok && bound.name == varName {
			args := append([]Expr{}, f.args...)
			for i := 2; i < len(args); i++ {
				args[i] = args[i].Sub(varName, value)
			}
			return &Func{name: f.name, args: args}
		}
	}
	args := make([]Expr, len(f.args))
	for i, a := range f.args {
		args[i] = a.Sub(varName, value)
	}
	return &Func{name: f.name, args: args}
}

func (f *Func) Diff(varName string) Expr {
	if _, free := FreeSymbols(f)[varName]; !free {
		return N(0)
	}
	if f.isCalculus() {
		// derivative(g, v) without a point is just dg/dv, so chain through it.
		if f.name != "integrate" && len(f.args) == 2 {
			if bound, ok := f.args[1].(*Sym); ok {
				return Diff(Diff(f.args[0], bound.name), varName)
			}
		}
		return &Func{name: "D[" + f.name + "]", args: f.args}
	}
	if len(f.args) == 2 && (f.name == "log" || f.name == "ln") {
		if _, free := FreeSymbols(f.args[1])[varName]; !free {
			// log_b(u)' = u' / (u * ln b)
			return MulOf(f.args[0].Diff(varName), PowOf(MulOf(f.args[0], LogOf(f.args[1])), N(-1)))
		}
	}
	if len(f.args) != 1 {
		return &Func{name: "D[" + f.name + "]", args: f.args}
	}
	u := f.args[0]
	du := u.Diff(varName)
	var outer Expr
	switch f.name {
	case "sin":
		outer = CosOf(u)
	case "cos":
		outer = MulOf(N(-1), SinOf(u))
	case "tan":
		outer = AddOf(N(1), PowOf(TanOf(u), N(2)))
	case "exp":
		outer = ExpOf(u)
	case "log", "ln":
		outer = PowOf(u, N(-1))
	case "log10":
		outer = PowOf(MulOf(u, N(math.Ln10)), N(-1))
	case "log2":
		outer = PowOf(MulOf(u, N(math.Ln2)), N(-1))
	case "sqrt":
		outer = PowOf(MulOf(N(2), SqrtOf(u)), N(-1))
	case "cbrt":
		outer = MulOf(N(1.0/3), PowOf(u, N(-2.0/3)))
	case "asin":
		outer = PowOf(SqrtOf(AddOf(N(1), MulOf(N(-1), PowOf(u, N(2))))), N(-1))
	case "acos":
		outer = MulOf(N(-1), PowOf(SqrtOf(AddOf(N(1), MulOf(N(-1), PowOf(u, N(2))))), N(-1)))
	case "atan":
		outer = PowOf(AddOf(N(1), PowOf(u, N(2))), N(-1))
	case "sinh":
		outer = CoshOf(u)
	case "cosh":
		outer = SinhOf(u)
	case "tanh":
		outer = AddOf(N(1), MulOf(N(-1), PowOf(TanhOf(u), N(2))))
	case "abs":
		outer = funcOf("sign", u).Simplify()
	default:
		return MulOf(&Func{name: "D[" + f.name + "]", args: f.args}, du)
	}
	return MulOf(outer, du)
}

func (f *Func) Eval(scope Scope) (float64, error) {
	switch f.name {
	case "derivative", "diff":
		return evalDerivative(f, scope)
	case "integrate":
		return evalIntegral(f, scope)
	}
	vals := make([]float64, len(f.args))
	for i, a := range f.args {
		v, err := a.Eval(scope)
		if err != nil {
			return 0, err
		}
		vals[i] = v
	}
	return applyFunc(f.name, vals)
}

func (f *Func) Equal(other Expr) bool {
	o, ok := other.(*Func)
	if !ok || f.name != o.name || len(f.args) != len(o.args) {
		return false
	}
	for i := range f.args {
		if !f.args[i].Equal(o.args[i]) {
			return false
		}
	}
	return true
}

// ============================================================
// Public helpers
// ============================================================

func Simplify(e Expr) Expr { return e.Simplify() }
func String(e Expr) string { return e.String() }
func LaTeX(e Expr) string  { return e.LaTeX() }

// Sub substitutes value for varName and simplifies the result.
func Sub(expr Expr, varName string, value Expr) Expr {
	return expr.Sub(varName, value).Simplify()
}

// Diff returns the simplified derivative of expr with respect to varName.
func Diff(expr Expr, varName string) Expr {
	return expr.Diff(varName).Simplify()
}
