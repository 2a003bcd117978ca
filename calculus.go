package notesolve

import (
	"fmt"
	"math"
)

// DefaultSimpsonIntervals is the subinterval count integrate uses when the
// fifth argument is omitted.
const DefaultSimpsonIntervals = 512

// maxSimpsonIntervals bounds the work a single integrate call can request.
const maxSimpsonIntervals = 1 << 20

// boundVar returns the variable named by the second argument of a
// calculus form.
func boundVar(f *Func) (string, error) {
	if len(f.args) < 2 {
		return "", fmt.Errorf("%w: %s expects an expression and a variable", ErrInvalidExpression, f.name)
	}
	v, ok := f.args[1].(*Sym)
	if !ok {
		return "", fmt.Errorf("%w: second argument of %s must be a variable name, got %s",
			ErrInvalidExpression, f.name, f.args[1].String())
	}
	return v.name, nil
}

// evalDerivative evaluates derivative(g, v, at). The point is evaluated in
// the outer scope before v is bound. The two-argument form is symbolic and
// only valid as a whole line, so nested it has no numeric value.
func evalDerivative(f *Func, scope Scope) (float64, error) {
	v, err := boundVar(f)
	if err != nil {
		return 0, err
	}
	if len(f.args) > 3 {
		return 0, fmt.Errorf("%w: %s expects at most 3 arguments", ErrInvalidExpression, f.name)
	}
	if len(f.args) == 2 {
		return 0, fmt.Errorf("%w: %s without a point inside an expression", ErrUnsupportedOperation, f.name)
	}
	d := Diff(f.args[0], v)
	at, err := f.args[2].Eval(scope)
	if err != nil {
		return 0, err
	}
	return d.Eval(scope.with(v, at))
}

// evalIntegral evaluates integrate(g, v, a, b[, n]) with composite Simpson.
func evalIntegral(f *Func, scope Scope) (float64, error) {
	if len(f.args) < 4 {
		return 0, fmt.Errorf("%w: indefinite integrals are not supported, use integrate(f, x, a, b)", ErrUnsupportedOperation)
	}
	if len(f.args) > 5 {
		return 0, fmt.Errorf("%w: integrate expects at most 5 arguments", ErrInvalidExpression)
	}
	v, err := boundVar(f)
	if err != nil {
		return 0, err
	}
	a, err := f.args[2].Eval(scope)
	if err != nil {
		return 0, err
	}
	b, err := f.args[3].Eval(scope)
	if err != nil {
		return 0, err
	}
	if !isFinite(a) || !isFinite(b) {
		return 0, fmt.Errorf("%w: bounds must be finite, got [%s, %s]", ErrInvalidBounds, formatNumber(a), formatNumber(b))
	}
	n := DefaultSimpsonIntervals
	if len(f.args) == 5 {
		nv, err := f.args[4].Eval(scope)
		if err != nil {
			return 0, err
		}
		n = simpsonIntervals(nv)
	}
	inner := scope.with(v, a)
	body := f.args[0]
	return Simpson(func(x float64) (float64, error) {
		inner[v] = x
		return body.Eval(inner)
	}, a, b, n)
}

// simpsonIntervals rounds a requested interval count to an even number >= 2.
func simpsonIntervals(v float64) int {
	if math.IsNaN(v) {
		return DefaultSimpsonIntervals
	}
	if v > maxSimpsonIntervals {
		return maxSimpsonIntervals
	}
	n := int(math.Round(v))
	if n < 2 {
		return 2
	}
	if n%2 == 1 {
		n++
	}
	return n
}

// Simpson integrates fn over [a, b] using the composite Simpson rule with n
// subintervals. n is forced to an even number >= 2.
func Simpson(fn func(float64) (float64, error), a, b float64, n int) (float64, error) {
	n = simpsonIntervals(float64(n))
	h := (b - a) / float64(n)
	fa, err := fn(a)
	if err != nil {
		return 0, err
	}
	fb, err := fn(b)
	if err != nil {
		return 0, err
	}
	sum := fa + fb
	for i := 1; i < n; i++ {
		fx, err := fn(a + float64(i)*h)
		if err != nil {
			return 0, err
		}
		if i%2 == 1 {
			sum += 4 * fx
		} else {
			sum += 2 * fx
		}
	}
	return sum * h / 3, nil
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
