package notesolve

import (
	"fmt"
	"math"
)

// reservedNames can never be used as a variable or formula name.
var reservedNames = map[string]struct{}{
	"sin": {}, "cos": {}, "tan": {}, "asin": {}, "acos": {}, "atan": {}, "atan2": {},
	"sinh": {}, "cosh": {}, "tanh": {}, "sqrt": {}, "cbrt": {}, "abs": {}, "exp": {},
	"log": {}, "ln": {}, "log10": {}, "log2": {}, "floor": {}, "ceil": {}, "round": {},
	"sign": {}, "min": {}, "max": {}, "pow": {}, "mod": {},
	"derivative": {}, "diff": {}, "integrate": {},
	"pi": {}, "e": {}, "tau": {}, "phi": {}, "Infinity": {}, "NaN": {},
	"true": {}, "false": {}, "nil": {},
}

// IsReserved reports whether name is a built-in function or constant.
func IsReserved(name string) bool {
	_, ok := reservedNames[name]
	return ok
}

// unaryFuncs maps single-argument function names to their implementation.
var unaryFuncs = map[string]func(float64) float64{
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"sinh":  math.Sinh,
	"cosh":  math.Cosh,
	"tanh":  math.Tanh,
	"sqrt":  math.Sqrt,
	"cbrt":  math.Cbrt,
	"abs":   math.Abs,
	"exp":   math.Exp,
	"ln":    math.Log,
	"log10": math.Log10,
	"log2":  math.Log2,
	"floor": math.Floor,
	"ceil":  math.Ceil,
	"round": math.Round,
	"sign": func(v float64) float64 {
		switch {
		case v > 0:
			return 1
		case v < 0:
			return -1
		}
		return 0
	},
}

// applyFunc evaluates a non-calculus function on already-evaluated arguments.
func applyFunc(name string, args []float64) (float64, error) {
	if fn, ok := unaryFuncs[name]; ok {
		if len(args) != 1 {
			return 0, fmt.Errorf("%w: %s expects 1 argument, got %d", ErrInvalidExpression, name, len(args))
		}
		return fn(args[0]), nil
	}
	switch name {
	case "log":
		switch len(args) {
		case 1:
			return math.Log(args[0]), nil
		case 2:
			return math.Log(args[0]) / math.Log(args[1]), nil
		}
		return 0, fmt.Errorf("%w: log expects 1 or 2 arguments, got %d", ErrInvalidExpression, len(args))
	case "pow", "atan2", "mod":
		if len(args) != 2 {
			return 0, fmt.Errorf("%w: %s expects 2 arguments, got %d", ErrInvalidExpression, name, len(args))
		}
		switch name {
		case "pow":
			return math.Pow(args[0], args[1]), nil
		case "atan2":
			return math.Atan2(args[0], args[1]), nil
		}
		return math.Mod(args[0], args[1]), nil
	case "min", "max":
		if len(args) == 0 {
			return 0, fmt.Errorf("%w: %s expects at least 1 argument", ErrInvalidExpression, name)
		}
		out := args[0]
		for _, v := range args[1:] {
			if name == "min" {
				out = math.Min(out, v)
			} else {
				out = math.Max(out, v)
			}
		}
		return out, nil
	}
	return 0, fmt.Errorf("%w: unknown function %s", ErrUnsupportedOperation, name)
}
