package notesolve

import (
	"encoding/json"
	"fmt"
	"math"
)

// Value is what a variable holds: a number or, when the text could not be
// reduced to one, the expression text itself.
type Value struct {
	num      float64
	text     string
	symbolic bool
}

// Number wraps a float as a Value.
func Number(v float64) Value { return Value{num: v} }

// Symbolic wraps unevaluated expression text as a Value.
func Symbolic(text string) Value { return Value{text: text, symbolic: true} }

// Float64 returns the numeric value and whether v is numeric.
func (v Value) Float64() (float64, bool) {
	if v.symbolic {
		return 0, false
	}
	return v.num, true
}

// IsSymbolic reports whether v holds expression text.
func (v Value) IsSymbolic() bool { return v.symbolic }

func (v Value) String() string {
	if v.symbolic {
		return v.text
	}
	return formatNumber(v.num)
}

// MarshalJSON renders a number as a JSON number (non-finite values as
// strings) and symbolic text as a JSON string.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.symbolic {
		return json.Marshal(v.text)
	}
	if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
		return json.Marshal(formatNumber(v.num))
	}
	return json.Marshal(v.num)
}

// UnmarshalJSON accepts a JSON number or string.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out, err := valueOf(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// valueOf converts the loosely typed inputs accepted at the API boundary.
// Strings are returned symbolic; callers decide whether to evaluate them.
func valueOf(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case Value:
		return t, nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	case string:
		return Symbolic(t), nil
	}
	return Value{}, fmt.Errorf("%w: unsupported value type %T", ErrInvalidExpression, raw)
}
