package snapshot

import (
	"encoding/json"
	"math/big"
	"strconv"
)

// Equal reports whether a and b are structurally equal JSON values. Object
// key order is irrelevant; array element order is significant. Values outside
// the JSON variant are never equal to anything, including themselves.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil

	case bool:
		bv, ok := b.(bool)
		return ok && av == bv

	case string:
		bv, ok := b.(string)
		return ok && av == bv

	case json.Number:
		if bv, ok := b.(json.Number); ok {
			return equalDecimal(av, bv)
		}
		return equalFloat(av, b)

	case float64:
		return equalFloat(av, b)

	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true

	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, ae := range av {
			be, ok := bv[k]
			if !ok || !Equal(ae, be) {
				return false
			}
		}
		return true

	default:
		return false
	}
}

// equalDecimal compares two literals exactly, so 1e400 equals itself and
// integers beyond float64 precision stay distinct. Literals math/big
// refuses, such as exponents too large to expand, compare as text.
func equalDecimal(a, b json.Number) bool {
	ar, aok := new(big.Rat).SetString(string(a))
	br, bok := new(big.Rat).SetString(string(b))
	if !aok || !bok {
		return a == b
	}
	return ar.Cmp(br) == 0
}

// equalFloat compares a and b as float64. A literal that does not parse,
// including one out of float64 range, is unequal to any float.
func equalFloat(a, b any) bool {
	af, ok := float(a)
	if !ok {
		return false
	}
	bf, ok := float(b)
	return ok && af == bf
}

func float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Clone returns a deep copy of a JSON value so that later mutation of the
// copy never leaks into the original.
func Clone(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = Clone(t[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Clone(e)
		}
		return out
	default:
		return v
	}
}
