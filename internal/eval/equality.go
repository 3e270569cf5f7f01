package eval

// ObjectsEqual implements the equality table: exact decimal comparison for
// two Numbers, ordinal comparison for two Strings, Boolean identity, and a
// stringified-number comparison for a Number/String pair. Every other pair
// is unequal; equality itself never produces an error.
func ObjectsEqual(a, b Object) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	switch av := a.(type) {
	case *Number:
		switch bv := b.(type) {
		case *Number:
			return av.Value.Cmp(bv.Value) == 0
		case *String:
			return FormatNumber(av.Value) == bv.Value
		}
	case *String:
		switch bv := b.(type) {
		case *String:
			return av.Value == bv.Value
		case *Number:
			return av.Value == FormatNumber(bv.Value)
		}
	case *Boolean:
		if bv, ok := b.(*Boolean); ok {
			return av.Value == bv.Value
		}
	}
	return false
}
