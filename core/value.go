package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var ErrTypeMismatch = errors.New("type mismatch")

// Normalize folds driver and decoder values into the canonical value set:
// nil, int64, float64, string and bool.
func Normalize(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case int64, float64, string, bool:
		return v
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return normalizeUnsigned(uint64(v))
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return normalizeUnsigned(v)
	case float32:
		return float64(v)
	case []byte:
		return string(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func normalizeUnsigned(v uint64) any {
	if v > math.MaxInt64 {
		return float64(v)
	}
	return int64(v)
}

// Coerce converts a canonical value to the storage representation of the
// given column type.
func Coerce(value any, columnType ColumnType) (any, error) {
	value = Normalize(value)
	if value == nil || columnType == AnyType {
		return value, nil
	}

	switch columnType {
	case IntType:
		switch v := value.(type) {
		case int64:
			return v, nil
		case float64:
			if v == math.Trunc(v) && v >= math.MinInt64 && v <= math.MaxInt64 {
				return int64(v), nil
			}
		case string:
			if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return i, nil
			}
		}
	case FloatType:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, nil
			}
		}
	case BoolType:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case StringType, TextType, TimestampType:
		if s, ok := value.(string); ok {
			return s, nil
		}
	}

	return nil, fmt.Errorf("%w: cannot store %s as %s", ErrTypeMismatch, Format(value), columnType)
}

// Compare orders two canonical values. The second result is false when
// the values are not comparable (NULL on either side or mixed kinds).
func Compare(a, b any) (int, bool) {
	a, b = Normalize(a), Normalize(b)
	if a == nil || b == nil {
		return 0, false
	}

	switch av := a.(type) {
	case int64:
		switch bv := b.(type) {
		case int64:
			return compareOrdered(av, bv), true
		case float64:
			return compareOrdered(float64(av), bv), true
		}
	case float64:
		switch bv := b.(type) {
		case int64:
			return compareOrdered(av, float64(bv)), true
		case float64:
			return compareOrdered(av, bv), true
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), true
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, true
			case !av:
				return -1, true
			default:
				return 1, true
			}
		}
	}

	return 0, false
}

func compareOrdered[T int64 | float64](a, b T) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// Equal reports whether two values compare equal. NULL equals nothing.
func Equal(a, b any) bool {
	cmp, ok := Compare(a, b)
	return ok && cmp == 0
}

// Format renders a value for display and string concatenation.
func Format(value any) string {
	switch v := Normalize(value).(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(v)
	}
}
