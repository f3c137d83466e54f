// Package numeric normalises loosely typed feed values into decimals.
// The venue API mixes decimal strings, JSON numbers and nulls in the same
// fields, so every value goes through Parse before arithmetic.
package numeric

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Parse converts v into a decimal, defaulting to zero when the value is
// missing or unparsable. It never panics, so it is safe to call on any
// field straight out of a decoded payload.
func Parse(v any) decimal.Decimal {
	d, _ := ParseStrict(v)
	return d
}

// ParseStrict converts v into a decimal and reports whether v actually
// carried a usable numeric value. A literal zero is present; nil, empty
// strings, NaN/Inf and garbage are not. The distinction matters for rows
// that must be dropped when a field is missing rather than zeroed.
func ParseStrict(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return x, true
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero, false
		}
		return *x, true
	case string:
		return parseString(x)
	case json.Number:
		return parseString(x.String())
	case json.RawMessage:
		return parseString(strings.Trim(string(x), `"`))
	case []byte:
		return parseString(strings.Trim(string(x), `"`))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(x), true
	case float32:
		return ParseStrict(float64(x))
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int32:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case uint64:
		return decimal.NewFromUint64(x), true
	default:
		return decimal.Zero, false
	}
}

func parseString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
