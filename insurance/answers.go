package insurance

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Answers maps underwriting question keys to the applicant's answers.
// Values are bool, string or a number; keys for conditionally hidden
// questions are simply absent.
type Answers map[string]any

// Value returns the answer stored under key.
func (a Answers) Value(key string) (any, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a[key]
	return v, ok
}

// IsTrue reports whether key holds the boolean true. A "true" string does not count.
func (a Answers) IsTrue(key string) bool {
	v, _ := a.Value(key)
	b, ok := v.(bool)
	return ok && b
}

// Facts returns the answers as a plain map for expression evaluation.
// Decimal values are flattened to float64.
func (a Answers) Facts() map[string]any {
	out := make(map[string]any, len(a))
	for k, v := range a {
		if d, ok := v.(decimal.Decimal); ok {
			out[k] = d.InexactFloat64()
			continue
		}
		out[k] = v
	}
	return out
}

// IsNumber reports whether v holds a Go numeric value (text never counts).
func IsNumber(v any) bool {
	switch n := v.(type) {
	case float64:
		return !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return !math.IsNaN(float64(n)) && !math.IsInf(float64(n), 0)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, decimal.Decimal:
		return true
	}
	return false
}

// ToNumber coerces v into a decimal. Text is trimmed and parsed; anything that
// is neither a number nor numeric text reports false.
func ToNumber(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(n), true
	case float32:
		if math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int8:
		return decimal.NewFromInt(int64(n)), true
	case int16:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint:
		return decimal.NewFromUint64(uint64(n)), true
	case uint8:
		return decimal.NewFromUint64(uint64(n)), true
	case uint16:
		return decimal.NewFromUint64(uint64(n)), true
	case uint32:
		return decimal.NewFromUint64(uint64(n)), true
	case uint64:
		return decimal.NewFromUint64(n), true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

// ParseAmount reads a currency-style amount such as "R 6,000,000.50".
// Every character other than a digit or '.' is dropped and the longest
// leading number is parsed. Unparseable input is zero.
func ParseAmount(v any) decimal.Decimal {
	if IsNumber(v) {
		d, _ := ToNumber(v)
		return d
	}
	s, ok := v.(string)
	if !ok {
		return decimal.Zero
	}

	var b strings.Builder
	seenDot := false
scan:
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			if seenDot {
				break scan
			}
			seenDot = true
			b.WriteRune(r)
		}
	}
	digits := strings.TrimSuffix(b.String(), ".")
	if digits == "" {
		return decimal.Zero
	}
	if strings.HasPrefix(digits, ".") {
		digits = "0" + digits
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatAnswer renders an answer the way it is echoed back to the applicant:
// true, false, 60000000, 3.5 or the text itself. A missing answer is empty.
func FormatAnswer(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case bool:
		return strconv.FormatBool(n)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case decimal.Decimal:
		return n.String()
	case []any:
		parts := make([]string, len(n))
		for i, item := range n {
			parts[i] = FormatAnswer(item)
		}
		return strings.Join(parts, ",")
	}
	if d, ok := ToNumber(v); ok {
		return d.String()
	}
	return fmt.Sprint(v)
}
