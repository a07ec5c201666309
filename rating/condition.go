package rating

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/goccy/go-json"
	"github.com/liamcoop/quoting/insurance"
	"github.com/shopspring/decimal"
)

// ConditionValue holds a factor's comparison operand: a scalar, a [min, max]
// pair for range, or a set for contains.
type ConditionValue struct {
	raw any
}

// NewConditionValue wraps v. Slices of any element type become sets or ranges.
func NewConditionValue(v any) ConditionValue {
	return ConditionValue{raw: normalize(v)}
}

// RangeCondition builds a [min, max] condition.
func RangeCondition(lo, hi any) ConditionValue {
	return ConditionValue{raw: []any{lo, hi}}
}

// SetCondition builds a contains condition.
func SetCondition(items ...any) ConditionValue {
	return ConditionValue{raw: append([]any{}, items...)}
}

func normalize(v any) any {
	if v == nil {
		return nil
	}
	if _, ok := v.([]any); ok {
		return v
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return v
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// Raw returns the underlying operand.
func (c ConditionValue) Raw() any {
	return c.raw
}

// IsZero reports whether no operand is set.
func (c ConditionValue) IsZero() bool {
	return c.raw == nil
}

// Scalar returns the operand when it is not a list.
func (c ConditionValue) Scalar() (any, bool) {
	if c.raw == nil {
		return nil, false
	}
	if _, isList := c.raw.([]any); isList {
		return nil, false
	}
	return c.raw, true
}

// Set returns the operand as a list.
func (c ConditionValue) Set() ([]any, bool) {
	items, ok := c.raw.([]any)
	return items, ok
}

// Range returns the operand as an inclusive numeric [min, max] pair.
func (c ConditionValue) Range() (lo, hi decimal.Decimal, ok bool) {
	items, isList := c.raw.([]any)
	if !isList || len(items) != 2 {
		return decimal.Zero, decimal.Zero, false
	}
	lo, okLo := insurance.ToNumber(items[0])
	hi, okHi := insurance.ToNumber(items[1])
	if !okLo || !okHi {
		return decimal.Zero, decimal.Zero, false
	}
	return lo, hi, true
}

func (c ConditionValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.raw)
}

func (c *ConditionValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid condition value: %w", err)
	}
	c.raw = raw
	return nil
}

// ShouldApplyFactor reports whether answer satisfies the factor's condition.
// Missing or non-numeric answers never match a numeric operator, and an
// unknown operator never matches.
func ShouldApplyFactor(f RatingFactor, answer any) bool {
	switch f.ConditionOperator {
	case OpEquals:
		want, ok := f.ConditionValue.Scalar()
		return ok && strictEqual(answer, want)

	case OpGreaterThan, OpLessThan:
		want, ok := f.ConditionValue.Scalar()
		if !ok {
			return false
		}
		got, okGot := insurance.ToNumber(answer)
		threshold, okWant := insurance.ToNumber(want)
		if !okGot || !okWant {
			return false
		}
		if f.ConditionOperator == OpGreaterThan {
			return got.GreaterThan(threshold)
		}
		return got.LessThan(threshold)

	case OpContains:
		items, ok := f.ConditionValue.Set()
		if !ok {
			return false
		}
		for _, item := range items {
			if strictEqual(answer, item) {
				return true
			}
		}
		return false

	case OpRange:
		lo, hi, ok := f.ConditionValue.Range()
		if !ok {
			return false
		}
		got, okGot := insurance.ToNumber(answer)
		if !okGot {
			return false
		}
		return got.GreaterThanOrEqual(lo) && got.LessThanOrEqual(hi)
	}
	return false
}

// strictEqual compares without coercion: numbers only equal numbers, text only text.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	if insurance.IsNumber(a) && insurance.IsNumber(b) {
		x, _ := insurance.ToNumber(a)
		y, _ := insurance.ToNumber(b)
		return x.Equal(y)
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

var (
	ErrInvalidFactor    = errors.New("invalid rating factor")
	ErrInvalidCondition = errors.New("condition value does not match operator")
	ErrInvalidProduct   = errors.New("invalid product")
)

// Validate checks the fields a product needs before it can be quoted.
func (p Product) Validate() error {
	if !p.InsuranceType.Valid() {
		return fmt.Errorf("%w: unknown insurance type %q", ErrInvalidProduct, p.InsuranceType)
	}
	if p.InsurerName == "" {
		return fmt.Errorf("%w: insurerName is required", ErrInvalidProduct)
	}
	if p.BasePremium.IsNegative() || p.DefaultCoverage.IsNegative() || p.DefaultDeductible.IsNegative() {
		return fmt.Errorf("%w: amounts cannot be negative", ErrInvalidProduct)
	}
	if p.Rating < 0 || p.Rating > 5 {
		return fmt.Errorf("%w: rating %.1f is outside 0-5", ErrInvalidProduct, p.Rating)
	}
	return nil
}

// Validate checks that the factor is complete and that its condition value
// has the shape its operator needs.
func (f RatingFactor) Validate() error {
	if f.FactorName == "" {
		return fmt.Errorf("%w: factorName is required", ErrInvalidFactor)
	}
	if !f.InsuranceType.Valid() {
		return fmt.Errorf("%w: unknown insurance type %q", ErrInvalidFactor, f.InsuranceType)
	}
	switch f.FactorType {
	case Multiplier, Addition, Percentage:
	default:
		return fmt.Errorf("%w: unknown factor type %q", ErrInvalidFactor, f.FactorType)
	}
	if f.ConditionField == "" {
		return fmt.Errorf("%w: conditionField is required", ErrInvalidFactor)
	}

	switch f.ConditionOperator {
	case OpEquals:
		if _, ok := f.ConditionValue.Scalar(); !ok {
			return fmt.Errorf("%w: equals needs a scalar", ErrInvalidCondition)
		}
	case OpGreaterThan, OpLessThan:
		v, ok := f.ConditionValue.Scalar()
		if !ok {
			return fmt.Errorf("%w: %s needs a numeric scalar", ErrInvalidCondition, f.ConditionOperator)
		}
		if _, ok := insurance.ToNumber(v); !ok {
			return fmt.Errorf("%w: %s needs a numeric scalar", ErrInvalidCondition, f.ConditionOperator)
		}
	case OpContains:
		if _, ok := f.ConditionValue.Set(); !ok {
			return fmt.Errorf("%w: contains needs a list", ErrInvalidCondition)
		}
	case OpRange:
		lo, hi, ok := f.ConditionValue.Range()
		if !ok {
			return fmt.Errorf("%w: range needs a numeric [min, max] pair", ErrInvalidCondition)
		}
		if lo.GreaterThan(hi) {
			return fmt.Errorf("%w: range min %s is greater than max %s", ErrInvalidCondition, lo, hi)
		}
	default:
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidFactor, f.ConditionOperator)
	}
	return nil
}
