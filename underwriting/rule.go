package underwriting

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/liamcoop/quoting/insurance"
)

// Rule declines an application when When evaluates to true.
//
// When is a CEL expression over:
//
//	value    the answer stored under Field, null when absent
//	answers  every underwriting answer, keyed by question
//	business the business details (name, revenue, employeeCount, ...)
//
// plus num(x), which coerces numbers and numeric text to a double (0 otherwise),
// and amount(x), which reads currency-style text such as "R 6,000,000".
type Rule struct {
	Field    string
	Question string
	When     string
}

// RuleTable holds the ordered decline rules for each insurance type.
type RuleTable map[insurance.InsuranceType][]Rule

// Fields returns the question keys referenced by the rules of typ.
func (t RuleTable) Fields(typ insurance.InsuranceType) []string {
	rules := t[typ]
	fields := make([]string, 0, len(rules))
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if !seen[r.Field] {
			seen[r.Field] = true
			fields = append(fields, r.Field)
		}
	}
	return fields
}

// Reject builds a rule that declines when the answer equals disqualifying.
// disqualifying must be a bool, string or number.
func Reject(field, question string, disqualifying any) Rule {
	return Rule{
		Field:    field,
		Question: question,
		When:     "value == " + literal(disqualifying),
	}
}

// RejectAbove declines when the numeric answer exceeds limit.
func RejectAbove(field, question string, limit float64) Rule {
	return Rule{
		Field:    field,
		Question: question,
		When:     "num(value) > " + doubleLiteral(limit),
	}
}

// RejectAllFalse builds one rule per field/question pair, each declining when
// the applicant answered false.
func RejectAllFalse(pairs ...[2]string) []Rule {
	rules := make([]Rule, 0, len(pairs))
	for _, p := range pairs {
		rules = append(rules, Reject(p[0], p[1], false))
	}
	return rules
}

func literal(v any) string {
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case string:
		return strconv.Quote(x)
	case float64:
		return doubleLiteral(x)
	case int:
		return doubleLiteral(float64(x))
	}
	panic(fmt.Sprintf("underwriting: unsupported disqualifying value %T", v))
}

// doubleLiteral keeps numeric comparisons in CEL double arithmetic.
func doubleLiteral(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
