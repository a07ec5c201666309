package questionnaire

import (
	"fmt"
	"regexp"
	"unicode"

	"github.com/liamcoop/quoting/insurance"
)

// AnswerType is the kind of value a question accepts.
type AnswerType string

const (
	Bool   AnswerType = "bool"
	Number AnswerType = "number" // numbers or numeric text
	Amount AnswerType = "amount" // numbers or currency text such as "R 6,000,000"
	String AnswerType = "string"
)

// Valid reports whether t is a known answer type.
func (t AnswerType) Valid() bool {
	switch t {
	case Bool, Number, Amount, String:
		return true
	}
	return false
}

// Numeric reports whether answers of type t can be compared numerically.
func (t AnswerType) Numeric() bool {
	return t == Number || t == Amount
}

// Accepts reports whether v is an acceptable answer for t.
// nil means the question was not shown and is always accepted.
func (t AnswerType) Accepts(v any) bool {
	if v == nil {
		return true
	}
	switch t {
	case Bool:
		_, ok := v.(bool)
		return ok
	case Number:
		_, ok := insurance.ToNumber(v)
		return ok
	case Amount:
		if insurance.IsNumber(v) {
			return true
		}
		s, ok := v.(string)
		return ok && hasDigit(s)
	case String:
		_, ok := v.(string)
		return ok
	}
	return false
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// Schema is the closed set of underwriting questions for one insurance type.
// Every question is optional because forms hide conditional questions.
type Schema struct {
	InsuranceType insurance.InsuranceType `json:"insuranceType"`
	Version       int                     `json:"version"`
	Questions     map[string]AnswerType   `json:"questions"`
}

// Lookup returns the answer type of key.
func (s Schema) Lookup(key string) (AnswerType, bool) {
	t, ok := s.Questions[key]
	return t, ok
}

const (
	maxQuestions = 200
	maxKeyLength = 100
)

var questionKey = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)

// ValidateSchema checks a schema definition before it is registered.
func ValidateSchema(schema Schema) error {
	if !schema.InsuranceType.Valid() {
		return fmt.Errorf("unknown insurance type %q", schema.InsuranceType)
	}

	if len(schema.Questions) == 0 {
		return fmt.Errorf("schema for %s must contain at least one question", schema.InsuranceType)
	}
	if len(schema.Questions) > maxQuestions {
		return fmt.Errorf("schema for %s contains %d questions, maximum allowed is %d", schema.InsuranceType, len(schema.Questions), maxQuestions)
	}

	for key, typ := range schema.Questions {
		if err := validateKey(key); err != nil {
			return fmt.Errorf("invalid question key %q: %w", key, err)
		}
		if !typ.Valid() {
			return fmt.Errorf("question %q has invalid type %q (must be one of: bool, number, amount, string)", key, typ)
		}
	}

	return nil
}

func validateKey(key string) error {
	if len(key) == 0 {
		return fmt.Errorf("key cannot be empty")
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("key length %d exceeds maximum of %d characters", len(key), maxKeyLength)
	}
	if !questionKey.MatchString(key) {
		return fmt.Errorf("must match pattern %s (start with a letter, followed by letters, digits, or hyphens)", questionKey)
	}
	return nil
}
