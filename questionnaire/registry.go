package questionnaire

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/liamcoop/quoting/insurance"
	"github.com/liamcoop/quoting/rating"
	"github.com/liamcoop/quoting/underwriting"
)

var (
	ErrNoSchema            = errors.New("no questionnaire for insurance type")
	ErrUnknownQuestion     = errors.New("unknown question")
	ErrIncompatibleOperand = errors.New("question type does not support operator")
)

// AnswersError lists every answer that does not fit the questionnaire.
type AnswersError struct {
	InsuranceType insurance.InsuranceType
	Fields        map[string]string
}

func (e *AnswersError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msgs := make([]string, len(keys))
	for i, k := range keys {
		msgs[i] = k + ": " + e.Fields[k]
	}
	return fmt.Sprintf("invalid %s answers: %s", e.InsuranceType, strings.Join(msgs, "; "))
}

// Registry holds the current questionnaire of each insurance type.
type Registry struct {
	schemas map[insurance.InsuranceType]Schema
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[insurance.InsuranceType]Schema)}
}

// Register validates schema and makes it current for its insurance type.
// The stored version is one above the version it replaces.
func (r *Registry) Register(schema Schema) (int, error) {
	if err := ValidateSchema(schema); err != nil {
		return 0, err
	}

	questions := make(map[string]AnswerType, len(schema.Questions))
	for k, v := range schema.Questions {
		questions[k] = v
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	version := r.schemas[schema.InsuranceType].Version + 1
	r.schemas[schema.InsuranceType] = Schema{
		InsuranceType: schema.InsuranceType,
		Version:       version,
		Questions:     questions,
	}
	return version, nil
}

// Get returns the current schema for typ.
func (r *Registry) Get(typ insurance.InsuranceType) (Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[typ]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %s", ErrNoSchema, typ)
	}
	return s, nil
}

// ValidateAnswers checks every answer against the questionnaire of typ.
// Unknown keys and answers of the wrong type are collected into one *AnswersError.
func (r *Registry) ValidateAnswers(typ insurance.InsuranceType, answers insurance.Answers) error {
	schema, err := r.Get(typ)
	if err != nil {
		return err
	}

	fields := make(map[string]string)
	for key, v := range answers {
		at, ok := schema.Lookup(key)
		if !ok {
			fields[key] = "unknown question"
			continue
		}
		if !at.Accepts(v) {
			fields[key] = fmt.Sprintf("expected %s, got %T", at, v)
		}
	}

	if len(fields) > 0 {
		return &AnswersError{InsuranceType: typ, Fields: fields}
	}
	return nil
}

// CheckFactor reports whether f conditions on a question of its insurance
// type, and whether that question can be compared with f's operator.
func (r *Registry) CheckFactor(f rating.RatingFactor) error {
	schema, err := r.Get(f.InsuranceType)
	if err != nil {
		return err
	}

	at, ok := schema.Lookup(f.ConditionField)
	if !ok {
		return fmt.Errorf("factor %q: %w %q for %s", f.FactorName, ErrUnknownQuestion, f.ConditionField, f.InsuranceType)
	}

	switch f.ConditionOperator {
	case rating.OpGreaterThan, rating.OpLessThan, rating.OpRange:
		if !at.Numeric() {
			return fmt.Errorf("factor %q: %w: %s on %s question %q", f.FactorName, ErrIncompatibleOperand, f.ConditionOperator, at, f.ConditionField)
		}
	case rating.OpEquals:
		if v, ok := f.ConditionValue.Scalar(); ok && !at.Accepts(v) {
			return fmt.Errorf("factor %q: %w: %T value for %s question %q", f.FactorName, ErrIncompatibleOperand, v, at, f.ConditionField)
		}
	}
	return nil
}

// CheckFactors runs CheckFactor over factors and joins the failures.
func (r *Registry) CheckFactors(factors []rating.RatingFactor) error {
	var errs []error
	for _, f := range factors {
		if err := r.CheckFactor(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var answerRef = regexp.MustCompile(`answers\['([^']+)'\]`)

// CheckRules reports decline rules that read questions missing from the
// questionnaire of their insurance type, including keys looked up through answers.
func (r *Registry) CheckRules(table underwriting.RuleTable) error {
	var errs []error
	for _, typ := range insurance.Types() {
		rules := table[typ]
		if len(rules) == 0 {
			continue
		}

		schema, err := r.Get(typ)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		for _, rule := range rules {
			keys := []string{rule.Field}
			for _, m := range answerRef.FindAllStringSubmatch(rule.When, -1) {
				keys = append(keys, m[1])
			}
			for _, key := range keys {
				if _, ok := schema.Lookup(key); !ok {
					errs = append(errs, fmt.Errorf("rule %q: %w %q for %s", rule.Question, ErrUnknownQuestion, key, typ))
				}
			}
		}
	}
	return errors.Join(errs...)
}
