package underwriting

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/liamcoop/quoting/insurance"
)

// Rejection explains an automatic decline: the question and the answer that caused it.
type Rejection struct {
	Question string `json:"rejectedQuestion"`
	Answer   string `json:"rejectedAnswer"`
}

type compiledRule struct {
	Rule
	program cel.Program
}

// Engine evaluates the decline rules of a RuleTable.
// Programs are compiled once in NewEngine; Evaluate is safe for concurrent use.
type Engine struct {
	rules map[insurance.InsuranceType][]compiledRule
}

// NewEnv creates the CEL environment decline rules are compiled in.
func NewEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("value", cel.DynType),
		cel.Variable("answers", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("business", cel.MapType(cel.StringType, cel.DynType)),
		cel.Function("num",
			cel.Overload("num_dyn", []*cel.Type{cel.DynType}, cel.DoubleType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					d, _ := insurance.ToNumber(native(v))
					return types.Double(d.InexactFloat64())
				}),
			),
		),
		cel.Function("amount",
			cel.Overload("amount_dyn", []*cel.Type{cel.DynType}, cel.DoubleType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					return types.Double(insurance.ParseAmount(native(v)).InexactFloat64())
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

func native(v ref.Val) any {
	if v == nil || v.Type() == types.NullType {
		return nil
	}
	return v.Value()
}

// NewEngine compiles every rule of table. It fails on the first rule whose
// expression does not compile to a boolean.
func NewEngine(table RuleTable) (*Engine, error) {
	env, err := NewEnv()
	if err != nil {
		return nil, err
	}

	en := &Engine{rules: make(map[insurance.InsuranceType][]compiledRule, len(table))}
	for typ, rules := range table {
		compiled := make([]compiledRule, 0, len(rules))
		for i, r := range rules {
			prog, err := compile(env, r.When)
			if err != nil {
				return nil, fmt.Errorf("rule %d (%s) for %s: %w", i, r.Field, typ, err)
			}
			compiled = append(compiled, compiledRule{Rule: r, program: prog})
		}
		en.rules[typ] = compiled
	}
	return en, nil
}

func compile(env *cel.Env, expression string) (cel.Program, error) {
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression %q must return bool, got %s", expression, ast.OutputType())
	}

	prog, err := env.Program(ast, cel.CostLimit(100000))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// Evaluate walks the decline rules of typ in order and returns the first one
// that matches, or nil. Missing answers and unknown insurance types never decline.
func (en *Engine) Evaluate(typ insurance.InsuranceType, business insurance.BusinessDetails, answers insurance.Answers) *Rejection {
	if answers == nil {
		return nil
	}

	rules := en.rules[typ]
	if len(rules) == 0 {
		return nil
	}

	facts := answers.Facts()
	businessFacts := business.Facts()

	for _, r := range rules {
		raw, _ := answers.Value(r.Field)
		out, _, err := r.program.Eval(map[string]any{
			"value":    facts[r.Field],
			"answers":  facts,
			"business": businessFacts,
		})
		if err != nil {
			// A predicate that cannot be evaluated against these answers does not decline.
			continue
		}
		if matched, ok := out.Value().(bool); ok && matched {
			return &Rejection{
				Question: r.Question,
				Answer:   insurance.FormatAnswer(raw),
			}
		}
	}
	return nil
}

// Types returns the insurance types that have decline rules.
func (en *Engine) Types() []insurance.InsuranceType {
	out := make([]insurance.InsuranceType, 0, len(en.rules))
	for _, typ := range insurance.Types() {
		if len(en.rules[typ]) > 0 {
			out = append(out, typ)
		}
	}
	return out
}
