package underwriting

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/quoting/insurance"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newDefaultEngine(t *testing.T) *Engine {
	t.Helper()
	en, err := NewEngine(DefaultRules())
	require.NoError(t, err)
	return en
}

func question(t *testing.T, typ insurance.InsuranceType, field string) string {
	t.Helper()
	for _, r := range DefaultRules()[typ] {
		if r.Field == field {
			return r.Question
		}
	}
	t.Fatalf("no rule for %s/%s", typ, field)
	return ""
}

func TestEvaluate_ProfessionalIndemnityConfirmationFalse(t *testing.T) {
	en := newDefaultEngine(t)

	got := en.Evaluate(insurance.ProfessionalIndemnity, insurance.BusinessDetails{}, insurance.Answers{
		FieldConfirmPI: false,
	})

	require.NotNil(t, got)
	assert.Equal(t, question(t, insurance.ProfessionalIndemnity, FieldConfirmPI), got.Question)
	assert.Equal(t, "false", got.Answer)
}

func TestEvaluate_ProfessionalIndemnityClean(t *testing.T) {
	en := newDefaultEngine(t)

	got := en.Evaluate(insurance.ProfessionalIndemnity, insurance.BusinessDetails{}, insurance.Answers{
		FieldConfirmPI:           true,
		FieldPreviousClaimsCount: 0,
		FieldInsuranceDeclined:   false,
		FieldProfessionalBody:    true,
	})

	assert.Nil(t, got)
}

func TestEvaluate_FirstMatchWins(t *testing.T) {
	en := newDefaultEngine(t)

	// Both the confirmation and the declined-history rules match; the
	// confirmation rule is listed first.
	got := en.Evaluate(insurance.ProfessionalIndemnity, insurance.BusinessDetails{}, insurance.Answers{
		FieldInsuranceDeclined: true,
		FieldConfirmPI:         false,
	})

	require.NotNil(t, got)
	assert.Equal(t, question(t, insurance.ProfessionalIndemnity, FieldConfirmPI), got.Question)

	got = en.Evaluate(insurance.ProfessionalIndemnity, insurance.BusinessDetails{}, insurance.Answers{
		FieldInsuranceDeclined: true,
	})
	require.NotNil(t, got)
	assert.Equal(t, question(t, insurance.ProfessionalIndemnity, FieldInsuranceDeclined), got.Question)
	assert.Equal(t, "true", got.Answer)
}

func TestEvaluate_NilAnswers(t *testing.T) {
	en := newDefaultEngine(t)
	assert.Nil(t, en.Evaluate(insurance.ProfessionalIndemnity, insurance.BusinessDetails{}, nil))
}

func TestEvaluate_OtherAndUnknownTypes(t *testing.T) {
	en := newDefaultEngine(t)
	answers := insurance.Answers{FieldConfirmPI: false, FieldInsuranceDeclined: true}

	assert.Nil(t, en.Evaluate(insurance.Other, insurance.BusinessDetails{}, answers))
	assert.Nil(t, en.Evaluate(insurance.InsuranceType("marine"), insurance.BusinessDetails{}, answers))
}

func TestEvaluate_MissingAnswersNeverDecline(t *testing.T) {
	en := newDefaultEngine(t)

	for _, typ := range en.Types() {
		assert.Nil(t, en.Evaluate(typ, insurance.BusinessDetails{}, insurance.Answers{}), typ)
	}
}

func TestEvaluate_ContractValueThreshold(t *testing.T) {
	en := newDefaultEngine(t)

	tests := []struct {
		name   string
		value  any
		reject bool
		answer string
	}{
		{"number above limit", 60000000, true, "60000000"},
		{"formatted text above limit", "R 60,000,000", true, "R 60,000,000"},
		{"at limit", 50000000, false, ""},
		{"below limit", "6000000", false, ""},
		{"garbage", "unknown", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := en.Evaluate(insurance.ContractorsAllRisk, insurance.BusinessDetails{}, insurance.Answers{
				FieldContractValue: tt.value,
			})
			if !tt.reject {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, question(t, insurance.ContractorsAllRisk, FieldContractValue), got.Question)
			assert.Equal(t, tt.answer, got.Answer)
		})
	}
}

func TestEvaluate_NumericThresholds(t *testing.T) {
	en := newDefaultEngine(t)

	got := en.Evaluate(insurance.ContractorsAllRisk, insurance.BusinessDetails{}, insurance.Answers{
		FieldProjectDuration: "36",
	})
	require.NotNil(t, got)
	assert.Equal(t, "36", got.Answer)

	assert.Nil(t, en.Evaluate(insurance.ContractorsAllRisk, insurance.BusinessDetails{}, insurance.Answers{
		FieldProjectDuration: 24,
	}))

	got = en.Evaluate(insurance.EventLiability, insurance.BusinessDetails{}, insurance.Answers{
		FieldEventDuration: 4.5,
	})
	require.NotNil(t, got)
	assert.Equal(t, "4.5", got.Answer)
}

func TestEvaluate_ClaimsSubQuestion(t *testing.T) {
	en := newDefaultEngine(t)
	q := question(t, insurance.PublicLiability, FieldClaimResolved)

	tests := []struct {
		name     string
		answers  insurance.Answers
		question string
	}{
		{
			name:     "two claims",
			answers:  insurance.Answers{FieldLiabilityClaimsCount: 2},
			question: question(t, insurance.PublicLiability, FieldLiabilityClaimsCount),
		},
		{
			name:     "one unresolved claim",
			answers:  insurance.Answers{FieldLiabilityClaimsCount: 1, FieldClaimResolved: false},
			question: q,
		},
		{
			name:     "one unresolved claim as text",
			answers:  insurance.Answers{FieldLiabilityClaimsCount: "1", FieldClaimResolved: false},
			question: q,
		},
		{
			name:    "one resolved claim",
			answers: insurance.Answers{FieldLiabilityClaimsCount: 1, FieldClaimResolved: true},
		},
		{
			name:    "unresolved flag without a count",
			answers: insurance.Answers{FieldClaimResolved: false},
		},
		{
			name:    "no claims",
			answers: insurance.Answers{FieldLiabilityClaimsCount: 0, FieldClaimResolved: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := en.Evaluate(insurance.PublicLiability, insurance.BusinessDetails{}, tt.answers)
			if tt.question == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.question, got.Question)
		})
	}
}

func TestEvaluate_DataDrivenTables(t *testing.T) {
	en := newDefaultEngine(t)

	for _, typ := range []insurance.InsuranceType{insurance.MedicalMalpractice, insurance.DiversSurething} {
		rules := DefaultRules()[typ]
		require.NotEmpty(t, rules)

		allTrue := insurance.Answers{}
		for _, r := range rules {
			allTrue[r.Field] = true
		}
		assert.Nil(t, en.Evaluate(typ, insurance.BusinessDetails{}, allTrue), typ)

		last := rules[len(rules)-1]
		answers := insurance.Answers{}
		for k, v := range allTrue {
			answers[k] = v
		}
		answers[last.Field] = false

		got := en.Evaluate(typ, insurance.BusinessDetails{}, answers)
		require.NotNil(t, got, typ)
		assert.Equal(t, last.Question, got.Question)
		assert.Equal(t, "false", got.Answer)
	}
}

func TestEvaluate_StrictBooleans(t *testing.T) {
	en := newDefaultEngine(t)

	// Text "false" is not the boolean false.
	assert.Nil(t, en.Evaluate(insurance.CyberLiability, insurance.BusinessDetails{}, insurance.Answers{
		FieldFirewall: "false",
	}))
}

func TestEvaluate_BusinessDetailsInPredicates(t *testing.T) {
	en, err := NewEngine(RuleTable{
		insurance.CyberLiability: {
			{Field: "revenue", Question: "Annual revenue above limit", When: "business.revenue > 1000000.0"},
		},
	})
	require.NoError(t, err)

	big := insurance.BusinessDetails{Name: "Acme"}
	big.Revenue = dec("2500000")

	got := en.Evaluate(insurance.CyberLiability, big, insurance.Answers{})
	require.NotNil(t, got)
	assert.Equal(t, "", got.Answer)

	assert.Nil(t, en.Evaluate(insurance.CyberLiability, insurance.BusinessDetails{Revenue: dec("10")}, insurance.Answers{}))
}

func TestEvaluate_ErrorsDoNotDecline(t *testing.T) {
	en, err := NewEngine(RuleTable{
		insurance.Other: {
			{Field: "a", Question: "missing key lookup", When: "answers['not-there'] == true"},
			{Field: "b", Question: "b is yes", When: "value == 'yes'"},
		},
	})
	require.NoError(t, err)

	got := en.Evaluate(insurance.Other, insurance.BusinessDetails{}, insurance.Answers{"b": "yes"})
	require.NotNil(t, got)
	assert.Equal(t, "b is yes", got.Question)
	assert.Equal(t, "yes", got.Answer)
}

func TestNewEngine_RejectsBadExpressions(t *testing.T) {
	_, err := NewEngine(RuleTable{
		insurance.Other: {{Field: "a", Question: "q", When: "value =="}},
	})
	assert.Error(t, err)

	_, err = NewEngine(RuleTable{
		insurance.Other: {{Field: "a", Question: "q", When: "num(value) + 1.0"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must return bool")
}

func TestEvaluate_Idempotent(t *testing.T) {
	en := newDefaultEngine(t)
	answers := insurance.Answers{FieldPreviousClaimsCount: 3}

	first := en.Evaluate(insurance.ContractorsAllRisk, insurance.BusinessDetails{}, answers)
	second := en.Evaluate(insurance.ContractorsAllRisk, insurance.BusinessDetails{}, answers)

	require.NotNil(t, first)
	assert.Equal(t, first, second)
}

func TestRuleHelpers(t *testing.T) {
	assert.Equal(t, "value == false", Reject("f", "q", false).When)
	assert.Equal(t, `value == "no"`, Reject("f", "q", "no").When)
	assert.Equal(t, "value == 3.0", Reject("f", "q", 3).When)
	assert.Equal(t, "num(value) > 2.5", RejectAbove("f", "q", 2.5).When)
	assert.Panics(t, func() { Reject("f", "q", []string{"x"}) })

	rules := RejectAllFalse([2]string{"a", "A?"}, [2]string{"b", "B?"})
	require.Len(t, rules, 2)
	assert.Equal(t, Rule{Field: "b", Question: "B?", When: "value == false"}, rules[1])

	table := RuleTable{insurance.Other: {Reject("a", "1", true), Reject("a", "2", false), Reject("b", "3", true)}}
	assert.Equal(t, []string{"a", "b"}, table.Fields(insurance.Other))
}

func TestTypes(t *testing.T) {
	en := newDefaultEngine(t)
	assert.Len(t, en.Types(), 7)
	assert.NotContains(t, en.Types(), insurance.Other)
}

// BenchmarkEvaluate measures a full pass over the cyber rules with no decline.
func BenchmarkEvaluate(b *testing.B) {
	en, err := NewEngine(DefaultRules())
	if err != nil {
		b.Fatal(err)
	}
	answers := insurance.Answers{
		FieldFirewall:       true,
		FieldBackups:        true,
		FieldPreviousBreach: false,
		FieldMFA:            true,
	}
	business := insurance.BusinessDetails{Name: "Acme Data", EmployeeCount: 12}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = en.Evaluate(insurance.CyberLiability, business, answers)
	}
}

// BenchmarkNewEngine measures compiling every default rule.
func BenchmarkNewEngine(b *testing.B) {
	rules := DefaultRules()
	for i := 0; i < b.N; i++ {
		if _, err := NewEngine(rules); err != nil {
			b.Fatal(err)
		}
	}
}
