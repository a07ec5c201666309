package rating

import (
	"time"

	"github.com/liamcoop/quoting/insurance"
	"github.com/shopspring/decimal"
)

// FactorType says how a matching factor adjusts the running premium.
type FactorType string

const (
	Multiplier FactorType = "multiplier"
	Addition   FactorType = "addition"
	Percentage FactorType = "percentage"
)

// Operator compares an underwriting answer against a factor's condition value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpRange       Operator = "range"
)

// Product is one insurer's offering for an insurance type.
type Product struct {
	ID                string                  `json:"id"`
	InsurerID         string                  `json:"insurerId"`
	InsurerName       string                  `json:"insurerName"`
	InsuranceType     insurance.InsuranceType `json:"insuranceType"`
	BasePremium       decimal.Decimal         `json:"basePremium"`
	DefaultCoverage   decimal.Decimal         `json:"defaultCoverage"`
	DefaultDeductible decimal.Decimal         `json:"defaultDeductible"`
	Features          []string                `json:"features"`
	Rating            float64                 `json:"rating"`
	IsRecommended     bool                    `json:"isRecommended"`
	IsActive          bool                    `json:"isActive"`
	CreatedAt         time.Time               `json:"createdAt"`
	UpdatedAt         time.Time               `json:"updatedAt"`
}

// RatingFactor adjusts a premium when the answer to ConditionField satisfies
// ConditionOperator against ConditionValue. Factors of one insurance type are
// applied in ApplyOrder; equal orders keep catalog order.
type RatingFactor struct {
	ID                string                  `json:"id"`
	InsuranceType     insurance.InsuranceType `json:"insuranceType"`
	FactorName        string                  `json:"factorName"`
	FactorType        FactorType              `json:"factorType"`
	FactorValue       decimal.Decimal         `json:"factorValue"`
	ConditionField    string                  `json:"conditionField"`
	ConditionOperator Operator                `json:"conditionOperator"`
	ConditionValue    ConditionValue          `json:"conditionValue"`
	ApplyOrder        int                     `json:"applyOrder"`
	IsActive          bool                    `json:"isActive"`
	CreatedAt         time.Time               `json:"createdAt"`
	UpdatedAt         time.Time               `json:"updatedAt"`
}

// Quote is a priced product offered to the applicant.
type Quote struct {
	ProductID      string          `json:"productId"`
	InsurerID      string          `json:"insurerId"`
	InsurerName    string          `json:"insurerName"`
	MonthlyPremium string          `json:"monthlyPremium"`
	AnnualPremium  string          `json:"annualPremium"`
	CoverageAmount decimal.Decimal `json:"coverageAmount"`
	Deductible     decimal.Decimal `json:"deductible"`
	Rating         float64         `json:"rating"`
	Features       []string        `json:"features"`
	IsRecommended  bool            `json:"isRecommended"`

	// Unformatted premiums, kept for recording.
	MonthlyAmount decimal.Decimal `json:"-"`
	AnnualAmount  decimal.Decimal `json:"-"`
}
