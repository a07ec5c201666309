package rating

import (
	"sort"
	"strings"

	"github.com/liamcoop/quoting/insurance"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Question keys and factor names read by the contractors-all-risk calculation.
const (
	ContractValueField         = "equipment-value"
	PublicLiabilityAddonField  = "public-liability-addon"
	PublicLiabilityAmountField = "public-liability-amount"
	SASRIACoverField           = "sasria-cover"

	ContractValueFactorName  = "Contract Value"
	PublicLiabilityAddonName = "Public Liability Add-on"
	SASRIACoverageFactorName = "SASRIA Coverage"
)

// SASRIACap limits the contract value SASRIA cover is charged on.
var SASRIACap = decimal.NewFromInt(20_000_000)

var (
	hundred      = decimal.NewFromInt(100)
	monthsInYear = decimal.NewFromInt(12)
	half         = decimal.RequireFromString("0.5")
)

// Engine prices products against a quote request. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	currency string
	lang     language.Tag
}

// Option configures an Engine.
type Option func(*Engine)

// WithCurrencySymbol sets the prefix of formatted premiums.
func WithCurrencySymbol(symbol string) Option {
	return func(e *Engine) {
		e.currency = symbol
	}
}

// WithLanguage sets the locale used for thousands separators.
func WithLanguage(tag language.Tag) Option {
	return func(e *Engine) {
		e.lang = tag
	}
}

// NewEngine creates a rating engine. Premiums default to "R12,345".
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		currency: "R",
		lang:     language.English,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ComputeQuotes prices every product for the request and returns the quotes
// sorted by insurer rating, highest first. Products and factors must already
// be limited to the request's insurance type and to active records.
func (e *Engine) ComputeQuotes(req insurance.QuoteRequest, products []Product, factors []RatingFactor) []Quote {
	ordered := orderFactors(factors)
	printer := message.NewPrinter(e.lang)

	// Contractors-all-risk is priced from the contract value alone, so every
	// product receives the same premium.
	var contractPremium decimal.Decimal
	isContract := req.InsuranceType == insurance.ContractorsAllRisk
	if isContract {
		contractPremium = ContractPremium(req.UnderwritingAnswers, ordered)
	}

	quotes := make([]Quote, 0, len(products))
	for _, p := range products {
		premium := contractPremium
		if !isContract {
			premium = AdjustPremium(p.BasePremium, req.UnderwritingAnswers, ordered)
		}

		monthly := RoundPremium(premium)
		annual := monthly.Mul(monthsInYear)

		quotes = append(quotes, Quote{
			ProductID:      p.ID,
			InsurerID:      p.InsurerID,
			InsurerName:    p.InsurerName,
			MonthlyPremium: e.format(printer, monthly),
			AnnualPremium:  e.format(printer, annual),
			CoverageAmount: p.DefaultCoverage,
			Deductible:     p.DefaultDeductible,
			Rating:         p.Rating,
			Features:       append([]string{}, p.Features...),
			IsRecommended:  p.IsRecommended,
			MonthlyAmount:  monthly,
			AnnualAmount:   annual,
		})
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].Rating > quotes[j].Rating
	})

	return quotes
}

// AdjustPremium folds every matching factor into base. Each factor compounds
// on the premium adjusted so far. factors must already be in apply order.
func AdjustPremium(base decimal.Decimal, answers insurance.Answers, factors []RatingFactor) decimal.Decimal {
	premium := base
	for _, f := range factors {
		answer, _ := answers.Value(f.ConditionField)
		if !ShouldApplyFactor(f, answer) {
			continue
		}
		premium = applyFactor(premium, f)
	}
	return premium
}

func applyFactor(premium decimal.Decimal, f RatingFactor) decimal.Decimal {
	switch f.FactorType {
	case Multiplier:
		return premium.Mul(f.FactorValue)
	case Addition:
		return premium.Add(f.FactorValue)
	case Percentage:
		return premium.Mul(decimal.NewFromInt(1).Add(f.FactorValue.Div(hundred)))
	}
	return premium
}

// ContractPremium prices contractors-all-risk cover as a percentage of the
// contract value plus the optional public liability and SASRIA add-ons.
func ContractPremium(answers insurance.Answers, factors []RatingFactor) decimal.Decimal {
	raw, _ := answers.Value(ContractValueField)
	contractValue := insurance.ParseAmount(raw)

	rate := decimal.Zero
	for _, f := range factors {
		if !f.IsActive || f.ConditionOperator != OpRange || !strings.Contains(f.FactorName, ContractValueFactorName) {
			continue
		}
		lo, hi, ok := f.ConditionValue.Range()
		if ok && contractValue.GreaterThanOrEqual(lo) && contractValue.LessThanOrEqual(hi) {
			rate = f.FactorValue
			break
		}
	}

	premium := contractValue.Mul(rate).Div(hundred)

	if answers.IsTrue(PublicLiabilityAddonField) {
		if f, ok := factorNamed(factors, PublicLiabilityAddonName); ok {
			amountRaw, _ := answers.Value(PublicLiabilityAmountField)
			amount := insurance.ParseAmount(amountRaw)
			if amount.IsPositive() {
				premium = premium.Add(amount.Mul(f.FactorValue).Div(hundred))
			}
		}
	}

	if answers.IsTrue(SASRIACoverField) {
		if f, ok := factorNamed(factors, SASRIACoverageFactorName); ok {
			covered := decimal.Min(contractValue, SASRIACap)
			premium = premium.Add(covered.Mul(f.FactorValue).Div(hundred))
		}
	}

	return premium
}

func factorNamed(factors []RatingFactor, name string) (RatingFactor, bool) {
	for _, f := range factors {
		if f.FactorName == name {
			return f, true
		}
	}
	return RatingFactor{}, false
}

// orderFactors sorts a copy of factors by ApplyOrder, keeping catalog order for ties.
func orderFactors(factors []RatingFactor) []RatingFactor {
	ordered := make([]RatingFactor, len(factors))
	copy(ordered, factors)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ApplyOrder < ordered[j].ApplyOrder
	})
	return ordered
}

// RoundPremium rounds to whole currency units with halves rounded up,
// so 2.5 becomes 3 and -2.5 becomes -2.
func RoundPremium(premium decimal.Decimal) decimal.Decimal {
	return premium.Add(half).Floor()
}

// format prints a whole amount with the locale's thousands separator.
// Amounts beyond int64 are grouped from their exact digits.
func (e *Engine) format(p *message.Printer, amount decimal.Decimal) string {
	n := amount.Truncate(0).BigInt()
	if n.IsInt64() {
		return p.Sprintf("%s%d", e.currency, n.Int64())
	}
	return e.currency + groupDigits(n.String(), thousandsSeparator(p))
}

func thousandsSeparator(p *message.Printer) string {
	grouped := p.Sprintf("%d", 1000)
	return strings.TrimSuffix(strings.TrimPrefix(grouped, "1"), "000")
}

func groupDigits(digits, sep string) string {
	var b strings.Builder
	if strings.HasPrefix(digits, "-") {
		b.WriteByte('-')
		digits = digits[1:]
	}
	for i := 0; i < len(digits); i++ {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteString(sep)
		}
		b.WriteByte(digits[i])
	}
	return b.String()
}
