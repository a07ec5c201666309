package insurance

import (
	"math"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// InsuranceType identifies a product line the quoting flow can price.
type InsuranceType string

const (
	ProfessionalIndemnity InsuranceType = "professional-indemnity"
	ContractorsAllRisk    InsuranceType = "contractors-all-risk"
	PublicLiability       InsuranceType = "public-liability"
	EventLiability        InsuranceType = "event-liability"
	MedicalMalpractice    InsuranceType = "medical-malpractice"
	CyberLiability        InsuranceType = "cyber-liability"
	DiversSurething       InsuranceType = "divers-surething"
	Other                 InsuranceType = "other"
)

var knownTypes = []InsuranceType{
	ProfessionalIndemnity,
	ContractorsAllRisk,
	PublicLiability,
	EventLiability,
	MedicalMalpractice,
	CyberLiability,
	DiversSurething,
	Other,
}

// Types returns every known insurance type in a stable order.
func Types() []InsuranceType {
	out := make([]InsuranceType, len(knownTypes))
	copy(out, knownTypes)
	return out
}

// Valid reports whether t is one of the known insurance types.
func (t InsuranceType) Valid() bool {
	for _, known := range knownTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t InsuranceType) String() string {
	return string(t)
}

// ContactDetails identifies the applicant.
// IndustryRef and OccupationRef drive which conditional questions a form shows;
// neither engine reads them.
type ContactDetails struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone"`
	IndustryRef   string `json:"industryRef"`
	OccupationRef string `json:"occupationRef"`
}

// BusinessDetails describes the insured business.
type BusinessDetails struct {
	Name          string          `json:"name"`
	Revenue       decimal.Decimal `json:"revenue"`
	EmployeeCount int             `json:"employeeCount" validate:"gte=0"`
	InceptionDate string          `json:"inceptionDate"`
	Address       string          `json:"address"`
}

// UnmarshalJSON reads revenue and employeeCount leniently. Forms send them
// as numbers, numeric text, currency text or empty strings; anything that
// does not parse is zero.
func (b *BusinessDetails) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name          string `json:"name"`
		Revenue       any    `json:"revenue"`
		EmployeeCount any    `json:"employeeCount"`
		InceptionDate string `json:"inceptionDate"`
		Address       string `json:"address"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*b = BusinessDetails{
		Name:          raw.Name,
		Revenue:       lenientAmount(raw.Revenue),
		EmployeeCount: lenientCount(raw.EmployeeCount),
		InceptionDate: raw.InceptionDate,
		Address:       raw.Address,
	}
	return nil
}

func lenientAmount(v any) decimal.Decimal {
	if d, ok := ToNumber(v); ok {
		return d
	}
	return ParseAmount(v)
}

var maxCount = decimal.NewFromInt(math.MaxInt32)

func lenientCount(v any) int {
	d := lenientAmount(v).Truncate(0)
	if d.Abs().GreaterThan(maxCount) {
		return 0
	}
	return int(d.IntPart())
}

// Facts flattens the business details into the map shape rule predicates see.
func (b BusinessDetails) Facts() map[string]any {
	return map[string]any{
		"name":          b.Name,
		"revenue":       b.Revenue.InexactFloat64(),
		"employeeCount": b.EmployeeCount,
		"inceptionDate": b.InceptionDate,
		"address":       b.Address,
	}
}

// QuoteRequest is everything collected from the applicant for one quote attempt.
type QuoteRequest struct {
	InsuranceType       InsuranceType   `json:"insuranceType" validate:"required,insurancetype"`
	ContactDetails      ContactDetails  `json:"contactDetails"`
	BusinessDetails     BusinessDetails `json:"businessDetails"`
	UnderwritingAnswers Answers         `json:"underwritingAnswers"`
}
