package main

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/liamcoop/quoting/insurance"
	"github.com/liamcoop/quoting/questionnaire"
	"github.com/liamcoop/quoting/rating"
	"github.com/liamcoop/quoting/underwriting"
)

// API request and response models

// QuoteResponse is returned when at least the decline rules passed.
type QuoteResponse struct {
	InsuranceType insurance.InsuranceType `json:"insuranceType" example:"cyber-liability"`
	Quotes        []rating.Quote          `json:"quotes"`
	RequestID     string                  `json:"requestId" example:"123e4567-e89b-12d3-a456-426614174000"`
	ValidUntil    time.Time               `json:"validUntil" example:"2024-02-14T10:30:00Z"`
} // @name QuoteResponse

// RejectionResponse is returned with 422 when the application is declined.
type RejectionResponse struct {
	Error     string                  `json:"error" example:"application declined"`
	Rejection *underwriting.Rejection `json:"rejection"`
} // @name RejectionResponse

// DecisionResponse reports the underwriting decision alone.
type DecisionResponse struct {
	Rejected  bool                    `json:"rejected" example:"false"`
	Rejection *underwriting.Rejection `json:"rejection,omitempty"`
} // @name DecisionResponse

type ProductsListResponse struct {
	Products []rating.Product `json:"products"`
} // @name ProductsListResponse

type FactorsListResponse struct {
	Factors []rating.RatingFactor `json:"factors"`
} // @name FactorsListResponse

// CreateProductRequest adds a product to the catalog of the path's insurance type.
type CreateProductRequest struct {
	InsurerID         string          `json:"insurerId" example:"santam"`
	InsurerName       string          `json:"insurerName" example:"Santam" binding:"required"`
	BasePremium       decimal.Decimal `json:"basePremium" example:"1500"`
	DefaultCoverage   decimal.Decimal `json:"defaultCoverage" example:"5000000"`
	DefaultDeductible decimal.Decimal `json:"defaultDeductible" example:"10000"`
	Features          []string        `json:"features"`
	Rating            float64         `json:"rating" example:"4.5"`
	IsRecommended     bool            `json:"isRecommended" example:"false"`
	IsActive          *bool           `json:"isActive,omitempty" example:"true"`
} // @name CreateProductRequest

func (req CreateProductRequest) product(typ insurance.InsuranceType) *rating.Product {
	features := req.Features
	if features == nil {
		features = []string{}
	}
	return &rating.Product{
		InsurerID:         req.InsurerID,
		InsurerName:       req.InsurerName,
		InsuranceType:     typ,
		BasePremium:       req.BasePremium,
		DefaultCoverage:   req.DefaultCoverage,
		DefaultDeductible: req.DefaultDeductible,
		Features:          features,
		Rating:            req.Rating,
		IsRecommended:     req.IsRecommended,
		IsActive:          activeOrDefault(req.IsActive),
	}
}

// FactorRequest creates or replaces a rating factor. New factors are active
// unless isActive is false.
type FactorRequest struct {
	FactorName        string                `json:"factorName" example:"Records Held" binding:"required"`
	FactorType        rating.FactorType     `json:"factorType" example:"multiplier" binding:"required"`
	FactorValue       decimal.Decimal       `json:"factorValue" example:"1.5"`
	ConditionField    string                `json:"conditionField" example:"records-held"`
	ConditionOperator rating.Operator       `json:"conditionOperator" example:"greater_than"`
	ConditionValue    rating.ConditionValue `json:"conditionValue" swaggertype:"object"`
	ApplyOrder        int                   `json:"applyOrder" example:"1"`
	IsActive          *bool                 `json:"isActive,omitempty" example:"true"`
} // @name FactorRequest

func (req FactorRequest) factor(typ insurance.InsuranceType) *rating.RatingFactor {
	return &rating.RatingFactor{
		InsuranceType:     typ,
		FactorName:        req.FactorName,
		FactorType:        req.FactorType,
		FactorValue:       req.FactorValue,
		ConditionField:    req.ConditionField,
		ConditionOperator: req.ConditionOperator,
		ConditionValue:    req.ConditionValue,
		ApplyOrder:        req.ApplyOrder,
		IsActive:          activeOrDefault(req.IsActive),
	}
}

func activeOrDefault(active *bool) bool {
	return active == nil || *active
}

// ErrorResponse represents an error response. Fields maps request fields or
// question keys to what is wrong with them.
type ErrorResponse struct {
	Error   string            `json:"error" example:"invalid quote request"`
	Details string            `json:"details,omitempty" example:"validation failed: ContactDetails.Email must be a valid email"`
	Fields  map[string]string `json:"fields,omitempty"`
} // @name ErrorResponse

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
	Error  string `json:"error,omitempty"`
} // @name HealthResponse

func fieldErrors(err error) map[string]string {
	var verr *insurance.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	var aerr *questionnaire.AnswersError
	if errors.As(err, &aerr) {
		return aerr.Fields
	}
	return nil
}
