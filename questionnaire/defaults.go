package questionnaire

import (
	"fmt"

	"github.com/liamcoop/quoting/insurance"
	"github.com/liamcoop/quoting/rating"
	uw "github.com/liamcoop/quoting/underwriting"
)

// Keys read only by rating factors.
const (
	FieldYearsInPractice = "years-in-practice"
	FieldAnnualFeeIncome = "annual-fee-income"
	FieldProfession      = "profession"
	FieldPremisesType    = "premises-type"
	FieldAnnualTurnover  = "annual-turnover"
	FieldAlcoholServed   = "alcohol-served"
	FieldEventType       = "event-type"
	FieldSpecialty       = "specialty"
	FieldRecordsHeld     = "records-held"
	FieldDivesPerYear    = "dives-per-year"
	FieldMaxDiveDepth    = "max-dive-depth"
	FieldNightDiving     = "night-diving"
	FieldAdditionalInfo  = "additional-information"
)

// DefaultSchemas returns the questionnaires the application forms collect.
func DefaultSchemas() []Schema {
	return []Schema{
		{
			InsuranceType: insurance.ProfessionalIndemnity,
			Questions: map[string]AnswerType{
				uw.FieldConfirmPI:           Bool,
				uw.FieldPreviousClaimsCount: Number,
				uw.FieldClaimSettled:        Bool,
				uw.FieldInsuranceDeclined:   Bool,
				uw.FieldProfessionalBody:    Bool,
				FieldYearsInPractice:        Number,
				FieldAnnualFeeIncome:        Amount,
				FieldProfession:             String,
			},
		},
		{
			InsuranceType: insurance.ContractorsAllRisk,
			Questions: map[string]AnswerType{
				rating.ContractValueField:         Amount,
				rating.PublicLiabilityAddonField:  Bool,
				rating.PublicLiabilityAmountField: Amount,
				rating.SASRIACoverField:           Bool,
				uw.FieldProjectDuration:           Number,
				uw.FieldDemolition:                Bool,
				uw.FieldUndergroundWork:           Bool,
				uw.FieldPreviousClaimsCount:       Number,
				uw.FieldClaimResolved:             Bool,
				uw.FieldInsuranceDeclined:         Bool,
			},
		},
		{
			InsuranceType: insurance.PublicLiability,
			Questions: map[string]AnswerType{
				uw.FieldConfirmPL:            Bool,
				uw.FieldHazardousActivities:  Bool,
				uw.FieldLiabilityClaimsCount: Number,
				uw.FieldClaimResolved:        Bool,
				uw.FieldInsuranceDeclined:    Bool,
				FieldPremisesType:            String,
				FieldAnnualTurnover:          Amount,
			},
		},
		{
			InsuranceType: insurance.EventLiability,
			Questions: map[string]AnswerType{
				uw.FieldEventDuration:        Number,
				uw.FieldExpectedAttendance:   Number,
				uw.FieldPyrotechnics:         Bool,
				uw.FieldSecurityProvided:     Bool,
				uw.FieldLiabilityClaimsCount: Number,
				uw.FieldClaimResolved:        Bool,
				FieldAlcoholServed:           Bool,
				FieldEventType:               String,
			},
		},
		{
			InsuranceType: insurance.MedicalMalpractice,
			Questions: map[string]AnswerType{
				uw.FieldRegisteredHPCSA:      Bool,
				uw.FieldPracticeNumber:       Bool,
				uw.FieldNoDisciplinaryAction: Bool,
				uw.FieldNoPendingClaims:      Bool,
				uw.FieldPatientRecords:       Bool,
				FieldSpecialty:               String,
				FieldYearsInPractice:         Number,
			},
		},
		{
			InsuranceType: insurance.CyberLiability,
			Questions: map[string]AnswerType{
				uw.FieldFirewall:       Bool,
				uw.FieldBackups:        Bool,
				uw.FieldPreviousBreach: Bool,
				uw.FieldMFA:            Bool,
				FieldRecordsHeld:       Number,
				FieldAnnualTurnover:    Amount,
			},
		},
		{
			InsuranceType: insurance.DiversSurething,
			Questions: map[string]AnswerType{
				uw.FieldCertifiedInstructors: Bool,
				uw.FieldEquipmentServiced:    Bool,
				uw.FieldEmergencyOxygen:      Bool,
				uw.FieldFollowsDiveTables:    Bool,
				uw.FieldDiveLogsMaintained:   Bool,
				FieldDivesPerYear:            Number,
				FieldMaxDiveDepth:            Number,
				FieldNightDiving:             Bool,
			},
		},
		{
			InsuranceType: insurance.Other,
			Questions: map[string]AnswerType{
				uw.FieldInsuranceDeclined:   Bool,
				uw.FieldPreviousClaimsCount: Number,
				FieldAdditionalInfo:         String,
			},
		},
	}
}

// DefaultRegistry returns a registry holding DefaultSchemas at version 1.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range DefaultSchemas() {
		if _, err := r.Register(s); err != nil {
			panic(fmt.Sprintf("questionnaire: default schema for %s: %v", s.InsuranceType, err))
		}
	}
	return r
}
