package underwriting

import (
	"github.com/liamcoop/quoting/insurance"
	"github.com/liamcoop/quoting/rating"
)

// Question keys shared with the questionnaire schemas and the rating catalog.
const (
	FieldConfirmPI            = "DoYouConfirmThatYouPROFESSIONALINDEMNITY"
	FieldConfirmPL            = "DoYouConfirmThatYouPUBLICLIABILITY"
	FieldPreviousClaimsCount  = "previous-claims-count"
	FieldClaimSettled         = "claim-settled"
	FieldInsuranceDeclined    = "insurance-declined"
	FieldProfessionalBody     = "registered-with-professional-body"
	FieldContractValue        = rating.ContractValueField
	FieldProjectDuration      = "project-duration"
	FieldDemolition           = "involves-demolition"
	FieldUndergroundWork      = "underground-work"
	FieldLiabilityClaimsCount = "liability-claims-count"
	FieldClaimResolved        = "claim-resolved"
	FieldHazardousActivities  = "hazardous-activities"
	FieldEventDuration        = "event-duration"
	FieldExpectedAttendance   = "expected-attendance"
	FieldPyrotechnics         = "pyrotechnics"
	FieldSecurityProvided     = "security-provided"
	FieldFirewall             = "has-firewall"
	FieldBackups              = "regular-backups"
	FieldPreviousBreach       = "previous-breach"
	FieldMFA                  = "mfa-enabled"
	FieldRegisteredHPCSA      = "registered-with-hpcsa"
	FieldPracticeNumber       = "valid-practice-number"
	FieldNoDisciplinaryAction = "no-disciplinary-action"
	FieldNoPendingClaims      = "no-pending-claims"
	FieldPatientRecords       = "maintains-patient-records"
	FieldCertifiedInstructors = "certified-instructors"
	FieldEquipmentServiced    = "equipment-serviced"
	FieldEmergencyOxygen      = "emergency-oxygen-available"
	FieldFollowsDiveTables    = "follows-dive-tables"
	FieldDiveLogsMaintained   = "dive-logs-maintained"
)

// Limits above which an application is declined outright.
const (
	MaxContractValue   = 50_000_000
	MaxProjectMonths   = 24
	MaxEventDays       = 4
	MaxEventAttendance = 20_000
	MaxPriorClaims     = 1
)

// singleUnresolvedClaim declines when exactly one prior claim exists and the
// follow-up question says it is still open.
func singleUnresolvedClaim(countField, statusField, question string) Rule {
	return Rule{
		Field:    statusField,
		Question: question,
		When:     "value == false && '" + countField + "' in answers && num(answers['" + countField + "']) == 1.0",
	}
}

// DefaultRules returns the decline rules used in production.
// Each type's list is evaluated top to bottom; order is priority.
func DefaultRules() RuleTable {
	return RuleTable{
		insurance.ProfessionalIndemnity: {
			Reject(FieldConfirmPI, "Do you confirm that you are not aware of any circumstances that may give rise to a professional indemnity claim against you?", false),
			RejectAbove(FieldPreviousClaimsCount, "How many professional indemnity claims have been made against you in the last 5 years?", MaxPriorClaims),
			singleUnresolvedClaim(FieldPreviousClaimsCount, FieldClaimSettled, "Has the previous claim been settled?"),
			Reject(FieldInsuranceDeclined, "Have you ever had professional indemnity insurance declined, cancelled or refused renewal?", true),
			Reject(FieldProfessionalBody, "Are you registered with the relevant professional body?", false),
		},
		insurance.ContractorsAllRisk: {
			{
				Field:    FieldContractValue,
				Question: "What is the total contract value?",
				When:     "amount(value) > " + doubleLiteral(MaxContractValue),
			},
			RejectAbove(FieldProjectDuration, "What is the project duration in months?", MaxProjectMonths),
			Reject(FieldDemolition, "Does the project involve demolition work?", true),
			Reject(FieldUndergroundWork, "Does the project involve tunnelling or underground work?", true),
			RejectAbove(FieldPreviousClaimsCount, "How many contract works claims have you had in the last 3 years?", MaxPriorClaims),
			singleUnresolvedClaim(FieldPreviousClaimsCount, FieldClaimResolved, "Has the previous claim been resolved?"),
			Reject(FieldInsuranceDeclined, "Have you ever had contractors all risk insurance declined or cancelled?", true),
		},
		insurance.PublicLiability: {
			Reject(FieldConfirmPL, "Do you confirm that no member of the public has been injured on your premises in the last 5 years?", false),
			Reject(FieldHazardousActivities, "Does your business carry out hazardous activities?", true),
			RejectAbove(FieldLiabilityClaimsCount, "How many public liability claims have been made against you in the last 5 years?", MaxPriorClaims),
			singleUnresolvedClaim(FieldLiabilityClaimsCount, FieldClaimResolved, "Has the previous liability claim been resolved?"),
			Reject(FieldInsuranceDeclined, "Have you ever had public liability insurance declined or cancelled?", true),
		},
		insurance.EventLiability: {
			RejectAbove(FieldEventDuration, "How many days will the event run?", MaxEventDays),
			RejectAbove(FieldExpectedAttendance, "How many people are expected to attend?", MaxEventAttendance),
			Reject(FieldPyrotechnics, "Will the event include pyrotechnics or fireworks?", true),
			Reject(FieldSecurityProvided, "Will professional security be provided at the event?", false),
			RejectAbove(FieldLiabilityClaimsCount, "How many event liability claims have you had in the last 5 years?", MaxPriorClaims),
			singleUnresolvedClaim(FieldLiabilityClaimsCount, FieldClaimResolved, "Has the previous event liability claim been resolved?"),
		},
		insurance.MedicalMalpractice: RejectAllFalse(
			[2]string{FieldRegisteredHPCSA, "Are you registered with the Health Professions Council of South Africa?"},
			[2]string{FieldPracticeNumber, "Do you hold a valid practice number?"},
			[2]string{FieldNoDisciplinaryAction, "Do you confirm that no disciplinary action has been taken against you?"},
			[2]string{FieldNoPendingClaims, "Do you confirm that there are no pending malpractice claims against you?"},
			[2]string{FieldPatientRecords, "Do you maintain complete patient records?"},
		),
		insurance.CyberLiability: {
			Reject(FieldFirewall, "Do you have a firewall and up-to-date antivirus software installed?", false),
			Reject(FieldBackups, "Do you back up critical data at least weekly?", false),
			Reject(FieldPreviousBreach, "Have you suffered a data breach or cyber incident in the last 3 years?", true),
			Reject(FieldMFA, "Is multi-factor authentication enabled for remote access and email?", false),
		},
		insurance.DiversSurething: RejectAllFalse(
			[2]string{FieldCertifiedInstructors, "Are all instructors certified by a recognised diving agency?"},
			[2]string{FieldEquipmentServiced, "Is all diving equipment serviced according to the manufacturer's schedule?"},
			[2]string{FieldEmergencyOxygen, "Is emergency oxygen available at every dive site?"},
			[2]string{FieldFollowsDiveTables, "Do all dives follow recognised dive tables or computers?"},
			[2]string{FieldDiveLogsMaintained, "Are dive logs maintained for every dive?"},
		),
	}
}
