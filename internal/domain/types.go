// Package domain contains the core entities for pneumonia risk assessment:
// symptom and imaging evidence, the four evidence cases the heuristic
// calculator distinguishes, and the derived risk levels shown to clinicians.
//
// The heuristic percentage and the Bayesian posterior are two independent
// outputs over the same evidence. They are reported side by side and are
// never reconciled into one number.
package domain

import (
	"errors"
	"math"
)

// Verdict is the imaging classifier's binary decision for a chest X-ray.
type Verdict string

const (
	POSITIVE Verdict = "POSITIVE"
	NEGATIVE Verdict = "NEGATIVE"
)

// IsValid reports whether the verdict is one of the two known values.
func (v Verdict) IsValid() bool {
	switch v {
	case POSITIVE, NEGATIVE:
		return true
	default:
		return false
	}
}

// String returns the string representation of the verdict.
func (v Verdict) String() string {
	return string(v)
}

// RiskLevel is the display bucket derived from a risk percentage.
type RiskLevel string

const (
	HIGH     RiskLevel = "HIGH"
	MODERATE RiskLevel = "MODERATE"
	LOW      RiskLevel = "LOW"
)

// Thresholds for RiskLevelFor, in percent.
const (
	HighRiskThreshold     = 70.0
	ModerateRiskThreshold = 30.0
)

// RiskLevelFor buckets a percentage: >=70 HIGH, >=30 MODERATE, otherwise LOW.
func RiskLevelFor(percentage float64) RiskLevel {
	switch {
	case percentage >= HighRiskThreshold:
		return HIGH
	case percentage >= ModerateRiskThreshold:
		return MODERATE
	default:
		return LOW
	}
}

// IsValid validates the risk level.
func (l RiskLevel) IsValid() bool {
	switch l {
	case HIGH, MODERATE, LOW:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk level.
func (l RiskLevel) String() string {
	return string(l)
}

// Case is one cell of the 2x2 evidence table (imaging verdict x symptoms
// present). The heuristic calculator has exactly one branch per Case and the
// display label is chosen from the same value, so the two cannot drift.
type Case string

const (
	POSITIVE_WITH_SYMPTOMS    Case = "POSITIVE_WITH_SYMPTOMS"
	POSITIVE_WITHOUT_SYMPTOMS Case = "POSITIVE_WITHOUT_SYMPTOMS"
	NEGATIVE_WITH_SYMPTOMS    Case = "NEGATIVE_WITH_SYMPTOMS"
	NEGATIVE_WITHOUT_SYMPTOMS Case = "NEGATIVE_WITHOUT_SYMPTOMS"
)

// AllCases lists every Case in report order (1 through 4).
var AllCases = []Case{
	POSITIVE_WITH_SYMPTOMS,
	POSITIVE_WITHOUT_SYMPTOMS,
	NEGATIVE_WITH_SYMPTOMS,
	NEGATIVE_WITHOUT_SYMPTOMS,
}

// CaseFor selects the evidence case for an imaging decision and symptom presence.
func CaseFor(imagingPositive, hasSymptoms bool) Case {
	switch {
	case imagingPositive && hasSymptoms:
		return POSITIVE_WITH_SYMPTOMS
	case imagingPositive:
		return POSITIVE_WITHOUT_SYMPTOMS
	case hasSymptoms:
		return NEGATIVE_WITH_SYMPTOMS
	default:
		return NEGATIVE_WITHOUT_SYMPTOMS
	}
}

// Number returns the 1-based case number used in reports.
func (c Case) Number() int {
	switch c {
	case POSITIVE_WITH_SYMPTOMS:
		return 1
	case POSITIVE_WITHOUT_SYMPTOMS:
		return 2
	case NEGATIVE_WITH_SYMPTOMS:
		return 3
	case NEGATIVE_WITHOUT_SYMPTOMS:
		return 4
	default:
		return 0
	}
}

// Label returns the fixed clinical description of the case.
func (c Case) Label() string {
	switch c {
	case POSITIVE_WITH_SYMPTOMS:
		return "X-ray Positive with Symptoms"
	case POSITIVE_WITHOUT_SYMPTOMS:
		return "X-ray Positive without Symptoms"
	case NEGATIVE_WITH_SYMPTOMS:
		return "X-ray Negative with Symptoms"
	case NEGATIVE_WITHOUT_SYMPTOMS:
		return "X-ray Negative without Symptoms"
	default:
		return "Unknown case"
	}
}

// ImagingPositive reports the imaging half of the case.
func (c Case) ImagingPositive() bool {
	return c == POSITIVE_WITH_SYMPTOMS || c == POSITIVE_WITHOUT_SYMPTOMS
}

// HasSymptoms reports the symptom half of the case.
func (c Case) HasSymptoms() bool {
	return c == POSITIVE_WITH_SYMPTOMS || c == NEGATIVE_WITH_SYMPTOMS
}

// IsValid validates the case.
func (c Case) IsValid() bool {
	return c.Number() != 0
}

// String returns the string representation of the case.
func (c Case) String() string {
	return string(c)
}

// Validation errors for evidence and calibration integrity
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidVerdict     = errors.New("invalid imaging verdict")
	ErrInvalidConfidence  = errors.New("imaging confidence must be a finite number")
	ErrInvalidCalibration = errors.New("invalid calibration")
	ErrInferenceFailure   = errors.New("inference failure")
	ErrUnknownProfile     = errors.New("unknown calibration profile")
	ErrUnknownAssessment  = errors.New("assessment not found")
)

// ClampProbability forces p into [0,1]. NaN maps to 0.
func ClampProbability(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// IsProbability reports whether p is a finite number in [0,1].
func IsProbability(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p >= 0 && p <= 1
}
