package service

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/pneumonia-risk-mcp-server/internal/calibration"
	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

// Heuristic caps and multipliers, as fractions of one.
const (
	positiveWithSymptomsCap   = 0.95
	positiveWithoutSymptomCap = 0.70
	positiveConfidenceFactor  = 0.8
	negativeWithSymptomsCap   = 0.30
	negativeSensitivityFactor = 0.4
	negativeFloor             = 0.01
	negativePrevalenceFactor  = 0.5
	symptomBoostDivisor       = 10.0
)

// RiskCalculator is the four-branch heuristic risk evaluator. It is pure
// apart from logging and safe for concurrent use.
type RiskCalculator struct {
	logger  *logrus.Logger
	profile *calibration.Profile
}

// NewRiskCalculator creates a calculator bound to one calibration profile.
func NewRiskCalculator(logger *logrus.Logger, profile *calibration.Profile) *RiskCalculator {
	if profile == nil {
		profile = calibration.Default()
	}
	return &RiskCalculator{
		logger:  logger,
		profile: profile,
	}
}

// Profile returns the calibration profile the calculator uses.
func (c *RiskCalculator) Profile() *calibration.Profile {
	return c.profile
}

// Estimate returns the risk percentage in [0,100]. A confidence outside
// [0,1] is clamped and logged.
func (c *RiskCalculator) Estimate(symptoms domain.SymptomEvidence, imagingPositive bool, confidence float64) float64 {
	return c.estimate(domain.CaseFor(imagingPositive, !symptoms.Empty()), symptoms, c.clamp(confidence))
}

// Evaluate runs the calculator on imaging evidence and reports the branch
// taken alongside the percentage.
func (c *RiskCalculator) Evaluate(symptoms domain.SymptomEvidence, imaging domain.ImagingEvidence) domain.RiskAssessment {
	which := domain.CaseFor(imaging.Positive(), !symptoms.Empty())
	return domain.NewRiskAssessment(which, c.estimate(which, symptoms, c.clamp(imaging.Confidence)))
}

func (c *RiskCalculator) clamp(confidence float64) float64 {
	if domain.IsProbability(confidence) {
		return confidence
	}
	clamped := domain.ClampProbability(confidence)
	c.logger.WithFields(logrus.Fields{
		"confidence": fmt.Sprint(confidence),
		"clamped_to": clamped,
	}).Warn("Imaging confidence outside [0,1], clamping")
	return clamped
}

func (c *RiskCalculator) estimate(which domain.Case, symptoms domain.SymptomEvidence, confidence float64) float64 {
	var risk float64
	switch which {
	case domain.POSITIVE_WITH_SYMPTOMS:
		boost := 1 + float64(symptoms.Len())/symptomBoostDivisor
		risk = math.Min(positiveWithSymptomsCap, confidence*boost)
	case domain.POSITIVE_WITHOUT_SYMPTOMS:
		risk = math.Min(positiveWithoutSymptomCap, confidence*positiveConfidenceFactor)
	case domain.NEGATIVE_WITH_SYMPTOMS:
		risk = math.Min(negativeWithSymptomsCap, c.profile.MeanSensitivity(symptoms)*negativeSensitivityFactor)
	case domain.NEGATIVE_WITHOUT_SYMPTOMS:
		risk = math.Max(negativeFloor, c.profile.Diagnosis().BasePrevalence*negativePrevalenceFactor)
	default:
		panic(fmt.Sprintf("unhandled evidence case %q", which))
	}
	return risk * 100
}
