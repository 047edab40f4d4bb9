package domain

import (
	"time"
)

// RiskAssessment is the heuristic calculator's output together with the
// display attributes derived from the branch it took.
type RiskAssessment struct {
	Percentage float64   `json:"percentage"`
	Case       Case      `json:"case"`
	CaseNumber int       `json:"case_number"`
	CaseLabel  string    `json:"case_label"`
	RiskLevel  RiskLevel `json:"risk_level"`
}

// NewRiskAssessment derives label, number and level from the case and percentage.
func NewRiskAssessment(c Case, percentage float64) RiskAssessment {
	return RiskAssessment{
		Percentage: percentage,
		Case:       c,
		CaseNumber: c.Number(),
		CaseLabel:  c.Label(),
		RiskLevel:  RiskLevelFor(percentage),
	}
}

// PosteriorSummary reports the Bayesian network's answer for the same
// evidence the heuristic saw. It is informational and is not merged into
// the heuristic percentage.
type PosteriorSummary struct {
	Probability float64        `json:"probability"`
	Percentage  float64        `json:"percentage"`
	Evidence    map[string]int `json:"evidence"`
}

// AssessmentRecord is the full result handed to presentation collaborators
// and persisted alongside clinician feedback.
type AssessmentRecord struct {
	ID                string            `json:"id"`
	Profile           string            `json:"profile"`
	Symptoms          []string          `json:"symptoms"`
	UnknownSymptoms   []string          `json:"unknown_symptoms,omitempty"`
	Imaging           ImagingEvidence   `json:"imaging"`
	ConfidenceClamped bool              `json:"confidence_clamped,omitempty"`
	Risk              RiskAssessment    `json:"risk"`
	Posterior         *PosteriorSummary `json:"posterior,omitempty"`
	AssessedAt        time.Time         `json:"assessed_at"`
}
