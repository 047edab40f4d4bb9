// Package feedback stores clinician feedback on pneumonia risk assessments:
// whether the clinician agreed with the suggested risk level and what the
// eventual diagnosis turned out to be.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

// Outcome is the diagnosis reached after the assessment.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeRuledOut  Outcome = "ruled_out"
)

// IsValid reports whether the outcome is known.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomePending, OutcomeConfirmed, OutcomeRuledOut:
		return true
	default:
		return false
	}
}

// Feedback is a clinician's review of one assessment.
type Feedback struct {
	ID                int64            `json:"id,omitempty"`
	AssessmentID      string           `json:"assessment_id"`
	Profile           string           `json:"profile,omitempty"`
	Symptoms          []string         `json:"symptoms,omitempty"`
	ImagingVerdict    domain.Verdict   `json:"imaging_verdict,omitempty"`
	ImagingConfidence float64          `json:"imaging_confidence"`
	SuggestedRisk     float64          `json:"suggested_risk"`
	SuggestedLevel    domain.RiskLevel `json:"suggested_level"`
	ClinicianLevel    domain.RiskLevel `json:"clinician_level"`
	Outcome           Outcome          `json:"outcome"`
	Agreed            bool             `json:"agreed"`
	Notes             string           `json:"notes,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// FromAssessment pre-fills the suggestion fields from a completed assessment.
func FromAssessment(record *domain.AssessmentRecord, clinicianLevel domain.RiskLevel, outcome Outcome, notes string) *Feedback {
	return &Feedback{
		AssessmentID:      record.ID,
		Profile:           record.Profile,
		Symptoms:          append([]string(nil), record.Symptoms...),
		ImagingVerdict:    record.Imaging.Verdict,
		ImagingConfidence: record.Imaging.Confidence,
		SuggestedRisk:     record.Risk.Percentage,
		SuggestedLevel:    record.Risk.RiskLevel,
		ClinicianLevel:    clinicianLevel,
		Outcome:           outcome,
		Notes:             notes,
	}
}

// Normalize upper-cases levels and verdict, defaults the outcome to pending
// and derives Agreed from the two levels.
func (f *Feedback) Normalize() {
	f.AssessmentID = strings.TrimSpace(f.AssessmentID)
	f.SuggestedLevel = domain.RiskLevel(strings.ToUpper(string(f.SuggestedLevel)))
	f.ClinicianLevel = domain.RiskLevel(strings.ToUpper(string(f.ClinicianLevel)))
	f.ImagingVerdict = domain.Verdict(strings.ToUpper(string(f.ImagingVerdict)))
	f.Outcome = Outcome(strings.ToLower(string(f.Outcome)))
	if f.Outcome == "" {
		f.Outcome = OutcomePending
	}
	if f.SuggestedLevel == "" && f.SuggestedRisk > 0 {
		f.SuggestedLevel = domain.RiskLevelFor(f.SuggestedRisk)
	}
	f.Agreed = f.SuggestedLevel != "" && f.SuggestedLevel == f.ClinicianLevel
}

// Validate checks required fields.
func (f *Feedback) Validate() error {
	if f.AssessmentID == "" {
		return domain.NewValidationError("assessment_id", "assessment ID is required", nil)
	}
	if !f.ClinicianLevel.IsValid() {
		return domain.NewValidationError("clinician_level", "must be HIGH, MODERATE or LOW", f.ClinicianLevel)
	}
	if f.SuggestedLevel != "" && !f.SuggestedLevel.IsValid() {
		return domain.NewValidationError("suggested_level", "must be HIGH, MODERATE or LOW", f.SuggestedLevel)
	}
	if f.ImagingVerdict != "" && !f.ImagingVerdict.IsValid() {
		return domain.NewValidationError("imaging_verdict", domain.ErrInvalidVerdict.Error(), f.ImagingVerdict)
	}
	if !f.Outcome.IsValid() {
		return domain.NewValidationError("outcome", "must be pending, confirmed or ruled_out", f.Outcome)
	}
	if f.SuggestedRisk < 0 || f.SuggestedRisk > 100 {
		return domain.NewValidationError("suggested_risk", "must be within [0,100]", f.SuggestedRisk)
	}
	return nil
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates feedback. Feedback for an assessment ID that
	// already exists is updated in place.
	Save(ctx context.Context, feedback *Feedback) error

	// Get retrieves feedback for an assessment. It returns nil, nil when
	// nothing is stored.
	Get(ctx context.Context, assessmentID string) (*Feedback, error)

	// List returns feedback entries, newest first, with pagination.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Delete removes a feedback entry by ID. Missing IDs yield domain.ErrNotFound.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all feedback to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports feedback from a JSON reader, skipping assessment
	// IDs that already have feedback.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// FeedbackExport represents the JSON export format.
type FeedbackExport struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}

const exportVersion = "1.0"

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const selectColumns = `id, assessment_id, profile, symptoms, imaging_verdict, imaging_confidence,
			suggested_risk, suggested_level, clinician_level, outcome, agreed,
			notes, created_at, updated_at`

// scanFeedback scans a row selected with selectColumns.
func scanFeedback(s scanner) (*Feedback, error) {
	fb := &Feedback{}
	var symptoms, verdict, suggested, clinician, outcome string

	err := s.Scan(
		&fb.ID, &fb.AssessmentID, &fb.Profile, &symptoms, &verdict, &fb.ImagingConfidence,
		&fb.SuggestedRisk, &suggested, &clinician, &outcome, &fb.Agreed,
		&fb.Notes, &fb.CreatedAt, &fb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if symptoms != "" {
		if err := json.Unmarshal([]byte(symptoms), &fb.Symptoms); err != nil {
			return nil, fmt.Errorf("failed to decode symptoms: %w", err)
		}
	}
	fb.ImagingVerdict = domain.Verdict(verdict)
	fb.SuggestedLevel = domain.RiskLevel(suggested)
	fb.ClinicianLevel = domain.RiskLevel(clinician)
	fb.Outcome = Outcome(outcome)
	return fb, nil
}

func encodeSymptoms(symptoms []string) (string, error) {
	if len(symptoms) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(symptoms)
	if err != nil {
		return "", fmt.Errorf("failed to encode symptoms: %w", err)
	}
	return string(raw), nil
}

func prepare(feedback *Feedback) (string, error) {
	if feedback == nil {
		return "", domain.NewValidationError("feedback", "feedback is required", nil)
	}
	feedback.Normalize()
	if err := feedback.Validate(); err != nil {
		return "", err
	}
	return encodeSymptoms(feedback.Symptoms)
}

func writeExport(writer io.Writer, all []*Feedback) error {
	export := &FeedbackExport{
		Version:    exportVersion,
		ExportedAt: time.Now(),
		Count:      len(all),
		Feedback:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// importAll saves every entry whose assessment ID is not yet stored.
func importAll(ctx context.Context, store Store, reader io.Reader) (imported int, skipped int, err error) {
	var export FeedbackExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, fb := range export.Feedback {
		existing, err := store.Get(ctx, strings.TrimSpace(fb.AssessmentID))
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}

		fb.ID = 0
		if err := store.Save(ctx, fb); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}
