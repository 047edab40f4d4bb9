package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
	"github.com/pneumonia-risk-mcp-server/internal/feedback"
)

const (
	ToolSubmitFeedback = "submit_assessment_feedback"
	ToolGetFeedback    = "get_assessment_feedback"
	ToolListFeedback   = "list_assessment_feedback"
	ToolExportFeedback = "export_assessment_feedback"
	ToolImportFeedback = "import_assessment_feedback"

	defaultPageLimit = 50
	maxPageLimit     = 500
)

// SubmitFeedbackParams are the arguments of submit_assessment_feedback.
// When the assessment was produced by this server the suggestion fields are
// filled in from it; explicit values take precedence.
type SubmitFeedbackParams struct {
	AssessmentID      string           `json:"assessment_id"`
	ClinicianLevel    domain.RiskLevel `json:"clinician_level"`
	Outcome           feedback.Outcome `json:"outcome,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	Profile           string           `json:"profile,omitempty"`
	Symptoms          []string         `json:"symptoms,omitempty"`
	ImagingVerdict    domain.Verdict   `json:"imaging_verdict,omitempty"`
	ImagingConfidence *float64         `json:"imaging_confidence,omitempty"`
	SuggestedRisk     *float64         `json:"suggested_risk,omitempty"`
}

// GetFeedbackParams are the arguments of get_assessment_feedback.
type GetFeedbackParams struct {
	AssessmentID string `json:"assessment_id"`
}

// GetFeedbackResult reports whether feedback exists for an assessment.
type GetFeedbackResult struct {
	Found    bool               `json:"found"`
	Feedback *feedback.Feedback `json:"feedback,omitempty"`
}

// ListFeedbackParams are the arguments of list_assessment_feedback.
type ListFeedbackParams struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ListFeedbackResult is one page of feedback.
type ListFeedbackResult struct {
	Feedback []*feedback.Feedback `json:"feedback"`
	Total    int64                `json:"total"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
	Agreed   int                  `json:"agreed"`
}

// ExportFeedbackResult names the written export file.
type ExportFeedbackResult struct {
	FilePath string `json:"file_path"`
	Count    int64  `json:"count"`
}

// ImportFeedbackParams are the arguments of import_assessment_feedback.
type ImportFeedbackParams struct {
	FilePath string `json:"file_path"`
}

// ImportFeedbackResult counts imported and skipped entries.
type ImportFeedbackResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

func (s *Server) feedbackTools() []toolDefinition {
	return []toolDefinition{
		{
			tool: &mcp.Tool{
				Name: ToolSubmitFeedback,
				Description: "Record a clinician's review of an assessment: the risk level they assign " +
					"and, once known, whether pneumonia was confirmed or ruled out.",
				InputSchema: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"assessment_id": {Type: "string", Description: "ID returned by assess_pneumonia_risk"},
						"clinician_level": {
							Type:        "string",
							Description: "Risk level assigned by the clinician",
							Enum:        []interface{}{string(domain.HIGH), string(domain.MODERATE), string(domain.LOW)},
						},
						"outcome": {
							Type:        "string",
							Description: "Diagnosis outcome",
							Enum: []interface{}{
								string(feedback.OutcomePending),
								string(feedback.OutcomeConfirmed),
								string(feedback.OutcomeRuledOut),
							},
						},
						"notes":              {Type: "string", Description: "Free-text notes"},
						"profile":            {Type: "string", Description: "Calibration profile used"},
						"symptoms":           stringArray("Symptoms the assessment saw"),
						"imaging_verdict":    {Type: "string", Description: "X-ray verdict the assessment saw"},
						"imaging_confidence": {Type: "number", Description: "X-ray confidence the assessment saw"},
						"suggested_risk":     {Type: "number", Description: "Risk percentage the assessment suggested"},
					},
					Required: []string{"assessment_id", "clinician_level"},
				},
			},
			handler: s.handleSubmitFeedback,
		},
		{
			tool: &mcp.Tool{
				Name:        ToolGetFeedback,
				Description: "Look up the feedback recorded for an assessment.",
				InputSchema: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"assessment_id": {Type: "string", Description: "Assessment ID"},
					},
					Required: []string{"assessment_id"},
				},
			},
			handler: s.handleGetFeedback,
		},
		{
			tool: &mcp.Tool{
				Name:        ToolListFeedback,
				Description: "List recorded feedback, newest first.",
				InputSchema: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"limit":  {Type: "integer", Description: "Page size, default 50"},
						"offset": {Type: "integer", Description: "Entries to skip"},
					},
				},
			},
			handler: s.handleListFeedback,
		},
		{
			tool: &mcp.Tool{
				Name:        ToolExportFeedback,
				Description: "Export all feedback to a JSON file in the server's export directory.",
				InputSchema: &jsonschema.Schema{Type: "object"},
			},
			handler: s.handleExportFeedback,
		},
		{
			tool: &mcp.Tool{
				Name:        ToolImportFeedback,
				Description: "Import feedback from a JSON export. Assessments that already have feedback are skipped.",
				InputSchema: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"file_path": {Type: "string", Description: "Path to a feedback export file"},
					},
					Required: []string{"file_path"},
				},
			},
			handler: s.handleImportFeedback,
		},
	}
}

func (s *Server) handleSubmitFeedback(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params SubmitFeedbackParams
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	params.AssessmentID = strings.TrimSpace(params.AssessmentID)
	if params.AssessmentID == "" {
		return nil, domain.NewValidationError("assessment_id", "assessment ID is required", nil)
	}

	var fb *feedback.Feedback
	if record := s.recall(ctx, params.AssessmentID); record != nil {
		fb = feedback.FromAssessment(record, params.ClinicianLevel, params.Outcome, params.Notes)
	} else {
		fb = &feedback.Feedback{
			AssessmentID:   params.AssessmentID,
			ClinicianLevel: params.ClinicianLevel,
			Outcome:        params.Outcome,
			Notes:          params.Notes,
		}
	}

	if params.Profile != "" {
		fb.Profile = params.Profile
	}
	if len(params.Symptoms) > 0 {
		fb.Symptoms = domain.NewSymptomEvidence(params.Symptoms...).List()
	}
	if params.ImagingVerdict != "" {
		fb.ImagingVerdict = params.ImagingVerdict
	}
	if params.ImagingConfidence != nil {
		fb.ImagingConfidence = *params.ImagingConfidence
	}
	if params.SuggestedRisk != nil {
		fb.SuggestedRisk = *params.SuggestedRisk
		fb.SuggestedLevel = ""
	}

	if err := s.feedback.Save(ctx, fb); err != nil {
		return nil, err
	}
	return fb, nil
}

func (s *Server) handleGetFeedback(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params GetFeedbackParams
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.AssessmentID) == "" {
		return nil, domain.NewValidationError("assessment_id", "assessment ID is required", nil)
	}

	fb, err := s.feedback.Get(ctx, strings.TrimSpace(params.AssessmentID))
	if err != nil {
		return nil, err
	}
	return GetFeedbackResult{Found: fb != nil, Feedback: fb}, nil
}

func (s *Server) handleListFeedback(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params ListFeedbackParams
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	params.Limit, params.Offset = pageBounds(params.Limit, params.Offset)

	list, err := s.feedback.List(ctx, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	total, err := s.feedback.Count(ctx)
	if err != nil {
		return nil, err
	}

	out := ListFeedbackResult{
		Feedback: list,
		Total:    total,
		Limit:    params.Limit,
		Offset:   params.Offset,
	}
	if out.Feedback == nil {
		out.Feedback = []*feedback.Feedback{}
	}
	for _, fb := range list {
		if fb.Agreed {
			out.Agreed++
		}
	}
	return out, nil
}

func (s *Server) handleExportFeedback(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	if s.exportDir == "" {
		return nil, domain.NewValidationError("export_dir", "export directory is not configured", nil)
	}
	if err := os.MkdirAll(s.exportDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	filename := fmt.Sprintf("feedback_export_%s.json", time.Now().Format("20060102_150405"))
	filePath := filepath.Join(s.exportDir, filename)

	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	if err := s.feedback.ExportJSON(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to export feedback: %w", err)
	}

	count, err := s.feedback.Count(ctx)
	if err != nil {
		return nil, err
	}
	return ExportFeedbackResult{FilePath: filePath, Count: count}, nil
}

func (s *Server) handleImportFeedback(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params ImportFeedbackParams
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if params.FilePath == "" {
		return nil, domain.NewValidationError("file_path", "file path is required", nil)
	}

	file, err := os.Open(params.FilePath)
	if err != nil {
		return nil, domain.NewValidationError("file_path", "cannot open file: "+err.Error(), params.FilePath)
	}
	defer file.Close()

	imported, skipped, err := s.feedback.ImportJSON(ctx, file)
	if err != nil {
		return nil, err
	}
	return ImportFeedbackResult{Imported: imported, Skipped: skipped}, nil
}

// pageBounds replaces an out-of-range limit or offset with its default.
func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
