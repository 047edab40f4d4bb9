package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pneumonia-risk-mcp-server/internal/calibration"
	"github.com/pneumonia-risk-mcp-server/internal/domain"
	"github.com/pneumonia-risk-mcp-server/internal/service"
)

const (
	ToolAssessRisk        = "assess_pneumonia_risk"
	ToolAssessBatch       = "assess_pneumonia_risk_batch"
	ToolQueryPosterior    = "query_pneumonia_posterior"
	ToolExtractSymptoms   = "extract_symptoms"
	ToolListCalibration   = "list_symptom_calibration"
	ToolGetAssessment     = "get_pneumonia_assessment"
	ToolListAssessments   = "list_pneumonia_assessments"
	recentAssessmentSpace = "assessment"
)

// BatchParams are the arguments of assess_pneumonia_risk_batch.
type BatchParams struct {
	Requests []service.AssessmentRequest `json:"requests"`
	Workers  int                         `json:"workers,omitempty"`
}

// BatchResult reports every batch item in request order.
type BatchResult struct {
	Results   []service.BatchItem `json:"results"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

// ExtractParams are the arguments of extract_symptoms.
type ExtractParams struct {
	ReportText string `json:"report_text"`
}

// ExtractResult lists the symptoms found in a report.
type ExtractResult struct {
	Symptoms []string `json:"symptoms"`
	Unknown  []string `json:"unknown,omitempty"`
	Count    int      `json:"count"`
}

// GetAssessmentParams are the arguments of get_pneumonia_assessment.
type GetAssessmentParams struct {
	AssessmentID string `json:"assessment_id"`
}

// ListAssessmentsParams are the arguments of list_pneumonia_assessments.
type ListAssessmentsParams struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ListAssessmentsResult is one page of persisted assessments.
type ListAssessmentsResult struct {
	Assessments []*domain.AssessmentRecord `json:"assessments"`
	Limit       int                        `json:"limit"`
	Offset      int                        `json:"offset"`
}

// CalibrationParams are the arguments of list_symptom_calibration.
type CalibrationParams struct {
	Profile string `json:"profile,omitempty"`
}

// CalibrationResult describes the calibration profiles.
type CalibrationResult struct {
	Default    string                `json:"default"`
	Vocabulary []string              `json:"vocabulary"`
	Profiles   []calibration.Summary `json:"profiles"`
}

func (s *Server) assessmentTools() []toolDefinition {
	return []toolDefinition{
		{
			tool: &mcp.Tool{
				Name: ToolAssessRisk,
				Description: "Estimate pneumonia risk from symptoms and chest X-ray evidence. " +
					"Returns the heuristic risk percentage, its case and risk level, and optionally " +
					"the causal model posterior.",
				InputSchema: assessmentSchema(),
			},
			handler: s.handleAssess,
		},
		{
			tool: &mcp.Tool{
				Name:        ToolAssessBatch,
				Description: "Assess many patients at once. Items fail independently and are returned in request order.",
				InputSchema: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"requests": {
							Type:        "array",
							Description: "Assessment requests, each shaped like assess_pneumonia_risk arguments",
							Items:       assessmentSchema(),
						},
						"workers": {Type: "integer", Description: "Concurrent workers"},
					},
					Required: []string{"requests"},
				},
			},
			handler: s.handleAssessBatch,
		},
		{
			tool: &mcp.Tool{
				Name: ToolQueryPosterior,
				Description: "Query the causal probability model. Builds a network with the pneumonia node, " +
					"the X-ray node and the listed symptom nodes, then returns the posterior of the target " +
					"given the observed evidence.",
				InputSchema: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"profile":  {Type: "string", Description: "Calibration profile name"},
						"symptoms": stringArray("Symptom nodes to include in the network"),
						"target":   {Type: "string", Description: "Query variable, defaults to Pneumonia"},
						"evidence": {
							Type:        "object",
							Description: "Observed node states, e.g. {\"X-ray\": \"positive\", \"cough\": \"present\"}",
						},
					},
				},
			},
			handler: s.handlePosterior,
		},
		{
			tool: &mcp.Tool{
				Name:        ToolExtractSymptoms,
				Description: "Extract known symptoms from a free-text clinical report.",
				InputSchema: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"report_text": {Type: "string", Description: "Clinical report text"},
					},
					Required: []string{"report_text"},
				},
			},
			handler: s.handleExtractSymptoms,
		},
		{
			tool: &mcp.Tool{
				Name:        ToolListCalibration,
				Description: "List calibration profiles with disease prevalence, X-ray accuracy and per-symptom likelihoods.",
				InputSchema: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"profile": {Type: "string", Description: "Only describe this profile"},
					},
				},
			},
			handler: s.handleListCalibration,
		},
		{
			tool: &mcp.Tool{
				Name:        ToolGetAssessment,
				Description: "Fetch an earlier assessment by ID from this session or the persistent history.",
				InputSchema: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"assessment_id": {Type: "string", Description: "ID returned by assess_pneumonia_risk"},
					},
					Required: []string{"assessment_id"},
				},
			},
			handler: s.handleGetAssessment,
		},
		{
			tool: &mcp.Tool{
				Name:        ToolListAssessments,
				Description: "List persisted assessments, newest first. Empty when no history database is configured.",
				InputSchema: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"limit":  {Type: "integer", Description: "Page size"},
						"offset": {Type: "integer", Description: "Records to skip"},
					},
				},
			},
			handler: s.handleListAssessments,
		},
	}
}

func assessmentSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"symptoms":    stringArray("Observed symptoms, e.g. cough, fever, shortness of breath"),
			"report_text": {Type: "string", Description: "Clinical report to extract symptoms from"},
			"imaging_verdict": {
				Type:        "string",
				Description: "Chest X-ray verdict",
				Enum:        []interface{}{string(domain.POSITIVE), string(domain.NEGATIVE)},
			},
			"imaging_confidence": {Type: "number", Description: "Classifier probability in [0,1]; without a verdict, above 0.5 means positive"},
			"image_ref":          {Type: "string", Description: "Image reference for the imaging classifier"},
			"profile":            {Type: "string", Description: "Calibration profile name"},
			"include_posterior":  {Type: "boolean", Description: "Also compute the causal model posterior"},
		},
	}
}

func stringArray(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: description,
		Items:       &jsonschema.Schema{Type: "string"},
	}
}

func (s *Server) handleAssess(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var req service.AssessmentRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}

	result, err := s.service.Assess(ctx, &req)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, &result.AssessmentRecord)
	return result, nil
}

func (s *Server) handleAssessBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params BatchParams
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if len(params.Requests) == 0 {
		return nil, domain.NewValidationError("requests", "at least one request is required", nil)
	}

	workers := params.Workers
	if workers <= 0 {
		workers = s.batchWorkers
	}

	items, err := s.service.AssessBatch(ctx, params.Requests, workers)
	if err != nil {
		return nil, err
	}

	out := BatchResult{Results: items}
	for _, item := range items {
		if item.Err != nil {
			out.Failed++
			continue
		}
		out.Succeeded++
		s.remember(ctx, &item.Result.AssessmentRecord)
	}
	return out, nil
}

func (s *Server) handlePosterior(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var req service.PosteriorRequest
	if err := decodeArgs(args, &req); err != nil {
		return nil, err
	}
	return s.service.Posterior(ctx, &req)
}

func (s *Server) handleExtractSymptoms(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params ExtractParams
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.ReportText) == "" {
		return nil, domain.NewValidationError("report_text", "report text is required", nil)
	}
	extractor := s.service.Extractor()
	if extractor == nil {
		return nil, domain.NewValidationError("report_text", "symptom extraction is not configured", nil)
	}

	evidence, err := extractor.Extract(ctx, params.ReportText)
	if err != nil {
		return nil, err
	}
	return ExtractResult{
		Symptoms: evidence.List(),
		Unknown:  evidence.Unknown(),
		Count:    evidence.Len(),
	}, nil
}

func (s *Server) handleListCalibration(_ context.Context, args json.RawMessage) (interface{}, error) {
	var params CalibrationParams
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}

	registry := s.service.Registry()
	summaries := registry.Summaries()
	if params.Profile != "" {
		if _, err := registry.Get(params.Profile); err != nil {
			return nil, err
		}
		filtered := summaries[:0]
		for _, summary := range summaries {
			if summary.Name == params.Profile {
				filtered = append(filtered, summary)
			}
		}
		summaries = filtered
	}

	return CalibrationResult{
		Default:    registry.DefaultName(),
		Vocabulary: append([]string(nil), domain.SymptomVocabulary...),
		Profiles:   summaries,
	}, nil
}

func (s *Server) handleGetAssessment(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params GetAssessmentParams
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.AssessmentID) == "" {
		return nil, domain.NewValidationError("assessment_id", "assessment ID is required", nil)
	}

	record := s.recall(ctx, params.AssessmentID)
	if record == nil {
		return nil, fmt.Errorf("assessment %s: %w", params.AssessmentID, domain.ErrUnknownAssessment)
	}
	return record, nil
}

func (s *Server) handleListAssessments(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var params ListAssessmentsParams
	if err := decodeArgs(args, &params); err != nil {
		return nil, err
	}
	limit, offset := pageBounds(params.Limit, params.Offset)

	records, err := s.service.History(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*domain.AssessmentRecord{}
	}
	return ListAssessmentsResult{Assessments: records, Limit: limit, Offset: offset}, nil
}

// remember keeps a completed assessment so feedback can reference it by ID.
func (s *Server) remember(ctx context.Context, record *domain.AssessmentRecord) {
	raw, err := json.Marshal(record)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to encode assessment for history")
		return
	}
	_ = s.recent.Set(ctx, recentAssessmentSpace+":"+record.ID, raw, recentAssessmentTTL)
}

// recall returns a remembered assessment, or nil.
func (s *Server) recall(ctx context.Context, id string) *domain.AssessmentRecord {
	raw, ok, err := s.recent.Get(ctx, recentAssessmentSpace+":"+id)
	if err != nil || !ok {
		// Older assessments may still be in the persistent history.
		record, err := s.service.Lookup(ctx, id)
		if err != nil {
			return nil
		}
		return record
	}
	var record domain.AssessmentRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil
	}
	return &record
}
