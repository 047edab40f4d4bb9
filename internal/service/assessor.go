package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pneumonia-risk-mcp-server/internal/bayes"
	"github.com/pneumonia-risk-mcp-server/internal/cache"
	"github.com/pneumonia-risk-mcp-server/internal/calibration"
	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

// DefaultBatchWorkers bounds AssessBatch when no worker count is given.
const DefaultBatchWorkers = 4

// MaxBatchSize is the largest batch AssessBatch accepts.
const MaxBatchSize = 500

const posteriorCacheTTL = 30 * time.Minute

// AssessmentRequest is the evidence for one patient.
type AssessmentRequest struct {
	Symptoms          []string       `json:"symptoms,omitempty"`
	ReportText        string         `json:"report_text,omitempty"`
	ImagingVerdict    domain.Verdict `json:"imaging_verdict,omitempty"`
	ImagingConfidence *float64       `json:"imaging_confidence,omitempty"`
	ImageRef          string         `json:"image_ref,omitempty"`
	Profile           string         `json:"profile,omitempty"`
	IncludePosterior  bool           `json:"include_posterior,omitempty"`
}

// AssessmentResult is a completed assessment.
type AssessmentResult struct {
	domain.AssessmentRecord
	ProcessingTime string `json:"processing_time"`
}

// PosteriorRequest is an ad-hoc query against the causal model. Symptoms
// chooses which symptom nodes exist; Evidence maps node names to state
// labels ("present", "absent", "positive", "negative").
type PosteriorRequest struct {
	Profile  string            `json:"profile,omitempty"`
	Symptoms []string          `json:"symptoms,omitempty"`
	Target   string            `json:"target,omitempty"`
	Evidence map[string]string `json:"evidence,omitempty"`
}

// PosteriorResult is the answer to a PosteriorRequest.
type PosteriorResult struct {
	Profile       string             `json:"profile"`
	Target        string             `json:"target"`
	Probabilities map[string]float64 `json:"probabilities"`
	Evidence      map[string]string  `json:"evidence"`
	Nodes         []string           `json:"nodes"`
	Cached        bool               `json:"cached"`
}

// BatchItem is one entry of an AssessBatch result, in input order.
type BatchItem struct {
	Index  int               `json:"index"`
	Result *AssessmentResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
	Code   string            `json:"code,omitempty"`
	Err    error             `json:"-"`
}

// AssessmentService runs the heuristic calculator and the causal model over
// patient evidence. It is safe for concurrent use.
type AssessmentService struct {
	logger      *logrus.Logger
	registry    *calibration.Registry
	cache       cache.Cache
	extractor   domain.SymptomExtractor
	classifier  domain.ImagingClassifier
	history     domain.AssessmentStore
	calculators map[string]*RiskCalculator
	now         func() time.Time
}

// NewAssessmentService creates the service. cache may be nil.
func NewAssessmentService(logger *logrus.Logger, registry *calibration.Registry, resultCache cache.Cache) *AssessmentService {
	calculators := make(map[string]*RiskCalculator)
	for _, name := range registry.Names() {
		profile, _ := registry.Get(name)
		calculators[name] = NewRiskCalculator(logger, profile)
	}
	return &AssessmentService{
		logger:      logger,
		registry:    registry,
		cache:       resultCache,
		calculators: calculators,
		now:         time.Now,
	}
}

// WithSymptomExtractor enables report_text handling.
func (s *AssessmentService) WithSymptomExtractor(e domain.SymptomExtractor) *AssessmentService {
	s.extractor = e
	return s
}

// WithImagingClassifier enables image_ref handling.
func (s *AssessmentService) WithImagingClassifier(c domain.ImagingClassifier) *AssessmentService {
	s.classifier = c
	return s
}

// WithAssessmentStore persists every completed assessment.
func (s *AssessmentService) WithAssessmentStore(store domain.AssessmentStore) *AssessmentService {
	s.history = store
	return s
}

// Extractor returns the symptom extractor used for report_text, or nil.
func (s *AssessmentService) Extractor() domain.SymptomExtractor {
	return s.extractor
}

// Registry returns the calibration registry.
func (s *AssessmentService) Registry() *calibration.Registry {
	return s.registry
}

// Assess evaluates one request.
func (s *AssessmentService) Assess(ctx context.Context, req *AssessmentRequest) (*AssessmentResult, error) {
	startTime := time.Now()
	if req == nil {
		return nil, domain.NewValidationError("request", "request is required", nil)
	}

	profile, err := s.registry.Get(req.Profile)
	if err != nil {
		return nil, err
	}

	symptoms, err := s.collectSymptoms(ctx, req)
	if err != nil {
		return nil, err
	}
	imaging, err := s.collectImaging(ctx, req)
	if err != nil {
		return nil, err
	}

	s.warnUnknown(profile, symptoms)

	calc := s.calculators[profile.Name()]
	risk := calc.Evaluate(symptoms, imaging)

	record := domain.AssessmentRecord{
		ID:                uuid.New().String(),
		Profile:           profile.Name(),
		Symptoms:          symptoms.List(),
		UnknownSymptoms:   unknownFor(profile, symptoms),
		Imaging:           imaging,
		ConfidenceClamped: !domain.IsProbability(imaging.Confidence),
		Risk:              risk,
		AssessedAt:        s.now().UTC(),
	}

	if req.IncludePosterior {
		summary, err := s.observedPosterior(profile, symptoms, imaging)
		if err != nil {
			return nil, err
		}
		record.Posterior = summary
	}

	s.logger.WithFields(logrus.Fields{
		"assessment_id": record.ID,
		"profile":       record.Profile,
		"case":          risk.CaseNumber,
		"risk":          risk.Percentage,
		"risk_level":    risk.RiskLevel,
		"symptoms":      symptoms.Len(),
	}).Info("Completed pneumonia risk assessment")

	if s.history != nil {
		if err := s.history.Save(ctx, &record); err != nil {
			s.logger.WithError(err).WithField("assessment_id", record.ID).Warn("Failed to persist assessment")
		}
	}

	return &AssessmentResult{
		AssessmentRecord: record,
		ProcessingTime:   time.Since(startTime).String(),
	}, nil
}

// Lookup returns a persisted assessment. Without a store every ID is unknown.
func (s *AssessmentService) Lookup(ctx context.Context, id string) (*domain.AssessmentRecord, error) {
	if s.history == nil {
		return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrUnknownAssessment)
	}
	return s.history.Get(ctx, id)
}

// History lists persisted assessments, newest first.
func (s *AssessmentService) History(ctx context.Context, limit, offset int) ([]*domain.AssessmentRecord, error) {
	if s.history == nil {
		return []*domain.AssessmentRecord{}, nil
	}
	return s.history.List(ctx, limit, offset)
}

func (s *AssessmentService) collectSymptoms(ctx context.Context, req *AssessmentRequest) (domain.SymptomEvidence, error) {
	ids := append([]string(nil), req.Symptoms...)
	if strings.TrimSpace(req.ReportText) != "" {
		if s.extractor == nil {
			return domain.SymptomEvidence{}, domain.NewValidationError("report_text", "symptom extraction is not configured", nil)
		}
		extracted, err := s.extractor.Extract(ctx, req.ReportText)
		if err != nil {
			return domain.SymptomEvidence{}, fmt.Errorf("failed to extract symptoms: %w", err)
		}
		ids = append(ids, extracted.List()...)
	}
	return domain.NewSymptomEvidence(ids...), nil
}

func (s *AssessmentService) collectImaging(ctx context.Context, req *AssessmentRequest) (domain.ImagingEvidence, error) {
	if req.ImagingVerdict == "" && req.ImageRef != "" {
		if s.classifier == nil {
			return domain.ImagingEvidence{}, domain.NewValidationError("image_ref", "imaging classification is not configured", nil)
		}
		return s.classifier.Classify(ctx, req.ImageRef)
	}
	if req.ImagingVerdict == "" {
		if req.ImagingConfidence == nil {
			return domain.NeutralImaging(), nil
		}
		// A bare classifier probability is thresholded into a verdict.
		imaging := domain.ImagingFromProbability(*req.ImagingConfidence)
		if err := imaging.Validate(); err != nil {
			return domain.ImagingEvidence{}, err
		}
		return imaging, nil
	}

	imaging := domain.ImagingEvidence{
		Verdict: domain.Verdict(strings.ToUpper(string(req.ImagingVerdict))),
	}
	if req.ImagingConfidence != nil {
		imaging.Confidence = *req.ImagingConfidence
	}
	if err := imaging.Validate(); err != nil {
		return domain.ImagingEvidence{}, err
	}
	return imaging, nil
}

func (s *AssessmentService) warnUnknown(profile *calibration.Profile, symptoms domain.SymptomEvidence) {
	for _, id := range unknownFor(profile, symptoms) {
		s.logger.WithFields(logrus.Fields{
			"symptom": id,
			"profile": profile.Name(),
		}).Warn("Unknown symptom, using default calibration")
	}
}

func unknownFor(profile *calibration.Profile, symptoms domain.SymptomEvidence) []string {
	var unknown []string
	for _, id := range symptoms.List() {
		if _, known := profile.Lookup(id); !known {
			unknown = append(unknown, id)
		}
	}
	return unknown
}

func (s *AssessmentService) observedPosterior(profile *calibration.Profile, symptoms domain.SymptomEvidence, imaging domain.ImagingEvidence) (*domain.PosteriorSummary, error) {
	graph, err := bayes.Build(symptoms, profile)
	if err != nil {
		return nil, err
	}
	evidence := bayes.ObservedEvidence(imaging, symptoms)
	post, err := bayes.Query(graph, bayes.DiseaseNode, evidence)
	if err != nil {
		return nil, err
	}
	p := post.P(bayes.Present)
	return &domain.PosteriorSummary{
		Probability: p,
		Percentage:  p * 100,
		Evidence:    evidence,
	}, nil
}

// Posterior answers an ad-hoc query. Results are cached by profile, node
// set, target and evidence.
func (s *AssessmentService) Posterior(ctx context.Context, req *PosteriorRequest) (*PosteriorResult, error) {
	if req == nil {
		return nil, domain.NewValidationError("request", "request is required", nil)
	}
	profile, err := s.registry.Get(req.Profile)
	if err != nil {
		return nil, err
	}

	symptoms := domain.NewSymptomEvidence(req.Symptoms...)
	target := req.Target
	if target == "" {
		target = bayes.DiseaseNode
	}

	s.warnUnknown(profile, symptoms)

	graph, err := bayes.Build(symptoms, profile)
	if err != nil {
		return nil, err
	}

	evidence, labels, err := resolveEvidence(graph, req.Evidence)
	if err != nil {
		return nil, err
	}
	key := cache.Key("posterior", profile.Name(), symptoms.Key(), target, evidenceKey(labels))

	result := &PosteriorResult{
		Profile:  profile.Name(),
		Target:   target,
		Evidence: labels,
		Nodes:    graph.Variables(),
	}

	if cached, ok := s.cachedPosterior(ctx, key); ok {
		result.Probabilities = cached
		result.Cached = true
		return result, nil
	}

	post, err := bayes.Query(graph, target, evidence)
	if err != nil {
		s.logger.WithError(err).WithField("target", target).Warn("Posterior query failed")
		return nil, err
	}

	result.Probabilities = make(map[string]float64, len(post.States))
	for i, state := range post.States {
		result.Probabilities[state] = post.Probabilities[i]
	}
	s.storePosterior(ctx, key, result.Probabilities)

	return result, nil
}

// resolveEvidence turns state labels into indices. Node names are matched
// exactly, then case-insensitively; two keys naming the same node are an
// error. Unknown labels map to -1 so the query reports them.
func resolveEvidence(graph *bayes.Graph, raw map[string]string) (bayes.Evidence, map[string]string, error) {
	evidence := make(bayes.Evidence, len(raw))
	labels := make(map[string]string, len(raw))
	for name, label := range raw {
		node := canonicalNode(graph, name)
		if _, seen := labels[node]; seen {
			return nil, nil, domain.NewInferenceError(node, "evidence given more than once")
		}
		label = strings.ToLower(strings.TrimSpace(label))
		labels[node] = label

		state := -1
		for i, s := range graph.States(node) {
			if s == label {
				state = i
				break
			}
		}
		evidence[node] = state
	}
	return evidence, labels, nil
}

func canonicalNode(graph *bayes.Graph, name string) string {
	if graph.Has(name) {
		return name
	}
	for _, v := range graph.Variables() {
		if strings.EqualFold(v, strings.TrimSpace(name)) {
			return v
		}
	}
	return name
}

func evidenceKey(labels map[string]string) string {
	parts := make([]string, 0, len(labels))
	for k, v := range labels {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}

func (s *AssessmentService) cachedPosterior(ctx context.Context, key string) (map[string]float64, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var probs map[string]float64
	if err := json.Unmarshal(raw, &probs); err != nil {
		_ = s.cache.Delete(ctx, key)
		return nil, false
	}
	return probs, true
}

func (s *AssessmentService) storePosterior(ctx context.Context, key string, probs map[string]float64) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(probs)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, posteriorCacheTTL); err != nil {
		s.logger.WithError(err).Debug("Failed to cache posterior")
	}
}

// AssessBatch evaluates requests with at most workers in flight. Results
// keep input order and each item carries its own error.
func (s *AssessmentService) AssessBatch(ctx context.Context, reqs []AssessmentRequest, workers int) ([]BatchItem, error) {
	if len(reqs) > MaxBatchSize {
		return nil, domain.NewValidationError("requests", fmt.Sprintf("batch exceeds %d requests", MaxBatchSize), len(reqs))
	}
	if workers <= 0 {
		workers = DefaultBatchWorkers
	}

	items := make([]BatchItem, len(reqs))
	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup

	s.logger.WithFields(logrus.Fields{
		"batch_size": len(reqs),
		"workers":    workers,
	}).Info("Starting batch assessment")

	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items[i].Index = i

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				items[i].fail(ctx.Err())
				return
			}
			if err := ctx.Err(); err != nil {
				items[i].fail(err)
				return
			}

			result, err := s.Assess(ctx, &reqs[i])
			if err != nil {
				items[i].fail(err)
				return
			}
			items[i].Result = result
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
		}
	}
	s.logger.WithFields(logrus.Fields{
		"batch_size": len(reqs),
		"successful": len(reqs) - failed,
		"failed":     failed,
	}).Info("Completed batch assessment")

	return items, nil
}

func (item *BatchItem) fail(err error) {
	item.Err = err
	item.Error = err.Error()
	item.Code = domain.ErrorCode(err)
}
