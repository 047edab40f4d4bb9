package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pneumonia-risk-mcp-server/internal/cache"
	"github.com/pneumonia-risk-mcp-server/internal/calibration"
	"github.com/pneumonia-risk-mcp-server/internal/domain"
	"github.com/pneumonia-risk-mcp-server/internal/imaging"
	"github.com/pneumonia-risk-mcp-server/internal/symptoms"
)

// Settings collects what NewFromConfig needs from either configuration source.
type Settings struct {
	Calibration domain.CalibrationConfig
	Cache       domain.CacheConfig
	Imaging     domain.ImagingConfig
}

// Runtime is a fully wired AssessmentService plus the resources it owns.
type Runtime struct {
	Service *AssessmentService
	Cache   *cache.TieredCache
}

// NewFromConfig loads calibration profiles, builds the posterior cache and
// attaches the keyword extractor and the never-failing imaging classifier.
func NewFromConfig(ctx context.Context, settings Settings, logger *logrus.Logger) (*Runtime, error) {
	registry, err := calibration.NewRegistryFromFile(settings.Calibration.ProfilesFile, settings.Calibration.DefaultProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to load calibration profiles: %w", err)
	}

	resultCache, err := cache.New(ctx, settings.Cache, logger)
	if err != nil {
		return nil, err
	}

	var remote domain.ImagingClassifier
	if settings.Imaging.BaseURL != "" {
		remote = imaging.NewHTTPClassifier(imaging.HTTPConfigFrom(settings.Imaging), logger)
	}

	extractor := symptoms.NewKeywordExtractor(symptoms.ExtractorConfig{Synonyms: symptoms.DefaultSynonyms})
	svc := NewAssessmentService(logger, registry, resultCache).
		WithSymptomExtractor(extractor).
		WithImagingClassifier(imaging.NewSafeClassifier(remote, logger))

	logger.WithFields(logrus.Fields{
		"profiles":        registry.Names(),
		"default_profile": registry.DefaultName(),
		"remote_imaging":  remote != nil,
	}).Info("Assessment service initialized")

	return &Runtime{
		Service: svc,
		Cache:   resultCache,
	}, nil
}

// Close releases the cache tiers.
func (r *Runtime) Close() error {
	return r.Cache.Close()
}
