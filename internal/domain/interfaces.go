package domain

import (
	"context"
)

// SymptomExtractor turns a clinical report into symptom evidence. OCR and
// any other acquisition happen behind this interface.
type SymptomExtractor interface {
	Extract(ctx context.Context, reportText string) (SymptomEvidence, error)
}

// ImagingClassifier produces imaging evidence for a chest X-ray reference.
// Implementations used by the core must never fail: on error they supply
// NeutralImaging instead.
type ImagingClassifier interface {
	Classify(ctx context.Context, imageRef string) (ImagingEvidence, error)
}

// AssessmentStore persists completed assessments. Get returns an error
// wrapping ErrUnknownAssessment when the ID is not stored.
type AssessmentStore interface {
	Save(ctx context.Context, record *AssessmentRecord) error
	Get(ctx context.Context, id string) (*AssessmentRecord, error)
	List(ctx context.Context, limit, offset int) ([]*AssessmentRecord, error)
	Close() error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetCacheConfig() *CacheConfig
	GetImagingConfig() *ImagingConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
