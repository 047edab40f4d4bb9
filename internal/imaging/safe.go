package imaging

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

// SafeClassifier never fails: any error from the wrapped classifier, or
// evidence outside [0,1], becomes domain.NeutralImaging.
type SafeClassifier struct {
	inner  domain.ImagingClassifier
	logger *logrus.Logger
}

// NewSafeClassifier wraps inner. A nil inner always yields neutral evidence.
func NewSafeClassifier(inner domain.ImagingClassifier, logger *logrus.Logger) *SafeClassifier {
	return &SafeClassifier{inner: inner, logger: logger}
}

// Classify implements domain.ImagingClassifier. The error is always nil.
func (s *SafeClassifier) Classify(ctx context.Context, imageRef string) (domain.ImagingEvidence, error) {
	if s.inner == nil || imageRef == "" {
		return domain.NeutralImaging(), nil
	}

	evidence, err := s.inner.Classify(ctx, imageRef)
	if err != nil {
		s.logger.WithError(err).WithField("image_ref", imageRef).Warn("Imaging classification failed, using neutral evidence")
		return domain.NeutralImaging(), nil
	}
	if evidence.Validate() != nil || !domain.IsProbability(evidence.Confidence) {
		s.logger.WithFields(logrus.Fields{
			"image_ref":  imageRef,
			"verdict":    evidence.Verdict,
			"confidence": evidence.Confidence,
		}).Warn("Imaging classifier returned invalid evidence, using neutral evidence")
		return domain.NeutralImaging(), nil
	}
	return evidence, nil
}
