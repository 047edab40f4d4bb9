package domain

import "math"

// PositiveThreshold is the classifier probability above which an image is
// reported as positive for pneumonia.
const PositiveThreshold = 0.5

// ImagingEvidence is the imaging collaborator's output: a verdict and the
// model's estimated probability of disease given the image.
type ImagingEvidence struct {
	Verdict    Verdict `json:"verdict"`
	Confidence float64 `json:"confidence"`
}

// NeutralImaging is the safe default supplied when imaging is unavailable or
// the classifier failed.
func NeutralImaging() ImagingEvidence {
	return ImagingEvidence{Verdict: NEGATIVE, Confidence: 0.0}
}

// ImagingFromProbability thresholds a raw classifier probability into
// evidence. Probabilities strictly above PositiveThreshold are positive.
func ImagingFromProbability(p float64) ImagingEvidence {
	verdict := NEGATIVE
	if p > PositiveThreshold {
		verdict = POSITIVE
	}
	return ImagingEvidence{Verdict: verdict, Confidence: p}
}

// Positive reports whether the verdict is POSITIVE.
func (e ImagingEvidence) Positive() bool {
	return e.Verdict == POSITIVE
}

// Validate checks that the verdict is known and the confidence is a finite
// number. Range is not enforced here; the calculator clamps.
func (e ImagingEvidence) Validate() error {
	if !e.Verdict.IsValid() {
		return NewValidationError("imaging.verdict", ErrInvalidVerdict.Error(), e.Verdict)
	}
	if math.IsNaN(e.Confidence) || math.IsInf(e.Confidence, 0) {
		return NewValidationError("imaging.confidence", ErrInvalidConfidence.Error(), e.Confidence)
	}
	return nil
}
