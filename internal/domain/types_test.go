package domain

import (
	"math"
	"testing"
)

func TestCaseFor(t *testing.T) {
	tests := []struct {
		positive    bool
		hasSymptoms bool
		want        Case
		number      int
		label       string
	}{
		{true, true, POSITIVE_WITH_SYMPTOMS, 1, "X-ray Positive with Symptoms"},
		{true, false, POSITIVE_WITHOUT_SYMPTOMS, 2, "X-ray Positive without Symptoms"},
		{false, true, NEGATIVE_WITH_SYMPTOMS, 3, "X-ray Negative with Symptoms"},
		{false, false, NEGATIVE_WITHOUT_SYMPTOMS, 4, "X-ray Negative without Symptoms"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got := CaseFor(tt.positive, tt.hasSymptoms)
			if got != tt.want {
				t.Fatalf("CaseFor(%v, %v) = %s, want %s", tt.positive, tt.hasSymptoms, got, tt.want)
			}
			if got.Number() != tt.number {
				t.Errorf("Number() = %d, want %d", got.Number(), tt.number)
			}
			if got.Label() != tt.label {
				t.Errorf("Label() = %q, want %q", got.Label(), tt.label)
			}
			if got.ImagingPositive() != tt.positive || got.HasSymptoms() != tt.hasSymptoms {
				t.Errorf("case %s does not round-trip its inputs", got)
			}
		})
	}
}

func TestAllCasesDistinct(t *testing.T) {
	labels := make(map[string]bool)
	for _, c := range AllCases {
		if !c.IsValid() {
			t.Errorf("case %s should be valid", c)
		}
		if labels[c.Label()] {
			t.Errorf("duplicate label %q", c.Label())
		}
		labels[c.Label()] = true
	}
	if len(labels) != 4 {
		t.Errorf("expected 4 labels, got %d", len(labels))
	}
	if Case("BOGUS").IsValid() {
		t.Error("unknown case should be invalid")
	}
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		pct  float64
		want RiskLevel
	}{
		{100, HIGH},
		{95, HIGH},
		{70, HIGH},
		{69.99, MODERATE},
		{40, MODERATE},
		{30, MODERATE},
		{29.99, LOW},
		{2.5, LOW},
		{0, LOW},
	}

	for _, tt := range tests {
		if got := RiskLevelFor(tt.pct); got != tt.want {
			t.Errorf("RiskLevelFor(%v) = %s, want %s", tt.pct, got, tt.want)
		}
	}
}

func TestClampProbability(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.7, 1},
		{math.NaN(), 0},
		{math.Inf(1), 1},
	}

	for _, tt := range tests {
		if got := ClampProbability(tt.in); got != tt.want {
			t.Errorf("ClampProbability(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if IsProbability(math.Inf(1)) || IsProbability(-0.1) || !IsProbability(0.5) {
		t.Error("IsProbability returned an unexpected answer")
	}
}

func TestImagingFromProbability(t *testing.T) {
	if got := ImagingFromProbability(0.5); got.Verdict != NEGATIVE {
		t.Errorf("0.5 should be negative, got %s", got.Verdict)
	}
	if got := ImagingFromProbability(0.51); got.Verdict != POSITIVE || got.Confidence != 0.51 {
		t.Errorf("0.51 should be positive with confidence kept, got %+v", got)
	}
	if n := NeutralImaging(); n.Verdict != NEGATIVE || n.Confidence != 0 {
		t.Errorf("unexpected neutral imaging %+v", n)
	}
}

func TestImagingEvidence_Validate(t *testing.T) {
	if err := (ImagingEvidence{Verdict: POSITIVE, Confidence: 0.9}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (ImagingEvidence{Verdict: "MAYBE", Confidence: 0.9}).Validate(); err == nil {
		t.Error("expected error for unknown verdict")
	}
	if err := (ImagingEvidence{Verdict: NEGATIVE, Confidence: math.NaN()}).Validate(); err == nil {
		t.Error("expected error for NaN confidence")
	}
}
