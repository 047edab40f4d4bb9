// Package calibration holds the clinical constants shared by the heuristic
// calculator and the Bayesian model builder: per-symptom sensitivity and
// false-positive rates, base prevalence, and imaging sensitivity/specificity.
//
// A Profile is built once and never mutated. Components receive it
// explicitly, so several profiles (regional prevalence variants, for
// instance) can be served by one process.
package calibration

import (
	"fmt"
	"math"
	"sort"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

// DefaultProfileName names the built-in clinical profile.
const DefaultProfileName = "default"

// Pair is the calibration of one symptom indicator.
type Pair struct {
	// Sensitivity is P(symptom present | pneumonia present).
	Sensitivity float64 `json:"sensitivity" yaml:"sensitivity"`
	// FalsePositiveRate is P(symptom present | pneumonia absent).
	FalsePositiveRate float64 `json:"false_positive_rate" yaml:"falsePositiveRate"`
}

// DefaultPair is applied to symptom identifiers missing from the table.
var DefaultPair = Pair{Sensitivity: 0.30, FalsePositiveRate: 0.15}

// Validate checks both rates are finite probabilities.
func (p Pair) Validate() error {
	if !domain.IsProbability(p.Sensitivity) {
		return fmt.Errorf("%w: sensitivity %v outside [0,1]", domain.ErrInvalidCalibration, p.Sensitivity)
	}
	if !domain.IsProbability(p.FalsePositiveRate) {
		return fmt.Errorf("%w: false-positive rate %v outside [0,1]", domain.ErrInvalidCalibration, p.FalsePositiveRate)
	}
	return nil
}

// SymptomTable maps a symptom identifier to its calibration pair.
type SymptomTable map[string]Pair

// DefaultSymptomTable returns a fresh copy of the clinical symptom table.
func DefaultSymptomTable() SymptomTable {
	return SymptomTable{
		domain.SymptomCough:             {Sensitivity: 0.90, FalsePositiveRate: 0.20},
		domain.SymptomFever:             {Sensitivity: 0.85, FalsePositiveRate: 0.15},
		domain.SymptomShortnessOfBreath: {Sensitivity: 0.80, FalsePositiveRate: 0.10},
		domain.SymptomChestPain:         {Sensitivity: 0.70, FalsePositiveRate: 0.08},
		domain.SymptomFatigue:           {Sensitivity: 0.70, FalsePositiveRate: 0.20},
		domain.SymptomRapidBreathing:    {Sensitivity: 0.60, FalsePositiveRate: 0.05},
		domain.SymptomNausea:            {Sensitivity: 0.20, FalsePositiveRate: 0.15},
		domain.SymptomHeadache:          {Sensitivity: 0.15, FalsePositiveRate: 0.12},
	}
}

func (t SymptomTable) clone() SymptomTable {
	out := make(SymptomTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Diagnosis holds the disease-level constants. All three must lie strictly
// inside (0,1).
type Diagnosis struct {
	BasePrevalence     float64 `json:"base_prevalence" yaml:"basePrevalence"`
	ImagingSensitivity float64 `json:"imaging_sensitivity" yaml:"imagingSensitivity"`
	ImagingSpecificity float64 `json:"imaging_specificity" yaml:"imagingSpecificity"`
}

// DefaultDiagnosis returns the clinical constants.
func DefaultDiagnosis() Diagnosis {
	return Diagnosis{
		BasePrevalence:     0.05,
		ImagingSensitivity: 0.95,
		ImagingSpecificity: 0.98,
	}
}

// Validate enforces the open-interval invariant on each constant.
func (d Diagnosis) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"basePrevalence", d.BasePrevalence},
		{"imagingSensitivity", d.ImagingSensitivity},
		{"imagingSpecificity", d.ImagingSpecificity},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || f.value <= 0 || f.value >= 1 {
			return fmt.Errorf("%w: %s %v outside (0,1)", domain.ErrInvalidCalibration, f.name, f.value)
		}
	}
	return nil
}

// Profile is one immutable calibration set.
type Profile struct {
	name      string
	diagnosis Diagnosis
	symptoms  SymptomTable
	fallback  Pair
}

// NewProfile validates and copies the inputs into an immutable profile. A
// nil symptom table means the clinical defaults.
func NewProfile(name string, diagnosis Diagnosis, symptoms SymptomTable, fallback Pair) (*Profile, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: profile name is required", domain.ErrInvalidCalibration)
	}
	if err := diagnosis.Validate(); err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}
	if err := fallback.Validate(); err != nil {
		return nil, fmt.Errorf("profile %q default symptom: %w", name, err)
	}
	if symptoms == nil {
		symptoms = DefaultSymptomTable()
	}

	table := make(SymptomTable, len(symptoms))
	for id, pair := range symptoms {
		key := domain.NormalizeSymptom(id)
		if key == "" {
			return nil, fmt.Errorf("%w: profile %q has an empty symptom identifier", domain.ErrInvalidCalibration, name)
		}
		if err := pair.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q symptom %q: %w", name, key, err)
		}
		table[key] = pair
	}

	return &Profile{
		name:      name,
		diagnosis: diagnosis,
		symptoms:  table,
		fallback:  fallback,
	}, nil
}

// Default returns the built-in clinical profile.
func Default() *Profile {
	p, err := NewProfile(DefaultProfileName, DefaultDiagnosis(), DefaultSymptomTable(), DefaultPair)
	if err != nil {
		panic(fmt.Sprintf("built-in calibration is invalid: %v", err))
	}
	return p
}

// Name returns the profile name.
func (p *Profile) Name() string { return p.name }

// Diagnosis returns the disease-level constants.
func (p *Profile) Diagnosis() Diagnosis { return p.diagnosis }

// DefaultSymptom returns the pair used for unknown identifiers.
func (p *Profile) DefaultSymptom() Pair { return p.fallback }

// Lookup returns the pair for a symptom and whether it was found. Unknown
// identifiers get the profile's default pair.
func (p *Profile) Lookup(id string) (Pair, bool) {
	pair, ok := p.symptoms[domain.NormalizeSymptom(id)]
	if !ok {
		return p.fallback, false
	}
	return pair, true
}

// Symptoms returns a copy of the symptom table.
func (p *Profile) Symptoms() SymptomTable {
	return p.symptoms.clone()
}

// SymptomIDs returns the calibrated identifiers, sorted.
func (p *Profile) SymptomIDs() []string {
	ids := make([]string, 0, len(p.symptoms))
	for id := range p.symptoms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MeanSensitivity averages the sensitivity of every symptom in the set,
// using the default pair for unknown ones. It returns 0 for an empty set.
func (p *Profile) MeanSensitivity(symptoms domain.SymptomEvidence) float64 {
	if symptoms.Empty() {
		return 0
	}
	sum := 0.0
	for _, id := range symptoms.List() {
		pair, _ := p.Lookup(id)
		sum += pair.Sensitivity
	}
	return sum / float64(symptoms.Len())
}
