package calibration

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

func TestDefaultProfile(t *testing.T) {
	p := Default()

	assert.Equal(t, DefaultProfileName, p.Name())
	assert.Equal(t, 0.05, p.Diagnosis().BasePrevalence)
	assert.Equal(t, 0.95, p.Diagnosis().ImagingSensitivity)
	assert.Equal(t, 0.98, p.Diagnosis().ImagingSpecificity)
	assert.Equal(t, DefaultPair, p.DefaultSymptom())
	assert.ElementsMatch(t, domain.SymptomVocabulary, p.SymptomIDs())
}

func TestProfile_Lookup(t *testing.T) {
	p := Default()

	pair, known := p.Lookup("Cough")
	assert.True(t, known)
	assert.Equal(t, Pair{Sensitivity: 0.90, FalsePositiveRate: 0.20}, pair)

	pair, known = p.Lookup("hiccups")
	assert.False(t, known)
	assert.Equal(t, Pair{Sensitivity: 0.30, FalsePositiveRate: 0.15}, pair)
}

func TestProfile_MeanSensitivity(t *testing.T) {
	p := Default()

	assert.Equal(t, 0.0, p.MeanSensitivity(domain.NewSymptomEvidence()))
	assert.InDelta(t, 0.90, p.MeanSensitivity(domain.NewSymptomEvidence("cough")), 1e-12)
	assert.InDelta(t, (0.90+0.85)/2, p.MeanSensitivity(domain.NewSymptomEvidence("cough", "fever")), 1e-12)
	assert.InDelta(t, (0.20+0.30)/2, p.MeanSensitivity(domain.NewSymptomEvidence("nausea", "unknown")), 1e-12)
}

func TestProfile_SymptomsIsCopy(t *testing.T) {
	p := Default()
	table := p.Symptoms()
	table["cough"] = Pair{Sensitivity: 0.01, FalsePositiveRate: 0.01}

	pair, _ := p.Lookup("cough")
	assert.Equal(t, 0.90, pair.Sensitivity, "profile must not share its table")
}

func TestDiagnosis_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Diagnosis)
		wantErr bool
	}{
		{"defaults", func(d *Diagnosis) {}, false},
		{"zero prevalence", func(d *Diagnosis) { d.BasePrevalence = 0 }, true},
		{"unit prevalence", func(d *Diagnosis) { d.BasePrevalence = 1 }, true},
		{"negative sensitivity", func(d *Diagnosis) { d.ImagingSensitivity = -0.1 }, true},
		{"nan specificity", func(d *Diagnosis) { d.ImagingSpecificity = math.NaN() }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := DefaultDiagnosis()
			tt.modify(&d)
			err := d.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidCalibration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewProfile_RejectsBadPairs(t *testing.T) {
	table := DefaultSymptomTable()
	table["cough"] = Pair{Sensitivity: 1.2, FalsePositiveRate: 0.2}

	_, err := NewProfile("broken", DefaultDiagnosis(), table, DefaultPair)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidCalibration)

	_, err = NewProfile("broken", DefaultDiagnosis(), nil, Pair{Sensitivity: 0.3, FalsePositiveRate: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidCalibration)

	_, err = NewProfile("", DefaultDiagnosis(), nil, DefaultPair)
	assert.ErrorIs(t, err, domain.ErrInvalidCalibration)
}

const profilesYAML = `
profiles:
  - name: high-prevalence
    basePrevalence: 0.20
    symptomTable:
      cough:
        sensitivity: 0.95
        falsePositiveRate: 0.25
      wheezing:
        sensitivity: 0.40
        falsePositiveRate: 0.10
  - name: strict-imaging
    imagingSpecificity: 0.995
    defaultSymptom:
      sensitivity: 0.25
      falsePositiveRate: 0.20
`

func TestLoadProfiles(t *testing.T) {
	profiles, err := LoadProfiles([]byte(profilesYAML))
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	high := profiles[0]
	assert.Equal(t, "high-prevalence", high.Name())
	assert.Equal(t, 0.20, high.Diagnosis().BasePrevalence)
	assert.Equal(t, 0.95, high.Diagnosis().ImagingSensitivity, "unset fields keep defaults")

	pair, known := high.Lookup("cough")
	assert.True(t, known)
	assert.Equal(t, 0.95, pair.Sensitivity)

	pair, known = high.Lookup("wheezing")
	assert.True(t, known)
	assert.Equal(t, 0.40, pair.Sensitivity)

	pair, known = high.Lookup("fever")
	assert.True(t, known, "default table entries survive the merge")
	assert.Equal(t, 0.85, pair.Sensitivity)

	strict := profiles[1]
	assert.Equal(t, 0.995, strict.Diagnosis().ImagingSpecificity)
	assert.Equal(t, Pair{Sensitivity: 0.25, FalsePositiveRate: 0.20}, strict.DefaultSymptom())
}

func TestLoadProfiles_Invalid(t *testing.T) {
	_, err := LoadProfiles([]byte("profiles:\n  - name: bad\n    basePrevalence: 1.5\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidCalibration)

	_, err = LoadProfiles([]byte("profiles: [unclosed"))
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	profiles, err := LoadProfiles([]byte(profilesYAML))
	require.NoError(t, err)

	reg, err := NewRegistry("", profiles...)
	require.NoError(t, err)

	assert.Equal(t, []string{"default", "high-prevalence", "strict-imaging"}, reg.Names())
	assert.Equal(t, DefaultProfileName, reg.DefaultName())

	p, err := reg.Get("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfileName, p.Name())

	p, err = reg.Get("high-prevalence")
	require.NoError(t, err)
	assert.Equal(t, 0.20, p.Diagnosis().BasePrevalence)

	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, domain.ErrUnknownProfile)

	_, err = NewRegistry("missing")
	assert.ErrorIs(t, err, domain.ErrUnknownProfile)
}

func TestRegistry_DuplicateProfiles(t *testing.T) {
	profiles, err := LoadProfiles([]byte(`
profiles:
  - name: regional
    basePrevalence: 0.10
  - name: regional
    basePrevalence: 0.30
`))
	require.NoError(t, err)

	_, err = NewRegistry("", profiles...)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidCalibration)
	assert.Contains(t, err.Error(), "regional")

	override, err := LoadProfiles([]byte("profiles:\n  - name: default\n    basePrevalence: 0.10\n"))
	require.NoError(t, err)
	reg, err := NewRegistry("", override...)
	require.NoError(t, err, "a single override of the built-in profile is allowed")
	assert.Equal(t, 0.10, reg.Default().Diagnosis().BasePrevalence)
}

func TestNewRegistryFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profilesYAML), 0644))

	reg, err := NewRegistryFromFile(path, "strict-imaging")
	require.NoError(t, err)
	assert.Equal(t, "strict-imaging", reg.Default().Name())

	reg, err = NewRegistryFromFile("", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"default"}, reg.Names())

	_, err = NewRegistryFromFile(filepath.Join(tmpDir, "absent.yaml"), "")
	assert.Error(t, err)
}

func TestRegistry_Summaries(t *testing.T) {
	d := DefaultDiagnosis()
	d.BasePrevalence = 0.2
	winter, err := NewProfile("winter", d, nil, DefaultPair)
	require.NoError(t, err)

	r, err := NewRegistry("winter", winter)
	require.NoError(t, err)

	summaries := r.Summaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, DefaultProfileName, summaries[0].Name)
	assert.False(t, summaries[0].Default)
	assert.Equal(t, Pair{Sensitivity: 0.90, FalsePositiveRate: 0.20}, summaries[0].Symptoms[domain.SymptomCough])

	assert.Equal(t, "winter", summaries[1].Name)
	assert.True(t, summaries[1].Default)
	assert.Equal(t, 0.2, summaries[1].Diagnosis.BasePrevalence)
	assert.Equal(t, DefaultPair, summaries[1].DefaultSymptom)
}
