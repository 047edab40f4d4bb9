package calibration

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProfileSpec is the on-disk form of a profile. Omitted fields take the
// clinical defaults; a listed symptom table is merged over the default one.
type ProfileSpec struct {
	Name               string          `yaml:"name" json:"name"`
	BasePrevalence     *float64        `yaml:"basePrevalence" json:"basePrevalence,omitempty"`
	ImagingSensitivity *float64        `yaml:"imagingSensitivity" json:"imagingSensitivity,omitempty"`
	ImagingSpecificity *float64        `yaml:"imagingSpecificity" json:"imagingSpecificity,omitempty"`
	SymptomTable       map[string]Pair `yaml:"symptomTable" json:"symptomTable,omitempty"`
	DefaultSymptom     *Pair           `yaml:"defaultSymptom" json:"defaultSymptom,omitempty"`
}

// ProfileFile is the top-level document of a calibration file.
type ProfileFile struct {
	Profiles []ProfileSpec `yaml:"profiles" json:"profiles"`
}

// Build applies defaults and validates the spec into a Profile.
func (s ProfileSpec) Build() (*Profile, error) {
	diagnosis := DefaultDiagnosis()
	if s.BasePrevalence != nil {
		diagnosis.BasePrevalence = *s.BasePrevalence
	}
	if s.ImagingSensitivity != nil {
		diagnosis.ImagingSensitivity = *s.ImagingSensitivity
	}
	if s.ImagingSpecificity != nil {
		diagnosis.ImagingSpecificity = *s.ImagingSpecificity
	}

	table := DefaultSymptomTable()
	for id, pair := range s.SymptomTable {
		table[id] = pair
	}

	fallback := DefaultPair
	if s.DefaultSymptom != nil {
		fallback = *s.DefaultSymptom
	}

	return NewProfile(s.Name, diagnosis, table, fallback)
}

// LoadProfiles parses YAML bytes into validated profiles.
func LoadProfiles(data []byte) ([]*Profile, error) {
	var file ProfileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse calibration profiles: %w", err)
	}

	profiles := make([]*Profile, 0, len(file.Profiles))
	for i, spec := range file.Profiles {
		p, err := spec.Build()
		if err != nil {
			return nil, fmt.Errorf("calibration profile #%d: %w", i+1, err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// LoadProfilesFile reads and parses a calibration file.
func LoadProfilesFile(path string) ([]*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration file: %w", err)
	}
	return LoadProfiles(data)
}
