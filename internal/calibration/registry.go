package calibration

import (
	"fmt"
	"sort"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

// Registry is a read-only set of named profiles. It is populated by
// NewRegistry before any worker starts and never changes afterwards, so
// lookups need no locking.
type Registry struct {
	profiles    map[string]*Profile
	defaultName string
}

// NewRegistry always contains the built-in default profile; one extra profile
// may override it by using the same name. Two extra profiles with the same
// name are invalid calibration. defaultName selects the profile used when
// requests do not name one; empty means DefaultProfileName.
func NewRegistry(defaultName string, extra ...*Profile) (*Registry, error) {
	r := &Registry{
		profiles:    map[string]*Profile{DefaultProfileName: Default()},
		defaultName: defaultName,
	}
	if r.defaultName == "" {
		r.defaultName = DefaultProfileName
	}

	seen := make(map[string]bool, len(extra))
	for _, p := range extra {
		if p == nil {
			continue
		}
		if seen[p.Name()] {
			return nil, fmt.Errorf("%w: duplicate profile %q", domain.ErrInvalidCalibration, p.Name())
		}
		seen[p.Name()] = true
		r.profiles[p.Name()] = p
	}

	if _, ok := r.profiles[r.defaultName]; !ok {
		return nil, fmt.Errorf("%w: default profile %q", domain.ErrUnknownProfile, r.defaultName)
	}
	return r, nil
}

// NewRegistryFromFile loads extra profiles from a YAML file. An empty path
// yields the built-in profile only.
func NewRegistryFromFile(path, defaultName string) (*Registry, error) {
	if path == "" {
		return NewRegistry(defaultName)
	}
	profiles, err := LoadProfilesFile(path)
	if err != nil {
		return nil, err
	}
	return NewRegistry(defaultName, profiles...)
}

// Get returns the named profile; the empty name resolves to the default.
func (r *Registry) Get(name string) (*Profile, error) {
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProfile, name)
	}
	return p, nil
}

// Default returns the default profile.
func (r *Registry) Default() *Profile {
	return r.profiles[r.defaultName]
}

// DefaultName returns the name of the default profile.
func (r *Registry) DefaultName() string {
	return r.defaultName
}

// Names lists profile names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary is the presentation form of a profile.
type Summary struct {
	Name           string       `json:"name"`
	Default        bool         `json:"default"`
	Diagnosis      Diagnosis    `json:"diagnosis"`
	Symptoms       SymptomTable `json:"symptoms"`
	DefaultSymptom Pair         `json:"default_symptom"`
}

// Summaries describes every profile, sorted by name.
func (r *Registry) Summaries() []Summary {
	names := r.Names()
	out := make([]Summary, 0, len(names))
	for _, name := range names {
		p := r.profiles[name]
		out = append(out, Summary{
			Name:           name,
			Default:        name == r.defaultName,
			Diagnosis:      p.Diagnosis(),
			Symptoms:       p.Symptoms(),
			DefaultSymptom: p.DefaultSymptom(),
		})
	}
	return out
}
