package domain

import (
	"sort"
	"strings"
)

// Known symptom identifiers. Extraction collaborators emit these lower-cased.
const (
	SymptomCough             = "cough"
	SymptomFever             = "fever"
	SymptomShortnessOfBreath = "shortness of breath"
	SymptomChestPain         = "chest pain"
	SymptomFatigue           = "fatigue"
	SymptomRapidBreathing    = "rapid breathing"
	SymptomNausea            = "nausea"
	SymptomHeadache          = "headache"
)

// SymptomVocabulary is the fixed vocabulary recognised by the extractor, in
// the order reports list them.
var SymptomVocabulary = []string{
	SymptomCough,
	SymptomFever,
	SymptomShortnessOfBreath,
	SymptomChestPain,
	SymptomFatigue,
	SymptomRapidBreathing,
	SymptomNausea,
	SymptomHeadache,
}

// IsKnownSymptom reports whether id belongs to SymptomVocabulary.
func IsKnownSymptom(id string) bool {
	for _, s := range SymptomVocabulary {
		if s == id {
			return true
		}
	}
	return false
}

// NormalizeSymptom lower-cases and trims a symptom identifier.
func NormalizeSymptom(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// SymptomEvidence is an immutable set of symptom identifiers. The zero value
// is the empty set, meaning "no symptoms detected or no source report".
type SymptomEvidence struct {
	ids []string // sorted, unique
}

// NewSymptomEvidence builds a set from raw identifiers. Identifiers are
// normalised, empties are dropped and duplicates collapse. Unknown
// identifiers are kept; they fall back to the default calibration pair.
func NewSymptomEvidence(ids ...string) SymptomEvidence {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := NormalizeSymptom(raw)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return SymptomEvidence{ids: out}
}

// Len returns the number of distinct symptoms.
func (s SymptomEvidence) Len() int {
	return len(s.ids)
}

// Empty reports whether no symptom is present.
func (s SymptomEvidence) Empty() bool {
	return len(s.ids) == 0
}

// Contains reports whether the (normalised) identifier is in the set.
func (s SymptomEvidence) Contains(id string) bool {
	id = NormalizeSymptom(id)
	i := sort.SearchStrings(s.ids, id)
	return i < len(s.ids) && s.ids[i] == id
}

// List returns a sorted copy of the identifiers.
func (s SymptomEvidence) List() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Unknown returns the identifiers outside SymptomVocabulary.
func (s SymptomEvidence) Unknown() []string {
	var out []string
	for _, id := range s.ids {
		if !IsKnownSymptom(id) {
			out = append(out, id)
		}
	}
	return out
}

// Key returns a stable string form of the set, suitable for cache keys.
func (s SymptomEvidence) Key() string {
	return strings.Join(s.ids, "|")
}

// String implements fmt.Stringer.
func (s SymptomEvidence) String() string {
	return "[" + strings.Join(s.ids, ", ") + "]"
}
