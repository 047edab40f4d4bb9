package domain

import (
	"reflect"
	"testing"
)

func TestNewSymptomEvidence(t *testing.T) {
	s := NewSymptomEvidence("Fever", " cough ", "fever", "", "COUGH", "hiccups")

	if s.Len() != 3 {
		t.Fatalf("expected 3 distinct symptoms, got %d (%v)", s.Len(), s)
	}

	want := []string{"cough", "fever", "hiccups"}
	if got := s.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}

	if !s.Contains("FEVER") {
		t.Error("Contains should normalise its argument")
	}
	if s.Contains("nausea") {
		t.Error("nausea is not in the set")
	}

	if got := s.Unknown(); !reflect.DeepEqual(got, []string{"hiccups"}) {
		t.Errorf("Unknown() = %v", got)
	}
}

func TestSymptomEvidence_OrderIrrelevant(t *testing.T) {
	a := NewSymptomEvidence("chest pain", "fever", "cough")
	b := NewSymptomEvidence("cough", "chest pain", "fever", "cough")

	if a.Key() != b.Key() {
		t.Errorf("keys differ: %q vs %q", a.Key(), b.Key())
	}
}

func TestSymptomEvidence_Immutable(t *testing.T) {
	s := NewSymptomEvidence("cough", "fever")
	list := s.List()
	list[0] = "mutated"

	if !s.Contains("cough") {
		t.Error("mutating List() result must not change the set")
	}
}

func TestSymptomEvidence_ZeroValue(t *testing.T) {
	var s SymptomEvidence
	if !s.Empty() || s.Len() != 0 {
		t.Error("zero value should be the empty set")
	}
	if s.String() != "[]" {
		t.Errorf("String() = %q", s.String())
	}
}

func TestSymptomVocabulary(t *testing.T) {
	if len(SymptomVocabulary) != 8 {
		t.Fatalf("expected 8 vocabulary entries, got %d", len(SymptomVocabulary))
	}
	for _, id := range SymptomVocabulary {
		if !IsKnownSymptom(id) {
			t.Errorf("%q should be known", id)
		}
		if NormalizeSymptom(id) != id {
			t.Errorf("%q is not in normal form", id)
		}
	}
}
