// Package symptoms extracts symptom evidence from free-text clinical reports.
package symptoms

import (
	"context"
	"regexp"
	"strings"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

// DefaultSynonyms maps common clinical phrasings onto vocabulary entries.
var DefaultSynonyms = map[string]string{
	"dyspnea":        domain.SymptomShortnessOfBreath,
	"dyspnoea":       domain.SymptomShortnessOfBreath,
	"breathlessness": domain.SymptomShortnessOfBreath,
	"pyrexia":        domain.SymptomFever,
	"febrile":        domain.SymptomFever,
	"tachypnea":      domain.SymptomRapidBreathing,
	"tachypnoea":     domain.SymptomRapidBreathing,
	"pleuritic pain": domain.SymptomChestPain,
	"tiredness":      domain.SymptomFatigue,
	"lethargy":       domain.SymptomFatigue,
}

// ExtractorConfig configures a KeywordExtractor.
type ExtractorConfig struct {
	// Vocabulary is matched verbatim. Empty means domain.SymptomVocabulary.
	Vocabulary []string
	// Synonyms maps extra phrases to a symptom identifier. Nil disables them.
	Synonyms map[string]string
}

// KeywordExtractor finds symptoms by case-insensitive match anchored at the
// start of a word, so "coughing" counts as cough but "afebrile" is not fever.
type KeywordExtractor struct {
	vocabulary []string
	patterns   []termPattern
}

type termPattern struct {
	id string
	re *regexp.Regexp
}

func compileTerm(term string) *regexp.Regexp {
	words := strings.Fields(term)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`\b` + strings.Join(words, `\s+`))
}

// NewKeywordExtractor creates an extractor.
func NewKeywordExtractor(config ExtractorConfig) *KeywordExtractor {
	vocabulary := config.Vocabulary
	if len(vocabulary) == 0 {
		vocabulary = domain.SymptomVocabulary
	}

	e := &KeywordExtractor{
		vocabulary: make([]string, 0, len(vocabulary)),
	}
	for _, term := range vocabulary {
		if term = domain.NormalizeSymptom(term); term != "" {
			e.vocabulary = append(e.vocabulary, term)
			e.patterns = append(e.patterns, termPattern{id: term, re: compileTerm(term)})
		}
	}
	for phrase, id := range config.Synonyms {
		phrase, id = domain.NormalizeSymptom(phrase), domain.NormalizeSymptom(id)
		if phrase != "" && id != "" {
			e.patterns = append(e.patterns, termPattern{id: id, re: compileTerm(phrase)})
		}
	}
	return e
}

// Extract returns every vocabulary symptom mentioned in the text. An empty
// report yields empty evidence.
func (e *KeywordExtractor) Extract(ctx context.Context, reportText string) (domain.SymptomEvidence, error) {
	if err := ctx.Err(); err != nil {
		return domain.SymptomEvidence{}, err
	}

	text := strings.ToLower(reportText)
	var found []string
	for _, p := range e.patterns {
		if p.re.MatchString(text) {
			found = append(found, p.id)
		}
	}
	return domain.NewSymptomEvidence(found...), nil
}

// Vocabulary returns the matched terms.
func (e *KeywordExtractor) Vocabulary() []string {
	return append([]string(nil), e.vocabulary...)
}
