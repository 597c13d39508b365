package normalize

import (
	"strings"

	"github.com/wehubfusion/textprep/pkg/config"
	"github.com/wehubfusion/textprep/pkg/item"
	"github.com/wehubfusion/textprep/pkg/step"
)

// irregularNouns maps irregular English plurals to their singular.
var irregularNouns = map[string]string{
	"children": "child",
	"feet":     "foot",
	"geese":    "goose",
	"men":      "man",
	"women":    "woman",
	"mice":     "mouse",
	"teeth":    "tooth",
	"people":   "person",
	"oxen":     "ox",
	"dice":     "die",
	"lives":    "life",
	"knives":   "knife",
	"wives":    "wife",
	"leaves":   "leaf",
	"wolves":   "wolf",
	"halves":   "half",
	"shelves":  "shelf",
	"thieves":  "thief",
	"loaves":   "loaf",
	"calves":   "calf",
	"criteria": "criterion",
	"data":     "datum",
	"analyses": "analysis",
	"theses":   "thesis",
	"crises":   "crisis",
}

// uninflected words end in s but are not plurals.
var uninflected = map[string]struct{}{
	"news": {}, "series": {}, "species": {}, "means": {}, "physics": {},
	"mathematics": {}, "always": {}, "perhaps": {}, "does": {}, "has": {},
	"was": {}, "is": {}, "his": {}, "this": {}, "thus": {}, "us": {}, "yes": {},
	"its": {}, "as": {},
}

// Lemmatizer reduces plural nouns to their dictionary form: "cities"
// becomes "city". Tokens it does not recognise as plurals are unchanged.
type Lemmatizer struct {
	step.BaseStep
	tokenizer step.Tokenizer
}

// NewLemmatizer creates the lemmatizer step.
func NewLemmatizer(cfg config.StepConfig, deps step.Deps) (step.Transformer, error) {
	return &Lemmatizer{BaseStep: step.NewBaseStep(cfg, deps), tokenizer: deps.Tokenizer}, nil
}

// Process implements step.Transformer.
func (s *Lemmatizer) Process(it *item.Item) *item.Item {
	data, err := step.MapTokens(it, s.tokenizer, func(tokens []string) []string {
		for i, tok := range tokens {
			tokens[i] = lemma(tok)
		}
		return tokens
	})
	if err != nil {
		return s.Fail(it, err)
	}
	it.Data = data
	return it
}

func lemma(word string) string {
	lower := strings.ToLower(word)
	if _, ok := uninflected[lower]; ok {
		return word
	}
	if singular, ok := irregularNouns[lower]; ok {
		if lower == word {
			return singular
		}
		return word
	}
	n := len(lower)
	switch {
	case n > 4 && strings.HasSuffix(lower, "ies"):
		return word[:n-3] + "y"
	case n > 4 && hasAnySuffix(lower, "sses", "shes", "ches", "xes", "zes"):
		return word[:n-2]
	case n > 3 && strings.HasSuffix(lower, "s") && !hasAnySuffix(lower, "ss", "us", "is"):
		return word[:n-1]
	}
	return word
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
