package normalize

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"

	"github.com/wehubfusion/textprep/pkg/config"
	"github.com/wehubfusion/textprep/pkg/item"
	"github.com/wehubfusion/textprep/pkg/step"
)

const defaultStemLanguage = "english"

// Stemmer reduces each token to its Snowball stem. porter_stemmer is the
// English stemmer; snowball_stemmer takes a language option.
type Stemmer struct {
	step.BaseStep
	tokenizer step.Tokenizer
	language  string
}

// NewPorterStemmer creates the porter_stemmer step.
func NewPorterStemmer(cfg config.StepConfig, deps step.Deps) (step.Transformer, error) {
	return newStemmer(cfg, deps, defaultStemLanguage)
}

// NewSnowballStemmer creates the snowball_stemmer step. The language option
// defaults to english; an unsupported language fails construction.
func NewSnowballStemmer(cfg config.StepConfig, deps step.Deps) (step.Transformer, error) {
	s := step.NewBaseStep(cfg, deps)
	language := strings.ToLower(s.GetOptionStringWithDefault("language", defaultStemLanguage))
	if language == "porter" {
		language = defaultStemLanguage
	}
	return newStemmer(cfg, deps, language)
}

func newStemmer(cfg config.StepConfig, deps step.Deps, language string) (*Stemmer, error) {
	// The stemmer rejects unknown languages on every call; probe once here
	// so the error surfaces at construction.
	if _, err := snowball.Stem("probe", language, true); err != nil {
		return nil, step.NewConstructionError(cfg.Type, "unsupported language %q: %v", language, err)
	}
	return &Stemmer{
		BaseStep:  step.NewBaseStep(cfg, deps),
		tokenizer: deps.Tokenizer,
		language:  language,
	}, nil
}

// Language returns the stemming language.
func (s *Stemmer) Language() string {
	return s.language
}

// Process implements step.Transformer.
func (s *Stemmer) Process(it *item.Item) *item.Item {
	var stemErr error
	data, err := step.MapTokens(it, s.tokenizer, func(tokens []string) []string {
		for i, tok := range tokens {
			if !strings.ContainsFunc(tok, unicode.IsLetter) {
				continue
			}
			stemmed, err := snowball.Stem(tok, s.language, true)
			if err != nil {
				stemErr = err
				return tokens
			}
			tokens[i] = stemmed
		}
		return tokens
	})
	if err == nil {
		err = stemErr
	}
	if err != nil {
		return s.Fail(it, err)
	}
	it.Data = data
	return it
}
