package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wehubfusion/textprep/pkg/config"
	"github.com/wehubfusion/textprep/pkg/item"
	"github.com/wehubfusion/textprep/pkg/step"
)

// contractions maps lowercase contractions to their expansion.
var contractions = map[string]string{
	"ain't":      "am not",
	"aren't":     "are not",
	"can't":      "cannot",
	"can't've":   "cannot have",
	"could've":   "could have",
	"couldn't":   "could not",
	"didn't":     "did not",
	"doesn't":    "does not",
	"don't":      "do not",
	"hadn't":     "had not",
	"hasn't":     "has not",
	"haven't":    "have not",
	"he'd":       "he would",
	"he'll":      "he will",
	"he's":       "he is",
	"how'd":      "how did",
	"how'll":     "how will",
	"how's":      "how is",
	"i'd":        "i would",
	"i'll":       "i will",
	"i'm":        "i am",
	"i've":       "i have",
	"isn't":      "is not",
	"it'd":       "it would",
	"it'll":      "it will",
	"it's":       "it is",
	"let's":      "let us",
	"ma'am":      "madam",
	"mightn't":   "might not",
	"might've":   "might have",
	"mustn't":    "must not",
	"must've":    "must have",
	"needn't":    "need not",
	"o'clock":    "of the clock",
	"shan't":     "shall not",
	"she'd":      "she would",
	"she'll":     "she will",
	"she's":      "she is",
	"should've":  "should have",
	"shouldn't":  "should not",
	"that'd":     "that would",
	"that's":     "that is",
	"there'd":    "there would",
	"there's":    "there is",
	"they'd":     "they would",
	"they'll":    "they will",
	"they're":    "they are",
	"they've":    "they have",
	"wasn't":     "was not",
	"we'd":       "we would",
	"we'll":      "we will",
	"we're":      "we are",
	"we've":      "we have",
	"weren't":    "were not",
	"what'll":    "what will",
	"what're":    "what are",
	"what's":     "what is",
	"what've":    "what have",
	"when's":     "when is",
	"where'd":    "where did",
	"where's":    "where is",
	"who'd":      "who would",
	"who'll":     "who will",
	"who's":      "who is",
	"who've":     "who have",
	"why's":      "why is",
	"won't":      "will not",
	"would've":   "would have",
	"wouldn't":   "would not",
	"y'all":      "you all",
	"you'd":      "you would",
	"you'll":     "you will",
	"you're":     "you are",
	"you've":     "you have",
}

// ExpandContractions replaces contractions such as "isn't" with their long
// form. Words are split on whitespace; punctuation around a word is kept.
type ExpandContractions struct {
	step.BaseStep
}

// NewExpandContractions creates the expand_contractions step.
func NewExpandContractions(cfg config.StepConfig, deps step.Deps) (step.Transformer, error) {
	return &ExpandContractions{BaseStep: step.NewBaseStep(cfg, deps)}, nil
}

// Process implements step.Transformer.
func (s *ExpandContractions) Process(it *item.Item) *item.Item {
	var data interface{}
	switch v := it.Data.(type) {
	case string:
		words := strings.Fields(v)
		for i, w := range words {
			words[i] = expandWord(w)
		}
		data = strings.Join(words, " ")
	default:
		var err error
		data, err = step.MapText(it, func(tok string) (string, error) {
			return expandWord(tok), nil
		})
		if err != nil {
			return s.Fail(it, err)
		}
	}
	it.Data = data
	return it
}

// expandWord expands word when its core, stripped of surrounding
// punctuation, is a known contraction.
func expandWord(word string) string {
	start := strings.IndexFunc(word, isWordRune)
	if start < 0 {
		return word
	}
	last := strings.LastIndexFunc(word, isWordRune)
	_, size := utf8.DecodeRuneInString(word[last:])
	end := last + size

	key := strings.ReplaceAll(word[start:end], "’", "'")
	expanded, ok := contractions[key]
	if !ok {
		return word
	}
	return word[:start] + expanded + word[end:]
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
