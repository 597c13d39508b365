package normalize

import (
	"github.com/wehubfusion/textprep/pkg/config"
	"github.com/wehubfusion/textprep/pkg/item"
	"github.com/wehubfusion/textprep/pkg/step"
)

var shortStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "if", "in",
	"into", "is", "it", "no", "not", "of", "on", "or", "such", "that", "the",
	"their", "then", "there", "these", "they", "this", "to", "was", "will",
	"with",
}

var longStopwords = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you",
	"you're", "you've", "you'll", "you'd", "your", "yours", "yourself",
	"yourselves", "he", "him", "his", "himself", "she", "she's", "her", "hers",
	"herself", "it", "it's", "its", "itself", "they", "them", "their", "theirs",
	"themselves", "what", "which", "who", "whom", "this", "that", "that'll",
	"these", "those", "am", "is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "having", "do", "does", "did", "doing", "a", "an",
	"the", "and", "but", "if", "or", "because", "as", "until", "while", "of",
	"at", "by", "for", "with", "about", "against", "between", "into",
	"through", "during", "before", "after", "above", "below", "to", "from",
	"up", "down", "in", "out", "on", "off", "over", "under", "again",
	"further", "then", "once", "here", "there", "when", "where", "why", "how",
	"all", "any", "both", "each", "few", "more", "most", "other", "some",
	"such", "no", "nor", "not", "only", "own", "same", "so", "than", "too",
	"very", "s", "t", "can", "will", "just", "don", "don't", "should",
	"should've", "now", "d", "ll", "m", "o", "re", "ve", "y", "ain", "aren",
	"aren't", "couldn", "couldn't", "didn", "didn't", "doesn", "doesn't",
	"hadn", "hadn't", "hasn", "hasn't", "haven", "haven't", "isn", "isn't",
	"ma", "mightn", "mightn't", "mustn", "mustn't", "needn", "needn't", "shan",
	"shan't", "shouldn", "shouldn't", "wasn", "wasn't", "weren", "weren't",
	"won", "won't", "wouldn", "wouldn't",
}

// RemoveStopwords drops stop words. Matching is exact, which is why the
// step requires lowercase to run first.
type RemoveStopwords struct {
	step.BaseStep
	tokenizer step.Tokenizer
	list      string
	words     map[string]struct{}
}

// NewRemoveStopwords creates the remove_stopwords step from its list option.
func NewRemoveStopwords(cfg config.StepConfig, deps step.Deps) (step.Transformer, error) {
	s := &RemoveStopwords{
		BaseStep:  step.NewBaseStep(cfg, deps),
		tokenizer: deps.Tokenizer,
	}
	s.list = s.GetOptionStringWithDefault("list", config.StopwordsShortList)

	var source []string
	switch s.list {
	case config.StopwordsShortList:
		source = shortStopwords
	case config.StopwordsLongList:
		source = longStopwords
	case config.StopwordsCustom:
		custom, err := s.GetOptionStringSlice("words")
		if err != nil {
			return nil, err
		}
		if len(custom) == 0 {
			return nil, step.NewConstructionError(cfg.Type, "the custom list requires a non-empty words option")
		}
		source = custom
	default:
		return nil, step.NewConstructionError(cfg.Type, "unknown stop-word list %q", s.list)
	}

	s.words = make(map[string]struct{}, len(source))
	for _, w := range source {
		s.words[w] = struct{}{}
	}
	return s, nil
}

// Process implements step.Transformer.
func (s *RemoveStopwords) Process(it *item.Item) *item.Item {
	data, err := step.MapTokens(it, s.tokenizer, func(tokens []string) []string {
		kept := tokens[:0]
		for _, tok := range tokens {
			if _, stop := s.words[tok]; !stop {
				kept = append(kept, tok)
			}
		}
		return kept
	})
	if err != nil {
		return s.Fail(it, err)
	}
	it.Data = data
	return it
}
