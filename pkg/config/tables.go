package config

// Section names.
const (
	SectionLoader    = "data_loader"
	SectionTokenizer = "tokenizer"
	SectionSteps     = "normalize_text"
)

// Loader types.
const (
	LoaderList       = "list"
	LoaderCSV        = "csv"
	LoaderSingleItem = "single_item"
)

// Tokenizer types.
const (
	TokenizerRegex  = "regex"
	TokenizerSpaces = "spaces"
	TokenizerWord   = "word"
)

// Transformation step types.
const (
	StepLowercase          = "lowercase"
	StepRemoveDigits       = "remove_digits"
	StepRemovePunctuation  = "remove_punctuation"
	StepRemoveStopwords    = "remove_stopwords"
	StepRemoveWhitespace   = "remove_whitespace"
	StepExpandContractions = "expand_contractions"
	StepRemoveHTML         = "remove_html"
	StepRemoveURLs         = "remove_urls"
	StepRemoveAccents      = "remove_accents"
	StepPorterStemmer      = "porter_stemmer"
	StepSnowballStemmer    = "snowball_stemmer"
	StepLemmatizer         = "lemmatizer"
	StepCustomNormalize    = "custom_normalize"
	StepDebugger           = "debugger_step"
)

// Stop-word list options.
const (
	StopwordsShortList = "short_list"
	StopwordsLongList  = "long_list"
	StopwordsCustom    = "custom"
)

const (
	// DefaultBatchSize is used when the loader does not declare batch_size.
	DefaultBatchSize = 10

	// DefaultLogLevel is used when neither the section nor the caller sets a level.
	DefaultLogLevel = "info"

	// DefaultDelimiter separates fields of a csv loader source.
	DefaultDelimiter = ","
)

var loaderTypes = map[string]struct{}{
	LoaderList:       {},
	LoaderCSV:        {},
	LoaderSingleItem: {},
}

var tokenizerTypes = map[string]struct{}{
	TokenizerRegex:  {},
	TokenizerSpaces: {},
	TokenizerWord:   {},
}

// stepTypes lists the permitted step types per step name.
var stepTypes = map[string]map[string]struct{}{
	SectionSteps: {
		StepLowercase:          {},
		StepRemoveDigits:       {},
		StepRemovePunctuation:  {},
		StepRemoveStopwords:    {},
		StepRemoveWhitespace:   {},
		StepExpandContractions: {},
		StepRemoveHTML:         {},
		StepRemoveURLs:         {},
		StepRemoveAccents:      {},
		StepPorterStemmer:      {},
		StepSnowballStemmer:    {},
		StepLemmatizer:         {},
		StepCustomNormalize:    {},
		StepDebugger:           {},
	},
}

var stopwordLists = map[string]struct{}{
	StopwordsShortList: {},
	StopwordsLongList:  {},
	StopwordsCustom:    {},
}

// forbidsAfter maps a step type to the types that must not have run before it.
var forbidsAfter = map[string][]string{
	StepRemoveHTML: {StepRemovePunctuation, StepPorterStemmer, StepSnowballStemmer, StepLemmatizer},
	StepRemoveURLs: {StepRemovePunctuation},
}

// requiresBefore maps a step type to the types that must already have run.
var requiresBefore = map[string][]string{
	StepRemoveStopwords:    {StepLowercase},
	StepExpandContractions: {StepLowercase},
}

// tokenizedSteps are the step types that split text with the shared tokenizer.
var tokenizedSteps = map[string]struct{}{
	StepRemoveStopwords: {},
	StepPorterStemmer:   {},
	StepSnowballStemmer: {},
	StepLemmatizer:      {},
}

// UsesTokenizer reports whether stepType tokenizes with the shared tokenizer.
func UsesTokenizer(stepType string) bool {
	_, ok := tokenizedSteps[stepType]
	return ok
}

// ForbidsAfter returns the step types that must not precede stepType.
func ForbidsAfter(stepType string) []string {
	return append([]string(nil), forbidsAfter[stepType]...)
}

// RequiresBefore returns the step types that must precede stepType.
func RequiresBefore(stepType string) []string {
	return append([]string(nil), requiresBefore[stepType]...)
}

// IsStepType reports whether (name, stepType) is a known transformation step.
func IsStepType(name, stepType string) bool {
	types, ok := stepTypes[name]
	if !ok {
		return false
	}
	_, ok = types[stepType]
	return ok
}

// StepTypes returns every known transformation step type.
func StepTypes() []string {
	out := make([]string, 0, len(stepTypes[SectionSteps]))
	for t := range stepTypes[SectionSteps] {
		out = append(out, t)
	}
	return out
}
