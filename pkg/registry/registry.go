// Package registry maps declared step identifiers onto constructors.
//
// The tables are closed: every loader, tokenizer and transformation the
// pipeline can run is listed here at compile time. Each Resolve call
// constructs a new instance, so pipelines and workers never share steps.
package registry

import (
	"fmt"
	"sort"

	"github.com/wehubfusion/textprep/pkg/config"
	"github.com/wehubfusion/textprep/pkg/processors/loaders"
	"github.com/wehubfusion/textprep/pkg/processors/normalize"
	"github.com/wehubfusion/textprep/pkg/processors/tokenizer"
	"github.com/wehubfusion/textprep/pkg/step"
)

// TransformerCreator constructs a transformation step.
type TransformerCreator func(cfg config.StepConfig, deps step.Deps) (step.Transformer, error)

// LoaderCreator constructs a loader.
type LoaderCreator func(cfg config.LoaderConfig, deps step.Deps) (step.Loader, error)

// TokenizerCreator constructs a tokenizer.
type TokenizerCreator func(cfg config.TokenizerConfig, deps step.Deps) (step.Tokenizer, error)

type stepKey struct {
	name     string
	stepType string
}

var transformers = map[stepKey]TransformerCreator{
	{config.SectionSteps, config.StepLowercase}:          normalize.NewLowercase,
	{config.SectionSteps, config.StepRemoveDigits}:       normalize.NewRemoveDigits,
	{config.SectionSteps, config.StepRemovePunctuation}:  normalize.NewRemovePunctuation,
	{config.SectionSteps, config.StepRemoveStopwords}:    normalize.NewRemoveStopwords,
	{config.SectionSteps, config.StepRemoveWhitespace}:   normalize.NewRemoveWhitespace,
	{config.SectionSteps, config.StepExpandContractions}: normalize.NewExpandContractions,
	{config.SectionSteps, config.StepRemoveHTML}:         normalize.NewRemoveHTML,
	{config.SectionSteps, config.StepRemoveURLs}:         normalize.NewRemoveURLs,
	{config.SectionSteps, config.StepRemoveAccents}:      normalize.NewRemoveAccents,
	{config.SectionSteps, config.StepPorterStemmer}:      normalize.NewPorterStemmer,
	{config.SectionSteps, config.StepSnowballStemmer}:    normalize.NewSnowballStemmer,
	{config.SectionSteps, config.StepLemmatizer}:         normalize.NewLemmatizer,
	{config.SectionSteps, config.StepCustomNormalize}:    normalize.NewCustomNormalize,
	{config.SectionSteps, config.StepDebugger}:           normalize.NewDebugger,
}

var loaderCreators = map[string]LoaderCreator{
	config.LoaderList:       loaders.NewList,
	config.LoaderCSV:        loaders.NewCSV,
	config.LoaderSingleItem: loaders.NewSingleItem,
}

var tokenizerCreators = map[string]TokenizerCreator{
	config.TokenizerRegex:  tokenizer.NewRegex,
	config.TokenizerSpaces: tokenizer.NewSpaces,
	config.TokenizerWord:   tokenizer.NewWord,
}

// UnknownStepError is returned when no constructor exists for a step.
type UnknownStepError struct {
	Name string
	Type string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("no constructor registered for step %s/%s", e.Name, e.Type)
}

// Unwrap places UnknownStepError in the config error family.
func (e *UnknownStepError) Unwrap() error { return config.ErrUnknownStepType }

// Components are the instances one pipeline or one worker runs.
type Components struct {
	Loader    step.Loader
	Tokenizer step.Tokenizer
	Steps     []step.Transformer
}

// Registry resolves step configs into fresh instances.
type Registry struct {
	deps step.Deps
}

// New creates a registry that injects deps into every constructed step.
func New(deps step.Deps) *Registry {
	return &Registry{deps: deps.WithDefaults()}
}

// Resolve constructs a new transformation step. The registry's tokenizer, if
// any, is injected; use Build to share one tokenizer across a chain.
func (r *Registry) Resolve(cfg config.StepConfig) (step.Transformer, error) {
	return r.resolve(cfg, r.deps)
}

func (r *Registry) resolve(cfg config.StepConfig, deps step.Deps) (step.Transformer, error) {
	create, ok := transformers[stepKey{cfg.Name, cfg.Type}]
	if !ok {
		return nil, &UnknownStepError{Name: cfg.Name, Type: cfg.Type}
	}
	s, err := create(cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create step %s/%s: %w", cfg.Name, cfg.Type, err)
	}
	return s, nil
}

// ResolveLoader constructs a new loader.
func (r *Registry) ResolveLoader(cfg config.LoaderConfig) (step.Loader, error) {
	create, ok := loaderCreators[cfg.Type]
	if !ok {
		return nil, &UnknownStepError{Name: config.SectionLoader, Type: cfg.Type}
	}
	l, err := create(cfg, r.deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create loader %s: %w", cfg.Type, err)
	}
	return l, nil
}

// ResolveTokenizer constructs a new tokenizer.
func (r *Registry) ResolveTokenizer(cfg config.TokenizerConfig) (step.Tokenizer, error) {
	create, ok := tokenizerCreators[cfg.Type]
	if !ok {
		return nil, &UnknownStepError{Name: config.SectionTokenizer, Type: cfg.Type}
	}
	t, err := create(cfg, r.deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer %s: %w", cfg.Type, err)
	}
	return t, nil
}

// BuildChain constructs the tokenizer and the ordered transformation steps of
// cfg. The tokenizer is shared by the steps of this chain only.
func (r *Registry) BuildChain(cfg *config.PipelineConfig) (step.Tokenizer, []step.Transformer, error) {
	tok, err := r.ResolveTokenizer(cfg.Tokenizer())
	if err != nil {
		return nil, nil, err
	}
	deps := r.deps
	deps.Tokenizer = tok

	configs := cfg.Steps()
	steps := make([]step.Transformer, 0, len(configs))
	for i, sc := range configs {
		s, err := r.resolve(sc, deps)
		if err != nil {
			return nil, nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		steps = append(steps, s)
	}
	return tok, steps, nil
}

// Build constructs every component of cfg.
func (r *Registry) Build(cfg *config.PipelineConfig) (*Components, error) {
	l, err := r.ResolveLoader(cfg.Loader())
	if err != nil {
		return nil, err
	}
	tok, steps, err := r.BuildChain(cfg)
	if err != nil {
		return nil, err
	}
	return &Components{Loader: l, Tokenizer: tok, Steps: steps}, nil
}

// HasCreator reports whether a transformation step is registered.
func HasCreator(name, stepType string) bool {
	_, ok := transformers[stepKey{name, stepType}]
	return ok
}

// RegisteredTypes returns the registered transformation step types, sorted.
func RegisteredTypes() []string {
	types := make([]string, 0, len(transformers))
	for k := range transformers {
		types = append(types, k.stepType)
	}
	sort.Strings(types)
	return types
}
