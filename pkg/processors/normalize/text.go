// Package normalize implements the normalize_text transformation steps.
//
// Every constructor takes a validated step config and the injected step
// dependencies and returns a fresh instance. Instances are not safe for
// concurrent use; each pipeline or worker owns its own.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/wehubfusion/textprep/pkg/config"
	"github.com/wehubfusion/textprep/pkg/item"
	"github.com/wehubfusion/textprep/pkg/step"
)

const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// textStep applies a string rewrite to item data.
type textStep struct {
	step.BaseStep
	rewrite func(string) (string, error)
}

// Process implements step.Transformer.
func (s *textStep) Process(it *item.Item) *item.Item {
	data, err := step.MapText(it, s.rewrite)
	if err != nil {
		return s.Fail(it, err)
	}
	it.Data = data
	return it
}

// NewLowercase creates the lowercase step. Case mapping follows Unicode
// rules, not ASCII ones.
func NewLowercase(cfg config.StepConfig, deps step.Deps) (step.Transformer, error) {
	caser := cases.Lower(language.Und)
	s := &textStep{BaseStep: step.NewBaseStep(cfg, deps)}
	s.rewrite = func(text string) (string, error) {
		return caser.String(text), nil
	}
	return s, nil
}

// NewRemoveDigits creates the remove_digits step.
func NewRemoveDigits(cfg config.StepConfig, deps step.Deps) (step.Transformer, error) {
	s := &textStep{BaseStep: step.NewBaseStep(cfg, deps)}
	s.rewrite = func(text string) (string, error) {
		return strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return -1
			}
			return r
		}, text), nil
	}
	return s, nil
}

// NewRemovePunctuation creates the remove_punctuation step. Only ASCII
// punctuation is removed.
func NewRemovePunctuation(cfg config.StepConfig, deps step.Deps) (step.Transformer, error) {
	s := &textStep{BaseStep: step.NewBaseStep(cfg, deps)}
	s.rewrite = func(text string) (string, error) {
		return strings.Map(func(r rune) rune {
			if r < unicode.MaxASCII && strings.ContainsRune(asciiPunctuation, r) {
				return -1
			}
			return r
		}, text), nil
	}
	return s, nil
}

// NewRemoveWhitespace creates the remove_whitespace step: leading and
// trailing whitespace is trimmed and inner runs collapse to one space.
func NewRemoveWhitespace(cfg config.StepConfig, deps step.Deps) (step.Transformer, error) {
	s := &textStep{BaseStep: step.NewBaseStep(cfg, deps)}
	s.rewrite = func(text string) (string, error) {
		return strings.Join(strings.Fields(text), " "), nil
	}
	return s, nil
}

// NewRemoveAccents creates the remove_accents step, which drops combining
// marks after canonical decomposition: "café" becomes "cafe".
func NewRemoveAccents(cfg config.StepConfig, deps step.Deps) (step.Transformer, error) {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s := &textStep{BaseStep: step.NewBaseStep(cfg, deps)}
	s.rewrite = func(text string) (string, error) {
		out, _, err := transform.String(t, text)
		if err != nil {
			return "", err
		}
		return out, nil
	}
	return s, nil
}
