// Package tokenizer provides the tokenizers shared by word-level steps.
package tokenizer

import (
	"regexp"
	"strings"

	"github.com/wehubfusion/textprep/pkg/config"
	"github.com/wehubfusion/textprep/pkg/step"
)

var (
	// gapPattern separates tokens for the canonical regex tokenizer.
	gapPattern = regexp.MustCompile(`\s+`)

	// wordPattern matches words (keeping inner apostrophes) and single
	// punctuation marks.
	wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+(?:['’][\p{L}]+)*|[^\p{L}\p{N}_\s]`)
)

// Regex splits text on runs of whitespace.
type Regex struct {
	step.BaseStep
}

// NewRegex creates the canonical regex tokenizer.
func NewRegex(cfg config.TokenizerConfig, deps step.Deps) (step.Tokenizer, error) {
	return &Regex{BaseStep: step.NewNamedBase(config.SectionTokenizer, config.TokenizerRegex, cfg.LogLevel, deps)}, nil
}

// Tokenize implements step.Tokenizer.
func (t *Regex) Tokenize(text string) []string {
	parts := gapPattern.Split(text, -1)
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// Spaces splits text on single space characters, keeping empty tokens
// between repeated spaces so the text can be rebuilt exactly.
type Spaces struct {
	step.BaseStep
}

// NewSpaces creates a single-space tokenizer.
func NewSpaces(cfg config.TokenizerConfig, deps step.Deps) (step.Tokenizer, error) {
	return &Spaces{BaseStep: step.NewNamedBase(config.SectionTokenizer, config.TokenizerSpaces, cfg.LogLevel, deps)}, nil
}

// Tokenize implements step.Tokenizer.
func (t *Spaces) Tokenize(text string) []string {
	if text == "" {
		return []string{}
	}
	return strings.Split(text, " ")
}

// Word separates words from punctuation: "don't stop!" becomes
// ["don't", "stop", "!"].
type Word struct {
	step.BaseStep
}

// NewWord creates a word tokenizer.
func NewWord(cfg config.TokenizerConfig, deps step.Deps) (step.Tokenizer, error) {
	return &Word{BaseStep: step.NewNamedBase(config.SectionTokenizer, config.TokenizerWord, cfg.LogLevel, deps)}, nil
}

// Tokenize implements step.Tokenizer.
func (t *Word) Tokenize(text string) []string {
	tokens := wordPattern.FindAllString(text, -1)
	if tokens == nil {
		return []string{}
	}
	return tokens
}

var (
	_ step.Tokenizer = (*Regex)(nil)
	_ step.Tokenizer = (*Spaces)(nil)
	_ step.Tokenizer = (*Word)(nil)
)
