package normalize

import (
	"errors"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wehubfusion/textprep/pkg/config"
	"github.com/wehubfusion/textprep/pkg/item"
	"github.com/wehubfusion/textprep/pkg/step"
)

// RemoveHTML keeps only the text content of markup. Entities are decoded and
// the content of script and style elements is dropped.
type RemoveHTML struct {
	step.BaseStep
}

// NewRemoveHTML creates the remove_html step.
func NewRemoveHTML(cfg config.StepConfig, deps step.Deps) (step.Transformer, error) {
	return &RemoveHTML{BaseStep: step.NewBaseStep(cfg, deps)}, nil
}

// Process implements step.Transformer.
func (s *RemoveHTML) Process(it *item.Item) *item.Item {
	data, err := step.MapText(it, stripHTML)
	if err != nil {
		return s.Fail(it, err)
	}
	it.Data = data
	return it
}

func stripHTML(markup string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(markup))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return "", err
			}
			return strings.TrimSpace(b.String()), nil
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken:
			if isRawText(z) {
				skip++
			}
		case html.EndTagToken:
			if isRawText(z) && skip > 0 {
				skip--
			}
		}
	}
}

func isRawText(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch atom.Lookup(name) {
	case atom.Script, atom.Style:
		return true
	}
	return false
}

// urlPattern matches bare domains and http(s) URLs with an optional path.
var urlPattern = regexp.MustCompile(`(?is)(?:(?:http|https)://)?([-a-zA-Z0-9.]{2,256}\.[a-z]{2,4})\b(?:/[-a-zA-Z0-9@:%_+.~#?&/=]*)?`)

// RemoveURLs deletes URLs from text. With save_urls the removed URLs are
// appended to the item's "urls" tag.
type RemoveURLs struct {
	step.BaseStep
	saveURLs bool
}

// NewRemoveURLs creates the remove_urls step. save_urls accepts a bool or
// the strings "yes" and "no".
func NewRemoveURLs(cfg config.StepConfig, deps step.Deps) (step.Transformer, error) {
	s := &RemoveURLs{BaseStep: step.NewBaseStep(cfg, deps)}
	switch v := s.GetOption("save_urls").(type) {
	case nil:
	case bool:
		s.saveURLs = v
	case string:
		switch strings.ToLower(v) {
		case "yes", "true":
			s.saveURLs = true
		case "no", "false", "":
		default:
			return nil, step.NewConstructionError(cfg.Type, "save_urls must be yes or no, got %q", v)
		}
	default:
		return nil, step.NewConstructionError(cfg.Type, "save_urls must be a bool, got %T", v)
	}
	return s, nil
}

// Process implements step.Transformer.
func (s *RemoveURLs) Process(it *item.Item) *item.Item {
	var found []string
	data, err := step.MapText(it, func(text string) (string, error) {
		if s.saveURLs {
			found = append(found, urlPattern.FindAllString(text, -1)...)
		}
		return urlPattern.ReplaceAllString(text, ""), nil
	})
	if err != nil {
		return s.Fail(it, err)
	}

	it.Data = data
	if s.saveURLs {
		if it.Tags == nil {
			it.Tags = make(map[string]interface{})
		}
		urls, _ := it.Tags["urls"].([]string)
		it.Tags["urls"] = append(append([]string{}, urls...), found...)
	}
	return it
}
