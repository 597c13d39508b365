package step

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wehubfusion/textprep/pkg/item"
)

// ErrUnsupportedData is returned when item data is neither text nor tokens.
var ErrUnsupportedData = errors.New("unsupported item data")

// MapText applies fn to the item's data and returns the new value without
// touching the item. Text is rewritten whole; tokens are rewritten one by
// one and tokens that become empty are dropped.
func MapText(it *item.Item, fn func(string) (string, error)) (interface{}, error) {
	switch data := it.Data.(type) {
	case string:
		return fn(data)
	case []string:
		out := make([]string, 0, len(data))
		for _, tok := range data {
			mapped, err := fn(tok)
			if err != nil {
				return nil, err
			}
			if mapped != "" {
				out = append(out, mapped)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedData, it.Data)
}

// MapTokens applies fn to the item's tokens and returns the new value.
// Text data is tokenized first and the result joined back with single
// spaces; token data stays a token list.
func MapTokens(it *item.Item, tok Tokenizer, fn func([]string) []string) (interface{}, error) {
	switch data := it.Data.(type) {
	case string:
		if tok == nil {
			return strings.Join(fn(strings.Fields(data)), " "), nil
		}
		return strings.Join(fn(tok.Tokenize(data)), " "), nil
	case []string:
		return fn(append([]string(nil), data...)), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedData, it.Data)
}
