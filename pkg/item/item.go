// Package item defines the canonical record that flows through a textprep pipeline.
package item

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ErrMalformedItem is returned when a raw record cannot be shaped into an Item.
// Loaders log and skip such records; it never aborts a run.
var ErrMalformedItem = errors.New("malformed item")

// idNamespace scopes content-hash ids so they never collide with ids derived
// by other uuid v5 producers.
var idNamespace = uuid.MustParse("6f1c1d4e-3b57-4a1f-9a0b-2f4de5f6a7c1")

// Item is the unit flowing through the pipeline.
//
// ID never changes once set. Data starts as raw text and is rewritten by
// each step; tokenizing steps may leave a []string in it.
type Item struct {
	ID             string                 `json:"id"`
	Data           interface{}            `json:"data"`
	Tags           map[string]interface{} `json:"tags"`
	OriginalData   *string                `json:"original_data,omitempty"`
	AdditionalKeys map[string]interface{} `json:"additional_keys,omitempty"`
}

// buildOptions controls optional parts of the item shape.
type buildOptions struct {
	additionalKeys   []string
	preserveOriginal bool
}

// BuildOption customises Build.
type BuildOption func(*buildOptions)

// WithAdditionalKeys copies the named record fields into AdditionalKeys.
func WithAdditionalKeys(names ...string) BuildOption {
	return func(o *buildOptions) {
		o.additionalKeys = append(o.additionalKeys, names...)
	}
}

// WithPreserveOriginal keeps a snapshot of the initial text in OriginalData.
func WithPreserveOriginal(preserve bool) BuildOption {
	return func(o *buildOptions) {
		o.preserveOriginal = preserve
	}
}

// Build shapes raw input into an Item.
//
// raw is either a bare scalar (wrapped as the item data) or a record
// (map[string]interface{} or map[string]string) holding at least a "data"
// field. Anything else yields ErrMalformedItem.
func Build(raw interface{}, opts ...BuildOption) (*Item, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	var record map[string]interface{}
	switch v := raw.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil input", ErrMalformedItem)
	case map[string]interface{}:
		record = v
	case map[string]string:
		record = make(map[string]interface{}, len(v))
		for k, s := range v {
			record[k] = s
		}
	default:
		text, ok := scalarText(v)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported input type %T", ErrMalformedItem, raw)
		}
		record = map[string]interface{}{"data": text}
	}

	data, ok := record["data"]
	if !ok || data == nil {
		return nil, fmt.Errorf("%w: record has no data field", ErrMalformedItem)
	}
	text, ok := scalarText(data)
	if !ok {
		return nil, fmt.Errorf("%w: data field has unsupported type %T", ErrMalformedItem, data)
	}

	it := &Item{
		Data: text,
		Tags: make(map[string]interface{}),
	}

	if id, ok := record["id"]; ok && id != nil {
		idText, ok := scalarText(id)
		if !ok {
			return nil, fmt.Errorf("%w: id field has unsupported type %T", ErrMalformedItem, id)
		}
		it.ID = idText
	}
	if it.ID == "" {
		it.ID = DeriveID(text)
	}

	if o.preserveOriginal {
		original := text
		it.OriginalData = &original
	}

	if len(o.additionalKeys) > 0 {
		it.AdditionalKeys = make(map[string]interface{}, len(o.additionalKeys))
		for _, name := range o.additionalKeys {
			if v, ok := record[name]; ok {
				it.AdditionalKeys[name] = v
			}
		}
	}

	return it, nil
}

// DeriveID returns the deterministic id for text: a name-based (SHA-1) UUID.
func DeriveID(text string) string {
	return uuid.NewSHA1(idNamespace, []byte(text)).String()
}

// IsEmpty reports whether the item has no data left to transform.
func (it *Item) IsEmpty() bool {
	if it == nil {
		return true
	}
	switch v := it.Data.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []string:
		return len(v) == 0
	}
	return false
}

// Text returns the data as a string, joining tokens with a single space.
func (it *Item) Text() (string, bool) {
	switch v := it.Data.(type) {
	case string:
		return v, true
	case []string:
		return strings.Join(v, " "), true
	}
	return "", false
}

// Clone returns a deep copy of the item's mutable parts.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	c := &Item{
		ID:           it.ID,
		Data:         it.Data,
		OriginalData: it.OriginalData,
	}
	if tokens, ok := it.Data.([]string); ok {
		c.Data = append([]string(nil), tokens...)
	}
	if it.Tags != nil {
		c.Tags = make(map[string]interface{}, len(it.Tags))
		for k, v := range it.Tags {
			c.Tags[k] = v
		}
	}
	if it.AdditionalKeys != nil {
		c.AdditionalKeys = make(map[string]interface{}, len(it.AdditionalKeys))
		for k, v := range it.AdditionalKeys {
			c.AdditionalKeys[k] = v
		}
	}
	return c
}

func scalarText(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	case fmt.Stringer:
		return s.String(), true
	}
	return "", false
}
