package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/wehubfusion/textprep/pkg/item"
)

// JSONLines writes one JSON object per item.
type JSONLines struct {
	mu  sync.Mutex
	w   io.Writer
	enc *json.Encoder
}

// NewJSONLines creates a sink writing to w. Closing it does not close w.
func NewJSONLines(w io.Writer) *JSONLines {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLines{w: w, enc: enc}
}

func (s *JSONLines) Write(ctx context.Context, batch []*item.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.enc.Encode(it); err != nil {
			return fmt.Errorf("failed to encode item %s: %w", it.ID, err)
		}
	}
	return nil
}

func (s *JSONLines) Close(context.Context) error {
	return nil
}
