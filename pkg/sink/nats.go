package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/wehubfusion/textprep/pkg/item"
)

// Headers set on every published batch.
const (
	HeaderRunID      = "Textprep-Run-Id"
	HeaderBatchIndex = "Textprep-Batch-Index"
)

// Publisher is the part of *nats.Conn the NATS sink uses.
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
}

// BatchMessage is the payload of one published batch.
type BatchMessage struct {
	RunID string       `json:"run_id"`
	Index int          `json:"index"`
	Items []*item.Item `json:"items"`
}

// NATS publishes each batch as one message on a subject.
type NATS struct {
	pub     Publisher
	subject string
	runID   string
	logger  *zap.Logger
	next    int
}

// NewNATS creates a NATS sink. runID is stamped on every message.
func NewNATS(pub Publisher, subject, runID string, logger *zap.Logger) (*NATS, error) {
	if pub == nil {
		return nil, fmt.Errorf("publisher cannot be nil")
	}
	if subject == "" {
		return nil, fmt.Errorf("subject cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATS{pub: pub, subject: subject, runID: runID, logger: logger}, nil
}

func (s *NATS) Write(ctx context.Context, batch []*item.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	index := s.next
	data, err := json.Marshal(BatchMessage{RunID: s.runID, Index: index, Items: batch})
	if err != nil {
		return fmt.Errorf("failed to marshal batch %d: %w", index, err)
	}

	msg := nats.NewMsg(s.subject)
	msg.Data = data
	msg.Header.Set(HeaderRunID, s.runID)
	msg.Header.Set(HeaderBatchIndex, strconv.Itoa(index))
	if err := s.pub.PublishMsg(msg); err != nil {
		s.logger.Error("failed to publish batch",
			zap.String("subject", s.subject),
			zap.Int("batch_index", index),
			zap.Error(err))
		return fmt.Errorf("failed to publish batch %d: %w", index, err)
	}
	s.next++

	s.logger.Debug("published batch",
		zap.String("subject", s.subject),
		zap.Int("batch_index", index),
		zap.Int("size", len(batch)))
	return nil
}

// Close flushes pending publishes. The connection stays open.
func (s *NATS) Close(ctx context.Context) error {
	if err := s.pub.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush nats publisher: %w", err)
	}
	return nil
}

var _ Publisher = (*nats.Conn)(nil)
