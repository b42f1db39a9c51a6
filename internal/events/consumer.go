package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"voice-appointment-service/internal/models"
	"voice-appointment-service/internal/observability/metrics"
)

// TranscriptParser turns a transcript into an outcome.
type TranscriptParser interface {
	Parse(transcript string) models.Outcome
}

// OutcomePublisher publishes outcome events.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, key string, event any) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer parses upstream final transcripts and publishes their outcomes.
type Consumer struct {
	reader    messageReader
	parser    TranscriptParser
	publisher OutcomePublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewConsumer returns nil when the consumer is disabled.
func NewConsumer(cfg *Config, parser TranscriptParser, publisher OutcomePublisher) *Consumer {
	if cfg == nil || !cfg.ConsumerEnabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Transcript consumer disabled")
		return nil
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.TopicTranscripts,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.TopicTranscripts).
		Str("groupId", cfg.GroupID).
		Msg("Transcript consumer initialized")
	return newConsumerWithReader(reader, parser, publisher)
}

func newConsumerWithReader(reader messageReader, parser TranscriptParser, publisher OutcomePublisher) *Consumer {
	return &Consumer{
		reader:    reader,
		parser:    parser,
		publisher: publisher,
		metrics:   metrics.DefaultMetrics,
		now:       time.Now,
	}
}

// Run consumes until ctx is cancelled. A message is committed once its
// outcome was published or it was skipped as malformed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if err := c.handle(ctx, msg); err != nil {
			log.Error().Err(err).Str("topic", msg.Topic).Int64("offset", msg.Offset).Msg("Failed to handle transcript")
			c.metrics.RecordConsumed("error")
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			log.Warn().Err(err).Int64("offset", msg.Offset).Msg("Failed to commit offset")
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	var final models.TranscriptFinal
	if err := json.Unmarshal(msg.Value, &final); err != nil {
		log.Warn().Err(err).Int64("offset", msg.Offset).Msg("Skipping malformed transcript event")
		c.metrics.RecordConsumed("skipped")
		return nil
	}
	if final.EventType != models.EventTranscriptFinal || strings.TrimSpace(final.Text) == "" {
		c.metrics.RecordConsumed("skipped")
		return nil
	}

	outcome := c.parser.Parse(final.Text)
	event := models.OutcomeEvent{
		EventType:     models.EventVoiceOutcome,
		InteractionID: final.InteractionID,
		TenantID:      final.TenantID,
		SegmentID:     final.SegmentID,
		Timestamp:     c.now().UnixMilli(),
		Outcome:       outcome,
	}
	if err := c.publisher.PublishOutcome(ctx, final.InteractionID, event); err != nil {
		return err
	}
	c.metrics.RecordConsumed("parsed")
	return nil
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
