// Package events publishes parsing outcomes and appointment lifecycle events
// to Kafka and consumes upstream final transcripts.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"voice-appointment-service/internal/observability/metrics"
)

// Publisher publishes events to separate Kafka topics for outcomes and
// appointment lifecycle.
type Publisher struct {
	writerOutcome     *kafka.Writer
	writerAppointment *kafka.Writer
	principal         string
	topicOutcome      string
	topicAppointment  string
	enabled           bool
	metrics           *metrics.Metrics
}

// Config holds Kafka configuration.
type Config struct {
	Brokers          []string
	TopicOutcome     string
	TopicAppointment string
	Principal        string
	Enabled          bool

	// Consumer of upstream final transcripts.
	ConsumerEnabled  bool
	TopicTranscripts string
	GroupID          string
}

// New creates a Kafka publisher. A nil or disabled config yields a
// log-only publisher.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:        cfg.Principal,
			topicOutcome:     cfg.TopicOutcome,
			topicAppointment: cfg.TopicAppointment,
			enabled:          false,
			metrics:          m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes.
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicOutcome", cfg.TopicOutcome).
		Str("topicAppointment", cfg.TopicAppointment).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerOutcome:     newWriter(cfg.Brokers, cfg.TopicOutcome, transport),
		writerAppointment: newWriter(cfg.Brokers, cfg.TopicAppointment, transport),
		principal:         cfg.Principal,
		topicOutcome:      cfg.TopicOutcome,
		topicAppointment:  cfg.TopicAppointment,
		enabled:           true,
		metrics:           m,
	}
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// PublishOutcome publishes a parsing outcome event keyed by interaction.
func (p *Publisher) PublishOutcome(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerOutcome, p.topicOutcome, "outcome", key, event)
}

// PublishAppointment publishes a committed/removed appointment event keyed by
// appointment id.
func (p *Publisher) PublishAppointment(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerAppointment, p.topicAppointment, "appointment", key, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerOutcome != nil {
		if e := p.writerOutcome.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing outcome writer")
			err = e
		}
	}
	if p.writerAppointment != nil {
		if e := p.writerAppointment.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing appointment writer")
			err = e
		}
	}
	return err
}
