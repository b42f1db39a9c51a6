package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"voice-appointment-service/internal/models"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type fakeParser struct{}

func (fakeParser) Parse(transcript string) models.Outcome {
	return models.NewOutcome(models.Fields{PatientID: "1"}, nil, transcript)
}

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []models.OutcomeEvent
	err    error
}

func (p *recordingPublisher) PublishOutcome(_ context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.events = append(p.events, event.(models.OutcomeEvent))
	return nil
}

func message(t *testing.T, offset int64, v any) kafka.Message {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return kafka.Message{Offset: offset, Value: b}
}

func runConsumer(t *testing.T, c *Consumer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := c.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConsumer_PublishesOutcomeForFinals(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		message(t, 1, models.TranscriptFinal{
			EventType:     models.EventTranscriptFinal,
			InteractionID: "int-1",
			TenantID:      "tenant-1",
			SegmentID:     "int-1-seg-1",
			Text:          "cita con maría",
		}),
		message(t, 2, models.TranscriptPartial{EventType: models.EventTranscriptPartial, InteractionID: "int-1", Text: "cita"}),
		{Offset: 3, Value: []byte("not json")},
		message(t, 4, models.TranscriptFinal{EventType: models.EventTranscriptFinal, InteractionID: "int-2", Text: "   "}),
	}}
	pub := &recordingPublisher{}
	c := newConsumerWithReader(reader, fakeParser{}, pub)

	runConsumer(t, c)

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 outcome event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if pub.keys[0] != "int-1" {
		t.Errorf("expected key int-1, got %s", pub.keys[0])
	}
	if ev.EventType != models.EventVoiceOutcome || ev.TenantID != "tenant-1" || ev.SegmentID != "int-1-seg-1" {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.Outcome.RawTranscript != "cita con maría" {
		t.Errorf("expected transcript to be parsed, got %q", ev.Outcome.RawTranscript)
	}
	if len(reader.committed) != 4 {
		t.Errorf("expected every handled or skipped message committed, got %v", reader.committed)
	}
}

func TestConsumer_PublishFailureIsNotCommitted(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		message(t, 7, models.TranscriptFinal{EventType: models.EventTranscriptFinal, InteractionID: "int-1", Text: "cita"}),
	}}
	pub := &recordingPublisher{err: errors.New("broker down")}

	runConsumer(t, newConsumerWithReader(reader, fakeParser{}, pub))

	if len(reader.committed) != 0 {
		t.Errorf("expected no commit after publish failure, got %v", reader.committed)
	}
}

func TestNewConsumer_Disabled(t *testing.T) {
	if c := NewConsumer(nil, fakeParser{}, &recordingPublisher{}); c != nil {
		t.Error("expected nil consumer for nil config")
	}
	if c := NewConsumer(&Config{Brokers: []string{"localhost:9092"}}, fakeParser{}, &recordingPublisher{}); c != nil {
		t.Error("expected nil consumer when not enabled")
	}
}

func TestConsumer_Close(t *testing.T) {
	reader := &fakeReader{}
	c := newConsumerWithReader(reader, fakeParser{}, &recordingPublisher{})
	if err := c.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reader.closed {
		t.Error("expected reader to be closed")
	}
}
