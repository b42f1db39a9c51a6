package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub fans appointment events out to in-process subscribers, such as live
// calendar views. Slow subscribers miss events rather than block publishers.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
	buffer  int
}

// NewHub creates a hub whose subscribers buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		clients: make(map[chan []byte]struct{}),
		buffer:  buffer,
	}
}

// Subscribe registers a subscriber. The returned cancel function
// unregisters it and closes the channel.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, h.buffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	log.Debug().Int("clients", total).Msg("Appointment feed subscriber added")

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			close(ch)
			h.mu.Unlock()
		})
	}
}

// Clients returns the number of subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishAppointment delivers event to every subscriber.
func (h *Hub) PublishAppointment(_ context.Context, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- payload:
		default:
			log.Warn().Str("key", key).Msg("Appointment feed subscriber too slow, event dropped")
		}
	}
	return nil
}

// AppointmentPublisher announces appointment lifecycle events.
type AppointmentPublisher interface {
	PublishAppointment(ctx context.Context, key string, event any) error
}

// Tee publishes to every publisher in order and joins their errors.
type Tee []AppointmentPublisher

func (t Tee) PublishAppointment(ctx context.Context, key string, event any) error {
	var errs []error
	for _, p := range t {
		if err := p.PublishAppointment(ctx, key, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
