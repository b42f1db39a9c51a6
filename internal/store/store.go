// Package store persists committed appointments.
package store

import (
	"context"
	"errors"

	"voice-appointment-service/internal/models"
)

// ErrNotFound is returned when removing an unknown appointment.
var ErrNotFound = errors.New("appointment not found")

// Store is the append/query record store. Insert assigns an id when the
// record has none and returns the stored record.
type Store interface {
	List(ctx context.Context) ([]models.Record, error)
	Insert(ctx context.Context, r models.Record) (models.Record, error)
	Remove(ctx context.Context, id string) error
}
