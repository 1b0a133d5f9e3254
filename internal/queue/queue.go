// Package queue persists collected video candidates and rating outcomes.
// A Store keeps append-only-ish lists per named destination; the raw
// destination behaves as a FIFO the rating pipeline consumes with a
// peek/remove pair so a crash between scoring and persistence never loses
// the record.
package queue

import (
	"context"
	"encoding/json"
	"errors"
)

// Destination names one of the persistent record lists.
type Destination string

const (
	// DestinationRaw holds collected candidates awaiting rating.
	DestinationRaw Destination = "raw"
	// DestinationAccepted holds rated candidates at or above the accept threshold.
	DestinationAccepted Destination = "accepted"
	// DestinationDiscarded holds rejected candidates, when discard recording is on.
	DestinationDiscarded Destination = "discarded"
	// DestinationMoments holds timestamped comment moments of accepted videos.
	DestinationMoments Destination = "moments"
)

// Destinations lists every destination a Store must serve.
func Destinations() []Destination {
	return []Destination{DestinationRaw, DestinationAccepted, DestinationDiscarded, DestinationMoments}
}

// ErrEmpty is returned by DequeueNext when the destination has no items.
var ErrEmpty = errors.New("queue: no items")

// Item is one stored record plus the backend handle needed to remove it.
type Item struct {
	// Handle is backend-specific and opaque to callers.
	Handle  string
	Payload json.RawMessage
}

// Store is the persistence contract. Records dequeued from the raw
// destination stay in place until Remove is called with the dequeued item.
type Store interface {
	Append(ctx context.Context, dest Destination, payload json.RawMessage) error
	// DequeueNext returns the oldest item without removing it. ErrEmpty when
	// the destination has none.
	DequeueNext(ctx context.Context, dest Destination) (*Item, error)
	Remove(ctx context.Context, dest Destination, item *Item) error
	Len(ctx context.Context, dest Destination) (int, error)
	Close() error
}

// AppendJSON marshals v and appends it to dest.
func AppendJSON(ctx context.Context, s Store, dest Destination, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Append(ctx, dest, payload)
}
