// Package publisher announces refreshed product details on Redis streams so
// the web layer can re-render.
package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"groupbuy/detailworker/internal/detail"
	"groupbuy/detailworker/pkg/errors"
)

// MessageKey is the stream field holding the base64 encoded event
const MessageKey = "b64_detail"

// DetailEvent announces one refreshed listing detail
type DetailEvent struct {
	ID        string       `json:"id"`
	ListingID string       `json:"listingId"`
	URL       string       `json:"url"`
	Grade     detail.Grade `json:"grade"`
	Source    string       `json:"source"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// NewDetailEvent stamps a new event with a random id
func NewDetailEvent(listingID, url string, grade detail.Grade, source string, updatedAt time.Time) DetailEvent {
	return DetailEvent{
		ID:        uuid.NewString(),
		ListingID: listingID,
		URL:       url,
		Grade:     grade,
		Source:    source,
		UpdatedAt: updatedAt.UTC(),
	}
}

// Publisher represents a service for publishing messages
type Publisher interface {
	// Publish publishes a message to one of the streams
	Publish(ctx context.Context, key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams(ctx context.Context) error

	// Close closes the publisher connection
	Close() error
}

// PublishDetail encodes event as JSON and publishes it under MessageKey
func PublishDetail(ctx context.Context, p Publisher, event DetailEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.NewPublisher("detail-event", "marshal", err)
	}
	if err := p.Publish(ctx, MessageKey, data); err != nil {
		return errors.NewPublisher("detail-event", "publish "+event.ListingID, err)
	}
	return nil
}
