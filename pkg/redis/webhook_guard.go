package redis

import (
	"context"
	"time"
)

// WebhookGuard is the fast-path duplicate filter for inbound provider events.
// It sits in front of the database idempotency key; the database check remains
// authoritative, so a flushed cache only costs an extra lookup.
type WebhookGuard struct {
	client *Client
	ttl    time.Duration
}

// NewWebhookGuard builds a guard whose markers expire after ttl.
func NewWebhookGuard(client *Client, ttl time.Duration) *WebhookGuard {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &WebhookGuard{client: client, ttl: ttl}
}

// FirstSeen marks the event key and reports whether this was its first
// delivery.
func (g *WebhookGuard) FirstSeen(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, g.client.WebhookKey(key), "1", g.ttl)
}

// Release clears the marker after a failed delivery so the provider's retry
// is processed instead of answered as a duplicate.
func (g *WebhookGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, g.client.WebhookKey(key))
}
