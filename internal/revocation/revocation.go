// Package revocation keeps the ids of logged-out access tokens until they would have expired anyway.
package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type List struct {
	client *redis.Client
}

// New returns a List backed by client. A nil client yields a List that never revokes.
func New(client *redis.Client) *List {
	return &List{client: client}
}

func key(tokenID string) string {
	return fmt.Sprintf("revoked_token:%s", tokenID)
}

func (l *List) Enabled() bool {
	return l != nil && l.client != nil
}

func (l *List) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if !l.Enabled() || tokenID == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return l.client.Set(ctx, key(tokenID), "1", ttl).Err()
}

func (l *List) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if !l.Enabled() || tokenID == "" {
		return false, nil
	}
	n, err := l.client.Exists(ctx, key(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
