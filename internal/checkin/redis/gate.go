// Package redis shares check-in session locks between service instances.
package redis

import (
	"context"
	"fmt"
	"time"

	"ms-volunteer/internal/logger"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "scan_lock:"

// Gate implements checkin.Gate with SETNX; the key TTL is the auto-dismiss timeout.
type Gate struct {
	Client *redis.Client
	Logger *logger.Logger
}

func NewGate(client *redis.Client, log *logger.Logger) *Gate {
	return &Gate{Client: client, Logger: log}
}

func lockKey(sessionID string) string {
	return keyPrefix + sessionID
}

func (g *Gate) Acquire(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	ok, err := g.Client.SetNX(ctx, lockKey(sessionID), time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
	if err != nil {
		g.Logger.Error("REDIS", fmt.Sprintf("Failed to lock session %s: %v", sessionID, err))
		return false, err
	}
	return ok, nil
}

func (g *Gate) Release(ctx context.Context, sessionID string) error {
	if err := g.Client.Del(ctx, lockKey(sessionID)).Err(); err != nil {
		g.Logger.Error("REDIS", fmt.Sprintf("Failed to unlock session %s: %v", sessionID, err))
		return err
	}
	return nil
}

func (g *Gate) Locked(ctx context.Context, sessionID string) (bool, error) {
	n, err := g.Client.Exists(ctx, lockKey(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
