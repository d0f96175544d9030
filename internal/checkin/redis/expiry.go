package redis

import (
	"context"
	"fmt"
	"strings"
)

// EnableExpiryNotifications turns on keyevent notifications for expired keys.
func (g *Gate) EnableExpiryNotifications(ctx context.Context) error {
	return g.Client.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err()
}

// WatchExpiry calls onExpire with the session id each time a scan lock times out, until
// ctx is done. Expiry events need notify-keyspace-events to include "Ex".
func (g *Gate) WatchExpiry(ctx context.Context, onExpire func(sessionID string)) {
	channel := fmt.Sprintf("__keyevent@%d__:expired", g.Client.Options().DB)
	pubsub := g.Client.PSubscribe(ctx, channel)
	defer pubsub.Close()

	g.Logger.Info("REDIS", fmt.Sprintf("Subscribed to %s", channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if sessionID, ok := sessionFromKey(msg.Payload); ok {
				onExpire(sessionID)
			}
		}
	}
}

func sessionFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, keyPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(key, keyPrefix)
	return id, id != ""
}
