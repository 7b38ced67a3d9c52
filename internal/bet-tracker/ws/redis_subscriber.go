package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/bet-tracker/pkg/contracts/events"
)

// StartRedisSubscriber escuta o canal Redis Pub/Sub em goroutine própria e
// repassa cada notificação para os clientes do Hub. Encerra com o ctx.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var n events.Notification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					log.Warn("ws subscriber unmarshal", zap.Error(err))
					continue
				}
				hub.Broadcast(n)
			}
		}
	}()
}
