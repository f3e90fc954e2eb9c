package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"foodshare-service/internal/ports"
)

// DefaultQueue is the redis list the delivery workers consume from.
const DefaultQueue = "foodshare:notices"

// RedisTransport hands granted notices to delivery workers through a redis
// list. The core never waits for, or learns about, actual message delivery;
// a failed push is logged by the dispatcher and the batch is simply lost.
type RedisTransport struct {
	Client *redis.Client
	Queue  string
}

func NewRedisTransport(client *redis.Client, queue string) *RedisTransport {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RedisTransport{Client: client, Queue: queue}
}

func (t *RedisTransport) Deliver(ctx context.Context, notices []ports.NoticeDelivery) error {
	if len(notices) == 0 {
		return nil
	}

	payloads := make([]any, 0, len(notices))
	for _, n := range notices {
		raw, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("deliver notices: marshal cid=%d pid=%d: %w", n.CID, n.PID, err)
		}
		payloads = append(payloads, raw)
	}

	if err := t.Client.LPush(ctx, t.Queue, payloads...).Err(); err != nil {
		return fmt.Errorf("deliver notices: push %d to %q: %w", len(payloads), t.Queue, err)
	}
	return nil
}
