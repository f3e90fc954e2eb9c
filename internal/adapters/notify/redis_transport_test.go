package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"foodshare-service/internal/ports"
)

func newTestTransport(t *testing.T) (*RedisTransport, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisTransport(client, ""), mr
}

func TestRedisTransportPushesJSON(t *testing.T) {
	transport, mr := newTestTransport(t)

	notices := []ports.NoticeDelivery{
		{CID: 1, PID: 7, BusinessName: "Bakery", BusinessAddress: "12 Oven Ln"},
		{CID: 2, PID: 7, BusinessName: "Bakery", BusinessAddress: "12 Oven Ln"},
	}
	if err := transport.Deliver(context.Background(), notices); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if n, err := mr.List(DefaultQueue); err != nil || len(n) != 2 {
		t.Fatalf("queue length = %d, want 2 (err=%v)", len(n), err)
	}

	// LPush prepends, so the last notice is at the head.
	raw, err := mr.Lpop(DefaultQueue)
	if err != nil {
		t.Fatalf("lpop: %v", err)
	}
	var got ports.NoticeDelivery
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	if got.CID != 2 || got.PID != 7 || got.BusinessName != "Bakery" {
		t.Fatalf("notice = %+v", got)
	}
}

func TestRedisTransportEmptyBatch(t *testing.T) {
	transport, mr := newTestTransport(t)

	if err := transport.Deliver(context.Background(), nil); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if mr.Exists(DefaultQueue) {
		t.Fatal("empty batch created the queue")
	}
}

func TestRedisTransportCustomQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	transport := NewRedisTransport(client, "other:queue")
	err := transport.Deliver(context.Background(), []ports.NoticeDelivery{{CID: 1, PID: 1}})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if n, err := mr.List("other:queue"); err != nil || len(n) != 1 {
		t.Fatalf("queue length = %d, want 1 (err=%v)", len(n), err)
	}
}
