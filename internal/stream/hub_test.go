package stream

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil, nil)
	client := hub.Register("walk-1")
	defer hub.Unregister(client)

	hub.Broadcast("walk-1", []byte("hello"))

	select {
	case msg := <-client.Send:
		if string(msg) != "hello" {
			t.Fatalf("unexpected message %q", msg)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for message")
	}
}

func TestHubBroadcastOnlyToWalk(t *testing.T) {
	hub := NewHub(nil, nil)
	a := hub.Register("walk-a")
	b := hub.Register("walk-b")
	defer hub.Unregister(a)
	defer hub.Unregister(b)

	hub.Broadcast("walk-a", []byte("a"))

	select {
	case msg := <-b.Send:
		t.Fatalf("walk-b got %q", msg)
	case <-a.Send:
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for walk-a")
	}
}

func TestHubBroadcastSkipsFullClient(t *testing.T) {
	hub := NewHub(nil, nil)
	client := hub.Register("walk-full")
	defer hub.Unregister(client)

	for i := 0; i < cap(client.Send)+10; i++ {
		hub.Broadcast("walk-full", []byte("x"))
	}
	if len(client.Send) != cap(client.Send) {
		t.Fatalf("expected full buffer, got %d", len(client.Send))
	}
}

func TestHubHelpers(t *testing.T) {
	ch := redisChannel("abc")
	if ch != "walk:abc:stats" {
		t.Fatalf("unexpected channel %q", ch)
	}
	if walkIDFromChannel(ch) != "abc" {
		t.Fatalf("unexpected walk id")
	}
	for _, bad := range []string{"bad", "walk::stats", "trip:abc:stats", "walk:abc:points"} {
		if walkIDFromChannel(bad) != "" {
			t.Fatalf("expected empty walk id for %q", bad)
		}
	}
}

func TestUnregisterCloses(t *testing.T) {
	hub := NewHub(nil, nil)
	client := hub.Register("walk-2")
	hub.Unregister(client)
	_, ok := <-client.Send
	if ok {
		t.Fatalf("expected channel closed")
	}
	// second unregister is a no-op
	hub.Unregister(client)
	if hub.Subscribers("walk-2") != 0 {
		t.Fatalf("expected no subscribers")
	}
}

func TestHubRedisBroadcastAndSubscribe(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	hub := NewHub(client, nil)
	defer hub.Close()
	ws := hub.Register("walk-redis")
	defer hub.Unregister(ws)

	hub.Broadcast("walk-redis", []byte("ping"))

	select {
	case msg := <-ws.Send:
		if string(msg) != "ping" {
			t.Fatalf("unexpected message %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for broadcast")
	}

	// a publish from another instance reaches local clients
	if err := client.Publish(context.Background(), "walk:walk-redis:stats", "pong").Err(); err != nil {
		t.Fatalf("publish error: %v", err)
	}

	select {
	case msg := <-ws.Send:
		if string(msg) != "pong" {
			t.Fatalf("unexpected message from redis %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for redis message")
	}

	select {
	case msg := <-ws.Send:
		t.Fatalf("unexpected duplicate %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRedisUnavailableFallsBackToLocal(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	server.Close()
	defer client.Close()

	hub := NewHub(client, nil)
	defer hub.Close()
	node := hub.Register("walk-bad")
	defer hub.Unregister(node)

	hub.Broadcast("walk-bad", []byte("ping"))

	select {
	case msg := <-node.Send:
		if string(msg) != "ping" {
			t.Fatalf("unexpected message %q", msg)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timeout waiting for local delivery")
	}
}
