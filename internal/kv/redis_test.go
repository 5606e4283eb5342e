package kv

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "tb:"), mr
}

func TestRedisRoundTrip(t *testing.T) {
	store, mr := newRedis(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, TasksKey("1")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Set(ctx, TasksKey("1"), []byte(`[]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.Get(ctx, TasksKey("1"))
	if err != nil || string(got) != "[]" {
		t.Fatalf("get: %q %v", got, err)
	}
	if v, err := mr.Get("tb:tasks:1"); err != nil || v != "[]" {
		t.Fatalf("expected prefixed key in redis, got %q %v", v, err)
	}
	if err := store.Delete(ctx, TasksKey("1")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, TasksKey("1")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRedisFaultSurfaces(t *testing.T) {
	store, mr := newRedis(t)
	mr.Close()
	if _, err := store.Get(context.Background(), BoardsKey); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected connection error, got %v", err)
	}
}
