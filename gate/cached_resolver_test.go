package gate_test

import (
	"context"
	"testing"
	"time"

	"github.com/instat-sds/fiches-portal/gate"
)

func TestCachedResolver_CachesProfile(t *testing.T) {
	inner := gate.NewStaticResolver[string]()
	inner.Set("u1", gate.NewStaticProfile("agent"))

	cached := gate.NewCachedResolver[string](inner, 5*time.Minute)

	p1, err := cached.Resolve(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p1.Name() != "agent" {
		t.Errorf("expected 'agent', got '%s'", p1.Name())
	}

	// Change the underlying role; the cached value must still be served.
	inner.Set("u1", gate.NewStaticProfile("admin"))

	p2, err := cached.Resolve(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p2.Name() != "agent" {
		t.Errorf("expected cached 'agent', got '%s'", p2.Name())
	}
}

func TestCachedResolver_Invalidate(t *testing.T) {
	inner := gate.NewStaticResolver[string]()
	inner.Set("u1", gate.NewStaticProfile("agent"))

	cached := gate.NewCachedResolver[string](inner, 5*time.Minute)
	_, _ = cached.Resolve(context.Background(), "u1")

	inner.Set("u1", gate.NewStaticProfile("validateur"))
	cached.Invalidate("u1")

	p, err := cached.Resolve(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "validateur" {
		t.Errorf("expected 'validateur' after invalidation, got '%s'", p.Name())
	}
}

func TestCachedResolver_InvalidateAll(t *testing.T) {
	inner := gate.NewStaticResolver[string]()
	inner.Set("u1", gate.NewStaticProfile("agent"))
	inner.Set("u2", gate.NewStaticProfile("validateur"))

	cached := gate.NewCachedResolver[string](inner, 5*time.Minute)
	_, _ = cached.Resolve(context.Background(), "u1")
	_, _ = cached.Resolve(context.Background(), "u2")

	inner.Set("u1", gate.NewStaticProfile("admin"))
	inner.Set("u2", gate.NewStaticProfile("admin"))
	cached.InvalidateAll()

	for _, id := range []string{"u1", "u2"} {
		p, err := cached.Resolve(context.Background(), id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Name() != "admin" {
			t.Errorf("expected 'admin' for %s after InvalidateAll, got '%s'", id, p.Name())
		}
	}
}

func TestCachedResolver_TTLExpiry(t *testing.T) {
	inner := gate.NewStaticResolver[string]()
	inner.Set("u1", gate.NewStaticProfile("agent"))

	cached := gate.NewCachedResolver[string](inner, time.Millisecond)
	_, _ = cached.Resolve(context.Background(), "u1")

	inner.Set("u1", gate.NewStaticProfile("admin"))
	time.Sleep(5 * time.Millisecond)

	p, err := cached.Resolve(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "admin" {
		t.Errorf("expected refreshed 'admin' after TTL, got '%s'", p.Name())
	}
}
