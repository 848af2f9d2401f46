package gate_test

import (
	"context"
	"testing"

	"github.com/instat-sds/fiches-portal/gate"
)

// mockOwnerPolicy checks resource.OwnerID against the subject.
type mockOwnerPolicy struct{}

type mockResource struct {
	OwnerID string
}

func (p *mockOwnerPolicy) Can(_ context.Context, subject string, _ gate.Action, resource any) bool {
	if r, ok := resource.(*mockResource); ok {
		return r.OwnerID == subject
	}
	return false
}

func TestHybridGate_ProfileOnly(t *testing.T) {
	resolver := gate.NewStaticResolver[string]()
	profile := gate.NewStaticProfile("agent",
		gate.NewPermission("fiche", gate.ActionCreate),
		gate.NewPermission("fiche", gate.ActionView),
	)
	resolver.Set("u1", profile)

	g := gate.NewHybridGate[string](resolver)

	if !g.Can(context.Background(), "u1", gate.ActionCreate, "fiche", nil) {
		t.Error("subject with permission should be allowed")
	}
	if g.Can(context.Background(), "u1", gate.ActionDecide, "fiche", nil) {
		t.Error("subject without permission should be denied")
	}
	if g.Can(context.Background(), "u2", gate.ActionView, "fiche", nil) {
		t.Error("subject without profile should be denied")
	}
	if g.Can(context.Background(), "", gate.ActionView, "fiche", nil) {
		t.Error("zero subject should be denied")
	}
}

func TestHybridGate_WithOwnershipPolicy(t *testing.T) {
	resolver := gate.NewStaticResolver[string]()
	profile := gate.NewStaticProfile("agent",
		gate.NewPermission("fiche", gate.ActionView),
		gate.NewPermission("fiche", gate.ActionUpdate),
	)
	resolver.Set("u1", profile)
	resolver.Set("u2", profile)

	g := gate.NewHybridGate[string](resolver)
	g.Register("fiche", &mockOwnerPolicy{})

	resource := &mockResource{OwnerID: "u1"}

	if !g.Can(context.Background(), "u1", gate.ActionUpdate, "fiche", resource) {
		t.Error("owner should be allowed")
	}
	if g.Can(context.Background(), "u2", gate.ActionUpdate, "fiche", resource) {
		t.Error("non-owner should be denied even with profile permission")
	}
}

func TestHybridGate_CanProfile(t *testing.T) {
	resolver := gate.NewStaticResolver[string]()
	profile := gate.NewStaticProfile("validateur",
		gate.NewPermission("fiche", gate.ActionDecide),
	)
	resolver.Set("u1", profile)

	g := gate.NewHybridGate[string](resolver)
	g.Register("fiche", &mockOwnerPolicy{})

	// CanProfile ignores ownership, only checks the profile permission.
	if !g.CanProfile(context.Background(), "u1", gate.ActionDecide, "fiche") {
		t.Error("CanProfile should return true for subject with permission")
	}
	if g.CanProfile(context.Background(), "u1", gate.ActionDelete, "fiche") {
		t.Error("CanProfile should return false for missing permission")
	}
}
