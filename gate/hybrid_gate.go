package gate

import "context"

// HybridGate combines profile-based global permissions with resource-specific
// policies. Authorization flow:
//  1. Check that the subject is valid (non-zero)
//  2. Check that the subject's profile has the required permission (resource:action)
//  3. If a resource policy exists and resource is provided, check ownership
type HybridGate[S comparable] struct {
	resolver ProfileResolver[S]
	policies map[string]Policy[S]
}

// NewHybridGate creates a hybrid gate with the given profile resolver.
func NewHybridGate[S comparable](resolver ProfileResolver[S]) *HybridGate[S] {
	return &HybridGate[S]{
		resolver: resolver,
		policies: make(map[string]Policy[S]),
	}
}

// Register adds a resource-specific policy for ownership checks.
func (g *HybridGate[S]) Register(resourceType string, p Policy[S]) {
	g.policies[resourceType] = p
}

// Authorize checks the subject's profile permission and, when a resource is
// provided and a policy is registered for its type, the resource policy.
func (g *HybridGate[S]) Authorize(ctx context.Context, subject S, action Action, resourceType string, resource any) error {
	var zero S
	if subject == zero {
		return ErrUnauthorized
	}

	profile, err := g.resolver.Resolve(ctx, subject)
	if err != nil || profile == nil {
		return ErrUnauthorized
	}

	perm := NewPermission(resourceType, action)
	if !profile.HasPermission(perm) {
		return ErrUnauthorized
	}

	if resource != nil {
		if policy, ok := g.policies[resourceType]; ok {
			if !policy.Can(ctx, subject, action, resource) {
				return ErrUnauthorized
			}
		}
	}

	return nil
}

// Can is a convenience wrapper returning bool instead of error.
func (g *HybridGate[S]) Can(ctx context.Context, subject S, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, subject, action, resourceType, resource) == nil
}

// CanProfile checks only the profile permission, without ownership check.
// Useful before a specific resource is loaded.
func (g *HybridGate[S]) CanProfile(ctx context.Context, subject S, action Action, resourceType string) bool {
	var zero S
	if subject == zero {
		return false
	}
	profile, err := g.resolver.Resolve(ctx, subject)
	if err != nil || profile == nil {
		return false
	}
	return profile.HasPermission(NewPermission(resourceType, action))
}
