// Package gate provides a Gate/Policy authorization system. The Gate is a
// central registry of policies; each Policy defines authorization rules for a
// specific resource type. This package has no dependencies on domain models
// and can be reused across different web applications.
//
// The package uses generics to allow any subject type:
//   - Gate[string] for UUID-based subjects
//   - Gate[uint] for numeric user IDs
//   - Gate[*Claims] for token-claims based auth
package gate

import "context"

// Gate is the central authorization checkpoint.
// S is the subject type (must be comparable for zero-value check).
// Register policies by resource type name, then call Authorize or Can.
type Gate[S comparable] struct {
	policies map[string]Policy[S]
}

// NewGate creates an empty Gate ready to register policies.
func NewGate[S comparable]() *Gate[S] {
	return &Gate[S]{policies: make(map[string]Policy[S])}
}

// Register adds a policy for a given resource type (e.g., "fiche").
// Overwrites any existing policy for that type.
func (g *Gate[S]) Register(resourceType string, p Policy[S]) {
	g.policies[resourceType] = p
}

// Authorize checks authorization and returns an error if denied.
// Returns ErrUnauthorized for zero-value subject or denied action;
// returns ErrNoPolicyDefined if resourceType has no registered policy.
func (g *Gate[S]) Authorize(ctx context.Context, subject S, action Action, resourceType string, resource any) error {
	var zero S
	if subject == zero {
		return ErrUnauthorized
	}
	p, ok := g.policies[resourceType]
	if !ok {
		return ErrNoPolicyDefined
	}
	if !p.Can(ctx, subject, action, resource) {
		return ErrUnauthorized
	}
	return nil
}

// Can is a convenience wrapper returning bool instead of error.
func (g *Gate[S]) Can(ctx context.Context, subject S, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, subject, action, resourceType, resource) == nil
}
