package gate

import "context"

// Policy defines authorization rules for a resource type.
// S is the subject type (e.g., string for a user UUID).
// Implementations check whether subject may perform action on resource.
type Policy[S any] interface {
	// Can returns true if subject is authorized to perform action on resource.
	// For list/create, resource may be nil (context-only check).
	Can(ctx context.Context, subject S, action Action, resource any) bool
}
