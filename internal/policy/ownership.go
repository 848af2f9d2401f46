package policy

import (
	"context"

	"github.com/instat-sds/fiches-portal/gate"
)

// Ownable is implemented by resources that have an owner.
type Ownable interface {
	GetUserID() string
}

// OwnershipPolicy checks that the subject owns the resource. Works with any
// model implementing Ownable.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

// Can checks ownership. For list/create (nil resource) it returns true since
// profile permissions already control access. Resources that do not implement
// Ownable are denied to avoid accidental exposure.
func (p *OwnershipPolicy) Can(_ context.Context, userID string, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return ownable.GetUserID() == userID
}
