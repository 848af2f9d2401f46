// Package roles maps user identities to their role and lets admins change it.
package roles

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/instat-sds/fiches-portal/gate"
	"github.com/instat-sds/fiches-portal/internal/models"
)

// Sentinel errors of the role store.
var (
	// ErrUnauthorized means a non-admin attempted a role change.
	ErrUnauthorized = errors.New("seul un admin peut modifier les rôles")

	// ErrUnknownUser means the target of a role change does not exist.
	ErrUnknownUser = errors.New("utilisateur introuvable")

	// ErrInvalidRole means the requested role is not one of the known roles.
	ErrInvalidRole = errors.New("rôle invalide")
)

// Store reads and writes user roles. The optional cache is invalidated on
// every role change so authorization picks up the new role immediately.
type Store struct {
	db    *gorm.DB
	cache *gate.CachedResolver[string]
}

// NewStore creates a role store. cache may be nil.
func NewStore(db *gorm.DB, cache *gate.CachedResolver[string]) *Store {
	return &Store{db: db, cache: cache}
}

// GetRole returns the user's role, defaulting to agent when the user row is
// missing, carries no role, or the lookup fails.
func (s *Store) GetRole(ctx context.Context, userID string) models.Role {
	var user models.User
	err := s.db.WithContext(ctx).Select("role").First(&user, "id = ?", userID).Error
	if err != nil || !user.Role.Valid() {
		return models.RoleAgent
	}
	return user.Role
}

// SetRole persists a new role for targetID. Fails with ErrUnauthorized unless
// the caller is an admin. There is deliberately no self-demotion guard: an
// admin may change their own role, including away from admin.
func (s *Store) SetRole(ctx context.Context, adminID, targetID string, role models.Role) (*models.Profile, error) {
	if s.GetRole(ctx, adminID) != models.RoleAdmin {
		return nil, ErrUnauthorized
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", targetID).
		Update("role", role)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrUnknownUser
	}

	if s.cache != nil {
		s.cache.Invalidate(targetID)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", targetID).Error; err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

// ListProfiles returns every user profile, newest first. Admin only.
func (s *Store) ListProfiles(ctx context.Context, adminID string) ([]models.Profile, error) {
	if s.GetRole(ctx, adminID) != models.RoleAdmin {
		return nil, ErrUnauthorized
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	profiles := make([]models.Profile, len(users))
	for i := range users {
		profiles[i] = users[i].Profile()
	}
	return profiles, nil
}
