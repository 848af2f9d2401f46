package roles

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/instat-sds/fiches-portal/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}))
	return conn
}

func createUser(t *testing.T, conn *gorm.DB, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Email:    uuid.NewString() + "@instat.ml",
		Password: "hash",
		Role:     role,
	}
	require.NoError(t, conn.Create(u).Error)
	return u
}

func TestGetRoleDefaultsToAgent(t *testing.T) {
	conn := setupTestDB(t)
	s := NewStore(conn, nil)

	// Unknown user falls back to agent.
	assert.Equal(t, models.RoleAgent, s.GetRole(context.Background(), uuid.NewString()))

	admin := createUser(t, conn, models.RoleAdmin)
	assert.Equal(t, models.RoleAdmin, s.GetRole(context.Background(), admin.ID))
}

func TestSetRole(t *testing.T) {
	conn := setupTestDB(t)
	s := NewStore(conn, nil)
	admin := createUser(t, conn, models.RoleAdmin)
	agent := createUser(t, conn, models.RoleAgent)

	profile, err := s.SetRole(context.Background(), admin.ID, agent.ID, models.RoleValidateur)
	require.NoError(t, err)
	assert.Equal(t, models.RoleValidateur, profile.Role)
	assert.Equal(t, models.RoleValidateur, s.GetRole(context.Background(), agent.ID))
}

func TestSetRoleRequiresAdmin(t *testing.T) {
	conn := setupTestDB(t)
	s := NewStore(conn, nil)
	agent := createUser(t, conn, models.RoleAgent)
	validateur := createUser(t, conn, models.RoleValidateur)

	_, err := s.SetRole(context.Background(), agent.ID, validateur.ID, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = s.SetRole(context.Background(), validateur.ID, agent.ID, models.RoleValidateur)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSetRoleValidation(t *testing.T) {
	conn := setupTestDB(t)
	s := NewStore(conn, nil)
	admin := createUser(t, conn, models.RoleAdmin)
	agent := createUser(t, conn, models.RoleAgent)

	_, err := s.SetRole(context.Background(), admin.ID, agent.ID, models.Role("superuser"))
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = s.SetRole(context.Background(), admin.ID, uuid.NewString(), models.RoleValidateur)
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestSetRoleAllowsSelfChange(t *testing.T) {
	conn := setupTestDB(t)
	s := NewStore(conn, nil)
	admin := createUser(t, conn, models.RoleAdmin)

	// An admin may step down; there is no self-demotion guard.
	profile, err := s.SetRole(context.Background(), admin.ID, admin.ID, models.RoleAgent)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAgent, profile.Role)
}

func TestListProfiles(t *testing.T) {
	conn := setupTestDB(t)
	s := NewStore(conn, nil)
	admin := createUser(t, conn, models.RoleAdmin)
	agent := createUser(t, conn, models.RoleAgent)

	profiles, err := s.ListProfiles(context.Background(), admin.ID)
	require.NoError(t, err)
	assert.Len(t, profiles, 2)

	_, err = s.ListProfiles(context.Background(), agent.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
