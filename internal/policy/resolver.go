// Package policy wires the authorization gate to the portal's roles and
// provides the access guard every protected route goes through.
package policy

import (
	"context"

	"gorm.io/gorm"

	"github.com/instat-sds/fiches-portal/gate"
	"github.com/instat-sds/fiches-portal/internal/models"
)

// The three roles carry fixed permission sets; there is no per-user
// permission editing in this portal.
var roleProfiles = map[models.Role]gate.Profile{
	models.RoleAgent: gate.NewStaticProfile(string(models.RoleAgent),
		gate.NewPermission("fiche", gate.ActionList),
		gate.NewPermission("fiche", gate.ActionView),
		gate.NewPermission("fiche", gate.ActionCreate),
		gate.NewPermission("fiche", gate.ActionUpdate),
		gate.NewPermission("fiche", gate.ActionDelete),
		gate.NewPermission("fiche", gate.ActionSubmit),
	),
	models.RoleValidateur: gate.NewStaticProfile(string(models.RoleValidateur),
		gate.NewPermission("fiche", gate.ActionList),
		gate.NewPermission("fiche", gate.ActionView),
		gate.NewPermission("fiche", gate.ActionDecide),
	),
	models.RoleAdmin: gate.NewStaticProfile(string(models.RoleAdmin),
		gate.PermissionSuperAdmin,
	),
}

// ProfileForRole maps a role to its permission set, defaulting to agent.
func ProfileForRole(role models.Role) gate.Profile {
	if p, ok := roleProfiles[role]; ok {
		return p
	}
	return roleProfiles[models.RoleAgent]
}

// DBRoleResolver resolves a user id to the permission profile of their role.
// Users without a row or role resolve to the agent profile, matching the
// role store's default.
type DBRoleResolver struct {
	DB *gorm.DB
}

func NewDBRoleResolver(db *gorm.DB) *DBRoleResolver {
	return &DBRoleResolver{DB: db}
}

// Resolve implements gate.ProfileResolver.
func (r *DBRoleResolver) Resolve(ctx context.Context, userID string) (gate.Profile, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Select("role").First(&user, "id = ?", userID).Error
	if err != nil {
		return ProfileForRole(models.RoleAgent), nil
	}
	return ProfileForRole(user.Role), nil
}
