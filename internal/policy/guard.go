package policy

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/instat-sds/fiches-portal/auth"
	"github.com/instat-sds/fiches-portal/gate"
)

// Capability names a role-restricted entry point of the portal.
type Capability string

const (
	// CapViewDashboard: any authenticated user.
	CapViewDashboard Capability = "viewDashboard"
	// CapAccessOwnFiches: any authenticated user; ownership is scoped
	// inside the lifecycle engine.
	CapAccessOwnFiches Capability = "accessOwnFiches"
	// CapDecideFiche: validateur or admin.
	CapDecideFiche Capability = "decideFiche"
	// CapManageUsers: admin only.
	CapManageUsers Capability = "manageUsers"
)

// DashboardPath is the default authenticated landing view. Authenticated
// users lacking a required role are sent here rather than to an error page.
const DashboardPath = "/dashboard"

// permission required per capability; empty means authentication suffices.
var capabilityPermissions = map[Capability]gate.Permission{
	CapViewDashboard:   "",
	CapAccessOwnFiches: gate.NewPermission("fiche", gate.ActionList),
	CapDecideFiche:     gate.NewPermission("fiche", gate.ActionDecide),
	CapManageUsers:     gate.NewPermission("user", gate.ActionUpdate),
}

// Session is what the guard knows about the caller: the user id from the
// session cookie (empty when anonymous) and the requested path.
type Session struct {
	UserID string
	Path   string
}

// Decision is the guard's verdict: proceed, or redirect to RedirectTo.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Guard gates entry to role-restricted views before the lifecycle engine is
// invoked. Every protected route goes through it; no handler re-implements
// the role rule.
type Guard struct {
	Gate     *gate.HybridGate[string]
	Resolver *gate.CachedResolver[string]
}

// NewGuard builds the authorization chain: DB role resolver, TTL cache,
// hybrid gate with the fiche ownership policy registered.
func NewGuard(resolver gate.ProfileResolver[string], cacheTTL time.Duration) *Guard {
	cached := gate.NewCachedResolver[string](resolver, cacheTTL)
	hybrid := gate.NewHybridGate[string](cached)
	hybrid.Register("fiche", NewOwnershipPolicy())
	return &Guard{Gate: hybrid, Resolver: cached}
}

// Authorize decides whether the session may exercise the capability.
// Anonymous callers are redirected to login with the requested path
// preserved; authenticated callers lacking the role are redirected to the
// dashboard (fail soft, never an error page).
func (g *Guard) Authorize(ctx context.Context, s Session, cap Capability) Decision {
	if s.UserID == "" {
		return Decision{RedirectTo: auth.LoginPath + "?redirectTo=" + url.QueryEscape(s.Path)}
	}
	perm, ok := capabilityPermissions[cap]
	if !ok {
		// Unknown capability: treat as role-restricted and fail soft.
		return Decision{RedirectTo: DashboardPath}
	}
	if perm == "" {
		return Decision{Allow: true}
	}
	profile, err := g.Resolver.Resolve(ctx, s.UserID)
	if err != nil || profile == nil || !profile.HasPermission(perm) {
		return Decision{RedirectTo: DashboardPath}
	}
	return Decision{Allow: true}
}

// Require wraps a handler behind a capability check.
func (g *Guard) Require(cap Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, _ := auth.UserIDFromContext(r.Context())
			d := g.Authorize(r.Context(), Session{UserID: uid, Path: r.URL.Path}, cap)
			if !d.Allow {
				http.Redirect(w, r, d.RedirectTo, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthorizeResource checks a loaded resource against the gate (profile
// permission plus ownership policy). Used by handlers after fetching a record.
func (g *Guard) AuthorizeResource(ctx context.Context, userID string, action gate.Action, resourceType string, resource any) error {
	return g.Gate.Authorize(ctx, userID, action, resourceType, resource)
}
