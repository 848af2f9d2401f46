package main

import (
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/instat-sds/fiches-portal/auth"
	"github.com/instat-sds/fiches-portal/internal/fiche"
	"github.com/instat-sds/fiches-portal/internal/handlers"
	"github.com/instat-sds/fiches-portal/internal/policy"
	"github.com/instat-sds/fiches-portal/internal/roles"
)

// roleCacheTTL bounds how stale a cached permission profile may be. Role
// changes invalidate the entry immediately; the TTL only covers changes made
// outside the role store.
const roleCacheTTL = 5 * time.Minute

// App wires the HTTP surface: session middleware, the access guard per route
// group, then the handlers.
type App struct {
	mux   *http.ServeMux
	guard *policy.Guard
}

func NewApp(conn *gorm.DB) *App {
	guard := policy.NewGuard(policy.NewDBRoleResolver(conn), roleCacheTTL)
	roleStore := roles.NewStore(conn, guard.Resolver)
	engine := fiche.NewEngine(conn)

	authH := handlers.NewAuthHandler(conn)
	ficheH := handlers.NewFicheHandler(engine, roleStore)
	dashH := handlers.NewDashboardHandler(engine, roleStore)
	adminH := handlers.NewAdminUserHandler(roleStore)
	refH := handlers.NewReferentielHandler(conn)

	mux := http.NewServeMux()

	// Public.
	mux.HandleFunc("POST /auth/signup", authH.Signup)
	mux.HandleFunc("POST /auth/login", authH.Login)
	mux.HandleFunc("POST /auth/logout", authH.Logout)
	mux.HandleFunc("GET /auth/me", authH.Me)

	// Authenticated, capability-gated.
	protect := func(cap policy.Capability, h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(guard.Require(cap)(h))
	}

	mux.Handle("GET /dashboard", protect(policy.CapViewDashboard, dashH.Stats))

	mux.Handle("GET /fiches", protect(policy.CapAccessOwnFiches, ficheH.List))
	mux.Handle("POST /fiches", protect(policy.CapAccessOwnFiches, ficheH.Create))
	mux.Handle("GET /fiches/{id}", protect(policy.CapAccessOwnFiches, ficheH.View))
	mux.Handle("POST /fiches/{id}", protect(policy.CapAccessOwnFiches, ficheH.Update))
	mux.Handle("POST /fiches/{id}/delete", protect(policy.CapAccessOwnFiches, ficheH.Delete))
	mux.Handle("POST /fiches/{id}/submit", protect(policy.CapAccessOwnFiches, ficheH.Submit))

	mux.Handle("GET /validator/fiches", protect(policy.CapDecideFiche, ficheH.ListPending))
	mux.Handle("POST /fiches/{id}/decide", protect(policy.CapDecideFiche, ficheH.Decide))

	mux.Handle("GET /admin/users", protect(policy.CapManageUsers, adminH.List))
	mux.Handle("POST /admin/users/{id}/role", protect(policy.CapManageUsers, adminH.UpdateRole))

	mux.Handle("GET /referentiels", auth.RequireAuth(http.HandlerFunc(refH.List)))

	return &App{mux: mux, guard: guard}
}

// Handler returns the full middleware chain.
func (a *App) Handler() http.Handler {
	return auth.Middleware(a.mux)
}
