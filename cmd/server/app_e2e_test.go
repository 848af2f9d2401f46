package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/instat-sds/fiches-portal/internal/db"
	"github.com/instat-sds/fiches-portal/internal/models"
)

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newTestServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	srv := httptest.NewServer(NewApp(conn).Handler())
	t.Cleanup(srv.Close)
	return srv, conn
}

// newClient returns an HTTP client with its own cookie jar that never follows
// redirects, so access guard verdicts stay observable.
func newClient(t *testing.T, srv *httptest.Server) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{
		t:    t,
		base: srv.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func signup(c *client, email string) models.Profile {
	resp := c.do("POST", "/auth/signup", map[string]string{
		"email": email, "password": "secret123", "full_name": "Test User",
	})
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)
	return decode[models.Profile](c.t, resp)
}

func seedAdmin(t *testing.T, conn *gorm.DB) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := &models.User{
		Email:    "admin@instat.ml",
		Password: string(hash),
		Role:     models.RoleAdmin,
	}
	require.NoError(t, conn.Create(admin).Error)
	return admin
}

func TestPortalLifecycle(t *testing.T) {
	srv, conn := newTestServer(t)
	seedAdmin(t, conn)

	agent := newClient(t, srv)
	validator := newClient(t, srv)
	admin := newClient(t, srv)

	// Accounts. Signup always grants the agent role.
	agentProfile := signup(agent, "agent@instat.ml")
	assert.Equal(t, models.RoleAgent, agentProfile.Role)
	validatorProfile := signup(validator, "validateur@instat.ml")

	resp := admin.do("POST", "/auth/login", map[string]string{
		"email": "admin@instat.ml", "password": "admin123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Admin promotes the second account to validateur.
	resp = admin.do("POST", "/admin/users/"+validatorProfile.ID+"/role",
		map[string]string{"role": "validateur"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	promoted := decode[models.Profile](t, resp)
	assert.Equal(t, models.RoleValidateur, promoted.Role)

	// Agent creates a complete draft and submits it.
	annee := 2025
	resp = agent.do("POST", "/fiches", map[string]any{
		"titre": "Enquête agricole de conjoncture",
		"annee": annee,
		"data": map[string]any{
			"section1": map[string]any{
				"region": "Kayes", "cercle": "Kita",
				"structure_realisation_code": "01",
				"structure_collecte_code":    "02",
				"responsable":                "A. Traoré",
				"numero_fiche":               "F-2025-001",
				"intitule_activite":          "Enquête agricole",
				"resultat_code":              "1.1",
			},
			"section2": map[string]any{
				"envergure": map[string]string{"code": "1"},
			},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.Fiche](t, resp)

	resp = agent.do("POST", "/fiches/"+created.ID+"/submit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	submitted := decode[models.Fiche](t, resp)
	assert.Equal(t, models.StatutSoumis, submitted.Statut)

	// Agent may not reach the validator queue: fail-soft redirect.
	resp = agent.do("GET", "/validator/fiches", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	resp.Body.Close()

	// Validator sees the pending fiche and approves it.
	resp = validator.do("GET", "/validator/fiches", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	queue := decode[struct {
		Fiches []models.Fiche `json:"fiches"`
	}](t, resp)
	require.Len(t, queue.Fiches, 1)

	resp = validator.do("POST", "/fiches/"+created.ID+"/decide",
		map[string]string{"decision": "valide"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decided := decode[models.Fiche](t, resp)
	assert.Equal(t, models.DecisionValide, decided.Decision)

	// A second decision conflicts.
	resp = validator.do("POST", "/fiches/"+created.ID+"/decide",
		map[string]string{"decision": "rejete", "comment": "trop tard"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Dashboard counters reflect the outcome for the owner.
	resp = agent.do("GET", "/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dash := decode[struct {
		Role  models.Role `json:"role"`
		Stats struct {
			Total    int64 `json:"total"`
			Validees int64 `json:"validees"`
		} `json:"stats"`
	}](t, resp)
	assert.Equal(t, models.RoleAgent, dash.Role)
	assert.Equal(t, int64(1), dash.Stats.Total)
	assert.Equal(t, int64(1), dash.Stats.Validees)
}

func TestAnonymousRedirectedToLogin(t *testing.T) {
	srv, _ := newTestServer(t)

	// No Accept header: an HTML client is redirected, path preserved.
	req, err := http.NewRequest("GET", srv.URL+"/fiches", nil)
	require.NoError(t, err)
	httpClient := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/auth/login?redirectTo=%2Ffiches", resp.Header.Get("Location"))

	// A JSON client gets 401 instead.
	req, err = http.NewRequest("GET", srv.URL+"/fiches", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	resp, err = httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoleManagementRequiresAdmin(t *testing.T) {
	srv, _ := newTestServer(t)

	agent := newClient(t, srv)
	profile := signup(agent, "agent2@instat.ml")

	// An agent is turned away from the admin area before any handler runs.
	resp := agent.do("GET", "/admin/users", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	resp.Body.Close()

	resp = agent.do("POST", "/admin/users/"+profile.ID+"/role",
		map[string]string{"role": "admin"})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp.Body.Close()
}
