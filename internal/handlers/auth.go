// Package handlers exposes the portal's JSON HTTP surface. Handlers stay
// thin: authorization happens in the access guard, transitions in the
// lifecycle engine.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/instat-sds/fiches-portal/auth"
	"github.com/instat-sds/fiches-portal/httpx"
	"github.com/instat-sds/fiches-portal/internal/models"
	"github.com/instat-sds/fiches-portal/validation"
)

type AuthHandler struct {
	db *gorm.DB
}

func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{db: db}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func decodeCredentials(r *http.Request) (credentials, bool) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		return c, false
	}
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	return c, true
}

// Signup registers a new account. New users always start as agents; only an
// admin can grant a different role afterwards.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_body", nil)
		return
	}
	viol := validation.Violations{}
	validation.Required("email", c.Email, viol)
	validation.Required("password", c.Password, viol)
	if !viol.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_error", viol)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	user := models.User{
		Email:    c.Email,
		FullName: strings.TrimSpace(c.FullName),
		Password: string(hash),
		Role:     models.RoleAgent,
	}
	if err := h.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "email_already_exists", nil)
		return
	}

	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusCreated, user.Profile())
}

// Login checks credentials and opens a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeCredentials(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_body", nil)
		return
	}

	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, "email = ?", c.Email).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(c.Password)); err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}

	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, user.Profile())
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Me returns the caller's profile; the presentation layer uses it to pick the
// navigation shell for the role.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, "id = ?", uid).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, user.Profile())
}
