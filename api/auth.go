/*
auth.go - Admin authentication and tenant scoping

PURPOSE:
  Registers schools, logs admins in, and resolves the per-request tenant
  scope from a bearer token. Every protected handler reads the scope from
  the request context; no handler ever trusts a school id supplied by the
  client.

TOKEN:
  HS256 JWT with claims {sub: admin id, school: school id}. Tokens expire
  after 7 days. The signing secret comes from configuration.

PASSWORDS:
  bcrypt hashes only. Login compares with bcrypt; a miss or an unknown
  email both return 401 without distinguishing the two.

SEE ALSO:
  - core/school.go: Sequential school id generation
  - server.go: Where the middleware is mounted
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusworks/school-engine/core"
)

const tokenTTL = 7 * 24 * time.Hour

type scopeKey struct{}

// scopeFrom extracts the authenticated scope placed by RequireAuth.
func scopeFrom(r *http.Request) (core.Scope, bool) {
	s, ok := r.Context().Value(scopeKey{}).(core.Scope)
	return s, ok
}

type authClaims struct {
	School string `json:"school"`
	jwt.RegisteredClaims
}

func (h *Handler) signToken(admin core.Admin) (string, error) {
	now := time.Now()
	claims := authClaims{
		School: string(admin.School),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(admin.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.JWTSecret)
}

// RequireAuth verifies the bearer token and injects the tenant scope into
// the request context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := &authClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return h.JWTSecret, nil
		})
		if err != nil || !token.Valid || claims.School == "" || claims.Subject == "" {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token", nil)
			return
		}

		scope := core.Scope{
			School: core.SchoolID(claims.School),
			Actor:  core.AdminID(claims.Subject),
		}
		ctx := context.WithValue(r.Context(), scopeKey{}, scope)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Register onboards a new school: generates the next sequential school id,
// hashes the password, and creates the first admin account.
// POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password", err)
		return
	}

	// GenerateSchoolID's exists-then-claim sequence is not atomic, so
	// registration is serialized here: two racing registrations must not
	// both claim the same school code and merge tenants.
	h.registerMu.Lock()
	defer h.registerMu.Unlock()

	ctx := r.Context()
	schoolID, err := core.GenerateSchoolID(ctx, h.Admins)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to allocate school id", err)
		return
	}

	admin := core.Admin{
		ID:           core.AdminID(uuid.NewString()),
		School:       schoolID,
		SchoolName:   req.SchoolName,
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
		Active:       true,
		CreatedAt:    time.Now(),
	}
	if err := h.Admins.Insert(ctx, admin); err != nil {
		if core.IsClientError(err) {
			writeError(w, http.StatusConflict, "Email already registered", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create admin", err)
		return
	}

	token, err := h.signToken(admin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to sign token", err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{
		Token:    token,
		SchoolID: string(admin.School),
		AdminID:  string(admin.ID),
		Name:     admin.Name,
	})
}

// Login authenticates an admin by email and password.
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	admin, err := h.Admins.GetByEmail(r.Context(), strings.ToLower(req.Email))
	if err != nil {
		if core.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to look up admin", err)
		return
	}
	if !admin.Active {
		writeError(w, http.StatusUnauthorized, "Account disabled", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	token, err := h.signToken(admin)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to sign token", err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{
		Token:    token,
		SchoolID: string(admin.School),
		AdminID:  string(admin.ID),
		Name:     admin.Name,
	})
}
