package identity

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bloghub/blog-api/internal/domain"
	"github.com/bloghub/blog-api/internal/pkg/authctx"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *Service) {
	t.Helper()
	service, _, _ := newTestService(t)
	h := NewHandler(service)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				p, err := service.ValidateToken(req.Context(), req.Header.Get("X-Test-Token"))
				if err != nil {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, req.WithContext(authctx.WithPrincipal(req.Context(), p)))
			})
		})
		h.RegisterProtectedRoutes(r)
	})
	return r, service
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Test-Token", token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type authEnvelope struct {
	Data struct {
		Token     string      `json:"token"`
		TokenType string      `json:"token_type"`
		User      domain.User `json:"user"`
	} `json:"data"`
}

func TestHandler_Register(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", map[string]string{
		"email":        "ivy@example.com",
		"display_name": "Ivy",
		"password":     "password",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password_hash")

	var resp authEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Data.Token)
	assert.Equal(t, "Bearer", resp.Data.TokenType)
	assert.Equal(t, "ivy@example.com", resp.Data.User.Email)
	assert.Equal(t, domain.RoleUser, resp.Data.User.Role)

	rec = doJSON(t, router, http.MethodPost, "/auth/register", map[string]string{
		"email":        "ivy@example.com",
		"display_name": "Ivy Again",
		"password":     "password",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_RegisterValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"bad email", map[string]string{"email": "nope", "display_name": "X", "password": "password"}},
		{"short password", map[string]string{"email": "x@example.com", "display_name": "X", "password": "123"}},
		{"missing display name", map[string]string{"email": "x@example.com", "password": "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/auth/register", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_RegisterMultibytePasswordOverBcryptLimit(t *testing.T) {
	router, _ := newTestRouter(t)

	// 40 characters passes the rune-based max, but is 80 bytes.
	rec := doJSON(t, router, http.MethodPost, "/auth/register", map[string]string{
		"email":        "leo@example.com",
		"display_name": "Leo",
		"password":     strings.Repeat("é", 40),
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "72 bytes")
}

func TestHandler_Login(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", map[string]string{
		"email": "jack@example.com", "display_name": "Jack", "password": "password",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
		"email": "jack@example.com", "password": "password",
	}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	wrong := doJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
		"email": "jack@example.com", "password": "nope-nope",
	}, "")
	unknown := doJSON(t, router, http.MethodPost, "/auth/login", map[string]string{
		"email": "nobody@example.com", "password": "nope-nope",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.JSONEq(t, wrong.Body.String(), unknown.Body.String())
}

func TestHandler_Profile(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", map[string]string{
		"email": "kate@example.com", "display_name": "Kate", "password": "password",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var reg authEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reg))

	rec = doJSON(t, router, http.MethodGet, "/users/profile", nil, reg.Data.Token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/users/profile", map[string]string{"display_name": "Katherine"}, reg.Data.Token)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated struct {
		Data domain.User `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.Equal(t, "Katherine", updated.Data.DisplayName)

	rec = doJSON(t, router, http.MethodGet, "/users/"+reg.Data.User.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "mock ids are not UUIDs")

	rec = doJSON(t, router, http.MethodGet, "/users/profile", nil, "bogus")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_UpdateProfileImageURL(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/auth/register", map[string]string{
		"email": "mia@example.com", "display_name": "Mia", "password": "password",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var reg authEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&reg))

	rec = doJSON(t, router, http.MethodPut, "/users/profile", map[string]string{"profile_image_url": "not a url"}, reg.Data.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/users/profile", map[string]string{"profile_image_url": "https://img.example/mia.png"}, reg.Data.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated struct {
		Data domain.User `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	require.NotNil(t, updated.Data.ProfileImageURL)
	assert.Equal(t, "https://img.example/mia.png", *updated.Data.ProfileImageURL)

	rec = doJSON(t, router, http.MethodPut, "/users/profile", map[string]string{"profile_image_url": ""}, reg.Data.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated.Data = domain.User{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.Nil(t, updated.Data.ProfileImageURL)
}

func TestHandler_GetUserUnknown(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/users/7d9f5c1e-0000-4000-8000-000000000000", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
