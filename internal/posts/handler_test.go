package posts

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bloghub/blog-api/internal/domain"
	"github.com/bloghub/blog-api/internal/pkg/authctx"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withCaller injects a fixed principal, standing in for the auth middleware.
func withCaller(p *domain.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p != nil {
				r = r.WithContext(authctx.WithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newTestRouter(t *testing.T, caller *domain.Principal) (http.Handler, *Service) {
	t.Helper()
	service, _ := newTestService(t)
	h := NewHandler(service)

	r := chi.NewRouter()
	r.Use(withCaller(caller))
	h.RegisterPublicRoutes(r)
	h.RegisterRoutes(r)
	return r, service
}

func request(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CreatePost(t *testing.T) {
	tests := []struct {
		name       string
		caller     *domain.Principal
		body       interface{}
		wantStatus int
	}{
		{"admin", adminCaller, map[string]interface{}{"title": "T", "content": "C"}, http.StatusCreated},
		{"user forbidden", userCaller, map[string]interface{}{"title": "T", "content": "C"}, http.StatusForbidden},
		{"anonymous", nil, map[string]interface{}{"title": "T", "content": "C"}, http.StatusUnauthorized},
		{"missing title", adminCaller, map[string]interface{}{"content": "C"}, http.StatusBadRequest},
		{"bad thumbnail", adminCaller, map[string]interface{}{"title": "T", "content": "C", "thumbnail_url": "not a url"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t, tt.caller)
			rec := request(t, router, http.MethodPost, "/posts", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_ForbiddenMessage(t *testing.T) {
	router, _ := newTestRouter(t, userCaller)

	rec := request(t, router, http.MethodPost, "/posts", map[string]interface{}{"title": "T", "content": "C"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":{"message":"insufficient permissions"}}`, rec.Body.String())
}

func TestHandler_GetPost(t *testing.T) {
	router, service := newTestRouter(t, nil)

	post, err := service.CreatePost(t.Context(), adminCaller, CreateInput{Title: "T", Content: "C"})
	require.NoError(t, err)

	rec := request(t, router, http.MethodGet, "/posts/"+post.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data domain.Post `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, post.ID, resp.Data.ID)

	rec = request(t, router, http.MethodGet, "/posts/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = request(t, router, http.MethodGet, "/posts/00000000-0000-4000-8000-999999999999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ListPostsQuery(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rec := request(t, router, http.MethodGet, "/posts?featured=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(t, router, http.MethodGet, "/posts?author_id=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(t, router, http.MethodGet, "/posts?featured=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	router, service := newTestRouter(t, adminCaller)

	post, err := service.CreatePost(t.Context(), adminCaller, CreateInput{Title: "T", Content: "C"})
	require.NoError(t, err)

	rec := request(t, router, http.MethodPut, "/posts/"+post.ID, map[string]interface{}{"featured": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = request(t, router, http.MethodPut, "/posts/"+post.ID, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(t, router, http.MethodDelete, "/posts/"+post.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = request(t, router, http.MethodDelete, "/posts/"+post.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
