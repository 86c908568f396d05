//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bloghub/blog-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystem_Probes(t *testing.T) {
	client := newTestClient(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := client.GET(path)
		require.NoError(t, err)
		assert.Equal(t, "OK", testutil.ReadBody(t, resp), path)
	}
}

func TestSystem_Version(t *testing.T) {
	resp, err := newTestClient(t).GET("/version")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var v map[string]string
	testutil.DecodeJSON(t, resp, &v)
	assert.NotEmpty(t, v["version"])
}

func TestSystem_SecurityHeadersOnAPI(t *testing.T) {
	resp, err := newTestClient(t).GET("/api/v1/posts")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestSystem_MigrationsApplied(t *testing.T) {
	var version int
	var dirty bool
	err := testDB.QueryRow(t.Context(), `SELECT version, dirty FROM schema_migrations`).Scan(&version, &dirty)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.False(t, dirty)
}
