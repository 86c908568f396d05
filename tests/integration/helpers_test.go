//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bloghub/blog-api/internal/testutil"
	"github.com/stretchr/testify/require"
)

type postData struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Content      string  `json:"content"`
	ThumbnailURL *string `json:"thumbnail_url"`
	Featured     bool    `json:"featured"`
	AuthorID     string  `json:"author_id"`
}

type commentData struct {
	ID       string `json:"id"`
	PostID   string `json:"post_id"`
	AuthorID string `json:"author_id"`
	Content  string `json:"content"`
}

type userData struct {
	ID              string  `json:"id"`
	DisplayName     string  `json:"display_name"`
	Email           string  `json:"email"`
	Role            string  `json:"role"`
	ProfileImageURL *string `json:"profile_image_url"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// newAdminClient returns a validated client logged in as the seeded admin.
func newAdminClient(t *testing.T) (*testutil.Client, string) {
	t.Helper()
	client := newTestClient(t)
	id := client.LoginAsAdmin(t)
	return client, id
}

// newUserClient registers a fresh account so tests do not share comment authors.
func newUserClient(t *testing.T) (*testutil.Client, string) {
	t.Helper()
	client := newTestClient(t)
	id := client.Register(t, testutil.RandomEmail(), "Reader", "password123")
	return client, id
}

// createTestPost creates a post as admin and registers cleanup.
func createTestPost(t *testing.T, admin *testutil.Client, title string, featured bool) postData {
	t.Helper()

	resp, err := admin.POST("/api/v1/posts", map[string]interface{}{
		"title":    title,
		"content":  "Body of " + title,
		"featured": featured,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data postData `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)

	t.Cleanup(func() {
		resp, err := admin.DELETE("/api/v1/posts/" + result.Data.ID)
		if err == nil {
			_ = resp.Body.Close()
		}
	})
	return result.Data
}

// createTestComment comments on postID with client.
func createTestComment(t *testing.T, client *testutil.Client, postID, content string) commentData {
	t.Helper()

	resp, err := client.POST("/api/v1/posts/"+postID+"/comments", map[string]string{
		"content": content,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data commentData `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

func requireStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("unexpected status: want %d, got %d, body=%s", want, resp.StatusCode, testutil.ReadBody(t, resp))
	}
	_ = resp.Body.Close()
}
