package fbgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "tok-1", r.URL.Query().Get("access_token"))
		assert.Equal(t, "id,name,email", r.URL.Query().Get("fields"))
		json.NewEncoder(w).Encode(map[string]string{
			"id": "fb-1", "name": "Ada", "email": "ada@example.com",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	profile, err := client.FetchProfile(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "fb-1", profile.ID)
	assert.Equal(t, "Ada", profile.Name)
	assert.Equal(t, "ada@example.com", profile.Email)
}

func TestFetchManagedPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/accounts", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{
				{"id": "p1", "name": "Page One", "category": "Retail", "access_token": "page-tok"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	pages, err := client.FetchManagedPages(context.Background(), "tok-1")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "p1", pages[0].ID)
	assert.Equal(t, "page-tok", pages[0].AccessToken)
}

func TestPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/p1/feed", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "hello", r.PostForm.Get("message"))
		assert.Equal(t, "page-tok", r.PostForm.Get("access_token"))
		json.NewEncoder(w).Encode(map[string]string{"id": "p1_post9"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	postID, err := client.Publish(context.Background(), "p1", "page-tok", "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "p1_post9", postID)
}

func TestUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad token"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.FetchProfile(context.Background(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
