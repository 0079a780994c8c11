package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func itemsResponse(items ...map[string]string) []byte {
	payload := map[string]interface{}{"items": items}
	data, _ := json.Marshal(payload)
	return data
}

func TestSearch(t *testing.T) {
	var gotQuery string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write(itemsResponse(
			map[string]string{"title": "First", "link": "https://blog-a.com/post", "snippet": "about chatbots"},
			map[string]string{"title": "Second", "link": "https://blog-b.com/post", "snippet": "more chatbots"},
		))
	})

	client := NewWithConfig(SearchConfig{
		APIKey:   "key",
		EngineID: "engine",
		Endpoint: server.URL,
	})

	results := client.Search(context.Background(), "Intro to Chatbots", 2)
	require.Len(t, results, 2)
	assert.Equal(t, "First", results[0].Title)
	assert.Equal(t, "https://blog-a.com/post", results[0].URL)
	assert.Equal(t, "about chatbots", results[0].Snippet)
	assert.Equal(t, "Intro to Chatbots blog article", gotQuery)
}

func TestSearchCapsDesiredCount(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var items []map[string]string
		for i := 0; i < 20; i++ {
			items = append(items, map[string]string{
				"title": fmt.Sprintf("Result %d", i),
				"link":  fmt.Sprintf("https://blog-%d.com/post", i),
			})
		}
		w.Write(itemsResponse(items...))
	})

	client := NewWithConfig(SearchConfig{
		APIKey:   "key",
		EngineID: "engine",
		Endpoint: server.URL,
	})

	results := client.Search(context.Background(), "golang", 50)
	assert.Len(t, results, 10)
}

func TestSearchFiltersExcludedHosts(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(itemsResponse(
			map[string]string{"title": "Social", "link": "https://www.facebook.com/post"},
			map[string]string{"title": "Subdomain", "link": "https://mobile.twitter.com/post"},
			map[string]string{"title": "Own site", "link": "https://myblog.com/original"},
			map[string]string{"title": "Keep", "link": "https://competitor.com/post"},
		))
	})

	client := NewWithConfig(SearchConfig{
		APIKey:   "key",
		EngineID: "engine",
		Endpoint: server.URL,
		OwnHost:  "myblog.com",
	})

	results := client.Search(context.Background(), "golang", 10)
	require.Len(t, results, 1)
	assert.Equal(t, "https://competitor.com/post", results[0].URL)
}

func TestSearchMissingCredentials(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend should not be called without credentials")
	})

	client := NewWithConfig(SearchConfig{Endpoint: server.URL})

	results := client.Search(context.Background(), "golang", 5)
	assert.Empty(t, results)
}

func TestSearchBackendFailure(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	client := NewWithConfig(SearchConfig{
		APIKey:   "key",
		EngineID: "engine",
		Endpoint: server.URL,
	})

	results := client.Search(context.Background(), "golang", 5)
	assert.Empty(t, results)
}

func TestSearchBadJSON(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	client := NewWithConfig(SearchConfig{
		APIKey:   "key",
		EngineID: "engine",
		Endpoint: server.URL,
	})

	results := client.Search(context.Background(), "golang", 5)
	assert.Empty(t, results)
}

func TestSearchUnreachableBackend(t *testing.T) {
	client := NewWithConfig(SearchConfig{
		APIKey:   "key",
		EngineID: "engine",
		Endpoint: "http://127.0.0.1:1",
	})

	results := client.Search(context.Background(), "golang", 5)
	assert.Empty(t, results)
}

func TestSearchEmptyTopic(t *testing.T) {
	client := NewWithConfig(SearchConfig{APIKey: "key", EngineID: "engine"})

	assert.Empty(t, client.Search(context.Background(), "", 5))
	assert.Empty(t, client.Search(context.Background(), "golang", 0))
}
