package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xhad/amp/internal/models"
)

// maxResults is the hard cap on results per query regardless of how many the
// caller asks for.
const maxResults = 10

// queryQualifier biases results toward long-form content.
const queryQualifier = "blog article"

// defaultExcludedHosts are never cited: social platforms do not carry the
// long-form prose the synthesizer needs.
var defaultExcludedHosts = []string{
	"facebook.com",
	"twitter.com",
	"x.com",
	"instagram.com",
	"linkedin.com",
	"pinterest.com",
	"reddit.com",
	"youtube.com",
	"tiktok.com",
}

type SearchConfig struct {
	APIKey        string
	EngineID      string
	Endpoint      string
	OwnHost       string // host of the site being enhanced, never cited
	ExcludedHosts []string
	Timeout       time.Duration
}

// Client queries a Google Custom Search-style JSON endpoint. Every failure
// mode (missing credentials, network error, non-2xx, bad JSON) degrades to
// an empty result set; retrieval problems must never abort a batch.
type Client struct {
	config SearchConfig
	client *http.Client
}

func NewWithConfig(config SearchConfig) *Client {
	if config.Endpoint == "" {
		config.Endpoint = "https://www.googleapis.com/customsearch/v1"
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	config.ExcludedHosts = append(config.ExcludedHosts, defaultExcludedHosts...)
	if config.OwnHost != "" {
		config.ExcludedHosts = append(config.ExcludedHosts, config.OwnHost)
	}

	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// searchResponse mirrors the item list shape of the search API. Anything
// outside these fields is untrusted and ignored.
type searchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// Search returns up to desired results for the topic, capped at maxResults.
func (c *Client) Search(ctx context.Context, topic string, desired int) []models.SearchResult {
	if topic == "" || desired < 1 {
		return nil
	}
	if c.config.APIKey == "" || c.config.EngineID == "" {
		return nil
	}
	if desired > maxResults {
		desired = maxResults
	}

	params := url.Values{}
	params.Set("key", c.config.APIKey)
	params.Set("cx", c.config.EngineID)
	params.Set("q", topic+" "+queryQualifier)
	params.Set("num", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil
	}

	var results []models.SearchResult
	for _, item := range parsed.Items {
		if item.Link == "" || c.excluded(item.Link) {
			continue
		}
		results = append(results, models.SearchResult{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
		})
		if len(results) == desired {
			break
		}
	}

	return results
}

// excluded reports whether the URL's host matches the denylist, including
// subdomains of denied hosts.
func (c *Client) excluded(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")

	for _, denied := range c.config.ExcludedHosts {
		denied = strings.ToLower(strings.TrimPrefix(denied, "www."))
		if denied == "" {
			continue
		}
		if host == denied || strings.HasSuffix(host, "."+denied) {
			return true
		}
	}

	return false
}
