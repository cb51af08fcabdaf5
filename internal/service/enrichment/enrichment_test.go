package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantdoctor/internal/config"
	"plantdoctor/internal/logger"
)

func newTestClient(t *testing.T, wiki, search http.HandlerFunc) *Client {
	t.Helper()
	cfg := &config.Config{
		GoogleAPIKey:   "key",
		SearchEngineID: "cx",
		HTTPTimeout:    2 * time.Second,
	}
	if wiki != nil {
		srv := httptest.NewServer(wiki)
		t.Cleanup(srv.Close)
		cfg.WikipediaURL = srv.URL
	}
	if search != nil {
		srv := httptest.NewServer(search)
		t.Cleanup(srv.Close)
		cfg.SearchAPIURL = srv.URL
	}
	return New(cfg, nil, logger.Discard())
}

// wikiFake answers the title search and the extract query.
func wikiFake(searchBody, pagesBody string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("list") == "search" {
			fmt.Fprint(w, searchBody)
			return
		}
		fmt.Fprint(w, pagesBody)
	}
}

func TestDescribe_Found(t *testing.T) {
	var gotTitle, gotSentences, gotUA string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotUA = r.Header.Get("User-Agent")
		if q.Get("list") == "search" {
			assert.Equal(t, "Leaf Blight", q.Get("srsearch"))
			fmt.Fprint(w, `{"query":{"searchinfo":{},"search":[{"title":"Leaf blight"}]}}`)
			return
		}
		gotTitle = q.Get("titles")
		gotSentences = q.Get("exsentences")
		fmt.Fprint(w, `{"query":{"pages":[{"title":"Leaf blight","extract":"Leaf blight is a plant disease. It browns leaves."}]}}`)
	}, nil)

	res := c.Describe(context.Background(), "Leaf Blight")
	require.True(t, res.Ok())
	assert.Equal(t, "Leaf blight is a plant disease. It browns leaves.", res.Value)
	assert.Empty(t, res.Warning())
	assert.Equal(t, "Leaf blight", gotTitle)
	assert.Equal(t, "2", gotSentences)
	assert.Equal(t, userAgent, gotUA)
}

func TestDescribe_PrefersSuggestion(t *testing.T) {
	var gotTitle string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("list") == "search" {
			fmt.Fprint(w, `{"query":{"searchinfo":{"suggestion":"powdery mildew"},"search":[{"title":"Mildew"}]}}`)
			return
		}
		gotTitle = r.URL.Query().Get("titles")
		fmt.Fprint(w, `{"query":{"pages":[{"title":"Powdery mildew","extract":"A fungal disease."}]}}`)
	}, nil)

	res := c.Describe(context.Background(), "Powdery Mildw")
	require.True(t, res.Ok())
	assert.Equal(t, "powdery mildew", gotTitle)
}

func TestDescribe_Failures(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		reason      Failure
		value       string
		warningPart string
	}{
		{
			name:        "no search hit",
			handler:     wikiFake(`{"query":{"searchinfo":{},"search":[]}}`, ``),
			reason:      FailureNotFound,
			value:       "No Wikipedia page found for this disease.",
			warningPart: "PageError: No Wikipedia page found for Ghost Spot.",
		},
		{
			name:        "missing page",
			handler:     wikiFake(`{"query":{"search":[{"title":"Ghost Spot"}]}}`, `{"query":{"pages":[{"title":"Ghost Spot","missing":true}]}}`),
			reason:      FailureNotFound,
			value:       "No Wikipedia page found for this disease.",
			warningPart: "PageError: No Wikipedia page found for Ghost Spot.",
		},
		{
			name:        "disambiguation",
			handler:     wikiFake(`{"query":{"search":[{"title":"Ghost Spot"}]}}`, `{"query":{"pages":[{"title":"Ghost Spot","extract":"Ghost Spot may refer to:","pageprops":{"disambiguation":""}}]}}`),
			reason:      FailureAmbiguous,
			value:       "Information is ambiguous, please refine your search.",
			warningPart: "DisambiguationError:",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "down", http.StatusServiceUnavailable)
			},
			reason:      FailureLookup,
			value:       "An error occurred while fetching Wikipedia data.",
			warningPart: "An error occurred while fetching Wikipedia data: encyclopedia returned status 503",
		},
		{
			name:        "garbage body",
			handler:     wikiFake(`<html>`, ``),
			reason:      FailureLookup,
			value:       "An error occurred while fetching Wikipedia data.",
			warningPart: "An error occurred while fetching Wikipedia data: decode encyclopedia response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler, nil)
			res := c.Describe(context.Background(), "Ghost Spot")
			assert.False(t, res.Ok())
			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, tt.value, res.Value)
			assert.Contains(t, res.Warning(), tt.warningPart)
		})
	}
}

func TestDescribe_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := New(&config.Config{WikipediaURL: srv.URL, HTTPTimeout: time.Second}, nil, logger.Discard())
	res := c.Describe(context.Background(), "Rust")
	assert.Equal(t, FailureLookup, res.Reason)
	assert.Error(t, res.Err)
	assert.Equal(t, "An error occurred while fetching Wikipedia data.", res.Value)
}

const searchItems = `{"items":[
	{"title":"Blight cure","snippet":"Spray copper.","link":"https://www.amazon.in/copper"},
	{"title":"Agri blog","snippet":"Rotate crops.","link":"https://agri.example.in/blight"},
	{"link":"https://amazon.in/neem"}
]}`

func TestSearch_Params(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = map[string]string{"q": q.Get("q"), "key": q.Get("key"), "cx": q.Get("cx"), "num": q.Get("num")}
		fmt.Fprint(w, `{"items":[]}`)
	})

	res := c.Search(context.Background(), "Rust pesticides fertilizers site:amazon.in", 3)
	require.True(t, res.Ok())
	assert.NotNil(t, res.Value)
	assert.Empty(t, res.Value)
	assert.Equal(t, map[string]string{
		"q":   "Rust pesticides fertilizers site:amazon.in",
		"key": "key",
		"cx":  "cx",
		"num": "3",
	}, got)
}

func TestSearch_RegionalFilter(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchItems)
	})

	regional := c.Search(context.Background(), "Leaf Blight prevention and cure site:.in", 3)
	require.True(t, regional.Ok())
	require.Len(t, regional.Value, 2)
	assert.Equal(t, "Blight cure", regional.Value[0].Title)
	assert.Equal(t, "No title", regional.Value[1].Title)
	assert.Equal(t, "No description available", regional.Value[1].Snippet)

	products := c.Search(context.Background(), "Leaf Blight pesticides fertilizers site:amazon.in", 3)
	require.True(t, products.Ok())
	assert.Len(t, products.Value, 3, "queries without site:.in keep every item")
}

func TestSearch_Failures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		reason  Failure
		warning string
	}{
		{"not json", "<html>oops</html>", http.StatusOK, FailureSearchParse, "Error parsing JSON: "},
		{"api error", `{"error":{"code":403,"message":"Daily Limit Exceeded"}}`, http.StatusForbidden, FailureSearchAPI, "Search error or no items found: Daily Limit Exceeded"},
		{"no items", `{"searchInformation":{"totalResults":"0"}}`, http.StatusOK, FailureSearchAPI, "Search error or no items found: Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			res := c.Search(context.Background(), "Rust prevention and cure site:.in", 3)
			assert.Equal(t, tt.reason, res.Reason)
			assert.NotNil(t, res.Value)
			assert.Empty(t, res.Value)
			assert.Contains(t, res.Warning(), tt.warning)
		})
	}
}

func TestSearch_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer srv.Close()

	c := New(&config.Config{SearchAPIURL: srv.URL, SearchRate: 0.001, HTTPTimeout: time.Second}, nil, logger.Discard())

	require.True(t, c.Search(context.Background(), "Rust", 3).Ok())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res := c.Search(ctx, "Rust", 3)
	assert.Equal(t, FailureSearchAPI, res.Reason)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClampResults(t *testing.T) {
	assert.Equal(t, 3, clampResults(0))
	assert.Equal(t, 3, clampResults(-4))
	assert.Equal(t, 7, clampResults(7))
	assert.Equal(t, 10, clampResults(50))
}
