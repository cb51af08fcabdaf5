package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"plantdoctor/internal/model"
)

const (
	regionalMarker = "site:.in"
	regionalDomain = "amazon.in"
)

type searchResponse struct {
	Items *[]searchItem `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type searchItem struct {
	Title   *string `json:"title"`
	Snippet *string `json:"snippet"`
	Link    *string `json:"link"`
}

// Search queries the web search API. Queries containing "site:.in" keep only
// amazon.in links.
func (c *Client) Search(ctx context.Context, query string, maxResults int) Result[[]model.SearchResult] {
	empty := []model.SearchResult{}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.searchFailed(query, err.Error(), err)
		}
	}

	params := url.Values{
		"q":   {query},
		"key": {c.apiKey},
		"cx":  {c.searchEngineID},
		"num": {strconv.Itoa(clampResults(maxResults))},
	}
	_, body, err := c.get(ctx, c.searchURL, params)
	if err != nil {
		return c.searchFailed(query, err.Error(), err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("Search response for %q is not JSON: %v", query, err)
		return Fail(empty, FailureSearchParse, fmt.Sprintf("Error parsing JSON: %v", err), err)
	}

	if resp.Items == nil {
		msg := "Unknown error"
		if resp.Error != nil && resp.Error.Message != "" {
			msg = resp.Error.Message
		}
		return c.searchFailed(query, msg, nil)
	}

	regional := strings.Contains(query, regionalMarker)
	results := make([]model.SearchResult, 0, len(*resp.Items))
	for _, item := range *resp.Items {
		r := model.SearchResult{
			Title:   valueOr(item.Title, "No title"),
			Snippet: valueOr(item.Snippet, "No description available"),
			Link:    valueOr(item.Link, ""),
		}
		if regional && !strings.Contains(r.Link, regionalDomain) {
			continue
		}
		results = append(results, r)
	}
	return Ok(results)
}

func (c *Client) searchFailed(query, msg string, err error) Result[[]model.SearchResult] {
	c.logger.Error("Search for %q failed: %s", query, msg)
	return Fail([]model.SearchResult{}, FailureSearchAPI,
		fmt.Sprintf("Search error or no items found: %s", msg), err)
}

// clampResults keeps n within what the search API accepts.
func clampResults(n int) int {
	switch {
	case n <= 0:
		return DefaultResults
	case n > searchLimit:
		return searchLimit
	}
	return n
}

func valueOr(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}
