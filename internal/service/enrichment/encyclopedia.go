package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	describeAmbiguous = "Information is ambiguous, please refine your search."
	describeNotFound  = "No Wikipedia page found for this disease."
	describeError     = "An error occurred while fetching Wikipedia data."
)

type wikiSearchResponse struct {
	Query struct {
		SearchInfo struct {
			Suggestion string `json:"suggestion"`
		} `json:"searchinfo"`
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type wikiPagesResponse struct {
	Query struct {
		Pages []struct {
			Title     string            `json:"title"`
			Missing   bool              `json:"missing"`
			Extract   string            `json:"extract"`
			PageProps map[string]string `json:"pageprops"`
		} `json:"pages"`
	} `json:"query"`
}

// Describe returns the two-sentence encyclopedia summary for a disease name.
func (c *Client) Describe(ctx context.Context, disease string) Result[string] {
	title, found, err := c.resolveTitle(ctx, disease)
	if err != nil {
		return c.lookupFailed(disease, err)
	}
	if !found {
		return c.pageNotFound(disease)
	}

	params := url.Values{
		"action":        {"query"},
		"prop":          {"extracts|pageprops"},
		"ppprop":        {"disambiguation"},
		"exsentences":   {"2"},
		"explaintext":   {"1"},
		"redirects":     {"1"},
		"titles":        {title},
		"format":        {"json"},
		"formatversion": {"2"},
	}
	var pages wikiPagesResponse
	if err := c.wikiQuery(ctx, params, &pages); err != nil {
		return c.lookupFailed(disease, err)
	}
	if len(pages.Query.Pages) == 0 {
		return c.pageNotFound(disease)
	}

	page := pages.Query.Pages[0]
	if page.Missing {
		return c.pageNotFound(disease)
	}
	if _, ok := page.PageProps["disambiguation"]; ok {
		c.logger.Warning("Encyclopedia title %q for %s is a disambiguation page", page.Title, disease)
		return Fail(describeAmbiguous, FailureAmbiguous,
			fmt.Sprintf("DisambiguationError: %q may refer to several pages", page.Title), nil)
	}

	extract := strings.TrimSpace(page.Extract)
	if extract == "" {
		return c.pageNotFound(disease)
	}
	return Ok(extract)
}

// resolveTitle finds the best matching page title, preferring the search suggestion.
func (c *Client) resolveTitle(ctx context.Context, disease string) (string, bool, error) {
	params := url.Values{
		"action":        {"query"},
		"list":          {"search"},
		"srsearch":      {disease},
		"srlimit":       {"1"},
		"srinfo":        {"suggestion"},
		"srprop":        {""},
		"format":        {"json"},
		"formatversion": {"2"},
	}
	var resp wikiSearchResponse
	if err := c.wikiQuery(ctx, params, &resp); err != nil {
		return "", false, err
	}

	if s := resp.Query.SearchInfo.Suggestion; s != "" {
		return s, true, nil
	}
	if len(resp.Query.Search) > 0 {
		return resp.Query.Search[0].Title, true, nil
	}
	return "", false, nil
}

func (c *Client) wikiQuery(ctx context.Context, params url.Values, out any) error {
	status, body, err := c.get(ctx, c.wikipediaURL, params)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("encyclopedia returned status %d", status)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode encyclopedia response: %w", err)
	}
	return nil
}

func (c *Client) pageNotFound(disease string) Result[string] {
	return Fail(describeNotFound, FailureNotFound,
		fmt.Sprintf("PageError: No Wikipedia page found for %s.", disease), nil)
}

func (c *Client) lookupFailed(disease string, err error) Result[string] {
	c.logger.Error("Encyclopedia lookup for %s failed: %v", disease, err)
	return Fail(describeError, FailureLookup,
		fmt.Sprintf("An error occurred while fetching Wikipedia data: %v", err), err)
}
