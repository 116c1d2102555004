package launchpad

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIURL is the production web service root.
const DefaultAPIURL = "https://api.launchpad.net/devel/"

// ClientConfig configures a Client.
type ClientConfig struct {
	APIURL        *url.URL // Web service root, e.g. https://api.launchpad.net/devel/
	Timeout       time.Duration
	SkipTLSVerify bool
	UserAgent     string
}

// Client talks to the Launchpad REST web service.
type Client struct {
	APIURL    *url.URL     // Base API URL (must end with a slash)
	Client    *http.Client // Underlying HTTP client
	UserAgent string
	auth      AuthFunc
}

// NewClient returns a Client for the given web service root and authentication function.
func NewClient(cfg ClientConfig, auth AuthFunc) *Client {
	return &Client{
		APIURL:    cfg.APIURL,
		Client:    newHTTPClient(cfg.Timeout, cfg.SkipTLSVerify),
		UserAgent: cfg.UserAgent,
		auth:      auth,
	}
}

// GetProject looks up a project by name.
func (c *Client) GetProject(ctx context.Context, name string) (Project, error) {
	var p Project
	name = strings.TrimSpace(name)
	if name == "" {
		return p, fmt.Errorf("missing project name")
	}
	if err := c.getJSON(ctx, url.PathEscape(name), &p); err != nil {
		return p, fmt.Errorf("get project %q: %w", name, err)
	}
	return p, nil
}

// SearchTasks returns all bug tasks of project matching opts, in the order the
// service returns them. Each task's Bug is fetched from its bug link.
func (c *Client) SearchTasks(ctx context.Context, project string, opts SearchOptions) ([]BugTask, error) {
	project = strings.TrimSpace(project)
	if project == "" {
		return nil, fmt.Errorf("missing project name")
	}

	params := url.Values{}
	params.Set("ws.op", "searchTasks")
	for _, s := range opts.Statuses {
		if s != "" {
			params.Add("status", s)
		}
	}
	params.Set("omit_duplicates", strconv.FormatBool(!opts.IncludeDuplicates))

	var tasks []BugTask
	next := url.PathEscape(project) + "?" + params.Encode()
	seen := map[string]struct{}{}
	for next != "" {
		// stop if the service hands back a link we already followed
		if _, dup := seen[next]; dup {
			break
		}
		seen[next] = struct{}{}

		var page collection[BugTask]
		if err := c.getJSON(ctx, next, &page); err != nil {
			return nil, fmt.Errorf("search tasks: %w", err)
		}
		tasks = append(tasks, page.Entries...)
		next = page.NextCollectionLink
	}

	for i := range tasks {
		if tasks[i].BugLink == "" {
			continue
		}
		bug, err := c.GetBug(ctx, tasks[i].BugLink)
		if err != nil {
			return nil, err
		}
		tasks[i].Bug = &bug
	}
	return tasks, nil
}

// GetBug fetches a bug by its API link.
func (c *Client) GetBug(ctx context.Context, link string) (Bug, error) {
	var b Bug
	if err := c.getJSON(ctx, link, &b); err != nil {
		return b, fmt.Errorf("get bug %s: %w", link, err)
	}
	return b, nil
}

// getJSON performs a GET on ref and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, ref string, out any) error {
	body, _, err := c.doRequest(ctx, http.MethodGet, ref)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// doRequest performs an authenticated HTTP request and returns response body, status, and error.
// ref may be relative to APIURL or an absolute link returned by the service.
func (c *Client) doRequest(ctx context.Context, method, ref string) (response []byte, statusCode int, err error) {
	relURL, err := url.Parse(ref)
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("parse path: %w", err)
	}
	fullURL := c.APIURL.ResolveReference(relURL).String()

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("create request: %w", err)
	}

	if c.auth != nil {
		c.auth(req) // apply authentication
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, http.StatusBadGateway, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return respBody, resp.StatusCode, fmt.Errorf("launchpad error: %d: %s", resp.StatusCode, string(trim(respBody, 2048)))
	}
	return respBody, resp.StatusCode, nil
}
