// Package gitlab reads merge request state from a GitLab instance.
package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ALT-F4-LLC/fixtrack/internal/logging"
	"github.com/ALT-F4-LLC/fixtrack/internal/reconcile"
)

// ErrNotConfigured is returned when no base URL is set.
var ErrNotConfigured = errors.New("gitlab url not configured")

// Options configures a Client.
type Options struct {
	BaseURL           string
	Token             string
	RequestsPerSecond float64 // zero disables rate limiting
	Concurrency       int
	Timeout           time.Duration
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// Client queries the GitLab REST API.
type Client struct {
	baseURL     string
	token       string
	http        *http.Client
	limiter     *rate.Limiter
	concurrency int
	logger      *slog.Logger
}

// NewClient returns a Client for opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid gitlab url: %w", err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		token:       opts.Token,
		http:        hc,
		limiter:     limiter,
		concurrency: opts.Concurrency,
		logger:      logging.OrDiscard(opts.Logger).With("component", "gitlab"),
	}, nil
}

// QueryMergeRequests implements reconcile.MergeRequestSource with one API
// call per merge request.
func (c *Client) QueryMergeRequests(ctx context.Context, refs []reconcile.MergeRequestRef) (map[string]reconcile.MergeRequestState, error) {
	return reconcile.PerRequest(c.MergeRequest, c.concurrency).QueryMergeRequests(ctx, refs)
}

// mergeRequest is the subset of the GitLab merge request payload we read.
type mergeRequest struct {
	IID         int    `json:"iid"`
	State       string `json:"state"`
	MergeStatus string `json:"merge_status"`
	WebURL      string `json:"web_url"`
}

// MergeRequest fetches the state of one merge request.
func (c *Client) MergeRequest(ctx context.Context, ref reconcile.MergeRequestRef) (reconcile.MergeRequestState, error) {
	project, iid, err := resolve(ref)
	if err != nil {
		return reconcile.MergeRequestState{}, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return reconcile.MergeRequestState{}, err
	}

	endpoint := fmt.Sprintf("%s/api/v4/projects/%s/merge_requests/%s", c.baseURL, url.PathEscape(project), iid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return reconcile.MergeRequestState{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("PRIVATE-TOKEN", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return reconcile.MergeRequestState{}, fmt.Errorf("fetching merge request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("merge request lookup failed", "mr_url", ref.MrURL, "status", resp.StatusCode)
		return reconcile.MergeRequestState{}, fmt.Errorf("gitlab api error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var mr mergeRequest
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return reconcile.MergeRequestState{}, fmt.Errorf("decoding merge request: %w", err)
	}

	c.logger.Debug("merge request fetched", "mr_url", ref.MrURL, "state", mr.State, "merge_status", mr.MergeStatus)
	return reconcile.MergeRequestState{State: mr.State, MergeStatus: mr.MergeStatus}, nil
}

// resolve returns the project id or path and the merge request iid for ref,
// falling back to the web URL when the ids were not recorded.
func resolve(ref reconcile.MergeRequestRef) (project, iid string, err error) {
	if ref.ProjectID != "" && ref.MrID != "" {
		return ref.ProjectID, ref.MrID, nil
	}

	u, err := url.Parse(ref.MrURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing mr url: %w", err)
	}
	path := strings.Trim(u.Path, "/")
	const marker = "/-/merge_requests/"
	i := strings.Index(path, marker)
	if i <= 0 {
		return "", "", fmt.Errorf("cannot resolve merge request from url %q", ref.MrURL)
	}

	project = path[:i]
	iid = strings.SplitN(path[i+len(marker):], "/", 2)[0]
	if iid == "" {
		return "", "", fmt.Errorf("cannot resolve merge request from url %q", ref.MrURL)
	}
	if ref.ProjectID != "" {
		project = ref.ProjectID
	}
	if ref.MrID != "" {
		iid = ref.MrID
	}
	return project, iid, nil
}
