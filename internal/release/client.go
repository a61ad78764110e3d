// Package release queries a GitHub REST API compatible endpoint for the
// latest published release of a repository.
package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
	"git.home.luguber.info/inful/autodeployer/internal/logfields"
	"git.home.luguber.info/inful/autodeployer/internal/retry"
	"git.home.luguber.info/inful/autodeployer/internal/version"
)

const (
	DefaultAPIURL  = "https://api.github.com"
	DefaultTimeout = 30 * time.Second
	acceptHeader   = "application/vnd.github+json"
	apiVersion     = "2022-11-28"
)

// Release is the subset of the GitHub release payload the deployer uses.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	HTMLURL     string    `json:"html_url"`
	PublishedAt time.Time `json:"published_at"`
}

// Source resolves the latest release of a repository.
type Source interface {
	Latest(ctx context.Context, repository string) (Release, error)
}

// Options configures a Client.
type Options struct {
	APIURL     string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Retry governs transient failures; the zero value queries once.
	Retry retry.Policy
}

// Client talks to the releases API.
type Client struct {
	httpClient *http.Client
	apiURL     string
	token      string
	logger     *slog.Logger
	retry      retry.Policy
}

// NewClient creates a Client. The HTTP client timeout bounds every query.
func NewClient(opts Options) *Client {
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{httpClient: httpClient, apiURL: apiURL, token: opts.Token, logger: logger, retry: opts.Retry}
}

// LatestRelease returns the tag of the latest release. Any failure yields
// ("", false) after logging the classified cause.
func (c *Client) LatestRelease(ctx context.Context, repository string) (string, bool) {
	rel, err := c.Latest(ctx, repository)
	if err != nil {
		c.logger.Warn("Release check failed",
			logfields.Repository(repository),
			slog.String("category", string(foundationerrors.GetCategory(err))),
			logfields.Error(err))
		return "", false
	}
	return rel.TagName, true
}

// Latest fetches the latest release. Errors are classified: CategoryNotFound
// when the repository has no releases, CategoryNetwork otherwise. Transport
// failures and 5xx/429 responses are retried per the client's policy.
func (c *Client) Latest(ctx context.Context, repository string) (Release, error) {
	var rel Release
	err := c.retry.Do(ctx, isTransient, func(attempt int, delay time.Duration, err error) {
		c.logger.Info("Retrying release check",
			logfields.Repository(repository),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			logfields.Error(err))
	}, func(ctx context.Context) error {
		var err error
		rel, err = c.fetch(ctx, repository)
		return err
	})
	if err != nil {
		return Release{}, err
	}
	c.logger.Debug("Latest release resolved", logfields.Repository(repository), logfields.Tag(rel.TagName))
	return rel, nil
}

func isTransient(err error) bool {
	ce, ok := foundationerrors.AsClassified(err)
	return ok && ce.Transient()
}

func (c *Client) fetch(ctx context.Context, repository string) (Release, error) {
	req, err := c.newRequest(ctx, repository)
	if err != nil {
		return Release{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Release{}, foundationerrors.NetworkError("release request failed").
			Retryable().
			WithCause(err).
			WithContext("url", req.URL.String()).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		limitedBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		bodyStr := strings.ReplaceAll(string(limitedBody), "\n", " ")

		b := foundationerrors.NetworkError(fmt.Sprintf("release API error: %s", resp.Status))
		switch {
		case resp.StatusCode == http.StatusNotFound:
			b = b.WithCategory(foundationerrors.CategoryNotFound)
		case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
			b = b.Retryable()
		}
		return Release{}, b.
			WithContext("status", resp.Status).
			WithContext("code", resp.StatusCode).
			WithContext("url", req.URL.String()).
			WithContext("response", bodyStr).
			Build()
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return Release{}, foundationerrors.NetworkError("malformed release response").
			WithCause(err).
			WithContext("url", req.URL.String()).
			Build()
	}
	rel.TagName = strings.TrimSpace(rel.TagName)
	if rel.TagName == "" {
		return Release{}, foundationerrors.NetworkError("release has no tag_name").
			WithContext("url", req.URL.String()).
			Build()
	}
	if err := ValidateTag(rel.TagName); err != nil {
		return Release{}, err
	}
	return rel, nil
}

func (c *Client) newRequest(ctx context.Context, repository string) (*http.Request, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, foundationerrors.ConfigError("failed to parse release API URL").
			WithCause(err).
			WithContext("api_url", c.apiURL).
			Build()
	}
	u.Path = path.Join(strings.TrimSuffix(u.Path, "/"), "repos", repository, "releases", "latest")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, foundationerrors.NetworkError("failed to create release request").
			WithCause(err).
			WithContext("url", u.String()).
			Build()
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}
