package scholar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Academic Graph API root.
	BaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultTimeout is the HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// RateLimit is the unauthenticated request rate, per second.
	RateLimit = 1.0

	// KeyedRateLimit applies when an API key is set.
	KeyedRateLimit = 10.0

	// PaperFields are requested for every paper lookup.
	PaperFields = "paperId,externalIds,title,abstract,authors,year,venue,publicationDate,citationCount,referenceCount,fieldsOfStudy"

	// EdgeFields are requested for the papers on either side of a citation.
	EdgeFields = "paperId,externalIds,title,authors,year,venue"

	// MaxPageSize is the largest limit the citation endpoints accept.
	MaxPageSize = 1000
)

// Client is a rate-limited Graph API client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey authenticates requests and raises the rate limit.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL points the client at another server, such as a test server.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithRateLimit overrides the requests-per-second limit.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewClient returns a client for the public API.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		limit := RateLimit
		if c.apiKey != "" {
			limit = KeyedRateLimit
		}
		c.limiter = rate.NewLimiter(rate.Limit(limit), 1)
	}
	return c
}

// paperPath escapes an id for the URL path, keeping the slashes of DOIs.
func paperPath(pid string) string {
	return "/paper/" + strings.ReplaceAll(url.PathEscape(pid), "%2F", "/")
}

func checkHTTPErrors(resp *http.Response, paperID string) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, paperID)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(body)), PaperID: paperID}
	}
	return nil
}

// do sends one request and decodes the JSON body into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any, paperID string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp, paperID); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// GetPaper fetches one paper by any identifier ParsePaperID accepts.
func (c *Client) GetPaper(ctx context.Context, id string) (*Paper, error) {
	pid := ParsePaperID(id).String()
	var paper Paper
	q := url.Values{"fields": {PaperFields}}
	if err := c.do(ctx, http.MethodGet, paperPath(pid), q, nil, &paper, pid); err != nil {
		return nil, err
	}
	if paper.PaperID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, pid)
	}
	return &paper, nil
}

// GetPapers fetches papers in one batch request. Unknown ids are left out.
func (c *Client) GetPapers(ctx context.Context, ids []string) ([]Paper, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	req := struct {
		IDs []string `json:"ids"`
	}{}
	for _, id := range ids {
		req.IDs = append(req.IDs, ParsePaperID(id).String())
	}
	var raw []*Paper
	q := url.Values{"fields": {PaperFields}}
	if err := c.do(ctx, http.MethodPost, "/paper/batch", q, req, &raw, ""); err != nil {
		return nil, err
	}
	out := make([]Paper, 0, len(raw))
	for _, p := range raw {
		if p != nil && p.PaperID != "" {
			out = append(out, *p)
		}
	}
	return out, nil
}

// GetReferences returns up to limit papers cited by id; limit <= 0 means all.
func (c *Client) GetReferences(ctx context.Context, id string, limit int) ([]Paper, error) {
	return c.citations(ctx, id, "references", limit, func(ci citation) *Paper { return ci.CitedPaper })
}

// GetCitations returns up to limit papers citing id; limit <= 0 means all.
func (c *Client) GetCitations(ctx context.Context, id string, limit int) ([]Paper, error) {
	return c.citations(ctx, id, "citations", limit, func(ci citation) *Paper { return ci.CitingPaper })
}

func (c *Client) citations(ctx context.Context, id, edge string, limit int, pick func(citation) *Paper) ([]Paper, error) {
	pid := ParsePaperID(id).String()
	var out []Paper
	offset := 0
	for {
		size := MaxPageSize
		if limit > 0 && limit-len(out) < size {
			size = limit - len(out)
		}
		q := url.Values{
			"fields": {EdgeFields},
			"offset": {strconv.Itoa(offset)},
			"limit":  {strconv.Itoa(size)},
		}
		var page citationPage
		if err := c.do(ctx, http.MethodGet, paperPath(pid)+"/"+edge, q, nil, &page, pid); err != nil {
			return nil, err
		}
		for _, ci := range page.Data {
			if p := pick(ci); p != nil && p.PaperID != "" {
				out = append(out, *p)
			}
		}
		if page.Next == 0 || len(page.Data) == 0 || (limit > 0 && len(out) >= limit) {
			break
		}
		offset = page.Next
	}
	return out, nil
}

// SearchPapers runs a relevance search and returns one page of results.
func (c *Client) SearchPapers(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	q := url.Values{
		"query":  {query},
		"fields": {PaperFields},
		"limit":  {strconv.Itoa(limit)},
	}
	var resp SearchResponse
	if err := c.do(ctx, http.MethodGet, "/paper/search", q, nil, &resp, ""); err != nil {
		return nil, err
	}
	return &resp, nil
}
