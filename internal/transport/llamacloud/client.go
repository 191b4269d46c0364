package llamacloud

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/thebeast/llamarouter/internal/domain/filter"
	"github.com/thebeast/llamarouter/internal/domain/retrieval"
)

// DefaultBaseURL is the public LlamaCloud API endpoint.
const DefaultBaseURL = "https://api.cloud.llamaindex.ai"

// Timeout defaults.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 120 * time.Second
)

// Config holds LlamaCloud connection parameters.
type Config struct {
	APIKey         string
	BaseURL        string
	OrganizationID string
	ProjectName    string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// Index maps a target name to a LlamaCloud pipeline, either by id or by index name.
type Index struct {
	Target     string
	IndexName  string
	PipelineID string
}

// Client calls the LlamaCloud pipeline retrieval API. Safe for concurrent use.
type Client struct {
	baseURL        string
	apiKey         string
	organizationID string
	projectName    string
	httpClient     *http.Client
	attemptTimeout time.Duration
	indexes        map[string]Index

	resolveMu sync.RWMutex
	resolved  map[string]string
}

// New creates a client for the given target indexes.
func New(cfg Config, indexes []Index) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	byTarget := make(map[string]Index, len(indexes))
	for _, idx := range indexes {
		if idx.PipelineID == "" && idx.IndexName == "" {
			return nil, fmt.Errorf("target %q: index name or pipeline id is required", idx.Target)
		}
		byTarget[idx.Target] = idx
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		organizationID: cfg.OrganizationID,
		projectName:    cfg.ProjectName,
		httpClient:     &http.Client{Transport: newTransport(cfg.ConnectTimeout, cfg.ReadTimeout)},
		attemptTimeout: cfg.ConnectTimeout + cfg.ReadTimeout,
		indexes:        byTarget,
		resolved:       make(map[string]string),
	}, nil
}

func newTransport(connect, read time.Duration) *http.Transport {
	dialer := &net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   connect,
		ResponseHeaderTimeout: read,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}

// Retrieve runs one retrieval attempt against the pipeline behind targetName.
// The filter is omitted from the request when expr is empty.
// Transient failures satisfy IsTransient; everything else is fatal.
func (c *Client) Retrieve(
	ctx context.Context, targetName, query string,
	expr filter.Expression, tuning retrieval.Tuning,
) ([]retrieval.Passage, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	pipelineID, err := c.pipelineID(attemptCtx, targetName)
	if err != nil {
		return nil, classify(ctx, err)
	}

	var resp retrieveResponse
	path := "/api/v1/pipelines/" + url.PathEscape(pipelineID) + "/retrieve"
	body := newRetrieveRequest(query, expr, tuning)
	if err := c.doJSON(attemptCtx, http.MethodPost, path, body, &resp, "retrieve"); err != nil {
		return nil, classify(ctx, err)
	}
	return resp.passages(), nil
}

// HealthCheck verifies the API key by listing projects.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	q := url.Values{}
	if c.organizationID != "" {
		q.Set("organization_id", c.organizationID)
	}
	var projects []map[string]any
	return c.doJSON(ctx, http.MethodGet, "/api/v1/projects?"+q.Encode(), nil, &projects, "list projects")
}

// pipelineID returns the configured pipeline id or resolves it by name.
// The lookup runs outside the lock under ctx, so a slow lookup for one target
// never delays another; concurrent first lookups of the same target may both run.
func (c *Client) pipelineID(ctx context.Context, targetName string) (string, error) {
	idx, ok := c.indexes[targetName]
	if !ok {
		return "", fmt.Errorf("llamacloud: no index configured for target %q", targetName)
	}
	if idx.PipelineID != "" {
		return idx.PipelineID, nil
	}

	c.resolveMu.RLock()
	id, ok := c.resolved[targetName]
	c.resolveMu.RUnlock()
	if ok {
		return id, nil
	}

	q := url.Values{}
	q.Set("pipeline_name", idx.IndexName)
	if c.projectName != "" {
		q.Set("project_name", c.projectName)
	}
	if c.organizationID != "" {
		q.Set("organization_id", c.organizationID)
	}

	var pipelines []pipeline
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/pipelines?"+q.Encode(), nil, &pipelines, "search pipelines"); err != nil {
		return "", err
	}
	for _, p := range pipelines {
		if p.Name == idx.IndexName && p.ID != "" {
			c.resolveMu.Lock()
			c.resolved[targetName] = p.ID
			c.resolveMu.Unlock()
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("llamacloud: pipeline %q not found", idx.IndexName)
}
