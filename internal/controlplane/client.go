// Package controlplane is the HTTP client for the cluster control plane: it
// fetches cluster descriptors and records terminal run status.
package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/topology"
	"github.com/autokube/provisioner/internal/util/retry"
)

// ClustersEndpoint is the descriptor and status path.
const ClustersEndpoint = "/api/clusters/"

const maxBodySize = 8 << 20

// Status values understood by the control plane.
const (
	StatusReady  = "ready"
	StatusFailed = "failed"
)

// StatusUpdate is the body of a status PUT.
type StatusUpdate struct {
	Status string `json:"status"`
	RunID  string `json:"runId,omitempty"`
	Stage  string `json:"stage,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Node   string `json:"node,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Client talks to the control plane with bearer authentication.
type Client struct {
	token      string
	endpoint   string
	httpClient *http.Client
	retryOpts  []retry.Option
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(opts ...retry.Option) Option {
	return func(c *Client) { c.retryOpts = opts }
}

// NewClient creates a client for the control plane at endpoint.
func NewClient(endpoint, token string, opts ...Option) *Client {
	c := &Client{
		token:    token,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryOpts: []retry.Option{retry.WithMaxRetries(3)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) clusterURL(id string) string {
	return c.endpoint + ClustersEndpoint + "?" + url.Values{"id": {id}}.Encode()
}

// FetchCluster retrieves and validates the descriptor of cluster id.
// Transport and HTTP failures are KindFetch; schema violations are KindMalformed.
func (c *Client) FetchCluster(ctx context.Context, id string) (*topology.ClusterDescriptor, error) {
	var body []byte
	err := retry.WithExponentialBackoff(ctx, func() error {
		var err error
		body, err = c.do(ctx, http.MethodGet, c.clusterURL(id), nil)
		return err
	}, c.retryOpts...)
	if err != nil {
		return nil, fault.New(fault.KindFetch, fmt.Errorf("failed to fetch cluster %s: %w", id, err))
	}

	descriptor, err := topology.Decode(body)
	if err != nil {
		return nil, fault.New(fault.KindMalformed, err)
	}
	if descriptor.ID == "" {
		descriptor.ID = id
	}
	return descriptor, nil
}

// UpdateStatus records the run outcome for cluster id. The PUT is
// idempotent and retried on transient failures.
func (c *Client) UpdateStatus(ctx context.Context, id string, update StatusUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fault.New(fault.KindReport, fmt.Errorf("failed to encode status: %w", err))
	}

	err = retry.WithExponentialBackoff(ctx, func() error {
		_, err := c.do(ctx, http.MethodPut, c.clusterURL(id), payload)
		return err
	}, c.retryOpts...)
	if err != nil {
		return fault.New(fault.KindReport, fmt.Errorf("failed to update status of cluster %s: %w", id, err))
	}
	return nil
}

// do performs one request. Client errors other than 408 and 429 are
// marked fatal so the retry loop gives up immediately.
func (c *Client) do(ctx context.Context, method, u string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, retry.Fatal(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, retry.Fatal(err)
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Method: method, Code: resp.StatusCode, Body: truncate(string(body), 512)}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusRequestTimeout {
			return nil, retry.Fatal(statusErr)
		}
		return nil, statusErr
	}

	return body, nil
}

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Method, e.Code)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Method, e.Code, e.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
