// Package backend talks to the image processing service that runs pipelines.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3/client"
	"github.com/meikuraledutech/pipeline"
)

// ErrTransport wraps failures to reach the backend or to read its answer.
// A backend that answers {success: false} is not a transport error.
var ErrTransport = errors.New("backend: transport failure")

// Client is a pipeline.Executor and pipeline.CatalogSource over HTTP.
type Client struct {
	base    string
	cc      *client.Client
	timeout time.Duration
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request. Zero means no client-side limit.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger for submission outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// New returns a client for the service at baseURL, e.g. "http://localhost:5000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		cc:   client.New(),
		log:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute posts req to /api/execute. The backend answers failures with a
// non-2xx status and an {error} body; those come back as a Response with
// Success false.
func (c *Client) Execute(ctx context.Context, req pipeline.Request) (pipeline.Response, error) {
	start := time.Now()
	resp, err := c.cc.Post(c.base+"/api/execute", client.Config{
		Ctx:     ctx,
		Body:    req,
		Timeout: c.timeout,
	})
	if err != nil {
		c.log.WarnContext(ctx, "execute request failed", "error", err)
		return pipeline.Response{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Close()

	var out pipeline.Response
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		c.log.WarnContext(ctx, "unreadable execute response", "status", resp.StatusCode(), "error", err)
		return pipeline.Response{}, fmt.Errorf("%w: status %d: %v", ErrTransport, resp.StatusCode(), err)
	}
	if resp.StatusCode() >= 300 {
		out.Success = false
	}
	c.log.InfoContext(ctx, "pipeline executed",
		"nodes", len(req.Nodes),
		"edges", len(req.Edges),
		"status", resp.StatusCode(),
		"success", out.Success,
		"duration", time.Since(start),
	)
	return out, nil
}

// ListAlgorithms fetches the backend's own catalog from /api/algorithms.
func (c *Client) ListAlgorithms(ctx context.Context) ([]pipeline.Algorithm, error) {
	resp, err := c.cc.Get(c.base+"/api/algorithms", client.Config{
		Ctx:     ctx,
		Timeout: c.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Close()

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: list algorithms: status %d", ErrTransport, resp.StatusCode())
	}
	algs := []pipeline.Algorithm{}
	if err := json.Unmarshal(resp.Body(), &algs); err != nil {
		return nil, fmt.Errorf("%w: list algorithms: %v", ErrTransport, err)
	}
	return algs, nil
}
