// Package client sends add-on commands to the remote design service over HTTP.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pario-ai/dimsync/pkg/models"
	"github.com/pario-ai/dimsync/pkg/protocol"
)

const (
	DefaultHost    = "127.0.0.1"
	DefaultPort    = 19723
	DefaultTimeout = 10 * time.Second

	tracerName = "github.com/pario-ai/dimsync/pkg/client"
)

// Journal records every command the client sends.
type Journal interface {
	Log(ctx context.Context, entry models.CommandEntry) error
}

// Client executes add-on commands against one service endpoint. Each call is
// a single synchronous POST bounded by the client timeout.
type Client struct {
	baseURL   string
	namespace string
	http      *http.Client
	tracer    trace.Tracer
	journal   Journal
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithNamespace sets the add-on command namespace.
func WithNamespace(ns string) Option {
	return func(c *Client) {
		if ns != "" {
			c.namespace = ns
		}
	}
}

// WithTracerProvider sets the provider spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithJournal records each command in j.
func WithJournal(j Journal) Option {
	return func(c *Client) { c.journal = j }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// BaseURL returns the service URL for host and port.
func BaseURL(host string, port int) string {
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("http://%s/", net.JoinHostPort(host, fmt.Sprint(port)))
}

// New returns a Client posting to baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   baseURL,
		namespace: protocol.DefaultNamespace,
		http:      &http.Client{Timeout: DefaultTimeout},
		tracer:    otel.Tracer(tracerName),
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string { return c.baseURL }

// Execute sends one command and decodes both response layers. It never
// returns a Go error: every failure is a non-OK Result.
func (c *Client) Execute(ctx context.Context, name string, params any) protocol.Result {
	ctx, span := c.tracer.Start(ctx, "dimsync.command "+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("dimsync.namespace", c.namespace),
			attribute.String("dimsync.command", name),
		),
	)
	defer span.End()

	start := time.Now()
	req := protocol.NewRequest(c.namespace, name, params)
	body, err := req.Encode()
	var res protocol.Result
	var respBody []byte
	if err != nil {
		res = protocol.EnvelopeFailure(err.Error())
	} else {
		respBody, res = c.post(ctx, body)
	}
	latency := time.Since(start)

	span.SetAttributes(attribute.String("dimsync.outcome", res.Kind.String()))
	if !res.OK() {
		span.SetStatus(codes.Error, res.Message)
		c.logger.Debug("remote command failed", "command", name, "kind", res.Kind.String(), "message", res.Message)
	}

	if c.journal != nil {
		entry := models.CommandEntry{
			Namespace:    c.namespace,
			Command:      name,
			Outcome:      res.Kind.String(),
			Message:      res.Message,
			RequestBody:  string(body),
			ResponseBody: string(respBody),
			LatencyMs:    latency.Milliseconds(),
			CreatedAt:    start.UTC(),
		}
		if err := c.journal.Log(ctx, entry); err != nil {
			c.logger.Warn("journal write failed", "command", name, "error", err)
		}
	}
	return res
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, protocol.Result) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, protocol.TransportFailure(fmt.Sprintf("create request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, protocol.TransportFailure(transportMessage(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, protocol.TransportFailure(transportMessage(err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return respBody, protocol.EnvelopeFailure(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(respBody)))
	}
	return respBody, protocol.Decode(respBody)
}

func transportMessage(err error) string {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return "Request timeout"
	}
	return err.Error()
}
