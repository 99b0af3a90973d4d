package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Kind separates status reads from "procesar" writes. The two differ in
// timeout, accepted statuses and 404 handling.
type Kind int

const (
	Read Kind = iota
	Write
)

// Timeout is the per-attempt deadline for the call kind.
func (k Kind) Timeout() time.Duration {
	if k == Write {
		return 60 * time.Second
	}
	return 30 * time.Second
}

func (k Kind) accepts(status int) bool {
	return status == http.StatusOK || (k == Write && status == http.StatusCreated)
}

// Request describes one business call relative to the upstream base URL.
type Request struct {
	Name   string
	Method string
	Path   string
	// Header values are sent with their keys exactly as given.
	Header  map[string]string
	Query   url.Values
	Body    any
	Kind    Kind
	Subject string
}

// Tokens is what the client needs from a token manager.
type Tokens interface {
	EnsureToken(ctx context.Context) (string, error)
	Authenticate(ctx context.Context) (string, error)
}

// Client sends business calls with a bearer token and retries exactly once
// after a 401.
type Client struct {
	baseURL string
	tokens  Tokens
	http    *http.Client
	logger  *log.Logger
	tracer  trace.Tracer
}

// NewHTTPClient returns the instrumented client shared by token and business calls.
func NewHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

func NewClient(baseURL string, tokens Tokens, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    httpClient,
		logger:  logger,
		tracer:  otel.Tracer("siniestros-gateway/upstream"),
	}
}

// Call performs req and returns the upstream JSON body verbatim.
func (c *Client) Call(ctx context.Context, req Request) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "upstream."+req.Name, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	body, err := c.call(ctx, span, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return body, err
}

func (c *Client) call(ctx context.Context, span trace.Span, req Request) (json.RawMessage, error) {
	token, err := c.tokens.EnsureToken(ctx)
	if err != nil {
		return nil, err
	}

	status, body, err := c.send(ctx, req, token)
	span.SetAttributes(attribute.Int("upstream.attempts", 1), attribute.Int("http.status_code", status))
	if err != nil {
		return nil, err
	}
	if req.Kind.accepts(status) {
		return decode(req, status, body)
	}

	switch {
	case status == http.StatusUnauthorized:
		c.logger.Printf("[upstream] %s: token rejected, renewing", req.Name)
		token, err = c.tokens.Authenticate(ctx)
		if err != nil {
			return nil, err
		}
		status, body, err = c.send(ctx, req, token)
		span.SetAttributes(attribute.Int("upstream.attempts", 2), attribute.Int("http.status_code", status))
		if err != nil {
			return nil, err
		}
		if req.Kind.accepts(status) {
			c.logger.Printf("[upstream] %s succeeded after token refresh", req.Name)
			return decode(req, status, body)
		}
		return nil, &UpstreamError{Op: req.Name, Status: status, Body: string(body), Retried: true}
	case status == http.StatusNotFound && req.Kind == Read:
		c.logger.Printf("[upstream] %s: id %s not found", req.Name, req.Subject)
		return nil, &NotFoundError{Op: req.Name, ID: req.Subject}
	default:
		return nil, &UpstreamError{Op: req.Name, Status: status, Body: string(body)}
	}
}

func (c *Client) send(ctx context.Context, req Request, token string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, req.Kind.Timeout())
	defer cancel()

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var payload io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: encode payload: %w", req.Name, err)
		}
		c.logger.Printf("[upstream] %s payload: %s", req.Name, b)
		payload = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, payload)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: build request: %w", req.Name, err)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	for k, v := range req.Header {
		httpReq.Header[k] = []string{v}
	}

	c.logger.Printf("[upstream] %s %s %s", req.Name, req.Method, target)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, nil, &TransportError{Op: req.Name, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &TransportError{Op: req.Name, Err: err}
	}
	return resp.StatusCode, body, nil
}

func decode(req Request, status int, body []byte) (json.RawMessage, error) {
	if !json.Valid(body) {
		return nil, &UpstreamError{Op: req.Name, Status: status, Body: string(body), Err: errors.New("response is not valid JSON")}
	}
	return json.RawMessage(body), nil
}
