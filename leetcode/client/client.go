package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tnicklin/leetcode_tracker/metrics"
	"github.com/tnicklin/leetcode_tracker/models"
	"github.com/tnicklin/leetcode_tracker/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ Client = (*DefaultClient)(nil)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 8 << 20
)

// DefaultClient is the LeetCode stats API client.
type DefaultClient struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	http      *http.Client
	metrics   *metrics.Manager
	tracer    trace.Tracer
}

type Params struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Metrics    *metrics.Manager
}

// New creates a new client. Each Fetch is bounded by Timeout, 10s when unset.
func New(p Params) *DefaultClient {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := p.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &DefaultClient{
		baseURL:   p.BaseURL,
		userAgent: p.UserAgent,
		timeout:   timeout,
		http:      httpClient,
		metrics:   p.Metrics,
		tracer:    telemetry.Tracer("github.com/tnicklin/leetcode_tracker/leetcode/client"),
	}
}

// Fetch performs exactly one GET for the resource and returns the decoded
// payload untouched. Failures are always *FetchError.
func (c *DefaultClient) Fetch(ctx context.Context, identity models.Identity, kind Kind) (Payload, error) {
	ctx, span := c.tracer.Start(ctx, "leetcode.fetch", trace.WithAttributes(
		attribute.String("leetcode.resource", kind.String()),
		attribute.String("leetcode.username", identity.String()),
	))
	defer span.End()

	payload, err := c.fetch(ctx, identity, kind)
	if err != nil {
		var fetchErr *FetchError
		outcome := metrics.OutcomeTransport
		if errors.As(err, &fetchErr) {
			outcome = fetchErr.Class.String()
			if fetchErr.StatusCode != 0 {
				span.SetAttributes(attribute.Int("http.response.status_code", fetchErr.StatusCode))
			}
		}
		c.metrics.RecordFetch(kind.String(), outcome)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}

	c.metrics.RecordFetch(kind.String(), metrics.OutcomeOK)
	return payload, nil
}

func (c *DefaultClient) fetch(ctx context.Context, identity models.Identity, kind Kind) (Payload, error) {
	fail := func(class Class, status int, err error) error {
		return &FetchError{Class: class, Kind: kind, Identity: identity, StatusCode: status, Err: err}
	}

	endpoint, err := c.endpoint(identity, kind)
	if err != nil {
		return nil, fail(TransportFailure, 0, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fail(TransportFailure, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fail(TransportFailure, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fail(ProtocolFailure, resp.StatusCode,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fail(TransportFailure, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload Payload
	if err = dec.Decode(&payload); err != nil {
		return nil, fail(DecodeFailure, resp.StatusCode, err)
	}
	if payload == nil {
		return nil, fail(DecodeFailure, resp.StatusCode, errors.New("response is not a JSON object"))
	}

	return payload, nil
}

func (c *DefaultClient) endpoint(identity models.Identity, kind Kind) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("base url %q must be absolute", c.baseURL)
	}

	rawPath := strings.TrimRight(base.EscapedPath(), "/") + kind.escapedPath(identity)
	path, err := url.PathUnescape(rawPath)
	if err != nil {
		return "", err
	}
	base.Path = path
	base.RawPath = rawPath
	base.RawQuery = ""
	return base.String(), nil
}
