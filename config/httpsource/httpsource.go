// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package httpsource provides a config.Source which fetches groups from
// an HTTP server.
package httpsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/z5labs/cascade/codec"
	"github.com/z5labs/cascade/config"
	"github.com/z5labs/cascade/internal/try"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrMissingBaseURL is returned by New when no base URL was given.
var ErrMissingBaseURL = errors.New("httpsource: base url is required")

// UnexpectedStatusError occurs when the server answers with a status
// other than 2xx or 404.
type UnexpectedStatusError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected http status code %d from %s", e.StatusCode, e.URL)
}

// FetchError wraps a failure to get any response for a group.
type FetchError struct {
	URL   string
	Cause error
}

// Error implements the error interface.
func (e FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %s", e.URL, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e FetchError) Unwrap() error {
	return e.Cause
}

// Option configures a Source.
type Option func(*options)

type options struct {
	baseURL    string
	format     string
	codecs     *codec.Registry
	client     *http.Client
	clientOpts clientOptions
}

// BaseURL sets the URL groups are fetched relative to.
func BaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// Format sets the file extension requested for each group and the codec
// responses are decoded with. The default is "json".
func Format(ext string) Option {
	return func(o *options) {
		o.format = ext
	}
}

// Codecs sets the registry responses are decoded with.
func Codecs(r *codec.Registry) Option {
	return func(o *options) {
		o.codecs = r
	}
}

// Client replaces the retrying, circuit breaking client with c.
func Client(c *http.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// Transport sets the http.RoundTripper requests are finally sent with.
func Transport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.clientOpts.transport = rt
	}
}

// Logger sets the logger retries and circuit state changes are logged with.
func Logger(l *zap.Logger) Option {
	return func(o *options) {
		o.clientOpts.logger = l
	}
}

// Timeout limits the time of a single request attempt.
func Timeout(d time.Duration) Option {
	return func(o *options) {
		o.clientOpts.timeout = d
	}
}

// MaxAttempts sets how many times a failed request is retried.
func MaxAttempts(n int) Option {
	return func(o *options) {
		o.clientOpts.maxAttempts = n
	}
}

// MinWait sets the minimum backoff between retries.
func MinWait(d time.Duration) Option {
	return func(o *options) {
		o.clientOpts.waitMin = d
	}
}

// MaxWait sets the maximum backoff between retries.
func MaxWait(d time.Duration) Option {
	return func(o *options) {
		o.clientOpts.waitMax = d
	}
}

// TripAfter sets the number of consecutive failures after which no
// requests are sent for OpenFor.
func TripAfter(n uint32) Option {
	return func(o *options) {
		o.clientOpts.tripAfter = n
	}
}

// OpenFor sets how long the circuit stays open once tripped.
func OpenFor(d time.Duration) Option {
	return func(o *options) {
		o.clientOpts.openFor = d
	}
}

// Source fetches config groups with GET {base}/{group}.{format}.
// A 404 response means the server has nothing for the group.
type Source struct {
	base   *url.URL
	format string
	codecs *codec.Registry
	client *http.Client
}

// New returns a Source configured by opts. BaseURL is required.
func New(opts ...Option) (*Source, error) {
	o := &options{
		format: "json",
		codecs: codec.Default(),
		clientOpts: clientOptions{
			name:        "httpsource",
			logger:      zap.NewNop(),
			transport:   http.DefaultTransport,
			maxAttempts: 2,
			waitMin:     100 * time.Millisecond,
			waitMax:     5 * time.Second,
			tripAfter:   5,
			openFor:     60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.baseURL == "" {
		return nil, ErrMissingBaseURL
	}

	base, err := url.Parse(o.baseURL)
	if err != nil {
		return nil, err
	}

	client := o.client
	if client == nil {
		client = newClient(o.clientOpts)
	}

	s := &Source{
		base:   base,
		format: o.format,
		codecs: o.codecs,
		client: client,
	}
	return s, nil
}

// Load implements the config.Source interface.
func (s *Source) Load(ctx context.Context, group string) (_ config.Map, err error) {
	u := s.base.JoinPath(group + "." + s.format).String()

	spanCtx, span := otel.Tracer("httpsource").Start(ctx, "Source.Load", trace.WithAttributes(
		attribute.String("config.group", group),
		attribute.String("url.full", u),
	))
	defer span.End()
	defer func() {
		if err == nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load config group")
	}()

	req, err := http.NewRequestWithContext(spanCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, FetchError{URL: u, Cause: err}
	}
	defer try.Close(&err, resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, UnexpectedStatusError{URL: u, StatusCode: resp.StatusCode}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, FetchError{URL: u, Cause: err}
	}

	v, err := s.codecs.Decode(s.format, b)
	if err != nil {
		return nil, err
	}
	return config.AsMap(u, v)
}
