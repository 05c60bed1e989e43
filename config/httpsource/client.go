// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpsource

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type clientOptions struct {
	name        string
	logger      *zap.Logger
	transport   http.RoundTripper
	timeout     time.Duration
	maxAttempts int
	waitMin     time.Duration
	waitMax     time.Duration
	tripAfter   uint32
	openFor     time.Duration
}

var errServerFailure = errors.New("server failure")

// newClient returns an *http.Client which retries failed requests and
// stops sending requests to a server once enough of them failed in a row.
// Every attempt is traced.
func newClient(co clientOptions) *http.Client {
	log := co.logger.Named(co.name)

	rt := &circuitRoundTripper{
		RoundTripper: co.transport,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        co.name,
			MaxRequests: 1,
			Timeout:     co.openFor,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= co.tripAfter
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				switch to {
				case gobreaker.StateOpen:
					log.Error("circuit has been opened", zap.Stringer("from", from))
				case gobreaker.StateHalfOpen:
					log.Warn("circuit is now half open and letting a request through")
				case gobreaker.StateClosed:
					log.Info("circuit has been closed")
				}
			},
		}),
	}

	c := &http.Client{
		Timeout:   co.timeout,
		Transport: otelhttp.NewTransport(rt),
	}

	rc := retryablehttp.Client{
		HTTPClient:   c,
		Logger:       nil,
		RetryWaitMin: co.waitMin,
		RetryWaitMax: co.waitMax,
		RetryMax:     co.maxAttempts,
		RequestLogHook: func(_ retryablehttp.Logger, req *http.Request, i int) {
			log.Debug("sending http request", zap.String("url", req.URL.String()), zap.Int("request_attempt_count", i))
		},
		ResponseLogHook: func(_ retryablehttp.Logger, resp *http.Response) {
			log.Info("received http response", zap.String("url", resp.Request.URL.String()), zap.Int("http_status_code", resp.StatusCode))
		},
		CheckRetry:   checkRetry,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
	return rc.StandardClient()
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false, err
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// circuitRoundTripper counts transport errors and 5xx responses as
// failures. A 5xx response is still returned to the caller.
type circuitRoundTripper struct {
	http.RoundTripper
	cb *gobreaker.CircuitBreaker
}

func (rt *circuitRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	v, err := rt.cb.Execute(func() (interface{}, error) {
		resp, err := rt.RoundTripper.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerFailure
		}
		return resp, nil
	})
	if errors.Is(err, errServerFailure) {
		return v.(*http.Response), nil
	}
	if err != nil {
		return nil, err
	}
	return v.(*http.Response), nil
}
