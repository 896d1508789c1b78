// SPDX-License-Identifier: MIT

package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	xlog "github.com/ManuGH/recipefeed/internal/log"
	"github.com/ManuGH/recipefeed/internal/platform/httpx"
	"github.com/ManuGH/recipefeed/internal/resilience"
	"github.com/ManuGH/recipefeed/internal/telemetry"
)

// Fetcher returns the body of a GET request as a string.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (string, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, url string) (string, error) { return f(ctx, url) }

// StatusError carries the status code of a rejected response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: GET %s: %d %s", ErrStatus, e.URL, e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Unwrap() error { return ErrStatus }

const (
	defaultRateLimit    = 10
	defaultRateBurst    = 20
	defaultMaxBodyBytes = 32 << 20
)

// FetcherOptions configures an HTTPFetcher. Zero values pick defaults.
type FetcherOptions struct {
	Timeout          time.Duration
	RateLimit        float64 // requests per second
	Burst            int
	BreakerThreshold int
	BreakerReset     time.Duration
	MaxBodyBytes     int64
	Client           *http.Client
}

// HTTPFetcher performs rate limited GET requests. Concurrent requests for
// the same URL share one round trip, and a circuit breaker stops requests
// after repeated server failures.
type HTTPFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	maxBody int64
	logger  zerolog.Logger
}

// NewHTTPFetcher returns a fetcher built from opts.
func NewHTTPFetcher(opts FetcherOptions) *HTTPFetcher {
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultRateBurst
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	client := opts.Client
	if client == nil {
		client = httpx.NewClient(opts.Timeout)
	}
	return &HTTPFetcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
		breaker: resilience.NewCircuitBreaker("http_fetcher", opts.BreakerThreshold, opts.BreakerReset,
			resilience.WithFailurePredicate(countsAsFailure)),
		maxBody: opts.MaxBodyBytes,
		logger:  xlog.WithComponent("download.fetcher"),
	}
}

// countsAsFailure ignores client errors, oversized bodies and caller
// cancellation.
func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrBodyTooLarge) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= http.StatusInternalServerError
	}
	return err != nil
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	ctx, span := telemetry.Tracer("recipefeed.download").Start(ctx, "download.fetch",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	ch := f.group.DoChan(url, func() (any, error) {
		// shared by every waiter, so it must outlive the first caller
		return f.do(context.WithoutCancel(ctx), url)
	})

	select {
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		span.SetStatus(codes.Error, ctx.Err().Error())
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
			return "", res.Err
		}
		span.SetAttributes(telemetry.HTTPAttributes(http.MethodGet, url, http.StatusOK)...)
		span.SetStatus(codes.Ok, "")
		if res.Shared {
			f.logger.Debug().Str(xlog.FieldURL, url).Msg("shared in-flight fetch")
		}
		return res.Val.(string), nil
	}
}

func (f *HTTPFetcher) do(ctx context.Context, url string) (string, error) {
	var body string
	err := f.breaker.Execute(func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		start := time.Now()
		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		f.logger.Debug().
			Str(xlog.FieldURL, url).
			Int("status", resp.StatusCode).
			Dur("duration", time.Since(start)).
			Msg("http fetch")

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return &StatusError{URL: url, Code: resp.StatusCode}
		}
		b, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if int64(len(b)) > f.maxBody {
			return fmt.Errorf("%w: GET %s: more than %d bytes", ErrBodyTooLarge, url, f.maxBody)
		}
		body = string(b)
		return nil
	})
	return body, err
}

// BreakerState exposes the circuit breaker state for health reporting.
func (f *HTTPFetcher) BreakerState() resilience.State {
	return f.breaker.State()
}
