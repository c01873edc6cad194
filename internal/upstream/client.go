// Package upstream fetches validator balance changes from the data provider.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vadiminshakov/stakeview/internal/domain"
	"github.com/vadiminshakov/stakeview/internal/metrics"
	"github.com/vadiminshakov/stakeview/internal/tracing"
)

const (
	defaultTimeout = 30 * time.Second
	defaultMessage = "Failed to fetch data"
)

// ErrUpstream is matched by every provider failure.
var ErrUpstream = errors.New("upstream request failed")

// Error is a failed provider response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports ErrUpstream as the category of every Error.
func (e *Error) Is(target error) bool {
	return target == ErrUpstream
}

type request struct {
	Address string `json:"address"`
}

type response struct {
	Data *struct {
		EVM *struct {
			TransactionBalances []domain.RawBalanceRecord `json:"TransactionBalances"`
		} `json:"EVM"`
	} `json:"data"`
	Error string `json:"error"`
}

// Client talks to the balance provider. Each call is a single attempt.
type Client struct {
	http     *resty.Client
	endpoint string
	logger   *zap.Logger
	limiter  *rate.Limiter
	tracer   trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit caps outgoing requests at rps per second with the given burst.
// A non-positive rps leaves requests unlimited.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates a provider client for endpoint. apiKey may be empty.
func NewClient(endpoint, apiKey string, timeout time.Duration, logger *zap.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("upstream endpoint is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rc := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		rc.SetAuthToken(apiKey)
	}

	c := &Client{http: rc, endpoint: endpoint, logger: logger, tracer: tracing.Tracer("upstream")}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TransactionBalances returns the raw balance changes of address.
// A response without transaction balances yields an empty slice.
func (c *Client) TransactionBalances(ctx context.Context, address string) ([]domain.RawBalanceRecord, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errors.New("validator address is required")
	}

	ctx, span := c.tracer.Start(ctx, "upstream.TransactionBalances",
		trace.WithAttributes(attribute.String("validator.address", address)))
	defer span.End()

	if err := c.wait(ctx); err != nil {
		metrics.UpstreamRequests.WithLabelValues("throttled").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limit wait")
		return nil, errors.Wrap(err, "wait for upstream rate limit")
	}

	started := time.Now()
	records, err := c.fetch(ctx, address)
	metrics.UpstreamLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("upstream request failed", zap.String("address", address), zap.Error(err))
		return nil, err
	}

	metrics.UpstreamRequests.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Int("records", len(records)))
	c.logger.Debug("upstream request done", zap.String("address", address), zap.Int("records", len(records)))
	return records, nil
}

// wait blocks until the limiter grants one request or ctx is done.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	r := c.limiter.Reserve()
	if !r.OK() {
		return errors.New("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay == 0 {
		return nil
	}

	metrics.UpstreamRateLimitWaits.Inc()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

func (c *Client) fetch(ctx context.Context, address string) ([]domain.RawBalanceRecord, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(request{Address: address}).
		Post(c.endpoint)
	if err != nil {
		return nil, errors.Wrap(&Error{Message: err.Error()}, "post balances request")
	}

	var payload response
	decodeErr := json.Unmarshal(resp.Body(), &payload)

	if resp.IsError() {
		msg := defaultMessage
		if decodeErr == nil && payload.Error != "" {
			msg = payload.Error
		}
		return nil, &Error{Status: resp.StatusCode(), Message: msg}
	}
	if decodeErr != nil {
		return nil, &Error{
			Status:  resp.StatusCode(),
			Message: fmt.Sprintf("decode balances response: %v", decodeErr),
		}
	}

	if payload.Data == nil || payload.Data.EVM == nil || payload.Data.EVM.TransactionBalances == nil {
		return []domain.RawBalanceRecord{}, nil
	}
	return payload.Data.EVM.TransactionBalances, nil
}
