// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultGatewayTimeout  = 30 * time.Second
	defaultGatewayMaxTries = 3
	maxGatewayResponseSize = 1 << 20
)

// Gateway talks to an HTTP token gateway exposing balance, supply and
// transfer endpoints
type Gateway struct {
	client   *http.Client
	logger   *slog.Logger
	metrics  *gatewayMetrics
	baseURL  string
	apiKey   string
	maxTries uint
}

type gatewayMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
}

type GatewayOptionFunc func(*Gateway)

// WithGatewayLogger specifies the logger object to use for logging messages
func WithGatewayLogger(logger *slog.Logger) GatewayOptionFunc {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithGatewayAPIKey sets the bearer token sent with every request
func WithGatewayAPIKey(apiKey string) GatewayOptionFunc {
	return func(g *Gateway) {
		g.apiKey = apiKey
	}
}

// WithGatewayHTTPClient overrides the HTTP client
func WithGatewayHTTPClient(client *http.Client) GatewayOptionFunc {
	return func(g *Gateway) {
		g.client = client
	}
}

// WithGatewayMaxTries sets how many times idempotent reads are attempted
func WithGatewayMaxTries(tries uint) GatewayOptionFunc {
	return func(g *Gateway) {
		g.maxTries = tries
	}
}

// WithGatewayPromRegistry specifies the prometheus registry to use for metrics
func WithGatewayPromRegistry(registry prometheus.Registerer) GatewayOptionFunc {
	return func(g *Gateway) {
		if registry == nil {
			return
		}
		factory := promauto.With(registry)
		g.metrics = &gatewayMetrics{
			requestDuration: factory.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "guild_gateway_request_duration_seconds",
					Help:    "latency of token gateway requests",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"endpoint"},
			),
			requestErrors: factory.NewCounterVec(
				prometheus.CounterOpts{
					Name: "guild_gateway_request_errors_total",
					Help: "failed token gateway requests",
				},
				[]string{"endpoint"},
			),
		}
	}
}

func NewGateway(baseURL string, opts ...GatewayOptionFunc) (*Gateway, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid gateway URL scheme: %q", u.Scheme)
	}
	g := &Gateway{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: defaultGatewayTimeout},
		maxTries: defaultGatewayMaxTries,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		g.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if g.maxTries == 0 {
		g.maxTries = 1
	}
	return g, nil
}

type balanceResponse struct {
	Balance uint64 `json:"balance"`
}

type supplyResponse struct {
	Supply uint64 `json:"supply"`
}

type transferResponse struct {
	Signature string `json:"signature"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (g *Gateway) BalanceOf(ctx context.Context, wallet string) (uint64, error) {
	resp, err := retryGet[balanceResponse](
		ctx,
		g,
		"balance",
		"/balances/"+url.PathEscape(wallet),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
	return resp.Balance, nil
}

func (g *Gateway) TotalSupply(ctx context.Context) (uint64, error) {
	resp, err := retryGet[supplyResponse](ctx, g, "supply", "/supply")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
	return resp.Supply, nil
}

// SubmitTransfer posts a transfer. It is attempted once: the gateway may have
// accepted a request whose response was lost
func (g *Gateway) SubmitTransfer(
	ctx context.Context,
	req TransferRequest,
) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	var resp transferResponse
	if err := g.do(ctx, "transfer", http.MethodPost, "/transfers", body, req.Reference, &resp); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	if resp.Signature == "" {
		return "", fmt.Errorf("%w: gateway returned no signature", ErrTransferFailed)
	}
	g.logger.Info(
		"transfer submitted",
		"component", "chain",
		"reference", req.Reference,
		"recipient", req.Recipient,
		"amount", req.Amount,
		"signature", resp.Signature,
	)
	return resp.Signature, nil
}

func retryGet[T any](
	ctx context.Context,
	g *Gateway,
	endpoint string,
	path string,
) (T, error) {
	return backoff.Retry(
		ctx,
		func() (T, error) {
			var ret T
			err := g.do(ctx, endpoint, http.MethodGet, path, nil, "", &ret)
			var statusErr *gatewayStatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode < 500 {
				return ret, backoff.Permanent(err)
			}
			return ret, err
		},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(g.maxTries),
	)
}

type gatewayStatusError struct {
	Message    string
	StatusCode int
}

func (e *gatewayStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Message)
}

func (g *Gateway) do(
	ctx context.Context,
	endpoint string,
	method string,
	path string,
	body []byte,
	idempotencyKey string,
	out any,
) (err error) {
	start := time.Now()
	defer func() {
		if g.metrics == nil {
			return
		}
		g.metrics.requestDuration.WithLabelValues(endpoint).
			Observe(time.Since(start).Seconds())
		if err != nil {
			g.metrics.requestErrors.WithLabelValues(endpoint).Inc()
		}
	}()
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxGatewayResponseSize))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp errorResponse
		_ = json.Unmarshal(data, &errResp)
		return &gatewayStatusError{
			StatusCode: resp.StatusCode,
			Message:    errResp.Error,
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
