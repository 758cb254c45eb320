// Package binance provides a reference price adapter for Binance-style REST tickers.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/poolctl/business/market/domain"
	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/httpclient"
	"github.com/fd1az/poolctl/internal/logger"
	"github.com/fd1az/poolctl/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/poolctl/business/market/infra/binance"

	// BaseAPIURL is the public Binance REST endpoint.
	BaseAPIURL = "https://api.binance.com"

	tickerEndpoint = "/api/v3/ticker/price"
	sourceName     = "binance"
	httpTimeout    = 5 * time.Second
)

// TickerConfig holds configuration for the ticker client.
type TickerConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// TickerClient fetches last-trade prices over REST.
type TickerClient struct {
	client  *httpclient.InstrumentedClient
	limiter *ratelimit.Limiter
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewTickerClient creates a new ticker client.
func NewTickerClient(cfg TickerConfig, log logger.LoggerInterface) (*TickerClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseAPIURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName(sourceName),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &TickerClient{
		client:  client,
		limiter: ratelimit.New(cfg.RequestsPerSecond),
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// tickerResponse is the REST API response for a single symbol.
type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// ReferencePrice fetches the latest price for symbol.
func (c *TickerClient) ReferencePrice(ctx context.Context, symbol string) (*domain.ReferencePrice, error) {
	symbol = strings.ToUpper(symbol)

	ctx, span := c.tracer.Start(ctx, "binance.ticker_price",
		trace.WithAttributes(attribute.String("symbol", symbol)),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return nil, apperror.External(apperror.CodeRateLimitExceeded, symbol, err)
	}

	var result tickerResponse
	_, err := c.client.NewRequest(
		httpclient.WithLabel("endpoint", "ticker_price"),
		httpclient.WithLabel("symbol", symbol),
		httpclient.WithResponseErrorHandler(binanceErrorHandler),
	).
		SetQueryParam("symbol", symbol).
		SetResult(&result).
		Get(ctx, tickerEndpoint)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.External(apperror.CodeReferencePriceFailed, symbol, err)
	}

	price, err := decimal.NewFromString(result.Price)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.External(apperror.CodeReferencePriceFailed,
			fmt.Sprintf("%s: malformed price %q", symbol, result.Price), err)
	}

	span.SetAttributes(attribute.String("price", price.String()))
	c.logger.Debug(ctx, "fetched reference price", "symbol", symbol, "price", price.String())

	return &domain.ReferencePrice{
		Symbol:    symbol,
		Rate:      price,
		Source:    sourceName,
		Timestamp: time.Now(),
	}, nil
}

// APIError represents an error response from the Binance API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance API error %d: %s", e.Code, e.Message)
}

func binanceErrorHandler(statusCode int, body []byte) error {
	if statusCode >= 400 {
		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
			return &apiErr
		}
		return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
	}
	return nil
}
