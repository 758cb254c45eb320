// Package main is the entry point for poolctl, the liquidity pool client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/fd1az/poolctl/business/blockchain"
	blockchainDomain "github.com/fd1az/poolctl/business/blockchain/domain"
	"github.com/fd1az/poolctl/business/market"
	"github.com/fd1az/poolctl/business/pool"
	poolApp "github.com/fd1az/poolctl/business/pool/app"
	poolDI "github.com/fd1az/poolctl/business/pool/di"
	"github.com/fd1az/poolctl/business/pool/infra/journal"
	"github.com/fd1az/poolctl/internal/apm"
	"github.com/fd1az/poolctl/internal/apperror"
	"github.com/fd1az/poolctl/internal/asset"
	"github.com/fd1az/poolctl/internal/config"
	"github.com/fd1az/poolctl/internal/logger"
	"github.com/fd1az/poolctl/internal/metrics"
	"github.com/fd1az/poolctl/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const usage = `usage: poolctl [-config path] <command> [flags]

commands:
  quote-swap      preview swap parameters against current reserves
  swap            build and submit a swap
  quote-withdraw  preview withdraw parameters for the signing account
  withdraw        build and submit a withdraw
  watch           log spot prices on every new block
  version         print version information
`

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	if cmd == "version" {
		fmt.Printf("poolctl %s (commit: %s, built: %s)\n", version, commit, buildDate)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath, cmd, args); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, cmd string, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}
	log := logger.New(os.Stderr, logLevel, cfg.App.Name, nil)

	var handler func(context.Context, *poolApp.Service, []string) error
	switch cmd {
	case "quote-swap":
		handler = func(ctx context.Context, svc *poolApp.Service, args []string) error {
			return swapCmd(ctx, svc, cfg, args, false)
		}
	case "swap":
		handler = func(ctx context.Context, svc *poolApp.Service, args []string) error {
			return swapCmd(ctx, svc, cfg, args, true)
		}
	case "quote-withdraw":
		handler = func(ctx context.Context, svc *poolApp.Service, args []string) error {
			return withdrawCmd(ctx, svc, cfg, args, false)
		}
	case "withdraw":
		handler = func(ctx context.Context, svc *poolApp.Service, args []string) error {
			return withdrawCmd(ctx, svc, cfg, args, true)
		}
	case "watch":
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}

	// Initialize observability if enabled
	if cfg.Telemetry.Enabled {
		shutdown, err := initTelemetry(ctx, cfg, log, cmd == "watch")
		if err != nil {
			return err
		}
		defer shutdown()
	}

	mono, err := monolith.New(ctx, cfg, log, version)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if store, ok := poolDI.GetJournal(mono.Services()).(*journal.Store); ok {
			store.Close()
		}
		_ = mono.Close(closeCtx)
	}()

	// Define modules in dependency order
	modules := []monolith.Module{
		&blockchain.Module{}, // Must be first - provides chain access and signing
		&market.Module{},     // Reference price guard
		&pool.Module{},       // Depends on blockchain and market
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	if cmd == "watch" {
		mono.Health().Start()
		log.Info(ctx, "health server started", "port", cfg.Telemetry.HealthPort)
		return poolDI.GetWatcher(mono.Services()).Run(ctx)
	}

	return handler(ctx, poolDI.GetService(mono.Services()), args)
}

func initTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface, serve bool) (func(), error) {
	traceProvider, err := apm.NewTraceProvider(log, apm.ExporterConfig{
		Provider:    apm.Provider(cfg.Telemetry.Exporter),
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	log.Info(ctx, "tracing initialized", "provider", cfg.Telemetry.Exporter, "endpoint", cfg.Telemetry.OTLPEndpoint)

	opts := []metrics.OptionFn{
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.NewPrometheusConfig()),
	}
	if cfg.Telemetry.OTLPEndpoint != "" {
		opts = append(opts, metrics.WithProviderConfig(metrics.NewOtelCollectorConfig(
			cfg.Telemetry.OTLPEndpoint, apm.ParseHeaders(cfg.Telemetry.OTLPHeaders), true)))
	}
	meterProvider, err := metrics.NewMetricProvider(opts...)
	if err != nil {
		_ = traceProvider.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	var promServer *metrics.PrometheusServer
	if serve {
		promServer = metrics.NewPrometheusServer(metrics.WithPort(cfg.Telemetry.PrometheusPort))
		go func() {
			if err := promServer.Serve(); err != nil {
				log.Error(ctx, "prometheus server stopped", "error", err)
			}
		}()
		log.Info(ctx, "prometheus metrics server started", "port", cfg.Telemetry.PrometheusPort)
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if promServer != nil {
			_ = promServer.Shutdown(shutdownCtx)
		}
		_ = meterProvider.Shutdown(shutdownCtx)
		_ = traceProvider.Stop()
	}, nil
}

func swapCmd(ctx context.Context, svc *poolApp.Service, cfg *config.Config, args []string, submit bool) error {
	fs := flag.NewFlagSet("swap", flag.ContinueOnError)
	buy := fs.String("buy", "b", "Token to buy: a or b")
	buyAmount := fs.String("buy-amount", "0", "Exact amount of the bought token to receive")
	sellAmount := fs.String("sell-amount", "0", "Expected amount of the sold token to give")
	slippage := fs.String("slippage", cfg.Swap.DefaultSlippage, "Max slippage in percent")
	to := fs.String("to", "", "Recipient address (default: signing account)")
	force := fs.Bool("force", false, "Submit even if the reference price guard objects")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in, err := parseSwapInput(*buy, *buyAmount, *sellAmount, *slippage, *to)
	if err != nil {
		return err
	}
	in.Force = *force

	q, err := svc.QuoteSwap(ctx, in)
	if err != nil {
		return err
	}
	printSwapQuote(os.Stdout, q)

	if !submit {
		return nil
	}
	res, err := svc.Swap(ctx, in)
	if res != nil {
		printResult(os.Stdout, res)
	}
	return err
}

func parseSwapInput(buy, buyAmount, sellAmount, slippage, to string) (poolApp.SwapInput, error) {
	var in poolApp.SwapInput
	switch buy {
	case "a", "A":
		in.BuyA = true
	case "b", "B":
	default:
		return in, apperror.Validation(apperror.CodeInvalidInput, "--buy must be a or b")
	}

	var err error
	if in.BuyAmount, err = asset.ParseDecimal(buyAmount); err != nil {
		return in, err
	}
	if in.SellAmount, err = asset.ParseDecimal(sellAmount); err != nil {
		return in, err
	}
	if in.Tolerance, err = parsePercent(slippage, apperror.CodeInvalidTolerance); err != nil {
		return in, err
	}
	if in.To, err = parseRecipient(to); err != nil {
		return in, err
	}
	return in, nil
}

func withdrawCmd(ctx context.Context, svc *poolApp.Service, cfg *config.Config, args []string, submit bool) error {
	fs := flag.NewFlagSet("withdraw", flag.ContinueOnError)
	percent := fs.String("percent", cfg.Withdraw.DefaultSharePercent, "Share of the position to redeem, in percent")
	slippage := fs.String("slippage", cfg.Withdraw.DefaultSlippage, "Max slippage in percent")
	to := fs.String("to", "", "Recipient address (default: signing account)")
	force := fs.Bool("force", false, "Submit even if the reference price guard objects")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var in poolApp.WithdrawInput
	var err error
	if in.SharePercent, err = parsePercent(*percent, apperror.CodeInvalidSharePercent); err != nil {
		return err
	}
	if in.Tolerance, err = parsePercent(*slippage, apperror.CodeInvalidTolerance); err != nil {
		return err
	}
	if in.To, err = parseRecipient(*to); err != nil {
		return err
	}
	in.Force = *force

	q, err := svc.QuoteWithdraw(ctx, in)
	if err != nil {
		return err
	}
	printWithdrawQuote(os.Stdout, q)

	if !submit {
		return nil
	}
	res, err := svc.Withdraw(ctx, in)
	if res != nil {
		printResult(os.Stdout, res)
	}
	return err
}

func parsePercent(s string, code apperror.Code) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, apperror.New(code, apperror.WithCause(err), apperror.WithContext(s))
	}
	if !asset.InExponentRange(d) {
		return decimal.Zero, apperror.Validation(code, s)
	}
	return d, nil
}

func parseRecipient(s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, apperror.Validation(apperror.CodeInvalidInput, "--to is not an address: "+s)
	}
	return common.HexToAddress(s), nil
}

func printSwapQuote(w io.Writer, q *poolApp.SwapQuote) {
	fmt.Fprintf(w, "pool reserves     %s / %s\n", asset.NewAmount(q.Tokens.A, q.Reserves.A), asset.NewAmount(q.Tokens.B, q.Reserves.B))
	fmt.Fprintf(w, "price             1 %s = %s %s (at %s)\n", q.Tokens.A, q.Rate.Rate().StringFixed(7), q.Tokens.B, q.Rate.Timestamp().Format(time.TimeOnly))
	fmt.Fprintf(w, "                  1 %s = %s %s\n", q.Tokens.B, q.Rate.Invert().Rate().StringFixed(7), q.Tokens.A)
	fmt.Fprintf(w, "buy               %s\n", q.Buy)
	if !q.AtSpot.IsZero() {
		fmt.Fprintf(w, "cost at spot      %s\n", q.AtSpot)
	}
	fmt.Fprintf(w, "max sold          %s\n", q.MaxSold)
	printFee(w, q.Fee)
	fmt.Fprintf(w, "call              %s\n", q.Request)
}

func printWithdrawQuote(w io.Writer, q *poolApp.WithdrawQuote) {
	fmt.Fprintf(w, "state at block    %d\n", q.Block)
	fmt.Fprintf(w, "pool reserves     %s / %s\n", asset.NewAmount(q.Tokens.A, q.Reserves.A), asset.NewAmount(q.Tokens.B, q.Reserves.B))
	fmt.Fprintf(w, "your shares       %s of %s\n", asset.NewAmount(q.Tokens.Share, q.Position.Balance), asset.NewAmount(q.Tokens.Share, q.Position.TotalShares))
	fmt.Fprintf(w, "redeem            %s\n", q.Shares)
	fmt.Fprintf(w, "expected          %s / %s\n", q.ExpectedA, q.ExpectedB)
	fmt.Fprintf(w, "minimum           %s / %s\n", q.MinA, q.MinB)
	printFee(w, q.Fee)
	fmt.Fprintf(w, "call              %s\n", q.Request)
}

func printFee(w io.Writer, fee *blockchainDomain.GasCost) {
	if fee == nil {
		return
	}
	fmt.Fprintf(w, "max network fee   %s (%d gas)\n", fee.Native.String(), fee.GasLimit)
}

func printResult(w io.Writer, res *poolApp.Result) {
	fmt.Fprintf(w, "submission        %s (%s)\n", res.Submission.ID, res.Submission.Status)
	if res.Outcome != nil {
		fmt.Fprintf(w, "transaction       %s in block %d\n", res.Outcome.TxHash, res.Outcome.Block)
	}
}

func printError(w io.Writer, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	fmt.Fprintf(w, "error: %s\n", appErr.Message)
	if appErr.Context != "" {
		fmt.Fprintf(w, "       %s\n", appErr.Context)
	}
	if poolApp.IsRetryable(err) {
		fmt.Fprintln(w, "       pool state changed; re-run to rebuild from fresh reserves")
	}
}
