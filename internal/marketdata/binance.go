package marketdata

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"starknet-pilot/internal/domain"
)

// Trend classification thresholds on the 24h price change percent.
const (
	bullishChangePct = 1.5
	bearishChangePct = -1.5
)

// klineInterval and klineLimit size the window used for the volatility
// estimate: 24 hourly candles plus one for the leading return.
const (
	klineInterval = "1h"
	klineLimit    = 25
)

// maxStreamPriceAge bounds how stale a streamed price may be before the
// REST last price is preferred.
const maxStreamPriceAge = 10 * time.Second

// BinanceProvider implements Provider against the Binance spot REST API,
// optionally overlaid with fresher prices from a TickerStream.
type BinanceProvider struct {
	client *binance.Client
	stream *TickerStream // may be nil
}

// NewBinanceProvider creates a provider. stream may be nil, in which
// case prices come from REST only.
func NewBinanceProvider(client *binance.Client, stream *TickerStream) *BinanceProvider {
	return &BinanceProvider{client: client, stream: stream}
}

// Compile-time interface check.
var _ Provider = (*BinanceProvider)(nil)

// Snapshot returns the current market snapshot for a pair.
func (p *BinanceProvider) Snapshot(ctx context.Context, pair string) (*domain.MarketSnapshot, error) {
	symbol := SymbolFor(pair)

	stats, err := p.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch 24h stats for %s: %w", symbol, err)
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("no 24h stats for %s", symbol)
	}

	price, err := parsePrice(stats[0].LastPrice)
	if err != nil {
		return nil, fmt.Errorf("parse last price for %s: %w", symbol, err)
	}
	volume, err := parsePrice(stats[0].QuoteVolume)
	if err != nil {
		return nil, fmt.Errorf("parse quote volume for %s: %w", symbol, err)
	}
	changePct, err := parsePrice(stats[0].PriceChangePercent)
	if err != nil {
		return nil, fmt.Errorf("parse price change for %s: %w", symbol, err)
	}

	volatility, err := p.volatility(ctx, symbol)
	if err != nil {
		return nil, err
	}

	// A streamed trade beats the REST last price when it is fresh.
	if streamed, at, ok := p.streamPrice(symbol); ok && time.Since(at) <= maxStreamPriceAge {
		price = streamed
	}

	return &domain.MarketSnapshot{
		Pair:       pair,
		Price:      price,
		Volume24h:  volume,
		Volatility: volatility,
		Trend:      classifyTrend(changePct),
		AsOf:       time.Now().UTC(),
	}, nil
}

// Price returns the current spot price for a pair.
func (p *BinanceProvider) Price(ctx context.Context, pair string) (float64, error) {
	symbol := SymbolFor(pair)

	if streamed, at, ok := p.streamPrice(symbol); ok && time.Since(at) <= maxStreamPriceAge {
		return streamed, nil
	}

	prices, err := p.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch price for %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no price for %s", symbol)
	}

	price, err := parsePrice(prices[0].Price)
	if err != nil {
		return 0, fmt.Errorf("parse price for %s: %w", symbol, err)
	}
	return price, nil
}

// volatility estimates hourly volatility as the standard deviation of
// close-to-close returns over the kline window, expressed in percent.
func (p *BinanceProvider) volatility(ctx context.Context, symbol string) (float64, error) {
	klines, err := p.client.NewKlinesService().
		Symbol(symbol).
		Interval(klineInterval).
		Limit(klineLimit).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch klines for %s: %w", symbol, err)
	}
	if len(klines) < 2 {
		return 0, nil
	}

	closes := make([]float64, 0, len(klines))
	for _, k := range klines {
		c, err := parsePrice(k.Close)
		if err != nil {
			return 0, fmt.Errorf("parse kline close for %s: %w", symbol, err)
		}
		closes = append(closes, c)
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	if len(returns) == 0 {
		return 0, nil
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance) * 100, nil
}

func (p *BinanceProvider) streamPrice(symbol string) (float64, time.Time, bool) {
	if p.stream == nil {
		return 0, time.Time{}, false
	}
	return p.stream.LatestPrice(symbol)
}

func classifyTrend(changePct float64) string {
	switch {
	case changePct >= bullishChangePct:
		return domain.TrendBullish
	case changePct <= bearishChangePct:
		return domain.TrendBearish
	default:
		return domain.TrendNeutral
	}
}

// parsePrice parses an exchange decimal string into a float64. The
// exchange sends all numbers as strings; decimal parsing rejects the
// garbage values a raw ParseFloat would accept.
func parsePrice(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}
