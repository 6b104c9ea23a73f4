// Package markets provides crypto and exchange-rate quotes from public APIs.
package markets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	coinGeckoPriceURL   = "https://api.coingecko.com/api/v3/simple/price"
	awesomeExchangeURL  = "https://economia.awesomeapi.com.br/json/last"
	maxQuoteRetries     = 2
	quoteRetryBaseDelay = 500 * time.Millisecond
)

// Coins the bot can quote, by CoinGecko ID.
var knownCoins = map[string]string{
	"bitcoin":  "Bitcoin",
	"ethereum": "Ethereum",
	"solana":   "Solana",
	"cardano":  "Cardano",
	"dogecoin": "Dogecoin",
}

var coinAliases = map[string]string{
	"btc":  "bitcoin",
	"eth":  "ethereum",
	"sol":  "solana",
	"ada":  "cardano",
	"doge": "dogecoin",
}

// ResolveCoin maps user input to a CoinGecko coin ID and display name.
func ResolveCoin(input string) (id, name string, ok bool) {
	if full, found := coinAliases[input]; found {
		input = full
	}
	name, ok = knownCoins[input]
	return input, name, ok
}

// CoinQuote is the current USD price of a coin.
type CoinQuote struct {
	USD       float64
	Change24h float64
}

// ExchangeRate is the current quote of one currency pair.
type ExchangeRate struct {
	Bid       float64
	PctChange float64
	High      float64
	Low       float64
}

// Client fetches market quotes. Transient HTTP failures are retried with
// exponential backoff before giving up.
type Client struct {
	client       HTTPClient
	coinGeckoKey string
}

// NewClient creates a Client. apiKey is optional (CoinGecko demo tier).
func NewClient(client HTTPClient, apiKey string) *Client {
	return &Client{client: client, coinGeckoKey: apiKey}
}

// CoinPrice returns the current USD quote for a CoinGecko coin ID.
func (c *Client) CoinPrice(ctx context.Context, coinID string) (*CoinQuote, error) {
	url := fmt.Sprintf("%s?ids=%s&vs_currencies=usd&include_24hr_change=true&precision=2",
		coinGeckoPriceURL, coinID)

	var payload map[string]struct {
		USD       float64 `json:"usd"`
		Change24h float64 `json:"usd_24h_change"`
	}
	if err := c.getJSON(ctx, url, &payload); err != nil {
		return nil, err
	}

	quote, ok := payload[coinID]
	if !ok {
		return nil, fmt.Errorf("no quote for coin %q", coinID)
	}
	return &CoinQuote{USD: quote.USD, Change24h: quote.Change24h}, nil
}

// DollarRate returns the current USD-BRL exchange rate.
func (c *Client) DollarRate(ctx context.Context) (*ExchangeRate, error) {
	var payload map[string]struct {
		Bid       string `json:"bid"`
		PctChange string `json:"pctChange"`
		High      string `json:"high"`
		Low       string `json:"low"`
	}
	if err := c.getJSON(ctx, awesomeExchangeURL+"/USD-BRL", &payload); err != nil {
		return nil, err
	}

	raw, ok := payload["USDBRL"]
	if !ok {
		return nil, fmt.Errorf("no USDBRL quote in response")
	}

	rate := &ExchangeRate{}
	var err error
	if rate.Bid, err = strconv.ParseFloat(raw.Bid, 64); err != nil {
		return nil, fmt.Errorf("parse bid %q: %w", raw.Bid, err)
	}
	if rate.PctChange, err = strconv.ParseFloat(raw.PctChange, 64); err != nil {
		return nil, fmt.Errorf("parse pctChange %q: %w", raw.PctChange, err)
	}
	rate.High, _ = strconv.ParseFloat(raw.High, 64)
	rate.Low, _ = strconv.ParseFloat(raw.Low, 64)
	return rate, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	backoff := retry.WithMaxRetries(maxQuoteRetries, retry.NewExponential(quoteRetryBaseDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.coinGeckoKey != "" {
			req.Header.Set("x-cg-demo-api-key", c.coinGeckoKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("http get: %w", err))
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("unexpected status %d", resp.StatusCode))
		default:
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		if err := json.NewDecoder(io.LimitReader(resp.Body, 1024*1024)).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}
