// Package eodhd reads current prices and exchange rates from the EOD Historical Data API.
//
// See https://eodhd.com/financial-apis/live-realtime-stocks-api
package eodhd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/etnz/investool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the root of the EODHD API.
const DefaultBaseURL = "https://eodhd.com/api"

// DemoKey is accepted by EODHD for a handful of tickers (AAPL.US, MSFT.US, EURUSD.FOREX...).
const DemoKey = "demo"

// exchangeCurrency is the trading currency of the exchange codes EODHD uses as ticker suffixes.
var exchangeCurrency = map[string]string{
	"US":    "USD",
	"TO":    "CAD",
	"V":     "CAD",
	"NEO":   "CAD",
	"LSE":   "GBP",
	"PA":    "EUR",
	"AS":    "EUR",
	"BR":    "EUR",
	"MI":    "EUR",
	"MC":    "EUR",
	"F":     "EUR",
	"XETRA": "EUR",
	"SW":    "CHF",
	"AU":    "AUD",
}

// Client implements investool.PriceSource and investool.FxSource.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client to another API root, mostly for tests.
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") } }

// WithHTTPClient replaces the daily caching HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.client = h } }

// WithLogger sets the logger used for remote calls.
func WithLogger(l logrus.FieldLogger) Option { return func(c *Client) { c.log = l } }

// New returns a Client authenticated with apiKey.
//
// By default responses are cached on disk for the day.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{apiKey: apiKey, baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		c.log = l
	}
	if c.client == nil {
		c.client = newDailyCachingClient(c.log)
	}
	return c
}

// Symbol returns the EODHD symbol for ticker. Tickers without an exchange suffix are US listed.
func Symbol(ticker string) string {
	ticker = strings.ToUpper(ticker)
	if !strings.Contains(ticker, ".") {
		return ticker + ".US"
	}
	return ticker
}

// currency returns the trading currency of an EODHD symbol.
func currency(symbol string) (string, error) {
	_, exchange, _ := strings.Cut(symbol, ".")
	cur, ok := exchangeCurrency[exchange]
	if !ok {
		return "", fmt.Errorf("unknown currency for exchange %q of %s", exchange, symbol)
	}
	return cur, nil
}

// realtime is the subset of the real-time payload in use.
//
//	{"code":"AAPL.US","timestamp":1721419200,"gmtoffset":0,"open":224.82,
//	 "high":226.8,"low":223.275,"close":224.31,"volume":49151453,
//	 "previousClose":224.82,"change":-0.51,"change_p":-0.2268}
type realtime struct {
	Code          string `json:"code"`
	Close         number `json:"close"`
	PreviousClose number `json:"previousClose"`
}

// number is a decimal that decodes EODHD's "NA" as zero.
type number struct{ decimal.Decimal }

func (n *number) UnmarshalJSON(b []byte) error {
	if err := n.Decimal.UnmarshalJSON(b); err != nil {
		n.Decimal = decimal.Zero
	}
	return nil
}

// last fetches the last price for an EODHD symbol.
func (c *Client) last(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	addr := fmt.Sprintf("%s/real-time/%s?fmt=json&api_token=%s", c.baseURL, url.PathEscape(symbol), url.QueryEscape(c.apiKey))

	var content realtime
	if err := jwget(c.client, addr, &content); err != nil {
		return decimal.Zero, fmt.Errorf("eodhd %s: %w", symbol, err)
	}
	// outside trading hours close can be "NA".
	price := content.Close.Decimal
	if price.IsZero() {
		price = content.PreviousClose.Decimal
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("eodhd %s: no price in response", symbol)
	}
	return price, nil
}

// CurrentPrice implements investool.PriceSource.
func (c *Client) CurrentPrice(ctx context.Context, ticker string) (investool.Quote, error) {
	symbol := Symbol(ticker)
	cur, err := currency(symbol)
	if err != nil {
		return investool.Quote{}, err
	}
	price, err := c.last(ctx, symbol)
	if err != nil {
		return investool.Quote{}, err
	}
	c.log.WithFields(logrus.Fields{"ticker": ticker, "price": price, "currency": cur}).Debug("price")
	return investool.Quote{Price: price, Currency: cur}, nil
}

// Rate implements investool.FxSource.
func (c *Client) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	rate, err := c.last(ctx, fmt.Sprintf("%s%s.FOREX", from, to))
	if err != nil {
		return decimal.Zero, err
	}
	c.log.WithFields(logrus.Fields{"from": from, "to": to, "rate": rate}).Debug("rate")
	return rate, nil
}
