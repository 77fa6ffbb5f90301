// Package quote provides price sources that need no dedicated market data provider.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/investool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TickerPlaceholder is replaced by the ticker in a JSONPath URL.
const TickerPlaceholder = "{ticker}"

// JSONPath reads prices from any HTTP endpoint returning JSON.
//
// For instance, with URL "https://example.com/quote?s={ticker}" and PricePath "$.quote.last",
// the price of MSFT is read from the "last" member of the "quote" object returned for s=MSFT.
type JSONPath struct {
	url          string
	pricePath    string
	currencyPath string
	currency     string
	client       *http.Client
	log          logrus.FieldLogger
}

// NewJSONPath returns a JSONPath source.
//
// currencyPath is optional; when empty, or when it yields nothing, prices are in currency.
func NewJSONPath(urlTemplate, pricePath, currencyPath, currency string, client *http.Client, log logrus.FieldLogger) (*JSONPath, error) {
	if !strings.Contains(urlTemplate, TickerPlaceholder) {
		return nil, fmt.Errorf("quote url %q has no %s: %w", urlTemplate, TickerPlaceholder, investool.ErrInvalid)
	}
	if pricePath == "" {
		return nil, fmt.Errorf("quote price path is missing: %w", investool.ErrInvalid)
	}
	if currencyPath == "" {
		if err := investool.ValidateCurrency(currency); err != nil {
			return nil, err
		}
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &JSONPath{
		url:          urlTemplate,
		pricePath:    pricePath,
		currencyPath: currencyPath,
		currency:     currency,
		client:       client,
		log:          log,
	}, nil
}

// CurrentPrice implements investool.PriceSource.
func (s *JSONPath) CurrentPrice(ctx context.Context, ticker string) (investool.Quote, error) {
	addr := strings.ReplaceAll(s.url, TickerPlaceholder, url.QueryEscape(ticker))
	jobj, err := s.get(ctx, addr)
	if err != nil {
		return investool.Quote{}, fmt.Errorf("error retrieving %q: %w", ticker, err)
	}

	jval, err := query(s.pricePath, jobj)
	if err != nil {
		return investool.Quote{}, fmt.Errorf("error parsing %q: %q %w", ticker, s.pricePath, err)
	}
	price, err := toDecimal(jval)
	if err != nil {
		return investool.Quote{}, fmt.Errorf("error parsing %q: %q %w", ticker, s.pricePath, err)
	}

	cur := s.currency
	if s.currencyPath != "" {
		if jval, err := query(s.currencyPath, jobj); err == nil {
			if c, ok := jval.(string); ok && c != "" {
				cur = strings.ToUpper(c)
			}
		}
	}
	if cur == "" {
		return investool.Quote{}, fmt.Errorf("no currency for %q at %q", ticker, s.currencyPath)
	}
	s.log.WithFields(logrus.Fields{"ticker": ticker, "price": price, "currency": cur}).Debug("price")
	return investool.Quote{Price: price, Currency: cur}, nil
}

func (s *JSONPath) get(ctx context.Context, addr string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	s.log.Debugf("%v %v%v %v", req.Method, req.URL.Host, req.URL.Path, resp.Status)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot http GET %v%v: %v", req.URL.Host, req.URL.Path, resp.Status)
	}
	var jobj any
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&jobj); err != nil {
		return nil, err
	}
	return jobj, nil
}

func query(path string, jobj any) (any, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, err
	}
	// because jsonpath is never clear about whether it returns a list of 1 answer, or a single answer:
	// by this call I keep the first one if any
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return nil, errors.New("no match")
		}
		jval = jlist[0]
	}
	return jval, nil
}

func toDecimal(jval any) (decimal.Decimal, error) {
	switch v := jval.(type) {
	case json.Number:
		return decimal.NewFromString(v.String())
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		// some APIs return the value as a localized string
		v = strings.ReplaceAll(v, ",", ".")
		v = strings.ReplaceAll(v, " ", "")
		return decimal.NewFromString(v)
	default:
		return decimal.Zero, fmt.Errorf("not a number: %v", jval)
	}
}
