package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/pitfolio/src/logger"
	"golang.org/x/net/publicsuffix"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"

type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string  `json:"symbol"`
			RegularMarketPrice float64 `json:"regularMarketPrice"`
			Currency           string  `json:"currency"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"quoteResponse"`
}

type cachedPrice struct {
	price    float64
	currency string
}

// priceServiceImpl fetches quotes from Yahoo Finance. It keeps a cookie jar
// and Yahoo's crumb for the authenticated quote endpoint, and a per-instance
// price cache so repeated valuations of the same holdings don't refetch.
type priceServiceImpl struct {
	httpClient http.Client
	crumb      string
	prices     *cache.Cache
}

// NewPriceService creates a price service. The cache belongs to this instance
// only; nothing here is shared across runs.
func NewPriceService(cacheExpiry time.Duration) PriceService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	s := &priceServiceImpl{
		httpClient: http.Client{Jar: jar, Timeout: 20 * time.Second},
		prices:     cache.New(cacheExpiry, 2*cacheExpiry),
	}

	if err := s.initializeYahooSession(); err != nil {
		logger.L.Error("Failed to initialize Yahoo Finance session. Price fetching may fail.", "error", err)
	}
	return s
}

var crumbRe = regexp.MustCompile(`"CrumbStore":{"crumb":"(.*?)"}`)

// initializeYahooSession visits a Yahoo Finance page to get the cookies and
// crumb the quote endpoint requires.
func (s *priceServiceImpl) initializeYahooSession() error {
	req, err := http.NewRequest("GET", "https://finance.yahoo.com/quote/VHYL.L", nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make initial request to Yahoo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Yahoo response body: %w", err)
	}

	matches := crumbRe.FindStringSubmatch(string(body))
	if len(matches) < 2 {
		return fmt.Errorf("could not find crumb in Yahoo Finance response. The page structure may have changed")
	}

	s.crumb = matches[1]
	logger.L.Info("Successfully obtained Yahoo Finance crumb.")
	return nil
}

// CurrentPrice returns the latest market price and its currency for a symbol.
func (s *priceServiceImpl) CurrentPrice(symbol string) (float64, string, error) {
	if cached, found := s.prices.Get(symbol); found {
		p := cached.(cachedPrice)
		return p.price, p.currency, nil
	}

	if s.crumb == "" {
		logger.L.Warn("Yahoo crumb is missing, attempting to re-initialize session.")
		if err := s.initializeYahooSession(); err != nil {
			return 0, "", fmt.Errorf("failed to re-initialize Yahoo session: %w", err)
		}
	}

	quoteURL := fmt.Sprintf("https://query2.finance.yahoo.com/v7/finance/quote?symbols=%s&crumb=%s", symbol, s.crumb)
	req, err := http.NewRequest("GET", quoteURL, nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("failed to call Yahoo quote API for symbol %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return 0, "", fmt.Errorf("yahoo quote API returned non-OK status %d for symbol %s. Body: %s", resp.StatusCode, symbol, string(bodyBytes))
	}

	var quoteData yahooQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quoteData); err != nil {
		return 0, "", fmt.Errorf("failed to decode Yahoo quote response for symbol %s: %w", symbol, err)
	}

	if quoteData.QuoteResponse.Error != nil || len(quoteData.QuoteResponse.Result) == 0 {
		return 0, "", fmt.Errorf("yahoo quote API returned an error or no result for symbol %s", symbol)
	}

	price := quoteData.QuoteResponse.Result[0].RegularMarketPrice
	currency := quoteData.QuoteResponse.Result[0].Currency
	s.prices.Set(symbol, cachedPrice{price: price, currency: currency}, cache.DefaultExpiration)
	logger.L.Info("Fetched current price", "symbol", symbol, "price", price, "currency", currency)
	return price, currency, nil
}
