// Package gamma is the REST client for the market-data API: series market
// discovery (the pull fallback behind the websocket feed), historical price
// backfill, and the public ticker used as the last-resort price source.
package gamma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/signalbot/internal/domain"
)

// Client talks to the market-data REST API.
type Client struct {
	baseURL    string
	seriesSlug string
	httpClient *http.Client
}

// New creates a Client for the given API root and market series.
func New(baseURL, seriesSlug string) *Client {
	return &Client{
		baseURL:    baseURL,
		seriesSlug: seriesSlug,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiMarket mirrors the wire shape of a market in a series response.
// Numeric fields arrive as strings.
type apiMarket struct {
	ID        string `json:"id"`
	Question  string `json:"question"`
	Slug      string `json:"slug"`
	YesPrice  string `json:"yesPrice"`
	NoPrice   string `json:"noPrice"`
	Volume    string `json:"volume"`
	Liquidity string `json:"liquidity"`
	EndDate   string `json:"endDate"`
}

type seriesResponse struct {
	Markets []apiMarket `json:"markets"`
}

func (m *apiMarket) toSnapshot() domain.MarketSnapshot {
	yes, _ := strconv.ParseFloat(m.YesPrice, 64)
	no, _ := strconv.ParseFloat(m.NoPrice, 64)
	vol, _ := strconv.ParseFloat(m.Volume, 64)
	liq, _ := strconv.ParseFloat(m.Liquidity, 64)
	expires, _ := time.Parse(time.RFC3339, m.EndDate)
	return domain.MarketSnapshot{
		ID:        m.ID,
		Question:  m.Question,
		Slug:      m.Slug,
		YesPrice:  yes,
		NoPrice:   no,
		Volume:    vol,
		Liquidity: liq,
		ExpiresAt: expires,
	}
}

// ActiveMarket returns the first non-expired market in the configured
// series, or ErrNotFound when every market has expired.
func (c *Client) ActiveMarket(ctx context.Context) (*domain.MarketSnapshot, error) {
	path := "/series/" + url.PathEscape(c.seriesSlug)
	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("gamma: get series %s: %w", c.seriesSlug, err)
	}

	var resp seriesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("gamma: decode series: %w", err)
	}

	now := time.Now().UTC()
	for i := range resp.Markets {
		snap := resp.Markets[i].toSnapshot()
		if !snap.Expired(now) {
			return &snap, nil
		}
	}
	return nil, fmt.Errorf("gamma: series %s: %w", c.seriesSlug, domain.ErrNotFound)
}

type historyResponse struct {
	History []struct {
		T int64  `json:"t"` // Unix seconds
		P string `json:"p"`
	} `json:"history"`
}

// HistoricalPrices returns price points covering the trailing window, oldest
// first. Used once at bot start to warm up indicators.
func (c *Client) HistoricalPrices(ctx context.Context, window time.Duration) ([]domain.PricePoint, error) {
	params := url.Values{}
	params.Set("series", c.seriesSlug)
	params.Set("startTs", strconv.FormatInt(time.Now().Add(-window).Unix(), 10))
	path := "/prices-history?" + params.Encode()

	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("gamma: price history: %w", err)
	}

	var resp historyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("gamma: decode price history: %w", err)
	}

	points := make([]domain.PricePoint, 0, len(resp.History))
	for _, h := range resp.History {
		price, err := strconv.ParseFloat(h.P, 64)
		if err != nil {
			continue
		}
		points = append(points, domain.PricePoint{
			Price:     price,
			Timestamp: time.Unix(h.T, 0).UTC(),
		})
	}
	return points, nil
}

type tickerResponse struct {
	Price string `json:"price"`
	Time  int64  `json:"time"`
}

// LatestPrice reads the public ticker. It is the fallback price source; the
// primary is the on-chain oracle.
func (c *Client) LatestPrice(ctx context.Context) (*domain.PricePoint, error) {
	body, err := c.doGet(ctx, "/ticker?series="+url.QueryEscape(c.seriesSlug))
	if err != nil {
		return nil, fmt.Errorf("gamma: ticker: %w", err)
	}

	var resp tickerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("gamma: decode ticker: %w", err)
	}
	price, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("gamma: parse ticker price %q: %w", resp.Price, err)
	}

	ts := time.Now().UTC()
	if resp.Time > 0 {
		ts = time.Unix(resp.Time, 0).UTC()
	}
	return &domain.PricePoint{Price: price, Timestamp: ts}, nil
}

// doGet sends an unauthenticated GET request to the API.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
