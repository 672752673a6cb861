// Package dataforseo wraps the DataForSEO Amazon labs endpoints used
// for paid keyword research: reverse ASIN lookup, bulk search volume,
// related keywords, and product competitors. Credentials go over HTTP
// Basic Auth; every method returns empty results without error when
// no credentials are configured, so callers never have to special-case
// the free tier.
package dataforseo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"bookscout/internal/config"
	"bookscout/internal/ratelimit"
	"bookscout/internal/types"
)

const (
	defaultBaseURL = "https://api.dataforseo.com/v3"

	// Approximate costs per the provider's documentation, tracked
	// per session so runs can report what they spent.
	costPerTask    = 0.01
	costPerKeyword = 0.0001

	// The API wraps HTTP 200 around its own status codes.
	statusOK = 20000

	volumeBatchSize = 1000
)

// Competitor is one product sharing ranked keywords with the target.
type Competitor struct {
	ASIN           string
	Title          string
	CommonKeywords int
}

// Client is the DataForSEO API client.
type Client struct {
	cfg     config.DataForSEOConfig
	limits  *ratelimit.Registry
	httpc   *http.Client
	logger  *slog.Logger
	baseURL string

	mu    sync.Mutex
	spend float64
}

// New creates a Client. It is usable without credentials; all lookups
// then answer empty.
func New(cfg config.DataForSEOConfig, limits *ratelimit.Registry, logger *slog.Logger) *Client {
	return &Client{
		cfg:     cfg,
		limits:  limits,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		logger:  logger.With("component", "dataforseo"),
		baseURL: defaultBaseURL,
	}
}

// Available reports whether credentials are configured.
func (c *Client) Available() bool {
	return c.cfg.Login != "" && c.cfg.APIKey != ""
}

// EstimatedSpend returns the estimated API spend this session, in
// dollars.
func (c *Client) EstimatedSpend() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spend
}

func (c *Client) addSpend(items int) {
	c.mu.Lock()
	c.spend += costPerTask + float64(items)*costPerKeyword
	c.mu.Unlock()
}

type apiResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Tasks         []struct {
		Result []struct {
			Items []json.RawMessage `json:"items"`
		} `json:"result"`
	} `json:"tasks"`
}

// post sends one task batch to an endpoint. Callers must have checked
// Available; posting without credentials is misuse.
func (c *Client) post(ctx context.Context, endpoint string, payload any) (*apiResponse, error) {
	if !c.Available() {
		return nil, types.ErrNotConfigured
	}
	if err := c.limits.Acquire(ratelimit.SourceDataForSEO); err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.cfg.Login, c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &types.FetchError{
			URL:        c.baseURL + endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("dataforseo http status %d", resp.StatusCode),
		}
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode dataforseo response: %w", err)
	}
	if parsed.StatusCode != statusOK {
		return nil, fmt.Errorf("dataforseo error %d: %s", parsed.StatusCode, parsed.StatusMessage)
	}
	return &parsed, nil
}

// forEachItem walks every item of every task result, tracking spend
// per result batch.
func (c *Client) forEachItem(resp *apiResponse, fn func(json.RawMessage)) {
	for _, task := range resp.Tasks {
		for _, result := range task.Result {
			c.addSpend(len(result.Items))
			for _, item := range result.Items {
				fn(item)
			}
		}
	}
}

type taskPayload struct {
	ASIN         string   `json:"asin,omitempty"`
	Keyword      string   `json:"keyword,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	LanguageCode string   `json:"language_code"`
	LocationCode int      `json:"location_code"`
}

func (c *Client) newTask() taskPayload {
	return taskPayload{LanguageCode: "en", LocationCode: c.cfg.LocationCode}
}

// ReverseLookup finds the keywords an ASIN ranks for. This is the
// paid-adapter side of the prober contract: an unconfigured client
// answers zero keywords, never an error.
func (c *Client) ReverseLookup(ctx context.Context, asin string) ([]types.RankedKeyword, error) {
	if !c.Available() {
		c.logger.Info("credentials not configured, skipping reverse lookup", "asin", asin)
		return nil, nil
	}

	task := c.newTask()
	task.ASIN = types.CanonicalASIN(asin)
	resp, err := c.post(ctx, "/dataforseo_labs/amazon/ranked_keywords/live", []taskPayload{task})
	if err != nil {
		return nil, err
	}

	type rankedItem struct {
		KeywordData struct {
			Keyword      string `json:"keyword"`
			SearchVolume int    `json:"search_volume"`
		} `json:"keyword_data"`
		RankedSerpElement struct {
			SerpItem struct {
				RankAbsolute int `json:"rank_absolute"`
			} `json:"serp_item"`
		} `json:"ranked_serp_element"`
	}

	var out []types.RankedKeyword
	c.forEachItem(resp, func(raw json.RawMessage) {
		var item rankedItem
		if err := json.Unmarshal(raw, &item); err != nil {
			c.logger.Warn("skipping malformed ranked keyword item", "err", err)
			return
		}
		kw := types.CanonicalKeyword(item.KeywordData.Keyword)
		if kw == "" {
			return
		}
		out = append(out, types.RankedKeyword{
			Keyword:      kw,
			Position:     item.RankedSerpElement.SerpItem.RankAbsolute,
			SearchVolume: item.KeywordData.SearchVolume,
		})
	})

	c.logger.Info("reverse lookup complete",
		"asin", task.ASIN,
		"keywords", len(out),
		"estimated_spend", fmt.Sprintf("$%.4f", c.EstimatedSpend()),
	)
	return out, nil
}

// BulkSearchVolume estimates monthly search volume for keywords,
// batching by the API's per-request limit.
func (c *Client) BulkSearchVolume(ctx context.Context, keywords []string) (map[string]int, error) {
	if !c.Available() || len(keywords) == 0 {
		return map[string]int{}, nil
	}

	type volumeItem struct {
		Keyword      string `json:"keyword"`
		SearchVolume int    `json:"search_volume"`
	}

	volumes := map[string]int{}
	for start := 0; start < len(keywords); start += volumeBatchSize {
		end := start + volumeBatchSize
		if end > len(keywords) {
			end = len(keywords)
		}
		task := c.newTask()
		task.Keywords = keywords[start:end]

		resp, err := c.post(ctx, "/dataforseo_labs/amazon/bulk_search_volume/live", []taskPayload{task})
		if err != nil {
			return nil, err
		}
		c.forEachItem(resp, func(raw json.RawMessage) {
			var item volumeItem
			if err := json.Unmarshal(raw, &item); err != nil {
				return
			}
			if kw := types.CanonicalKeyword(item.Keyword); kw != "" {
				volumes[kw] = item.SearchVolume
			}
		})
	}
	return volumes, nil
}

// RelatedKeywords finds semantically related keywords for a seed.
func (c *Client) RelatedKeywords(ctx context.Context, keyword string) ([]string, error) {
	if !c.Available() {
		return nil, nil
	}

	task := c.newTask()
	task.Keyword = keyword
	resp, err := c.post(ctx, "/dataforseo_labs/amazon/related_keywords/live", []taskPayload{task})
	if err != nil {
		return nil, err
	}

	type relatedItem struct {
		KeywordData struct {
			Keyword string `json:"keyword"`
		} `json:"keyword_data"`
	}

	var out []string
	c.forEachItem(resp, func(raw json.RawMessage) {
		var item relatedItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return
		}
		if kw := types.CanonicalKeyword(item.KeywordData.Keyword); kw != "" {
			out = append(out, kw)
		}
	})
	return out, nil
}

// ProductCompetitors finds products competing for the same keywords.
func (c *Client) ProductCompetitors(ctx context.Context, asin string) ([]Competitor, error) {
	if !c.Available() {
		return nil, nil
	}

	task := c.newTask()
	task.ASIN = types.CanonicalASIN(asin)
	resp, err := c.post(ctx, "/dataforseo_labs/amazon/product_competitors/live", []taskPayload{task})
	if err != nil {
		return nil, err
	}

	type competitorItem struct {
		ASIN          string `json:"asin"`
		Title         string `json:"title"`
		Intersections int    `json:"intersections"`
	}

	var out []Competitor
	c.forEachItem(resp, func(raw json.RawMessage) {
		var item competitorItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return
		}
		if item.ASIN == "" {
			return
		}
		out = append(out, Competitor{
			ASIN:           types.CanonicalASIN(item.ASIN),
			Title:          item.Title,
			CommonKeywords: item.Intersections,
		})
	})
	return out, nil
}
