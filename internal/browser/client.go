package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"harvest-engine/internal/extract"
	"harvest-engine/internal/pipeline"
	"harvest-engine/internal/pool"
	"harvest-engine/internal/strategy"
)

// Client talks to the local browser-automation service that drives the
// actual profile windows. It implements pipeline.Fetcher.
type Client struct {
	BaseURL   string
	Token     string
	BatchSize int // max candidates requested per batch
	hc        *http.Client
}

func New(baseURL, token string, batchSize int) *Client {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Client{
		BaseURL:   baseURL,
		Token:     token,
		BatchSize: batchSize,
		hc:        &http.Client{Timeout: 90 * time.Second},
	}
}

type fetchRequest struct {
	AccountID      string  `json:"account_id"`
	TargetKind     string  `json:"target_kind"`
	Query          string  `json:"query"`
	ScrollDistance int     `json:"scroll_distance"`
	WaitSeconds    float64 `json:"wait_seconds"`
	Aggressive     bool    `json:"aggressive"`
	BatchSize      int     `json:"batch_size"`
}

type fetchResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Items []extract.RawCandidate `json:"items"`
	} `json:"data"`
}

func (c *Client) FetchBatch(ctx context.Context, acct pool.View, t pipeline.Target, query string, params strategy.Params) ([]extract.RawCandidate, error) {
	body, _ := json.Marshal(fetchRequest{
		AccountID:      acct.ID,
		TargetKind:     string(t.Kind),
		Query:          query,
		ScrollDistance: params.ScrollDistance,
		WaitSeconds:    params.WaitSeconds,
		Aggressive:     params.Aggressive,
		BatchSize:      c.BatchSize,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/api/v1/collect", bytes.NewReader(body))
	if err != nil {
		return nil, &pipeline.StructuralFetchError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		// network failure or timeout
		return nil, &pipeline.TransientFetchError{Err: err}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500:
		return nil, &pipeline.TransientFetchError{
			Err: fmt.Errorf("browser service status %d", res.StatusCode),
		}
	case res.StatusCode >= 400:
		return nil, &pipeline.StructuralFetchError{
			Err: fmt.Errorf("browser service status %d", res.StatusCode),
		}
	}

	var fr fetchResponse
	if err := json.NewDecoder(res.Body).Decode(&fr); err != nil {
		return nil, &pipeline.StructuralFetchError{
			Err: fmt.Errorf("decode browser response: %w", err),
		}
	}
	if fr.Code != 0 {
		return nil, &pipeline.StructuralFetchError{
			Err: fmt.Errorf("browser service code %d: %s", fr.Code, fr.Msg),
		}
	}
	return fr.Data.Items, nil
}
