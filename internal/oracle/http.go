// Package oracle provides HTTP clients for the external strategy and policy
// services.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
	"github.com/p8a1u7l/cointrade5-sub000/internal/engine"
	"github.com/p8a1u7l/cointrade5-sub000/internal/scalp"
)

// Config holds the connection parameters for one oracle endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// StrategyClient calls the strategy oracle's decide endpoint.
type StrategyClient struct {
	cfg    Config
	client *http.Client
}

func NewStrategyClient(cfg Config) *StrategyClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &StrategyClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// strategyRequest condenses the snapshot for the oracle.
type strategyRequest struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	Change5m   float64 `json:"change_5m"`
	Change15m  float64 `json:"change_15m"`
	RSI        float64 `json:"rsi"`
	ATRPercent float64 `json:"atr_percent"`
	VolRatio   float64 `json:"vol_ratio"`
	LocalBias  string  `json:"local_bias"`
	LocalConf  float64 `json:"local_confidence"`
	LocalEdge  float64 `json:"local_edge"`
}

type strategyResponse struct {
	Bias       string  `json:"bias"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Request asks the oracle for a directional decision on the snapshot.
func (c *StrategyClient) Request(ctx context.Context, snap *domain.MarketSnapshot) (engine.OracleResponse, error) {
	req := strategyRequest{
		Symbol:     snap.Symbol,
		Price:      snap.LastPrice,
		Change5m:   snap.Change5m,
		Change15m:  snap.Change15m,
		RSI:        snap.RSI14,
		ATRPercent: snap.ATRPercent,
		VolRatio:   snap.VolumeRatio,
		LocalBias:  string(snap.Signal.Bias),
		LocalConf:  snap.Signal.Confidence,
		LocalEdge:  snap.Signal.EdgeScore,
	}
	var resp strategyResponse
	if err := post(ctx, c.client, c.cfg, "/v1/decide", req, &resp); err != nil {
		return engine.OracleResponse{}, fmt.Errorf("oracle: strategy request: %w: %w", domain.ErrOracleUnavailable, err)
	}
	return engine.OracleResponse{
		Bias:       domain.Bias(resp.Bias),
		Confidence: resp.Confidence,
		Reasoning:  resp.Reasoning,
	}, nil
}

var _ engine.StrategyOracle = (*StrategyClient)(nil)

// PolicyClient calls the policy oracle's review endpoint with the condensed
// candidate payload.
type PolicyClient struct {
	cfg    Config
	client *http.Client
}

func NewPolicyClient(cfg Config) *PolicyClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PolicyClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Decide submits the candidates for review.
func (c *PolicyClient) Decide(ctx context.Context, req scalp.PolicyRequest) (scalp.PolicyVerdict, error) {
	var verdict scalp.PolicyVerdict
	if err := post(ctx, c.client, c.cfg, "/v1/review", req, &verdict); err != nil {
		return scalp.PolicyVerdict{}, fmt.Errorf("oracle: policy request: %w: %w", domain.ErrOracleUnavailable, err)
	}
	return verdict, nil
}

var _ scalp.PolicyOracle = (*PolicyClient)(nil)

func post(ctx context.Context, client *http.Client, cfg Config, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
