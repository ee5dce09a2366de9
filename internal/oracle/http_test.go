package oracle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
	"github.com/p8a1u7l/cointrade5-sub000/internal/scalp"
)

func TestStrategyClientDecodesResponse(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/v1/decide" {
			t.Errorf("path = %s, want /v1/decide", r.URL.Path)
		}
		w.Write([]byte(`{"bias":"LONG","confidence":0.72,"reasoning":"momentum"}`))
	}))
	defer srv.Close()

	c := NewStrategyClient(Config{BaseURL: srv.URL, APIKey: "k1"})
	resp, err := c.Request(context.Background(), &domain.MarketSnapshot{Symbol: "BTCUSDT", LastPrice: 100})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.Bias != domain.BiasLong || resp.Confidence != 0.72 {
		t.Errorf("response = %+v", resp)
	}
	if gotAuth != "Bearer k1" {
		t.Errorf("auth header = %q", gotAuth)
	}
}

func TestStrategyClientWrapsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewStrategyClient(Config{BaseURL: srv.URL})
	_, err := c.Request(context.Background(), &domain.MarketSnapshot{Symbol: "BTCUSDT"})
	if !errors.Is(err, domain.ErrOracleUnavailable) {
		t.Errorf("error %v should wrap ErrOracleUnavailable", err)
	}
}

func TestPolicyClientWrapsUnavailable(t *testing.T) {
	// Unreachable endpoint: the transport error must classify the same way
	// as a bad status.
	c := NewPolicyClient(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Decide(context.Background(), scalp.PolicyRequest{Symbol: "BTCUSDT"})
	if !errors.Is(err, domain.ErrOracleUnavailable) {
		t.Errorf("error %v should wrap ErrOracleUnavailable", err)
	}
}

func TestPolicyClientDecodesVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/review" {
			t.Errorf("path = %s, want /v1/review", r.URL.Path)
		}
		w.Write([]byte(`{"allow":true,"model":"BREAKOUT","side":"LONG","tp_rr":2.0}`))
	}))
	defer srv.Close()

	c := NewPolicyClient(Config{BaseURL: srv.URL})
	verdict, err := c.Decide(context.Background(), scalp.PolicyRequest{Symbol: "BTCUSDT"})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if !verdict.Allow || verdict.Model != "BREAKOUT" || verdict.TPRR != 2.0 {
		t.Errorf("verdict = %+v", verdict)
	}
}
