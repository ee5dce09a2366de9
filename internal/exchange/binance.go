package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// Rejection codes used by Binance-style futures APIs.
const (
	codePercentPrice       = -4131 // PERCENT_PRICE filter breach
	codeLeverageBracket    = -2027 // exceeded max notional for current leverage
	codeInsufficientMargin = -2019 // margin is insufficient
)

// BinanceConfig holds connection parameters for the futures REST API.
type BinanceConfig struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	Timeout    time.Duration
	RecvWindow int64 // milliseconds, defaults to 5000
}

// Binance implements Adapter against a Binance-futures-compatible REST API.
// Requests on signed endpoints carry an HMAC-SHA256 signature over the query
// string.
type Binance struct {
	cfg    BinanceConfig
	client *http.Client
	logger *slog.Logger
}

// NewBinance creates a Binance adapter. A zero Timeout defaults to 10s.
func NewBinance(cfg BinanceConfig, logger *slog.Logger) *Binance {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.RecvWindow <= 0 {
		cfg.RecvWindow = 5000
	}
	return &Binance{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.With(slog.String("component", "binance_adapter")),
	}
}

// apiError is the error envelope returned on non-2xx responses.
type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// classify maps an exchange error code to a domain rejection class.
func classify(code int, msg string) *domain.RejectionError {
	kind := domain.RejectOther
	switch code {
	case codePercentPrice:
		kind = domain.RejectPercentPrice
	case codeLeverageBracket:
		kind = domain.RejectLeverageBracket
	case codeInsufficientMargin:
		kind = domain.RejectInsufficientMargin
	}
	return &domain.RejectionError{Kind: kind, Code: code, Message: msg}
}

// do performs one API call. Signed requests get timestamp, recvWindow, and an
// HMAC signature appended to the query string.
func (b *Binance) do(ctx context.Context, method, path string, params url.Values, signed bool, out any) error {
	if params == nil {
		params = url.Values{}
	}
	if signed {
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		params.Set("recvWindow", strconv.FormatInt(b.cfg.RecvWindow, 10))
		mac := hmac.New(sha256.New, []byte(b.cfg.APISecret))
		mac.Write([]byte(params.Encode()))
		params.Set("signature", hex.EncodeToString(mac.Sum(nil)))
	}

	endpoint := strings.TrimRight(b.cfg.BaseURL, "/") + path
	var reqURL string
	var body io.Reader
	if method == http.MethodGet {
		reqURL = endpoint + "?" + params.Encode()
	} else {
		reqURL = endpoint
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("exchange: create request %s: %w", path, err)
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if b.cfg.APIKey != "" {
		req.Header.Set("X-MBX-APIKEY", b.cfg.APIKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("exchange: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("exchange: read response %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Code != 0 {
			return classify(apiErr.Code, apiErr.Msg)
		}
		return fmt.Errorf("exchange: %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("exchange: decode response %s: %w", path, err)
		}
	}
	return nil
}

// AccountBalance returns the available USDT balance.
func (b *Binance) AccountBalance(ctx context.Context) (float64, error) {
	var balances []struct {
		Asset            string `json:"asset"`
		AvailableBalance string `json:"availableBalance"`
	}
	if err := b.do(ctx, http.MethodGet, "/fapi/v2/balance", nil, true, &balances); err != nil {
		return 0, err
	}
	for _, bal := range balances {
		if bal.Asset == "USDT" {
			v, err := strconv.ParseFloat(bal.AvailableBalance, 64)
			if err != nil {
				return 0, fmt.Errorf("exchange: parse balance %q: %w", bal.AvailableBalance, err)
			}
			return v, nil
		}
	}
	return 0, nil
}

// Positions returns all non-zero position risk entries.
func (b *Binance) Positions(ctx context.Context) ([]PositionRisk, error) {
	var raw []struct {
		Symbol      string `json:"symbol"`
		PositionAmt string `json:"positionAmt"`
		EntryPrice  string `json:"entryPrice"`
		Leverage    string `json:"leverage"`
		MarkPrice   string `json:"markPrice"`
	}
	if err := b.do(ctx, http.MethodGet, "/fapi/v2/positionRisk", nil, true, &raw); err != nil {
		return nil, err
	}

	out := make([]PositionRisk, 0, len(raw))
	for _, p := range raw {
		qty, _ := strconv.ParseFloat(p.PositionAmt, 64)
		if qty == 0 {
			continue
		}
		entry, _ := strconv.ParseFloat(p.EntryPrice, 64)
		mark, _ := strconv.ParseFloat(p.MarkPrice, 64)
		lev, _ := strconv.Atoi(p.Leverage)
		out = append(out, PositionRisk{
			Symbol:     p.Symbol,
			Quantity:   qty,
			EntryPrice: entry,
			Leverage:   lev,
			MarkPrice:  mark,
		})
	}
	return out, nil
}

// TradingFilters fetches exchangeInfo and projects every tradable symbol's
// filters into the domain form. The whole table is returned so the caller
// can replace its cache atomically.
func (b *Binance) TradingFilters(ctx context.Context) (map[string]domain.TradingFilters, error) {
	var info struct {
		Symbols []struct {
			Symbol            string `json:"symbol"`
			Status            string `json:"status"`
			QuantityPrecision int    `json:"quantityPrecision"`
			Filters           []struct {
				FilterType  string `json:"filterType"`
				StepSize    string `json:"stepSize"`
				TickSize    string `json:"tickSize"`
				MinQty      string `json:"minQty"`
				MaxQty      string `json:"maxQty"`
				MinNotional string `json:"notional"`
				MaxNotional string `json:"maxNotional"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := b.do(ctx, http.MethodGet, "/fapi/v1/exchangeInfo", nil, false, &info); err != nil {
		return nil, err
	}

	table := make(map[string]domain.TradingFilters, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		f := domain.TradingFilters{
			Symbol:            s.Symbol,
			QuantityPrecision: s.QuantityPrecision,
		}
		for _, raw := range s.Filters {
			switch raw.FilterType {
			case "LOT_SIZE":
				f.StepSize, _ = strconv.ParseFloat(raw.StepSize, 64)
				f.MinQty, _ = strconv.ParseFloat(raw.MinQty, 64)
				f.MaxQty, _ = strconv.ParseFloat(raw.MaxQty, 64)
				f.StepSizePrecision = decimalsOf(raw.StepSize)
			case "PRICE_FILTER":
				f.TickSize, _ = strconv.ParseFloat(raw.TickSize, 64)
			case "MIN_NOTIONAL":
				f.MinNotional, _ = strconv.ParseFloat(raw.MinNotional, 64)
			case "NOTIONAL":
				f.MinNotional, _ = strconv.ParseFloat(raw.MinNotional, 64)
				f.MaxNotional, _ = strconv.ParseFloat(raw.MaxNotional, 64)
			}
		}
		table[s.Symbol] = f
	}
	return table, nil
}

// decimalsOf counts the significant decimal places in a filter value like
// "0.001000" (3) or "1.00" (0).
func decimalsOf(v string) int {
	i := strings.IndexByte(v, '.')
	if i < 0 {
		return 0
	}
	frac := strings.TrimRight(v[i+1:], "0")
	return len(frac)
}

// Klines returns up to limit candles for the symbol/interval, oldest first.
func (b *Binance) Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	var raw [][]json.RawMessage
	if err := b.do(ctx, http.MethodGet, "/fapi/v1/klines", params, false, &raw); err != nil {
		return nil, err
	}

	candles := make([]domain.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 7 {
			continue
		}
		var openMs, closeMs int64
		var open, high, low, closePx, vol string
		if err := json.Unmarshal(k[0], &openMs); err != nil {
			return nil, fmt.Errorf("exchange: malformed kline: %w", err)
		}
		_ = json.Unmarshal(k[1], &open)
		_ = json.Unmarshal(k[2], &high)
		_ = json.Unmarshal(k[3], &low)
		_ = json.Unmarshal(k[4], &closePx)
		_ = json.Unmarshal(k[5], &vol)
		_ = json.Unmarshal(k[6], &closeMs)

		c := domain.Candle{
			OpenTime:  time.UnixMilli(openMs),
			CloseTime: time.UnixMilli(closeMs),
		}
		c.Open, _ = strconv.ParseFloat(open, 64)
		c.High, _ = strconv.ParseFloat(high, 64)
		c.Low, _ = strconv.ParseFloat(low, 64)
		c.Close, _ = strconv.ParseFloat(closePx, 64)
		c.Volume, _ = strconv.ParseFloat(vol, 64)
		candles = append(candles, c)
	}
	return candles, nil
}

// orderResponse is the shared fill payload for market and limit orders.
type orderResponse struct {
	OrderID     int64  `json:"orderId"`
	Status      string `json:"status"`
	AvgPrice    string `json:"avgPrice"`
	ExecutedQty string `json:"executedQty"`
}

func (r orderResponse) fill() domain.OrderFill {
	avg, _ := strconv.ParseFloat(r.AvgPrice, 64)
	qty, _ := strconv.ParseFloat(r.ExecutedQty, 64)
	return domain.OrderFill{
		OrderID:     strconv.FormatInt(r.OrderID, 10),
		Status:      r.Status,
		AvgPrice:    avg,
		ExecutedQty: qty,
	}
}

// PlaceMarketOrder submits a MARKET order and returns the fill.
func (b *Binance) PlaceMarketOrder(ctx context.Context, ord MarketOrder) (domain.OrderFill, error) {
	params := url.Values{}
	params.Set("symbol", ord.Symbol)
	params.Set("side", string(ord.Side))
	params.Set("type", "MARKET")
	params.Set("quantity", ord.Quantity)
	params.Set("newOrderRespType", "RESULT")
	if ord.ReduceOnly {
		params.Set("reduceOnly", "true")
	}

	var resp orderResponse
	if err := b.do(ctx, http.MethodPost, "/fapi/v1/order", params, true, &resp); err != nil {
		return domain.OrderFill{}, err
	}
	return resp.fill(), nil
}

// PlaceLimitOrder submits a LIMIT order and returns the (possibly pending)
// fill state.
func (b *Binance) PlaceLimitOrder(ctx context.Context, ord LimitOrder) (domain.OrderFill, error) {
	tif := ord.TimeInForce
	if tif == "" {
		tif = "GTC"
	}
	params := url.Values{}
	params.Set("symbol", ord.Symbol)
	params.Set("side", string(ord.Side))
	params.Set("type", "LIMIT")
	params.Set("quantity", ord.Quantity)
	params.Set("price", ord.Price)
	params.Set("timeInForce", tif)
	params.Set("newOrderRespType", "RESULT")
	if ord.ReduceOnly {
		params.Set("reduceOnly", "true")
	}

	var resp orderResponse
	if err := b.do(ctx, http.MethodPost, "/fapi/v1/order", params, true, &resp); err != nil {
		return domain.OrderFill{}, err
	}
	return resp.fill(), nil
}

// SetLeverage sets the symbol's leverage.
func (b *Binance) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("leverage", strconv.Itoa(leverage))
	return b.do(ctx, http.MethodPost, "/fapi/v1/leverage", params, true, nil)
}

// MaxNotionalForLeverage returns the notional cap of the leverage bracket
// that admits the given leverage, or 0 when no bracket information is
// available.
func (b *Binance) MaxNotionalForLeverage(ctx context.Context, symbol string, leverage int) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var raw []struct {
		Symbol   string `json:"symbol"`
		Brackets []struct {
			InitialLeverage int     `json:"initialLeverage"`
			NotionalCap     float64 `json:"notionalCap"`
		} `json:"brackets"`
	}
	if err := b.do(ctx, http.MethodGet, "/fapi/v1/leverageBracket", params, true, &raw); err != nil {
		return 0, err
	}

	for _, entry := range raw {
		if entry.Symbol != symbol {
			continue
		}
		// Brackets are ordered by decreasing leverage; the first bracket
		// whose leverage admits ours bounds the notional.
		for _, br := range entry.Brackets {
			if br.InitialLeverage >= leverage {
				return br.NotionalCap, nil
			}
		}
	}
	return 0, nil
}

var _ Adapter = (*Binance)(nil)
