package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
	"github.com/p8a1u7l/cointrade5-sub000/internal/market"
	"github.com/p8a1u7l/cointrade5-sub000/internal/scalp"
)

// Mode selects the decision path.
type Mode string

const (
	// ModeScalp runs the multi-strategy candidate engine with the policy
	// merger.
	ModeScalp Mode = "scalp"
	// ModeOracle consults the strategy oracle through the decision cache.
	ModeOracle Mode = "oracle"
)

// Config drives the scheduler loop.
type Config struct {
	Symbols      []string
	Interval     string // candle interval, e.g. "1m"
	CandleLimit  int
	TickEvery    time.Duration
	Mode         Mode
	Concurrency  int     // bounded per-symbol fan-out, 1 = sequential
	SlippageWarn float64 // bps of entry slippage that counts as an adverse event
}

// Recorder receives per-tick decision and fill records for the analytics
// layer. Implementations must not block the tick; failures are theirs to
// log.
type Recorder interface {
	RecordDecision(ctx context.Context, rec domain.DecisionRecord)
	RecordFill(ctx context.Context, rec domain.FillRecord)
}

// NopRecorder discards all records.
type NopRecorder struct{}

func (NopRecorder) RecordDecision(context.Context, domain.DecisionRecord) {}
func (NopRecorder) RecordFill(context.Context, domain.FillRecord)        {}

// Engine is the scheduler: on each tick it evaluates every symbol through
// the configured decision path and hands the result to the executor. A
// single in-flight guard prevents overlapping ticks; per-symbol failures are
// logged and never crash the loop.
type Engine struct {
	cfg      Config
	provider market.Provider
	scalpEng *scalp.Engine
	cache    *DecisionCache
	executor *Executor
	ledger   *PositionLedger
	cooldown *CooldownTracker
	stops    *scalp.StopTracker
	filters  *FilterCache
	recorder Recorder
	logger   *slog.Logger

	inFlight atomic.Bool

	// pending holds the last live candidate per symbol so a fill can adopt
	// its stop/target hints and model metadata.
	mu      sync.Mutex
	pending map[string]domain.Candidate
}

func New(cfg Config, provider market.Provider, scalpEng *scalp.Engine, cache *DecisionCache, executor *Executor, ledger *PositionLedger, cooldown *CooldownTracker, stops *scalp.StopTracker, filters *FilterCache, recorder Recorder, logger *slog.Logger) (*Engine, error) {
	if len(cfg.Symbols) == 0 {
		return nil, domain.ErrNoTradableSymbols
	}
	if cfg.TickEvery <= 0 {
		cfg.TickEvery = 15 * time.Second
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = 120
	}
	if cfg.SlippageWarn <= 0 {
		cfg.SlippageWarn = 8
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeScalp
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Engine{
		cfg:      cfg,
		provider: provider,
		scalpEng: scalpEng,
		cache:    cache,
		executor: executor,
		ledger:   ledger,
		cooldown: cooldown,
		stops:    stops,
		filters:  filters,
		recorder: recorder,
		logger:   logger.With(slog.String("component", "engine")),
		pending:  make(map[string]domain.Candidate),
	}, nil
}

// Run drives the tick loop until the context is cancelled. The current tick
// finishes before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine started",
		slog.Int("symbols", len(e.cfg.Symbols)),
		slog.String("mode", string(e.cfg.Mode)),
		slog.Duration("tick", e.cfg.TickEvery),
	)
	ticker := time.NewTicker(e.cfg.TickEvery)
	defer ticker.Stop()

	e.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped")
			return ctx.Err()
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	if !e.inFlight.CompareAndSwap(false, true) {
		e.logger.Warn("previous tick still running, skipping")
		return
	}
	defer e.inFlight.Store(false)

	if err := e.filters.Refresh(ctx); err != nil {
		e.logger.Error("filter refresh failed", slog.Any("error", err))
		// Stale filters are usable; missing filters fail per symbol below.
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for _, symbol := range e.cfg.Symbols {
		symbol := symbol
		g.Go(func() error {
			if err := e.evaluateSymbol(gctx, symbol); err != nil {
				e.logger.Error("symbol evaluation failed",
					slog.String("symbol", symbol),
					slog.Any("error", err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) evaluateSymbol(ctx context.Context, symbol string) error {
	snap, err := e.provider.Snapshot(ctx, symbol, e.cfg.Interval, e.cfg.CandleLimit)
	if err != nil {
		return err
	}

	pos, hasPos, err := e.ledger.Position(ctx, symbol)
	if err != nil {
		return err
	}

	// Stop management runs before new decisions: a breached trail forces
	// an exit this tick.
	if hasPos && e.stops != nil {
		if e.stops.Advance(symbol, snap.LastPrice, snap.ATRAbs()) {
			e.logger.Info("trailing stop hit", slog.String("symbol", symbol), slog.Float64("price", snap.LastPrice))
			e.cooldown.RecordStop(symbol)
			d := domain.Decision{
				Symbol:     symbol,
				Bias:       domain.BiasFlat,
				Action:     domain.ActionExit,
				Confidence: 1,
				Reasoning:  "trailing stop breached",
				Source:     domain.ProvenanceStrategy,
			}
			return e.execute(ctx, d, snap, pos.Model)
		}
	}

	var d domain.Decision
	switch e.cfg.Mode {
	case ModeOracle:
		d = e.cache.Decide(ctx, snap, hasPos)
	default:
		d = e.decideScalp(ctx, snap, pos, hasPos)
	}

	e.recorder.RecordDecision(ctx, domain.DecisionRecord{
		ID:         uuid.NewString(),
		Symbol:     d.Symbol,
		Bias:       d.Bias,
		Action:     d.Action,
		Confidence: d.Confidence,
		EntryPrice: d.EntryPrice,
		ExitPrice:  d.ExitPrice,
		Reasoning:  d.Reasoning,
		Source:     d.Source,
		LocalEdge:  d.LocalEdge,
		Price:      snap.LastPrice,
		CreatedAt:  time.Now().UTC(),
	})

	return e.execute(ctx, d, snap, pos.Model)
}

// decideScalp turns the merged candidate into a Decision. A NONE candidate
// holds; an opposite-side candidate on an open position flips.
func (e *Engine) decideScalp(ctx context.Context, snap *domain.MarketSnapshot, pos domain.Position, hasPos bool) domain.Decision {
	var tickSize float64
	if f, ok := e.filters.Filters(snap.Symbol); ok {
		tickSize = f.TickSize
	}
	cand := e.scalpEng.Evaluate(ctx, snap, tickSize)

	d := domain.Decision{
		Symbol:          snap.Symbol,
		Source:          domain.ProvenanceStrategy,
		Reasoning:       joinReasons(cand.Reasons),
		LocalEdge:       snap.Signal.EdgeScore,
		LocalConfidence: snap.Signal.Confidence,
		LocalBias:       snap.Signal.Bias,
	}
	switch cand.Signal {
	case domain.SignalLong:
		d.Bias = domain.BiasLong
	case domain.SignalShort:
		d.Bias = domain.BiasShort
	default:
		d.Bias = domain.BiasFlat
		d.Action = domain.ActionHold
		return d
	}
	d.Confidence = cand.Quality
	d.EntryPrice = cand.EntryHint
	if hasPos && pos.Side.Bias() != d.Bias {
		d.Action = domain.ActionFlip
	} else {
		d.Action = domain.ActionEntry
	}

	e.mu.Lock()
	e.pending[snap.Symbol] = cand
	e.mu.Unlock()
	return d
}

func (e *Engine) execute(ctx context.Context, d domain.Decision, snap *domain.MarketSnapshot, posModel domain.StrategyModel) error {
	res, err := e.executor.Execute(ctx, d, snap.LastPrice)
	if err != nil {
		return err
	}

	if res.Close != nil {
		e.recordFill(ctx, d.Symbol, res, res.Close, true, posModel)
		e.stops.Drop(d.Symbol)
	}
	if res.Entry != nil {
		e.recordFill(ctx, d.Symbol, res, res.Entry, false, e.pendingModel(d.Symbol))
		e.afterEntry(d, snap, res)
	}
	if res.Outcome == OutcomeSkipped && res.Reason != "" {
		e.logger.Debug("no action",
			slog.String("symbol", d.Symbol),
			slog.String("reason", res.Reason),
		)
	}
	return nil
}

func (e *Engine) afterEntry(d domain.Decision, snap *domain.MarketSnapshot, res ExecResult) {
	if slip := scalp.SlippageBps(snap.LastPrice, res.Entry.AvgPrice); slip > e.cfg.SlippageWarn {
		e.logger.Warn("excessive entry slippage",
			slog.String("symbol", d.Symbol),
			slog.Float64("slippage_bps", slip),
		)
		e.cooldown.RecordSlippage(d.Symbol)
	}
	var tickSize float64
	if f, ok := e.filters.Filters(d.Symbol); ok {
		tickSize = f.TickSize
	}

	e.mu.Lock()
	cand, ok := e.pending[d.Symbol]
	delete(e.pending, d.Symbol)
	e.mu.Unlock()
	if !ok {
		// Oracle-mode or stop-forced entries carry no candidate; derive a
		// plain ATR plan.
		sig := domain.SignalLong
		if d.Bias == domain.BiasShort {
			sig = domain.SignalShort
		}
		cand = domain.Candidate{
			Symbol:     d.Symbol,
			Signal:     sig,
			Stop:       domain.StopHint{Type: domain.StopATR, Ticks: atrTicks(snap, tickSize)},
			TakeProfit: domain.TakeProfitPlan{RMultiple: 1.5},
		}
	}

	e.ledger.RecordEntry(d.Symbol, cand.Model, snap.Change5m)
	if e.stops != nil {
		e.stops.Track(scalp.PlanExit(cand, res.Entry.AvgPrice, tickSize))
	}
}

func (e *Engine) recordFill(ctx context.Context, symbol string, res ExecResult, fill *domain.OrderFill, reduceOnly bool, model domain.StrategyModel) {
	e.recorder.RecordFill(ctx, domain.FillRecord{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Side:       string(res.Side),
		ReduceOnly: reduceOnly,
		Quantity:   fill.ExecutedQty,
		AvgPrice:   fill.AvgPrice,
		Status:     fill.Status,
		OrderID:    fill.OrderID,
		Model:      model,
		CreatedAt:  time.Now().UTC(),
	})
}

// pendingModel peeks at the live candidate's model without consuming it;
// afterEntry still needs the full candidate for the exit plan.
func (e *Engine) pendingModel(symbol string) domain.StrategyModel {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cand, ok := e.pending[symbol]; ok {
		return cand.Model
	}
	return domain.ModelNone
}

func atrTicks(snap *domain.MarketSnapshot, tickSize float64) int {
	if tickSize <= 0 {
		return 2
	}
	t := int(snap.ATRAbs() / tickSize)
	if t < 2 {
		t = 2
	}
	return t
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += "; "
		}
		out += r
	}
	return out
}
