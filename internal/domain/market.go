package domain

import "time"

// Bias is the directional read of a market: long, short, or flat.
type Bias string

const (
	BiasLong  Bias = "long"
	BiasShort Bias = "short"
	BiasFlat  Bias = "flat"
)

// Opposite returns the inverse direction. Flat is its own opposite.
func (b Bias) Opposite() Bias {
	switch b {
	case BiasLong:
		return BiasShort
	case BiasShort:
		return BiasLong
	default:
		return BiasFlat
	}
}

// Candle is a single OHLCV bar.
type Candle struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	OpenTime  time.Time
	CloseTime time.Time
}

// Body returns the absolute candle body size.
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Range returns high minus low.
func (c Candle) Range() float64 { return c.High - c.Low }

// LocalSignal is the locally computed directional signal embedded in every
// MarketSnapshot. LongScore and ShortScore are unbounded non-negative weights;
// their difference determines Bias.
type LocalSignal struct {
	Bias       Bias
	Confidence float64 // 0..1
	EdgeScore  float64 // 0..1
	Reasoning  string
	LongScore  float64
	ShortScore float64
}

// MarketSnapshot bundles the candle series and every derived metric the
// decision path consumes. It is immutable once built and rebuilt every tick.
type MarketSnapshot struct {
	Symbol   string
	Interval string
	Candles  []Candle

	LastPrice   float64
	Change1m    float64 // percent
	Change5m    float64
	Change15m   float64
	Change24h   float64
	EMAFast     float64
	EMASlow     float64
	RSI14       float64
	ATRPercent  float64
	VolumeRatio float64 // last volume vs rolling average
	VolumeAccel float64 // ratio of short-window to long-window average volume
	MFI         float64
	OBVSlope    float64
	Support     float64
	Resistance  float64

	Signal    LocalSignal
	FetchedAt time.Time
}

// ATRAbs returns the ATR expressed in price units rather than percent.
func (s *MarketSnapshot) ATRAbs() float64 {
	return s.ATRPercent / 100 * s.LastPrice
}
