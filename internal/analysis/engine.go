package analysis

import (
	"errors"
	"fmt"
	"math"

	"hyperdash/internal/domain"
)

// Canonical fee defaults applied when the caller supplies no settings.
// Percent values: 0.045 means 0.045% of notional.
const (
	DefaultTakerFeePercent = 0.045
	DefaultMakerFeePercent = 0.015
)

// ErrInvalidPosition indicates a position that violates the engine's
// preconditions (non-positive entry price or zero size). Such inputs are
// programmer errors upstream; the engine refuses them rather than
// producing NaN or Inf.
var ErrInvalidPosition = errors.New("invalid position")

// TPLeg is the projected outcome of one take-profit order.
type TPLeg struct {
	Price         float64 // Effective exit price (the limit price)
	Size          float64 // Order size
	GrossProfit   float64 // Profit before fees; negative if the TP is priced beyond entry the wrong way
	ExitFee       float64 // Maker fee on the exit notional
	EntryFeeShare float64 // Entry fee allocated pro-rata by size fraction
	NetProfit     float64 // GrossProfit - EntryFeeShare - ExitFee
	PriceMove     float64 // Absolute distance from entry
	PercentMove   float64 // PriceMove as % of entry
	PnLPercent    float64 // Signed per-unit profit as % of entry
	ChartPercent  float64 // Horizontal chart position in [0,100]
}

// SLLeg is the projected outcome of the stop-loss order, assumed to close
// the whole position regardless of the order's own size.
type SLLeg struct {
	Price        float64 // Effective exit price (trigger price when present)
	Size         float64 // Full position size
	GrossLoss    float64 // Loss before fees; negative when the stop is beyond breakeven in the holder's favor
	ExitFee      float64 // Taker fee on the exit notional
	TotalLoss    float64 // Loss including entry and exit fees; may be negative (net favorable)
	IsInProfit   bool    // True when GrossLoss < 0
	PriceMove    float64 // Absolute distance from entry
	PercentMove  float64 // PriceMove as % of entry
	ChartPercent float64 // Horizontal chart position in [0,100]
}

// Summary holds per-position aggregates over the qualifying orders.
type Summary struct {
	TotalTPSize      float64 // Sum of TP order sizes; may exceed position size (over-allocation is not flagged)
	TotalTPProfit    float64 // Sum of gross TP profits
	TotalTPExitFees  float64 // Sum of TP exit fees
	AvgTPPrice       float64 // Size-weighted mean TP price; 0 with no TPs
	AvgTPPriceMove   float64 // Distance of AvgTPPrice from entry
	AvgTPPercentMove float64 // AvgTPPriceMove as % of entry
	MaxFees          float64 // Entry fee plus the worst-case exit fees
	BreakevenPercent float64 // Favorable move (% of entry) needed to cover the entry fee
	RiskReward       float64 // ExpectedProfit / ExpectedLoss; 0 when ExpectedLoss is 0
}

// Visualization holds the chart coordinate system for one position. All
// chart percents are derived from a price range padded 0.5% on each side.
type Visualization struct {
	MinPrice     float64
	MaxPrice     float64
	PriceRange   float64
	EntryPercent float64 // Chart position of the entry price
}

// PositionAnalysis is the full projection for a single position.
type PositionAnalysis struct {
	Coin           string
	IsLong         bool
	Size           float64
	EntryPrice     float64
	Value          float64
	EntryFee       float64
	TPOrders       []TPLeg
	SLOrder        *SLLeg // nil when the coin has no stop order
	ExpectedProfit float64
	ExpectedLoss   float64
	Summary        Summary
	Visualization  Visualization
}

// Result aggregates analyses across all positions. Positions appears in
// input order; positions without qualifying orders are included with
// empty legs and zero aggregates.
type Result struct {
	TotalExpectedProfit float64
	TotalExpectedLoss   float64
	Positions           []PositionAnalysis
}

// Calculate runs the analysis for every position against the open order
// list. It is a pure transform: no I/O, no retained state, identical
// inputs produce identical output. orders may be nil when no broker data
// is available.
func Calculate(positions []domain.Position, orders []domain.Order, fees domain.FeeSettings) (*Result, error) {
	res := &Result{Positions: make([]PositionAnalysis, 0, len(positions))}
	for i := range positions {
		pa, err := analyzePosition(&positions[i], orders, fees)
		if err != nil {
			return nil, err
		}
		res.TotalExpectedProfit += pa.ExpectedProfit
		res.TotalExpectedLoss += pa.ExpectedLoss
		res.Positions = append(res.Positions, *pa)
	}
	return res, nil
}

// DefaultFeeSettings returns the canonical fee defaults.
func DefaultFeeSettings() domain.FeeSettings {
	return domain.FeeSettings{
		TakerFeePercent: DefaultTakerFeePercent,
		MakerFeePercent: DefaultMakerFeePercent,
	}
}

// analyzePosition computes the projection for a single position.
func analyzePosition(pos *domain.Position, orders []domain.Order, fees domain.FeeSettings) (*PositionAnalysis, error) {
	if pos.EntryPrice <= 0 {
		return nil, fmt.Errorf("%w: %s entry price %v must be positive", ErrInvalidPosition, pos.Coin, pos.EntryPrice)
	}
	if pos.SignedSize == 0 {
		return nil, fmt.Errorf("%w: %s has zero size", ErrInvalidPosition, pos.Coin)
	}

	isLong := pos.IsLong()
	size := pos.Size()
	value := pos.Value()
	entryFee := value * fees.TakerRate()

	pa := &PositionAnalysis{
		Coin:       pos.Coin,
		IsLong:     isLong,
		Size:       size,
		EntryPrice: pos.EntryPrice,
		Value:      value,
		EntryFee:   entryFee,
		TPOrders:   make([]TPLeg, 0),
	}

	tpOrders, slOrder := classifyOrders(pos.Coin, orders)

	for _, o := range tpOrders {
		leg := computeTPLeg(pos, &o, entryFee, fees)
		pa.ExpectedProfit += leg.NetProfit
		pa.TPOrders = append(pa.TPOrders, leg)
	}

	if slOrder != nil {
		leg := computeSLLeg(pos, slOrder, entryFee, fees)
		// A stop priced beyond breakeven produces a negative TotalLoss;
		// it is reported on the leg but never folded into either
		// aggregate (see DESIGN.md).
		if leg.TotalLoss > 0 {
			pa.ExpectedLoss += leg.TotalLoss
		}
		pa.SLOrder = &leg
	}

	summarize(pa)
	locate(pa)

	return pa, nil
}

// classifyOrders partitions the orders for a coin into take-profit legs
// and at most one stop-loss. Only the first stop order in input order is
// used; additional stops for the same coin are ignored. Orders of other
// types, or for other coins, are skipped.
func classifyOrders(coin string, orders []domain.Order) ([]domain.Order, *domain.Order) {
	var tps []domain.Order
	var sl *domain.Order
	for i := range orders {
		o := orders[i]
		if o.Coin != coin {
			continue
		}
		switch {
		case o.IsTakeProfit():
			tps = append(tps, o)
		case o.IsStopLoss():
			if sl == nil {
				sl = &o
			}
		}
	}
	return tps, sl
}

func computeTPLeg(pos *domain.Position, o *domain.Order, entryFee float64, fees domain.FeeSettings) TPLeg {
	price := o.LimitPrice
	profitPerUnit := price - pos.EntryPrice
	if !pos.IsLong() {
		profitPerUnit = pos.EntryPrice - price
	}

	grossProfit := profitPerUnit * o.Size
	exitFee := o.Size * price * fees.MakerRate()
	// Entry fee is split across partial exits by size fraction. Legs are
	// not required to sum to the position size; over-allocation simply
	// over-charges.
	entryFeeShare := entryFee * (o.Size / pos.Size())

	priceMove := math.Abs(price - pos.EntryPrice)
	return TPLeg{
		Price:         price,
		Size:          o.Size,
		GrossProfit:   grossProfit,
		ExitFee:       exitFee,
		EntryFeeShare: entryFeeShare,
		NetProfit:     grossProfit - entryFeeShare - exitFee,
		PriceMove:     priceMove,
		PercentMove:   priceMove / pos.EntryPrice * 100,
		PnLPercent:    profitPerUnit / pos.EntryPrice * 100,
	}
}

func computeSLLeg(pos *domain.Position, o *domain.Order, entryFee float64, fees domain.FeeSettings) SLLeg {
	price := o.ExitPrice()
	size := pos.Size() // the stop is assumed to close the whole position

	lossPerUnit := pos.EntryPrice - price
	if !pos.IsLong() {
		lossPerUnit = price - pos.EntryPrice
	}

	grossLoss := lossPerUnit * size
	exitFee := size * price * fees.TakerRate()

	var totalLoss float64
	inProfit := grossLoss < 0
	if inProfit {
		// The notional move is favorable but fees still apply.
		totalLoss = grossLoss - entryFee - exitFee
	} else {
		totalLoss = grossLoss + entryFee + exitFee
	}

	priceMove := math.Abs(price - pos.EntryPrice)
	return SLLeg{
		Price:       price,
		Size:        size,
		GrossLoss:   grossLoss,
		ExitFee:     exitFee,
		TotalLoss:   totalLoss,
		IsInProfit:  inProfit,
		PriceMove:   priceMove,
		PercentMove: priceMove / pos.EntryPrice * 100,
	}
}

// summarize fills the per-position aggregates from the computed legs.
func summarize(pa *PositionAnalysis) {
	s := &pa.Summary

	var weightedPrice float64
	for _, tp := range pa.TPOrders {
		s.TotalTPSize += tp.Size
		s.TotalTPProfit += tp.GrossProfit
		s.TotalTPExitFees += tp.ExitFee
		weightedPrice += tp.Price * tp.Size
	}
	if s.TotalTPSize > 0 {
		s.AvgTPPrice = weightedPrice / s.TotalTPSize
		s.AvgTPPriceMove = math.Abs(s.AvgTPPrice - pa.EntryPrice)
		s.AvgTPPercentMove = s.AvgTPPriceMove / pa.EntryPrice * 100
	}

	if pa.SLOrder != nil {
		s.MaxFees = pa.EntryFee + pa.SLOrder.ExitFee
	} else {
		s.MaxFees = pa.EntryFee + s.TotalTPExitFees
	}

	s.BreakevenPercent = pa.EntryFee / pa.Value * 100

	if pa.ExpectedLoss > 0 {
		s.RiskReward = pa.ExpectedProfit / pa.ExpectedLoss
	}
}

// locate derives the chart coordinate system: the price set is the entry
// plus every leg price, padded 0.5% on each side.
func locate(pa *PositionAnalysis) {
	minPrice, maxPrice := pa.EntryPrice, pa.EntryPrice
	for _, tp := range pa.TPOrders {
		minPrice = math.Min(minPrice, tp.Price)
		maxPrice = math.Max(maxPrice, tp.Price)
	}
	if pa.SLOrder != nil {
		minPrice = math.Min(minPrice, pa.SLOrder.Price)
		maxPrice = math.Max(maxPrice, pa.SLOrder.Price)
	}

	v := &pa.Visualization
	v.MinPrice = minPrice * 0.995
	v.MaxPrice = maxPrice * 1.005
	v.PriceRange = v.MaxPrice - v.MinPrice

	toPercent := func(p float64) float64 {
		if v.PriceRange == 0 {
			return 50
		}
		return (p - v.MinPrice) / v.PriceRange * 100
	}

	v.EntryPercent = toPercent(pa.EntryPrice)
	for i := range pa.TPOrders {
		pa.TPOrders[i].ChartPercent = toPercent(pa.TPOrders[i].Price)
	}
	if pa.SLOrder != nil {
		pa.SLOrder.ChartPercent = toPercent(pa.SLOrder.Price)
	}
}
