package book

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PriceVolume is a float-valued price level in the output projection.
type PriceVolume struct {
	Price  float64
	Volume float64
}

// OrderBook is the replay-time projection delivered to consumers. Exactness
// is intentionally discarded at this boundary: downstream analytics work in
// float.
//
// Bids are ordered best-first. Asks are ordered best-LAST: index 0 is the
// highest ask and the final element is the lowest. Consumers rely on this
// legacy convention.
type OrderBook struct {
	Symbol    string
	Asks      []PriceVolume
	Bids      []PriceVolume
	Timestamp int64 // unix milliseconds
}

// Project converts a reconstructed state into the float OrderBook view,
// stamping it with the given logical timestamp.
func Project(symbol string, state *State, timestamp int64) *OrderBook {
	ob := &OrderBook{
		Symbol:    symbol,
		Asks:      make([]PriceVolume, 0, state.Asks.Len()),
		Bids:      make([]PriceVolume, 0, state.Bids.Len()),
		Timestamp: timestamp,
	}
	asks := state.Asks.Levels()
	for i := len(asks) - 1; i >= 0; i-- {
		ob.Asks = append(ob.Asks, levelToFloat(asks[i]))
	}
	for _, lvl := range state.Bids.Levels() {
		ob.Bids = append(ob.Bids, levelToFloat(lvl))
	}
	return ob
}

func levelToFloat(lvl Level) PriceVolume {
	volume, _ := strconv.ParseFloat(lvl.Size, 64)
	return PriceVolume{Price: lvl.Price.InexactFloat64(), Volume: volume}
}

// BestBid returns the highest bid price, or false on an empty side.
func (ob *OrderBook) BestBid() (float64, bool) {
	if len(ob.Bids) == 0 {
		return 0, false
	}
	return ob.Bids[0].Price, true
}

// BestAsk returns the lowest ask price, or false on an empty side.
// Asks are stored best-last, so this reads the final element.
func (ob *OrderBook) BestAsk() (float64, bool) {
	if len(ob.Asks) == 0 {
		return 0, false
	}
	return ob.Asks[len(ob.Asks)-1].Price, true
}

// BidVolume returns the volume at the best bid.
func (ob *OrderBook) BidVolume() (float64, bool) {
	if len(ob.Bids) == 0 {
		return 0, false
	}
	return ob.Bids[0].Volume, true
}

// AskVolume returns the volume at the best ask.
func (ob *OrderBook) AskVolume() (float64, bool) {
	if len(ob.Asks) == 0 {
		return 0, false
	}
	return ob.Asks[len(ob.Asks)-1].Volume, true
}

// Midprice returns (best ask + best bid) / 2, or false if either side is
// empty.
func (ob *OrderBook) Midprice() (float64, bool) {
	ask, okAsk := ob.BestAsk()
	bid, okBid := ob.BestBid()
	if !okAsk || !okBid {
		return 0, false
	}
	return (ask + bid) / 2, true
}

// Spread returns best ask minus best bid.
func (ob *OrderBook) Spread() (float64, bool) {
	ask, okAsk := ob.BestAsk()
	bid, okBid := ob.BestBid()
	if !okAsk || !okBid {
		return 0, false
	}
	return ask - bid, true
}

// SpreadBP returns the bid-ask spread ratio in basis points.
func (ob *OrderBook) SpreadBP() (float64, bool) {
	spread, ok := ob.Spread()
	if !ok {
		return 0, false
	}
	mid, ok := ob.Midprice()
	if !ok || mid == 0 {
		return 0, false
	}
	return spread / mid * 10_000.0, true
}

// AvgBuyPrice returns the qty-weighted average price for buying qty against
// the asks.
func (ob *OrderBook) AvgBuyPrice(qty float64) float64 {
	return avgFillPrice(qty, reversed(ob.Asks))
}

// AvgSellPrice returns the qty-weighted average price for selling qty into
// the bids.
func (ob *OrderBook) AvgSellPrice(qty float64) float64 {
	return avgFillPrice(qty, ob.Bids)
}

// avgFillPrice walks levels best-first and accumulates the qty-weighted
// average price until qty is filled. Returns the average over whatever
// liquidity exists if the book cannot fill qty entirely.
func avgFillPrice(qty float64, levels []PriceVolume) float64 {
	if len(levels) == 0 || levels[0].Price == 0 || qty <= 0.0 {
		return 0.0
	}

	var avgPrice, filledQty float64
	filled := false
	for _, lvl := range levels {
		available := lvl.Volume
		if available == 0 {
			continue
		}
		if filledQty+available >= qty {
			available = qty - filledQty
			filled = true
		}
		avgPrice = (lvl.Price*available + avgPrice*filledQty) / (filledQty + available)
		filledQty += available
		if filled {
			return avgPrice
		}
	}
	return avgPrice
}

// WeightedBidAsk returns the weighted average price for filling
// valuePerSide (in quote terms) on each side of the book, bid first.
func (ob *OrderBook) WeightedBidAsk(valuePerSide float64) (bid, ask float64) {
	prices := [2]float64{}
	for i, levels := range [][]PriceVolume{ob.Bids, reversed(ob.Asks)} {
		remainingValue := valuePerSide
		filledQty := 0.0
		for _, lvl := range levels {
			if remainingValue <= 0 {
				break
			}
			filledQty += min(remainingValue/lvl.Price, lvl.Volume)
			remainingValue -= lvl.Price * lvl.Volume
		}
		filledValue := min(valuePerSide, valuePerSide-remainingValue)
		if filledQty > 0 {
			prices[i] = filledValue / filledQty
		}
	}
	return prices[0], prices[1]
}

// SlippageRatio walks one side of the book past valueToSkip of quoted value
// and returns the relative distance of the last touched price from the
// midprice, along with that price.
func (ob *OrderBook) SlippageRatio(valueToSkip float64, asks bool) (ratio, lastPrice float64) {
	levels := ob.Bids
	if asks {
		levels = reversed(ob.Asks)
	}
	mid, ok := ob.Midprice()
	if !ok || len(levels) == 0 {
		return 0, 0
	}
	lastPrice = levels[0].Price
	for _, lvl := range levels {
		if valueToSkip <= 0 {
			break
		}
		valueToSkip -= lvl.Price * lvl.Volume
		lastPrice = lvl.Price
	}
	return abs(mid-lastPrice) / mid, lastPrice
}

// MaxTradeQty computes the largest quantity that can be bought from buyBook's
// asks and sold into sellBook's bids while the blended round trip still
// clears minProfitBPS after fees. Exchange rates convert both legs into a
// common settle currency and must be non-zero.
func MaxTradeQty(buyBook, sellBook *OrderBook, minProfitBPS, buyFeeRate, sellFeeRate, buyFXRate, sellFXRate float64) float64 {
	if buyFXRate == 0 || sellFXRate == 0 {
		return 0
	}
	if len(buyBook.Asks) == 0 || len(sellBook.Bids) == 0 {
		return 0
	}

	var totalQty, totalBuyValue, totalSellValue float64

	// Asks are best-last, so the buy walk starts at the end; the sell walk
	// starts at the top of the bids.
	buyIdx := len(buyBook.Asks) - 1
	sellIdx := 0

	buyPrice := buyBook.Asks[buyIdx].Price * buyFXRate
	buyRemaining := buyBook.Asks[buyIdx].Volume
	sellPrice := sellBook.Bids[sellIdx].Price * sellFXRate
	sellRemaining := sellBook.Bids[sellIdx].Volume

	for {
		tradeQty := min(buyRemaining, sellRemaining)

		newTotalQty := totalQty + tradeQty
		newTotalBuyValue := totalBuyValue + tradeQty*buyPrice*(1+buyFeeRate)
		newTotalSellValue := totalSellValue + tradeQty*sellPrice*(1-sellFeeRate)

		if newTotalQty > 0 {
			avgBuy := newTotalBuyValue / newTotalQty
			avgSell := newTotalSellValue / newTotalQty
			netUnitProfit := avgSell - avgBuy
			profitBPS := 100 * 100 * netUnitProfit / (avgBuy + avgSell)
			if profitBPS < minProfitBPS {
				break
			}
			totalQty = newTotalQty
			totalBuyValue = newTotalBuyValue
			totalSellValue = newTotalSellValue
		}

		buyRemaining -= tradeQty
		sellRemaining -= tradeQty

		if buyRemaining == 0 {
			buyIdx--
			if buyIdx < 0 {
				break
			}
			buyPrice = buyBook.Asks[buyIdx].Price * buyFXRate
			buyRemaining = buyBook.Asks[buyIdx].Volume
		}
		if sellRemaining == 0 {
			sellIdx++
			if sellIdx >= len(sellBook.Bids) {
				break
			}
			sellPrice = sellBook.Bids[sellIdx].Price * sellFXRate
			sellRemaining = sellBook.Bids[sellIdx].Volume
		}
	}
	return totalQty
}

const (
	renderRowLen      = 60
	renderMaxBarWidth = 30
	renderBidChar     = "◼"
	renderAskChar     = "◻"
)

// String renders an ASCII visualization of the book.
func (ob *OrderBook) String() string {
	return ob.Render(0, 0.0)
}

// Render renders an ASCII visualization limited to depth levels per side,
// dropping levels whose volume is below lowQtyFilter times the total.
// depth 0 means all levels.
func (ob *OrderBook) Render(depth int, lowQtyFilter float64) string {
	if _, ok := ob.BestBid(); !ok {
		return fmt.Sprintf("%s: No orderbook", ob.Symbol)
	}
	if _, ok := ob.BestAsk(); !ok {
		return fmt.Sprintf("%s: No orderbook", ob.Symbol)
	}

	if depth == 0 {
		depth = max(len(ob.Asks), len(ob.Bids))
	}

	bidCut := min(depth, len(ob.Bids))
	askCut := min(depth, len(ob.Asks))
	allLevels := append(append([]PriceVolume{}, ob.Bids[:bidCut]...), ob.Asks[len(ob.Asks)-askCut:]...)
	var maxQty, qtySum float64
	for _, lvl := range allLevels {
		maxQty = max(maxQty, lvl.Volume)
		qtySum += lvl.Volume
	}
	scale := 1.0
	if maxQty > 0 {
		scale = renderMaxBarWidth / maxQty
	}

	prices := make([]float64, 0, len(allLevels))
	qtys := make([]float64, 0, len(allLevels))
	for _, lvl := range allLevels {
		prices = append(prices, lvl.Price)
		qtys = append(qtys, lvl.Volume)
	}
	priceDecimals := maxSignificantDecimals(prices)
	qtyDecimals := min(5, maxSignificantDecimals(qtys))

	tsStr := time.UnixMilli(ob.Timestamp).UTC().Format("2006-01-02 15:04:05.000")
	var graph []string
	graph = append(graph, fmt.Sprintf("Orderbook for %s at %s", ob.Symbol, tsStr))
	graph = append(graph, strings.Repeat("=", renderRowLen))
	graph = append(graph, fmt.Sprintf("%s %s %s",
		center("Price", 12), center("Qty", 12), center("Qty Bar", renderMaxBarWidth)))
	graph = append(graph, strings.Repeat("=", renderRowLen))

	var askRows []string
	for _, lvl := range ob.Asks {
		if lowQtyFilter == 0 || lvl.Volume > lowQtyFilter*qtySum {
			bar := strings.Repeat(renderAskChar, int(lvl.Volume*scale))
			askRows = append(askRows, renderRow(lvl, priceDecimals, qtyDecimals, bar))
		}
	}
	if len(askRows) > depth {
		askRows = askRows[len(askRows)-depth:]
	}
	graph = append(graph, askRows...)

	mid, _ := ob.Midprice()
	midStr := center(strconv.FormatFloat(mid, 'f', priceDecimals, 64), 12)
	graph = append(graph, strings.Repeat("=", 5)+midStr+strings.Repeat("=", renderRowLen-12-5))

	bidsShown := 0
	for _, lvl := range ob.Bids {
		if lowQtyFilter == 0 || lvl.Volume > lowQtyFilter*qtySum {
			bar := strings.Repeat(renderBidChar, int(lvl.Volume*scale))
			graph = append(graph, renderRow(lvl, priceDecimals, qtyDecimals, bar))
			bidsShown++
		}
		if bidsShown == depth {
			break
		}
	}

	graph = append(graph, strings.Repeat("=", renderRowLen))
	return strings.Join(graph, "\n")
}

func renderRow(lvl PriceVolume, priceDecimals, qtyDecimals int, bar string) string {
	return fmt.Sprintf("%-12s %12s %-*s",
		strconv.FormatFloat(lvl.Price, 'f', priceDecimals, 64),
		strconv.FormatFloat(lvl.Volume, 'f', qtyDecimals, 64),
		renderMaxBarWidth, bar)
}

// maxSignificantDecimals returns the widest decimal fraction among the
// values when formatted with minimal digits.
func maxSignificantDecimals(values []float64) int {
	maxDecimals := 0
	for _, v := range values {
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if dot := strings.IndexByte(s, '.'); dot >= 0 {
			maxDecimals = max(maxDecimals, len(s)-dot-1)
		}
	}
	return maxDecimals
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-len(s)-left)
}

func reversed(levels []PriceVolume) []PriceVolume {
	out := make([]PriceVolume, len(levels))
	for i, lvl := range levels {
		out[len(levels)-1-i] = lvl
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
