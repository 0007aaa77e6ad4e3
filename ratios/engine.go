// Copyright 2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratios

import (
	"errors"
	"math"

	"github.com/guregu/null/v6"
	"github.com/market-atlas/ma-api/fundamentals"
)

var (
	ErrInvalidPrice = errors.New("price must be a positive finite number")
)

const (
	// DefaultPrecision is the number of decimal places values are rounded to
	DefaultPrecision = 4

	// HighPrecision is used where downstream consumers want more significant
	// digits, e.g. per-share figures on low-priced tickers
	HighPrecision = 6
)

// Engine derives the full ratio vocabulary from a fundamentals record and a
// current share price. It performs no I/O and keeps no state between calls;
// a single Engine is safe to share across goroutines.
//
// The engine never fails on missing or degenerate statement data: a ratio
// whose inputs are absent, whose denominator is zero, or whose formula would
// leave its economic domain (negative earnings P/E, square root of a negative
// Graham radicand) comes back null rather than 0, Inf, or an error.
type Engine struct {
	Precision int
}

func NewEngine() *Engine {
	return &Engine{Precision: DefaultPrecision}
}

// Compute derives every ratio in the vocabulary. The returned set always
// covers the full vocabulary; entries that could not be derived are null.
// Only an invalid price is an error -- it indicates a caller bug, not a data
// condition.
func (e *Engine) Compute(rec *fundamentals.Record, price float64, hist fundamentals.History) (RatioSet, error) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, ErrInvalidPrice
	}

	set := NewRatioSet()
	if rec == nil {
		return set, nil
	}

	e.market(set, rec, price)
	e.valuation(set, rec, price)
	e.profitability(set, rec)
	e.financialHealth(set, rec)
	e.efficiency(set, rec)
	e.growth(set, rec, hist)
	e.quality(set, rec)
	e.intrinsicValue(set, rec)

	// PEG depends on both the P/E and a growth figure, so it runs last
	e.peg(set, rec)

	return e.Clean(set), nil
}

func (e *Engine) market(set RatioSet, rec *fundamentals.Record, price float64) {
	set[MarketCap] = marketCap(rec, price)
	set[EnterpriseValue] = enterpriseValue(rec, price)
}

func (e *Engine) valuation(set RatioSet, rec *fundamentals.Record, price float64) {
	// P/E uses diluted EPS when reported; negative or zero earnings make the
	// multiple economically meaningless
	if eps := dilutedEPS(rec); usable(eps) && eps.Float64 > 0 {
		set[PERatio] = null.FloatFrom(price / eps.Float64)
	}

	if bvps := bookValuePerShare(rec); usable(bvps) && bvps.Float64 > 0 {
		set[PBRatio] = null.FloatFrom(price / bvps.Float64)
	}

	// P/S prefers float shares for consistency with market-quoted metrics
	shares := rec.SharesFloat
	if !usable(shares) || shares.Float64 <= 0 {
		shares = rec.SharesOutstanding
	}
	if rps := posQuotient(rec.Revenue, shares); usable(rps) && rps.Float64 > 0 {
		set[PSRatio] = null.FloatFrom(price / rps.Float64)
	}

	if ev := set[EnterpriseValue]; usable(ev) && usable(rec.EBITDA) && rec.EBITDA.Float64 > 0 {
		set[EVToEBITDA] = null.FloatFrom(ev.Float64 / rec.EBITDA.Float64)
	}
}

func (e *Engine) profitability(set RatioSet, rec *fundamentals.Record) {
	set[ROE] = percent(rec.NetIncome, avgWithPrior(rec.TotalEquity, rec.PreviousTotalEquity))
	set[ROA] = percent(rec.NetIncome, avgWithPrior(rec.TotalAssets, rec.PreviousTotalAssets))

	if usable(rec.TotalAssets) && usable(rec.TotalDebt) {
		invested := null.FloatFrom(rec.TotalAssets.Float64 - rec.TotalDebt.Float64)
		set[ROIC] = percent(rec.OperatingIncome, invested)
	}

	set[GrossMargin] = percent(rec.GrossProfit, rec.Revenue)
	set[OperatingMargin] = percent(rec.OperatingIncome, rec.Revenue)
	set[NetMargin] = percent(rec.NetIncome, rec.Revenue)
}

func (e *Engine) financialHealth(set RatioSet, rec *fundamentals.Record) {
	set[DebtToEquity] = posQuotient(rec.TotalDebt, rec.TotalEquity)
	set[CurrentRatio] = posQuotient(rec.CurrentAssets, rec.CurrentLiabilities)

	// inventory defaults to zero; service businesses simply carry none
	if usable(rec.CurrentAssets) {
		quick := null.FloatFrom(rec.CurrentAssets.Float64 - orZero(rec.Inventory))
		set[QuickRatio] = posQuotient(quick, rec.CurrentLiabilities)
	}

	set[InterestCoverage] = posQuotient(rec.OperatingIncome, rec.InterestExpense)
	set[AltmanZScore] = altmanZScore(rec)
}

func (e *Engine) efficiency(set RatioSet, rec *fundamentals.Record) {
	set[AssetTurnover] = posQuotient(rec.Revenue, avgWithPrior(rec.TotalAssets, rec.PreviousTotalAssets))
	set[InventoryTurnover] = posQuotient(costOfGoodsSold(rec), avgWithPrior(rec.Inventory, rec.PreviousInventory))
	set[ReceivablesTurnover] = posQuotient(rec.Revenue, avgWithPrior(rec.AccountsReceivable, rec.PreviousAccountsReceivable))
}

func (e *Engine) growth(set RatioSet, rec *fundamentals.Record, hist fundamentals.History) {
	if len(hist) >= 2 {
		hist.Sort()
		cur := hist.Latest()
		prev := hist.Previous()

		set[RevenueGrowthYoY] = yoyGrowth(cur.Revenue, prev.Revenue)
		set[EarningsGrowthYoY] = yoyGrowth(cur.NetIncome, prev.NetIncome)
		set[FCFGrowthYoY] = yoyGrowth(cur.FreeCashFlow, prev.FreeCashFlow)
	}

	// a provider-supplied growth figure fills in when no history is loaded
	if !set[EarningsGrowthYoY].Valid && usable(rec.EarningsGrowthYoY) {
		set[EarningsGrowthYoY] = rec.EarningsGrowthYoY
	}
}

func (e *Engine) quality(set RatioSet, rec *fundamentals.Record) {
	set[FCFToNetIncome] = posQuotient(rec.FreeCashFlow, rec.NetIncome)

	cogs := costOfGoodsSold(rec)
	if !usable(cogs) || cogs.Float64 <= 0 {
		return
	}
	if !usable(rec.Revenue) || rec.Revenue.Float64 <= 0 {
		return
	}
	if !usable(rec.Inventory) || !usable(rec.AccountsReceivable) || !usable(rec.AccountsPayable) {
		return
	}

	inventoryDays := rec.Inventory.Float64 / cogs.Float64 * 365
	receivableDays := rec.AccountsReceivable.Float64 / rec.Revenue.Float64 * 365
	payableDays := rec.AccountsPayable.Float64 / cogs.Float64 * 365

	set[CashConversionCycle] = null.FloatFrom(inventoryDays + receivableDays - payableDays)
}

func (e *Engine) intrinsicValue(set RatioSet, rec *fundamentals.Record) {
	eps := dilutedEPS(rec)
	bvps := bookValuePerShare(rec)

	// both factors must be strictly positive; the root of a negative
	// radicand is not a price
	if usable(eps) && eps.Float64 > 0 && usable(bvps) && bvps.Float64 > 0 {
		set[GrahamNumber] = null.FloatFrom(math.Sqrt(grahamMultiplier * eps.Float64 * bvps.Float64))
	}
}

func (e *Engine) peg(set RatioSet, rec *fundamentals.Record) {
	pe := set[PERatio]
	if !usable(pe) {
		return
	}

	growth := rec.EarningsGrowthYoY
	if !usable(growth) {
		growth = set[EarningsGrowthYoY]
	}

	// PEG is undefined or misleading for flat or shrinking earnings
	if usable(growth) && growth.Float64 > 0 {
		set[PEGRatio] = null.FloatFrom(pe.Float64 / growth.Float64)
	}
}
