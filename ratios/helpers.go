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
	"math"

	"github.com/guregu/null/v6"
	"github.com/market-atlas/ma-api/fundamentals"
)

// Altman Z-Score coefficients (Altman 1968, public manufacturing firms)
const (
	altmanWorkingCapital   = 1.2
	altmanRetainedEarnings = 1.4
	altmanEBIT             = 3.3
	altmanEquity           = 0.6
	altmanRevenue          = 1.0
)

const grahamMultiplier = 22.5

var nullFloat = null.NewFloat(0, false)

// usable reports whether a nullable field carries a finite value. NaN and Inf
// in source data are treated the same as absent -- corrupt inputs downgrade
// the ratios that depend on them to null instead of poisoning the output.
func usable(v null.Float) bool {
	return v.Valid && !math.IsNaN(v.Float64) && !math.IsInf(v.Float64, 0)
}

// quotient divides num by den, requiring only a non-zero denominator.
// Used where a negative denominator is still economically meaningful.
func quotient(num, den null.Float) null.Float {
	if !usable(num) || !usable(den) || den.Float64 == 0 {
		return nullFloat
	}
	return null.FloatFrom(num.Float64 / den.Float64)
}

// posQuotient divides num by den, requiring a strictly positive denominator.
// Used where a zero or negative denominator makes the ratio nonsense (equity,
// assets, revenue and similar balances).
func posQuotient(num, den null.Float) null.Float {
	if !usable(num) || !usable(den) || den.Float64 <= 0 {
		return nullFloat
	}
	return null.FloatFrom(num.Float64 / den.Float64)
}

// percent is posQuotient scaled to a percentage
func percent(num, den null.Float) null.Float {
	q := posQuotient(num, den)
	if !q.Valid {
		return nullFloat
	}
	return null.FloatFrom(q.Float64 * 100)
}

// avgWithPrior averages the current and prior-period balance when both are
// present; falls back to the current balance otherwise. Averaging dampens
// distortion from large single-period swings such as buybacks.
func avgWithPrior(cur, prior null.Float) null.Float {
	if !usable(cur) {
		return nullFloat
	}
	if !usable(prior) {
		return cur
	}
	return null.FloatFrom((cur.Float64 + prior.Float64) / 2)
}

// orZero returns the value or 0 when absent; Altman Z terms degrade to zero
// rather than wiping out the whole score
func orZero(v null.Float) float64 {
	if !usable(v) {
		return 0
	}
	return v.Float64
}

// dilutedEPS returns diluted EPS, deriving it from net income and shares
// outstanding when the reported figure is absent
func dilutedEPS(rec *fundamentals.Record) null.Float {
	if usable(rec.EPSDiluted) {
		return rec.EPSDiluted
	}
	return posQuotient(rec.NetIncome, rec.SharesOutstanding)
}

// bookValuePerShare returns book value per share, deriving it from total
// equity and shares outstanding when the reported figure is absent
func bookValuePerShare(rec *fundamentals.Record) null.Float {
	if usable(rec.BookValuePerShare) {
		return rec.BookValuePerShare
	}
	return posQuotient(rec.TotalEquity, rec.SharesOutstanding)
}

// costOfGoodsSold returns COGS, deriving it from revenue minus gross profit
// when the reported figure is absent
func costOfGoodsSold(rec *fundamentals.Record) null.Float {
	if usable(rec.CostOfRevenue) {
		return rec.CostOfRevenue
	}
	if usable(rec.Revenue) && usable(rec.GrossProfit) {
		return null.FloatFrom(rec.Revenue.Float64 - rec.GrossProfit.Float64)
	}
	return nullFloat
}

// marketCap is price times shares outstanding
func marketCap(rec *fundamentals.Record, price float64) null.Float {
	if !usable(rec.SharesOutstanding) || rec.SharesOutstanding.Float64 <= 0 {
		return nullFloat
	}
	return null.FloatFrom(price * rec.SharesOutstanding.Float64)
}

// enterpriseValue is market cap plus total debt less cash. Debt and cash
// default to zero when absent; without a market cap there is no EV.
func enterpriseValue(rec *fundamentals.Record, price float64) null.Float {
	mc := marketCap(rec, price)
	if !mc.Valid {
		return nullFloat
	}
	return null.FloatFrom(mc.Float64 + orZero(rec.TotalDebt) - orZero(rec.CashAndEquivalents))
}

// altmanZScore is the classic five-term bankruptcy-risk score. Missing terms
// default their numerator to zero so the score degrades gracefully; only the
// two denominators (total assets and total liabilities) are required.
func altmanZScore(rec *fundamentals.Record) null.Float {
	if !usable(rec.TotalAssets) || rec.TotalAssets.Float64 <= 0 {
		return nullFloat
	}
	if !usable(rec.TotalLiabilities) || rec.TotalLiabilities.Float64 <= 0 {
		return nullFloat
	}

	assets := rec.TotalAssets.Float64
	liabilities := rec.TotalLiabilities.Float64

	workingCapital := 0.0
	if usable(rec.CurrentAssets) && usable(rec.CurrentLiabilities) {
		workingCapital = rec.CurrentAssets.Float64 - rec.CurrentLiabilities.Float64
	}

	z := altmanWorkingCapital*(workingCapital/assets) +
		altmanRetainedEarnings*(orZero(rec.RetainedEarnings)/assets) +
		altmanEBIT*(orZero(rec.OperatingIncome)/assets) +
		altmanEquity*(orZero(rec.TotalEquity)/liabilities) +
		altmanRevenue*(orZero(rec.Revenue)/assets)

	return null.FloatFrom(z)
}

// yoyGrowth is the percent change from prev to cur, defined only for a
// strictly positive base
func yoyGrowth(cur, prev null.Float) null.Float {
	if !usable(cur) || !usable(prev) || prev.Float64 <= 0 {
		return nullFloat
	}
	return null.FloatFrom((cur.Float64 - prev.Float64) / prev.Float64 * 100)
}
