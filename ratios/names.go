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

import "github.com/guregu/null/v6"

// Ratio name vocabulary. Every RatioSet produced by the engine carries
// exactly these keys; consumers (storage, calibration, the API) key off
// these strings.
const (
	// Valuation
	PERatio    = "pe_ratio"
	PBRatio    = "pb_ratio"
	PSRatio    = "ps_ratio"
	EVToEBITDA = "ev_to_ebitda"
	PEGRatio   = "peg_ratio"

	// Profitability
	ROE             = "roe"
	ROA             = "roa"
	ROIC            = "roic"
	GrossMargin     = "gross_margin"
	OperatingMargin = "operating_margin"
	NetMargin       = "net_margin"

	// Financial health
	DebtToEquity     = "debt_to_equity"
	CurrentRatio     = "current_ratio"
	QuickRatio       = "quick_ratio"
	InterestCoverage = "interest_coverage"
	AltmanZScore     = "altman_z_score"

	// Efficiency
	AssetTurnover       = "asset_turnover"
	InventoryTurnover   = "inventory_turnover"
	ReceivablesTurnover = "receivables_turnover"

	// Growth
	RevenueGrowthYoY  = "revenue_growth_yoy"
	EarningsGrowthYoY = "earnings_growth_yoy"
	FCFGrowthYoY      = "fcf_growth_yoy"

	// Quality
	FCFToNetIncome      = "fcf_to_net_income"
	CashConversionCycle = "cash_conversion_cycle"

	// Market
	MarketCap       = "market_cap"
	EnterpriseValue = "enterprise_value"

	// Intrinsic value
	GrahamNumber = "graham_number"
)

// Names returns the full ratio vocabulary in presentation order
func Names() []string {
	return []string{
		PERatio, PBRatio, PSRatio, EVToEBITDA, PEGRatio,
		ROE, ROA, ROIC, GrossMargin, OperatingMargin, NetMargin,
		DebtToEquity, CurrentRatio, QuickRatio, InterestCoverage, AltmanZScore,
		AssetTurnover, InventoryTurnover, ReceivablesTurnover,
		RevenueGrowthYoY, EarningsGrowthYoY, FCFGrowthYoY,
		FCFToNetIncome, CashConversionCycle,
		MarketCap, EnterpriseValue,
		GrahamNumber,
	}
}

// RatioSet maps ratio names to nullable values. A null entry means the ratio
// could not be derived from the available inputs; a valid entry is always a
// finite float once the set has passed through Clean.
type RatioSet map[string]null.Float

// NewRatioSet returns a set covering the full vocabulary with every value null
func NewRatioSet() RatioSet {
	set := make(RatioSet, len(Names()))
	for _, name := range Names() {
		set[name] = null.NewFloat(0, false)
	}
	return set
}

// Clone returns an independent copy of the set
func (set RatioSet) Clone() RatioSet {
	out := make(RatioSet, len(set))
	for k, v := range set {
		out[k] = v
	}
	return out
}
