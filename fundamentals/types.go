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

package fundamentals

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// Record is a single row of statement data for a ticker as of a report date.
// Every numeric field is nullable; companies routinely report only a subset
// of these line items and the ratio engine must treat absence as a normal
// condition rather than an error.
type Record struct {
	Ticker     string    `json:"ticker"`
	ReportDate time.Time `json:"reportDate"`

	// Income statement
	Revenue         null.Float `json:"revenue"`
	GrossProfit     null.Float `json:"grossProfit"`
	OperatingIncome null.Float `json:"operatingIncome"`
	NetIncome       null.Float `json:"netIncome"`
	EBITDA          null.Float `json:"ebitda"`
	EPSDiluted      null.Float `json:"epsDiluted"`
	InterestExpense null.Float `json:"interestExpense"`
	CostOfRevenue   null.Float `json:"costOfRevenue"`

	// Balance sheet
	TotalAssets        null.Float `json:"totalAssets"`
	TotalDebt          null.Float `json:"totalDebt"`
	TotalEquity        null.Float `json:"totalEquity"`
	CashAndEquivalents null.Float `json:"cashAndEquivalents"`
	CurrentAssets      null.Float `json:"currentAssets"`
	CurrentLiabilities null.Float `json:"currentLiabilities"`
	Inventory          null.Float `json:"inventory"`
	AccountsReceivable null.Float `json:"accountsReceivable"`
	AccountsPayable    null.Float `json:"accountsPayable"`
	RetainedEarnings   null.Float `json:"retainedEarnings"`
	TotalLiabilities   null.Float `json:"totalLiabilities"`
	SharesOutstanding  null.Float `json:"sharesOutstanding"`
	SharesFloat        null.Float `json:"sharesFloat"`
	BookValuePerShare  null.Float `json:"bookValuePerShare"`

	// Cash flow statement
	OperatingCashFlow null.Float `json:"operatingCashFlow"`
	FreeCashFlow      null.Float `json:"freeCashFlow"`
	Capex             null.Float `json:"capex"`

	// Growth inputs
	EarningsGrowthYoY null.Float `json:"earningsGrowthYoY"`

	// Prior-period balances used for period averaging in ROE / ROA /
	// asset-turnover style ratios; populated from the preceding report when
	// one is available
	PreviousTotalEquity        null.Float `json:"previousTotalEquity"`
	PreviousTotalAssets        null.Float `json:"previousTotalAssets"`
	PreviousInventory          null.Float `json:"previousInventory"`
	PreviousAccountsReceivable null.Float `json:"previousAccountsReceivable"`
}

// History is an ordered series (oldest first) of up to 4 records for a single
// ticker. Growth ratios need at least two entries; fewer entries means growth
// ratios are omitted, not errored.
type History []*Record

// Sort orders the history oldest to newest by report date
func (h History) Sort() {
	sort.Slice(h, func(i, j int) bool {
		return h[i].ReportDate.Before(h[j].ReportDate)
	})
}

// Latest returns the most recent record in the history, or nil when empty
func (h History) Latest() *Record {
	if len(h) == 0 {
		return nil
	}
	return h[len(h)-1]
}

// Previous returns the record immediately preceding the latest, or nil when
// the history holds fewer than two entries
func (h History) Previous() *Record {
	if len(h) < 2 {
		return nil
	}
	return h[len(h)-2]
}

// Snapshot returns the latest record with its Previous* balances filled in
// from the preceding entry when one exists
func (h History) Snapshot() *Record {
	rec := h.Latest()
	if rec == nil {
		return nil
	}
	if prior := h.Previous(); prior != nil {
		rec.PreviousTotalEquity = prior.TotalEquity
		rec.PreviousTotalAssets = prior.TotalAssets
		rec.PreviousInventory = prior.Inventory
		rec.PreviousAccountsReceivable = prior.AccountsReceivable
	}
	return rec
}
