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

package ratios_test

import (
	"math"
	"time"

	"github.com/guregu/null/v6"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/market-atlas/ma-api/fundamentals"
	"github.com/market-atlas/ma-api/ratios"
)

// fullRecord builds a record with every statement line item populated so
// individual formulas can be checked against hand-computed values
func fullRecord() *fundamentals.Record {
	return &fundamentals.Record{
		Ticker:     "ACME",
		ReportDate: time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),

		Revenue:         null.FloatFrom(1000),
		GrossProfit:     null.FloatFrom(600),
		OperatingIncome: null.FloatFrom(300),
		NetIncome:       null.FloatFrom(100),
		EBITDA:          null.FloatFrom(250),
		InterestExpense: null.FloatFrom(60),
		CostOfRevenue:   null.FloatFrom(400),

		TotalAssets:        null.FloatFrom(2000),
		TotalDebt:          null.FloatFrom(100),
		TotalEquity:        null.FloatFrom(400),
		CashAndEquivalents: null.FloatFrom(50),
		CurrentAssets:      null.FloatFrom(800),
		CurrentLiabilities: null.FloatFrom(400),
		Inventory:          null.FloatFrom(200),
		AccountsReceivable: null.FloatFrom(100),
		AccountsPayable:    null.FloatFrom(50),
		RetainedEarnings:   null.FloatFrom(500),
		TotalLiabilities:   null.FloatFrom(1600),
		SharesOutstanding:  null.FloatFrom(10),

		OperatingCashFlow: null.FloatFrom(120),
		FreeCashFlow:      null.FloatFrom(80),
		Capex:             null.FloatFrom(40),

		EarningsGrowthYoY: null.FloatFrom(20),
	}
}

var _ = Describe("Engine", func() {
	var eng *ratios.Engine

	BeforeEach(func() {
		eng = ratios.NewEngine()
	})

	DescribeTable("rejecting invalid prices",
		func(price float64) {
			_, err := eng.Compute(fullRecord(), price, nil)
			Expect(err).To(MatchError(ratios.ErrInvalidPrice))
		},
		Entry("When the price is zero", 0.0),
		Entry("When the price is negative", -10.0),
		Entry("When the price is NaN", math.NaN()),
		Entry("When the price is +Inf", math.Inf(1)),
		Entry("When the price is -Inf", math.Inf(-1)),
	)

	Describe("with a fully populated record", func() {
		var set ratios.RatioSet

		BeforeEach(func() {
			var err error
			set, err = eng.Compute(fullRecord(), 50, nil)
			Expect(err).To(BeNil())
		})

		It("covers the complete ratio vocabulary", func() {
			for _, name := range ratios.Names() {
				_, ok := set[name]
				Expect(ok).To(BeTrue(), "missing ratio %s", name)
			}
			Expect(set).To(HaveLen(len(ratios.Names())))
		})

		DescribeTable("derives each ratio",
			func(name string, expected float64) {
				Expect(set[name].Valid).To(BeTrue(), "expected %s to be valid", name)
				Expect(set[name].Float64).Should(BeNumerically("~", expected, 1e-4))
			},
			Entry("market cap", ratios.MarketCap, 500.0),
			Entry("enterprise value", ratios.EnterpriseValue, 550.0),
			Entry("P/E", ratios.PERatio, 5.0),
			Entry("P/B", ratios.PBRatio, 1.25),
			Entry("P/S", ratios.PSRatio, 0.5),
			Entry("EV/EBITDA", ratios.EVToEBITDA, 2.2),
			Entry("return on equity", ratios.ROE, 25.0),
			Entry("return on assets", ratios.ROA, 5.0),
			Entry("return on invested capital", ratios.ROIC, 15.7895),
			Entry("gross margin", ratios.GrossMargin, 60.0),
			Entry("operating margin", ratios.OperatingMargin, 30.0),
			Entry("net margin", ratios.NetMargin, 10.0),
			Entry("debt to equity", ratios.DebtToEquity, 0.25),
			Entry("current ratio", ratios.CurrentRatio, 2.0),
			Entry("quick ratio", ratios.QuickRatio, 1.5),
			Entry("interest coverage", ratios.InterestCoverage, 5.0),
			Entry("altman z-score", ratios.AltmanZScore, 1.735),
			Entry("asset turnover", ratios.AssetTurnover, 0.5),
			Entry("inventory turnover", ratios.InventoryTurnover, 2.0),
			Entry("receivables turnover", ratios.ReceivablesTurnover, 10.0),
			Entry("fcf to net income", ratios.FCFToNetIncome, 0.8),
			Entry("cash conversion cycle", ratios.CashConversionCycle, 173.375),
			Entry("graham number", ratios.GrahamNumber, 94.8683),
			Entry("earnings growth from the record", ratios.EarningsGrowthYoY, 20.0),
			Entry("PEG from P/E and earnings growth", ratios.PEGRatio, 0.25),
		)

		It("omits growth ratios with no history", func() {
			Expect(set[ratios.RevenueGrowthYoY].Valid).To(BeFalse())
			Expect(set[ratios.FCFGrowthYoY].Valid).To(BeFalse())
		})
	})

	Describe("with history", func() {
		It("derives the year-over-year growth ratios", func() {
			prev := fullRecord()
			prev.ReportDate = time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)
			prev.Revenue = null.FloatFrom(90)
			prev.NetIncome = null.FloatFrom(80)
			prev.FreeCashFlow = null.FloatFrom(50)

			cur := fullRecord()
			cur.Revenue = null.FloatFrom(100)
			cur.NetIncome = null.FloatFrom(100)
			cur.FreeCashFlow = null.FloatFrom(60)

			// deliberately newest-first; the engine must sort
			hist := fundamentals.History{cur, prev}

			set, err := eng.Compute(cur, 50, hist)
			Expect(err).To(BeNil())

			Expect(set[ratios.RevenueGrowthYoY].Float64).Should(BeNumerically("~", 11.1111, 1e-4))
			Expect(set[ratios.EarningsGrowthYoY].Float64).Should(BeNumerically("~", 25.0, 1e-4))
			Expect(set[ratios.FCFGrowthYoY].Float64).Should(BeNumerically("~", 20.0, 1e-4))
		})

		It("omits growth against a non-positive base", func() {
			prev := fullRecord()
			prev.ReportDate = time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)
			prev.Revenue = null.FloatFrom(0)
			prev.NetIncome = null.FloatFrom(-10)

			cur := fullRecord()
			hist := fundamentals.History{prev, cur}

			set, err := eng.Compute(cur, 50, hist)
			Expect(err).To(BeNil())

			Expect(set[ratios.RevenueGrowthYoY].Valid).To(BeFalse())
			// the record's own growth figure backfills earnings growth
			Expect(set[ratios.EarningsGrowthYoY].Float64).Should(BeNumerically("~", 20.0, 1e-4))
		})
	})

	Describe("degenerate statement data", func() {
		It("returns the full vocabulary as null for a nil record", func() {
			set, err := eng.Compute(nil, 50, nil)
			Expect(err).To(BeNil())
			Expect(set).To(HaveLen(len(ratios.Names())))
			for _, name := range ratios.Names() {
				Expect(set[name].Valid).To(BeFalse(), "expected %s to be null", name)
			}
		})

		It("returns the full vocabulary as null for an empty record", func() {
			set, err := eng.Compute(&fundamentals.Record{Ticker: "EMPTY"}, 50, nil)
			Expect(err).To(BeNil())
			for _, name := range ratios.Names() {
				Expect(set[name].Valid).To(BeFalse(), "expected %s to be null", name)
			}
		})

		It("omits the P/E for negative earnings", func() {
			rec := fullRecord()
			rec.NetIncome = null.FloatFrom(-50)
			rec.EPSDiluted = null.NewFloat(0, false)

			set, err := eng.Compute(rec, 50, nil)
			Expect(err).To(BeNil())
			Expect(set[ratios.PERatio].Valid).To(BeFalse())
			Expect(set[ratios.PEGRatio].Valid).To(BeFalse())
		})

		It("keeps negative returns while omitting ratios with bad denominators", func() {
			rec := fullRecord()
			rec.NetIncome = null.FloatFrom(-100)
			rec.TotalEquity = null.FloatFrom(400)

			set, err := eng.Compute(rec, 50, nil)
			Expect(err).To(BeNil())
			Expect(set[ratios.ROE].Float64).Should(BeNumerically("~", -25.0, 1e-4))
		})

		It("omits debt to equity when equity is zero", func() {
			rec := fullRecord()
			rec.TotalEquity = null.FloatFrom(0)

			set, err := eng.Compute(rec, 50, nil)
			Expect(err).To(BeNil())
			Expect(set[ratios.DebtToEquity].Valid).To(BeFalse())
		})

		It("omits debt to equity when equity is negative", func() {
			rec := fullRecord()
			rec.TotalEquity = null.FloatFrom(-200)

			set, err := eng.Compute(rec, 50, nil)
			Expect(err).To(BeNil())
			Expect(set[ratios.DebtToEquity].Valid).To(BeFalse())
		})

		It("treats NaN statement values as absent", func() {
			rec := fullRecord()
			rec.Revenue = null.FloatFrom(math.NaN())

			set, err := eng.Compute(rec, 50, nil)
			Expect(err).To(BeNil())
			Expect(set[ratios.PSRatio].Valid).To(BeFalse())
			Expect(set[ratios.GrossMargin].Valid).To(BeFalse())
			Expect(set[ratios.NetMargin].Valid).To(BeFalse())
		})

		It("treats a service business with no inventory as a zero-inventory quick ratio", func() {
			rec := fullRecord()
			rec.Inventory = null.NewFloat(0, false)

			set, err := eng.Compute(rec, 50, nil)
			Expect(err).To(BeNil())
			Expect(set[ratios.QuickRatio].Float64).Should(BeNumerically("~", 2.0, 1e-4))
		})

		It("derives the graham number only when both factors are positive", func() {
			rec := fullRecord()
			rec.TotalEquity = null.FloatFrom(-400)
			rec.BookValuePerShare = null.NewFloat(0, false)

			set, err := eng.Compute(rec, 50, nil)
			Expect(err).To(BeNil())
			Expect(set[ratios.GrahamNumber].Valid).To(BeFalse())
		})

		It("falls back to derived EPS when diluted EPS is absent", func() {
			rec := fullRecord()
			rec.EPSDiluted = null.NewFloat(0, false)

			set, err := eng.Compute(rec, 50, nil)
			Expect(err).To(BeNil())
			// net income 100 over 10 shares is an EPS of 10
			Expect(set[ratios.PERatio].Float64).Should(BeNumerically("~", 5.0, 1e-4))
		})

		It("never emits NaN or Inf", func() {
			rec := fullRecord()
			rec.EBITDA = null.FloatFrom(math.Inf(1))
			rec.Revenue = null.FloatFrom(math.NaN())

			set, err := eng.Compute(rec, 50, nil)
			Expect(err).To(BeNil())
			for _, name := range ratios.Names() {
				v := set[name]
				if v.Valid {
					Expect(math.IsNaN(v.Float64)).To(BeFalse(), "%s is NaN", name)
					Expect(math.IsInf(v.Float64, 0)).To(BeFalse(), "%s is Inf", name)
				}
			}
		})
	})
})
