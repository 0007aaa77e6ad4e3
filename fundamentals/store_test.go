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

package fundamentals_test

import (
	"context"
	"time"

	"github.com/guregu/null/v6"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"

	"github.com/market-atlas/ma-api/database"
	"github.com/market-atlas/ma-api/fundamentals"
	"github.com/market-atlas/ma-api/pgxmockhelper"
)

var fundamentalsColumns = []string{"ticker", "report_date", "revenue", "gross_profit",
	"operating_income", "net_income", "ebitda", "eps_diluted", "interest_expense",
	"cost_of_revenue", "total_assets", "total_debt", "total_equity",
	"cash_and_equivalents", "current_assets", "current_liabilities", "inventory",
	"accounts_receivable", "accounts_payable", "retained_earnings",
	"total_liabilities", "shares_outstanding", "shares_float",
	"book_value_per_share", "operating_cash_flow", "free_cash_flow", "capex",
	"earnings_growth_yoy"}

// fundamentalsRow builds one row with the named balances set and everything
// else null
func fundamentalsRow(ticker string, date time.Time, revenue, netIncome, assets, equity, inventory, receivables float64) []interface{} {
	absent := null.NewFloat(0, false)
	row := make([]interface{}, len(fundamentalsColumns))
	row[0] = ticker
	row[1] = date
	for ii := 2; ii < len(row); ii++ {
		row[ii] = absent
	}
	row[2] = null.FloatFrom(revenue)
	row[5] = null.FloatFrom(netIncome)
	row[10] = null.FloatFrom(assets)
	row[12] = null.FloatFrom(equity)
	row[16] = null.FloatFrom(inventory)
	row[17] = null.FloatFrom(receivables)
	return row
}

var _ = Describe("Store", func() {
	var (
		ctx    context.Context
		dbPool pgxmock.PgxConnIface
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()

		dbPool, err = pgxmock.NewConn()
		Expect(err).To(BeNil())
		database.SetPool(dbPool)
	})

	AfterEach(func() {
		dbPool.Close(context.Background())
	})

	Describe("LoadHistory", func() {
		It("orders records oldest to newest regardless of query order", func() {
			rows := pgxmock.NewRows(fundamentalsColumns).
				AddRow(fundamentalsRow("ACME", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), 1000, 100, 2000, 400, 200, 100)...).
				AddRow(fundamentalsRow("ACME", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), 900, 80, 1800, 350, 180, 90)...)

			dbPool.ExpectBegin()
			dbPool.ExpectQuery("FROM fundamentals").WillReturnRows(rows)
			dbPool.ExpectCommit()

			hist, err := fundamentals.LoadHistory(ctx, "ACME", 4)
			Expect(err).To(BeNil())
			Expect(hist).To(HaveLen(2))
			Expect(hist[0].ReportDate.Year()).To(Equal(2023))
			Expect(hist[1].ReportDate.Year()).To(Equal(2024))
			Expect(hist[1].Revenue.Float64).Should(BeNumerically("~", 1000.0, 1e-9))
		})

		It("loads a multi-year fixture", func() {
			dbPool.ExpectBegin()
			dbPool.ExpectQuery("FROM fundamentals").
				WillReturnRows(pgxmockhelper.FundamentalsRows("testdata/fundamentals.csv"))
			dbPool.ExpectCommit()

			hist, err := fundamentals.LoadHistory(ctx, "ACME", 4)
			Expect(err).To(BeNil())
			Expect(hist).To(HaveLen(3))
			Expect(hist[0].ReportDate.Year()).To(Equal(2022))
			Expect(hist[2].ReportDate.Year()).To(Equal(2024))
			Expect(hist[2].EBITDA.Float64).Should(BeNumerically("~", 250.0, 1e-9))
			// sparse columns come back null
			Expect(hist[1].EBITDA.Valid).To(BeFalse())
			Expect(hist[2].SharesFloat.Valid).To(BeFalse())
		})

		It("returns an empty history when the ticker is unknown", func() {
			dbPool.ExpectBegin()
			dbPool.ExpectQuery("FROM fundamentals").
				WillReturnRows(pgxmock.NewRows(fundamentalsColumns))
			dbPool.ExpectCommit()

			hist, err := fundamentals.LoadHistory(ctx, "MISSING", 4)
			Expect(err).To(BeNil())
			Expect(hist).To(BeEmpty())
		})
	})

	Describe("Latest", func() {
		It("folds the prior period into the Previous fields", func() {
			rows := pgxmock.NewRows(fundamentalsColumns).
				AddRow(fundamentalsRow("ACME", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), 1000, 100, 2000, 400, 200, 100)...).
				AddRow(fundamentalsRow("ACME", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), 900, 80, 1800, 350, 180, 90)...)

			dbPool.ExpectBegin()
			dbPool.ExpectQuery("FROM fundamentals").WillReturnRows(rows)
			dbPool.ExpectCommit()

			rec, err := fundamentals.Latest(ctx, "ACME")
			Expect(err).To(BeNil())
			Expect(rec.ReportDate.Year()).To(Equal(2024))
			Expect(rec.PreviousTotalEquity.Float64).Should(BeNumerically("~", 350.0, 1e-9))
			Expect(rec.PreviousTotalAssets.Float64).Should(BeNumerically("~", 1800.0, 1e-9))
			Expect(rec.PreviousInventory.Float64).Should(BeNumerically("~", 180.0, 1e-9))
			Expect(rec.PreviousAccountsReceivable.Float64).Should(BeNumerically("~", 90.0, 1e-9))
		})

		It("returns ErrNotFound for an unknown ticker", func() {
			dbPool.ExpectBegin()
			dbPool.ExpectQuery("FROM fundamentals").
				WillReturnRows(pgxmock.NewRows(fundamentalsColumns))
			dbPool.ExpectCommit()

			_, err := fundamentals.Latest(ctx, "MISSING")
			Expect(err).To(MatchError(fundamentals.ErrNotFound))
		})
	})

	Describe("ActiveTickers", func() {
		It("lists every active ticker", func() {
			rows := pgxmock.NewRows([]string{"ticker"}).
				AddRow("ACME").
				AddRow("WIDGET")

			dbPool.ExpectBegin()
			dbPool.ExpectQuery("SELECT ticker FROM assets").WillReturnRows(rows)
			dbPool.ExpectCommit()

			tickers, err := fundamentals.ActiveTickers(ctx)
			Expect(err).To(BeNil())
			Expect(tickers).To(Equal([]string{"ACME", "WIDGET"}))
		})
	})

	Describe("LatestPrice", func() {
		It("returns the most recent close", func() {
			rows := pgxmock.NewRows([]string{"close"}).AddRow(50.25)

			dbPool.ExpectBegin()
			dbPool.ExpectQuery("SELECT close FROM eod").WillReturnRows(rows)
			dbPool.ExpectCommit()

			price, err := fundamentals.LatestPrice(ctx, "ACME")
			Expect(err).To(BeNil())
			Expect(price).Should(BeNumerically("~", 50.25, 1e-9))
		})

		It("returns ErrNotFound when no price exists", func() {
			dbPool.ExpectBegin()
			dbPool.ExpectQuery("SELECT close FROM eod").
				WillReturnError(pgx.ErrNoRows)
			dbPool.ExpectRollback()

			_, err := fundamentals.LatestPrice(ctx, "MISSING")
			Expect(err).To(MatchError(fundamentals.ErrNotFound))
		})
	})

	Describe("SaveRatios", func() {
		It("upserts one row per ratio", func() {
			eventDate := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
			vals := map[string]null.Float{
				"pe_ratio": null.FloatFrom(5.0),
				"roe":      null.NewFloat(0, false),
			}

			dbPool.ExpectBegin()
			dbPool.ExpectExec("INSERT INTO financial_ratios").
				WillReturnResult(pgconn.CommandTag("INSERT 0 1"))
			dbPool.ExpectExec("INSERT INTO financial_ratios").
				WillReturnResult(pgconn.CommandTag("INSERT 0 1"))
			dbPool.ExpectCommit()

			err := fundamentals.SaveRatios(ctx, "ACME", eventDate, vals)
			Expect(err).To(BeNil())
			Expect(dbPool.ExpectationsWereMet()).To(BeNil())
		})
	})

	Describe("LatestRatios", func() {
		It("returns the most recently stored values", func() {
			eventDate := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
			rows := pgxmock.NewRows([]string{"ratio_name", "value", "event_date"}).
				AddRow("pe_ratio", null.FloatFrom(5.0), eventDate).
				AddRow("roe", null.NewFloat(0, false), eventDate)

			dbPool.ExpectBegin()
			dbPool.ExpectQuery("SELECT ratio_name, value, event_date FROM financial_ratios").
				WillReturnRows(rows)
			dbPool.ExpectCommit()

			vals, got, err := fundamentals.LatestRatios(ctx, "ACME")
			Expect(err).To(BeNil())
			Expect(got).To(BeTemporally("==", eventDate))
			Expect(vals["pe_ratio"].Float64).Should(BeNumerically("~", 5.0, 1e-9))
			Expect(vals["roe"].Valid).To(BeFalse())
		})

		It("returns ErrNotFound when no ratios are stored", func() {
			dbPool.ExpectBegin()
			dbPool.ExpectQuery("SELECT ratio_name, value, event_date FROM financial_ratios").
				WillReturnRows(pgxmock.NewRows([]string{"ratio_name", "value", "event_date"}))
			dbPool.ExpectCommit()

			_, _, err := fundamentals.LatestRatios(ctx, "ACME")
			Expect(err).To(MatchError(fundamentals.ErrNotFound))
		})
	})
})
