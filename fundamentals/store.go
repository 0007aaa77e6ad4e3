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
	"context"
	"errors"
	"time"

	"github.com/guregu/null/v6"
	"github.com/market-atlas/ma-api/database"
	"github.com/market-atlas/ma-api/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrNotFound = errors.New("no fundamentals found for ticker")
)

const recordColumns = `revenue, gross_profit, operating_income, net_income, ebitda,
eps_diluted, interest_expense, cost_of_revenue, total_assets, total_debt, total_equity,
cash_and_equivalents, current_assets, current_liabilities, inventory,
accounts_receivable, accounts_payable, retained_earnings, total_liabilities,
shares_outstanding, shares_float, book_value_per_share, operating_cash_flow,
free_cash_flow, capex, earnings_growth_yoy`

func scanRecord(row interface {
	Scan(dest ...interface{}) error
}, rec *Record) error {
	return row.Scan(&rec.Ticker, &rec.ReportDate, &rec.Revenue, &rec.GrossProfit,
		&rec.OperatingIncome, &rec.NetIncome, &rec.EBITDA, &rec.EPSDiluted,
		&rec.InterestExpense, &rec.CostOfRevenue, &rec.TotalAssets, &rec.TotalDebt,
		&rec.TotalEquity, &rec.CashAndEquivalents, &rec.CurrentAssets,
		&rec.CurrentLiabilities, &rec.Inventory, &rec.AccountsReceivable,
		&rec.AccountsPayable, &rec.RetainedEarnings, &rec.TotalLiabilities,
		&rec.SharesOutstanding, &rec.SharesFloat, &rec.BookValuePerShare,
		&rec.OperatingCashFlow, &rec.FreeCashFlow, &rec.Capex, &rec.EarningsGrowthYoY)
}

// Latest loads the most recent fundamentals record for the ticker. When a
// prior period exists its balances are folded into the Previous* fields so
// the ratio engine can average across periods.
func Latest(ctx context.Context, ticker string) (*Record, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "fundamentals.Latest")
	defer span.End()

	recent, err := LoadHistory(ctx, ticker, 2)
	if err != nil {
		return nil, err
	}

	rec := recent.Snapshot()
	if rec == nil {
		return nil, ErrNotFound
	}

	return rec, nil
}

// LoadHistory loads up to n fundamentals records for the ticker, ordered
// oldest to newest
func LoadHistory(ctx context.Context, ticker string, n int) (History, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "fundamentals.LoadHistory")
	defer span.End()

	subLog := log.With().Str("Ticker", ticker).Int("N", n).Logger()

	trx, err := database.Trx(ctx)
	if err != nil {
		span.RecordError(err)
		msg := "failed to load fundamentals -- could not get a database transaction"
		span.SetStatus(codes.Error, msg)
		subLog.Warn().Stack().Err(err).Msg(msg)
		return nil, err
	}

	sql := `SELECT ticker, report_date, ` + recordColumns +
		` FROM fundamentals WHERE ticker=$1 ORDER BY report_date DESC LIMIT $2`

	rows, err := trx.Query(ctx, sql, ticker, n)
	if err != nil {
		subLog.Error().Err(err).Msg("query fundamentals failed")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	hist := make(History, 0, n)
	for rows.Next() {
		rec := &Record{}
		if err := scanRecord(rows, rec); err != nil {
			subLog.Error().Err(err).Msg("error scanning fundamentals row")
			if err := trx.Rollback(ctx); err != nil {
				subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
			}
			return nil, err
		}
		hist = append(hist, rec)
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Warn().Stack().Err(err).Msg("could not commit transaction")
	}

	hist.Sort()
	return hist, nil
}

// ActiveTickers returns every ticker with at least one fundamentals row;
// used by the batch driver to enumerate work
func ActiveTickers(ctx context.Context) ([]string, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "fundamentals.ActiveTickers")
	defer span.End()

	trx, err := database.Trx(ctx)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not get transaction for ticker list")
		return nil, err
	}

	rows, err := trx.Query(ctx, "SELECT ticker FROM assets WHERE active='t' ORDER BY ticker")
	if err != nil {
		log.Error().Err(err).Msg("could not query assets from database")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	tickers := make([]string, 0, 100)
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			log.Error().Err(err).Msg("could not scan ticker")
			if err := trx.Rollback(ctx); err != nil {
				log.Error().Stack().Err(err).Msg("could not rollback transaction")
			}
			return nil, err
		}
		tickers = append(tickers, ticker)
	}

	if err := trx.Commit(ctx); err != nil {
		log.Warn().Stack().Err(err).Msg("could not commit transaction")
	}

	return tickers, nil
}

// LatestPrice returns the most recent closing price recorded for the ticker
func LatestPrice(ctx context.Context, ticker string) (float64, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "fundamentals.LatestPrice")
	defer span.End()

	subLog := log.With().Str("Ticker", ticker).Logger()

	trx, err := database.Trx(ctx)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not get transaction for price lookup")
		return 0, err
	}

	var price float64
	row := trx.QueryRow(ctx, "SELECT close FROM eod WHERE ticker=$1 ORDER BY event_date DESC LIMIT 1", ticker)
	if err := row.Scan(&price); err != nil {
		subLog.Error().Err(err).Msg("could not load latest price")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return 0, ErrNotFound
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Warn().Stack().Err(err).Msg("could not commit transaction")
	}

	return price, nil
}

// SaveRatios upserts one row per ratio into the financial_ratios table.
// Null values are persisted as SQL NULLs; the row still exists so consumers
// can tell "computed and not derivable" apart from "never computed".
func SaveRatios(ctx context.Context, ticker string, eventDate time.Time, vals map[string]null.Float) error {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "fundamentals.SaveRatios")
	defer span.End()

	subLog := log.With().Str("Ticker", ticker).Time("EventDate", eventDate).Logger()

	trx, err := database.Trx(ctx)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not get transaction for saving ratios")
		return err
	}

	sql := `INSERT INTO financial_ratios (ticker, event_date, ratio_name, value)
VALUES ($1, $2, $3, $4)
ON CONFLICT (ticker, event_date, ratio_name) DO UPDATE SET value=EXCLUDED.value`

	for name, val := range vals {
		if _, err := trx.Exec(ctx, sql, ticker, eventDate, name, val); err != nil {
			subLog.Error().Err(err).Str("RatioName", name).Msg("could not save ratio")
			if err := trx.Rollback(ctx); err != nil {
				subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
			}
			return err
		}
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("failed to commit ratios")
		return err
	}

	return nil
}

// LatestRatios returns the most recently stored ratio values for a ticker
func LatestRatios(ctx context.Context, ticker string) (map[string]null.Float, time.Time, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "fundamentals.LatestRatios")
	defer span.End()

	subLog := log.With().Str("Ticker", ticker).Logger()

	trx, err := database.Trx(ctx)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not get transaction for loading ratios")
		return nil, time.Time{}, err
	}

	sql := `SELECT ratio_name, value, event_date FROM financial_ratios
WHERE ticker=$1 AND event_date=(SELECT MAX(event_date) FROM financial_ratios WHERE ticker=$1)`

	rows, err := trx.Query(ctx, sql, ticker)
	if err != nil {
		subLog.Error().Err(err).Msg("query financial_ratios failed")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return nil, time.Time{}, err
	}

	vals := make(map[string]null.Float)
	var eventDate time.Time
	for rows.Next() {
		var name string
		var val null.Float
		if err := rows.Scan(&name, &val, &eventDate); err != nil {
			subLog.Error().Err(err).Msg("error scanning ratio row")
			if err := trx.Rollback(ctx); err != nil {
				subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
			}
			return nil, time.Time{}, err
		}
		vals[name] = val
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Warn().Stack().Err(err).Msg("could not commit transaction")
	}

	if len(vals) == 0 {
		return nil, time.Time{}, ErrNotFound
	}

	return vals, eventDate, nil
}
