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

// Package refresh drives the full recalculation pipeline for a ticker:
// load fundamentals, derive the ratio set, optionally calibrate it against
// external sources, and persist the result.
package refresh

import (
	"context"

	"github.com/market-atlas/ma-api/calibrate"
	"github.com/market-atlas/ma-api/fundamentals"
	"github.com/market-atlas/ma-api/observability/opentelemetry"
	"github.com/market-atlas/ma-api/ratios"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const historyDepth = 4

// Result is what a single-ticker refresh produced
type Result struct {
	Ticker      string                 `json:"ticker"`
	Price       float64                `json:"price"`
	Ratios      ratios.RatioSet        `json:"ratios"`
	Comparisons []calibrate.Comparison `json:"comparisons,omitempty"`
}

// Ticker recomputes the ratio set for a single ticker. A price of 0 means
// "use the latest close from the database". When cal is nil no external
// cross-check runs. When persist is set the cleaned set is written back to
// the financial_ratios table.
func Ticker(ctx context.Context, eng *ratios.Engine, cal *calibrate.Calibrator, ticker string, price float64, persist bool) (*Result, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "refresh.Ticker")
	defer span.End()

	span.SetAttributes(attribute.KeyValue{
		Key:   "Ticker",
		Value: attribute.StringValue(ticker),
	})

	subLog := log.With().Str("Ticker", ticker).Logger()

	if price == 0 {
		var err error
		if price, err = fundamentals.LatestPrice(ctx, ticker); err != nil {
			subLog.Error().Err(err).Msg("no price available for ticker")
			return nil, err
		}
	}

	hist, err := fundamentals.LoadHistory(ctx, ticker, historyDepth)
	if err != nil {
		return nil, err
	}

	rec := hist.Snapshot()
	if rec == nil {
		return nil, fundamentals.ErrNotFound
	}

	set, err := eng.Compute(rec, price, hist)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Ticker: ticker,
		Price:  price,
		Ratios: set,
	}

	if cal != nil {
		calibrated, comparisons := cal.Run(ctx, ticker, set)
		result.Ratios = eng.Clean(calibrated)
		result.Comparisons = comparisons
	}

	if persist {
		if err := fundamentals.SaveRatios(ctx, ticker, rec.ReportDate, result.Ratios); err != nil {
			return nil, err
		}
	}

	return result, nil
}
