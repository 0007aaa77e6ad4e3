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

package refresh

import (
	"context"
	"sync"

	"github.com/market-atlas/ma-api/calibrate"
	"github.com/market-atlas/ma-api/fundamentals"
	"github.com/market-atlas/ma-api/observability/opentelemetry"
	"github.com/market-atlas/ma-api/ratios"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
)

const DefaultWorkers = 4

// BatchSummary reports the outcome of a batch run
type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

func batchWorker(ctx context.Context, wg *sync.WaitGroup, eng *ratios.Engine, cal *calibrate.Calibrator, work <-chan string, failures chan<- string) {
	defer wg.Done()
	for ticker := range work {
		if _, err := Ticker(ctx, eng, cal, ticker, 0, true); err != nil {
			log.Warn().Err(err).Str("Ticker", ticker).Msg("batch refresh failed for ticker")
			failures <- ticker
		}
	}
}

// Batch recomputes and persists the ratio set for every active ticker,
// fanning the work out over the requested number of workers. Per-ticker
// failures are logged and counted but do not abort the run.
func Batch(ctx context.Context, eng *ratios.Engine, cal *calibrate.Calibrator, workers int) (*BatchSummary, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "refresh.Batch")
	defer span.End()

	if workers <= 0 {
		workers = DefaultWorkers
	}

	tickers, err := fundamentals.ActiveTickers(ctx)
	if err != nil {
		return nil, err
	}

	work := make(chan string, len(tickers))
	failures := make(chan string, len(tickers))

	wg := &sync.WaitGroup{}
	for ii := 0; ii < workers; ii++ {
		wg.Add(1)
		go batchWorker(ctx, wg, eng, cal, work, failures)
	}

	for _, ticker := range tickers {
		work <- ticker
	}
	close(work)

	wg.Wait()
	close(failures)

	failed := 0
	for range failures {
		failed++
	}

	summary := &BatchSummary{
		Total:     len(tickers),
		Succeeded: len(tickers) - failed,
		Failed:    failed,
	}

	log.Info().Int("Total", summary.Total).Int("Succeeded", summary.Succeeded).
		Int("Failed", summary.Failed).Msg("batch refresh complete")

	return summary, nil
}
