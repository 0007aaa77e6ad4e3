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

package cmd

import (
	"context"

	"github.com/market-atlas/ma-api/calibrate"
	"github.com/market-atlas/ma-api/common"
	"github.com/market-atlas/ma-api/database"
	"github.com/market-atlas/ma-api/providers"
	"github.com/market-atlas/ma-api/ratios"
	"github.com/market-atlas/ma-api/refresh"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	batchWorkers   int
	batchCalibrate bool
)

func init() {
	batchCmd.Flags().IntVar(&batchWorkers, "workers", refresh.DefaultWorkers, "Number of concurrent refresh workers")
	batchCmd.Flags().BoolVar(&batchCalibrate, "calibrate", true, "Cross-check computed ratios against external providers")

	rootCmd.AddCommand(batchCmd)
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Recompute ratios for every active ticker",
	Long: `Recompute and persist the financial ratio set for every active ticker in
the database. Tickers that fail are logged and skipped; the run continues.`,
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
		common.SetupCache()
		ctx := context.Background()

		if err := database.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}

		var cal *calibrate.Calibrator
		if batchCalibrate {
			cal = calibrate.New(providers.FromConfig())
		}

		summary, err := refresh.Batch(ctx, ratios.NewEngine(), cal, batchWorkers)
		if err != nil {
			log.Fatal().Err(err).Msg("batch refresh failed")
		}

		if summary.Failed > 0 {
			log.Warn().Int("Failed", summary.Failed).Msg("some tickers could not be refreshed")
		}
	},
}
