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
	"fmt"
	"strings"

	"github.com/goccy/go-json"
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
	ratiosPrice     float64
	ratiosCalibrate bool
	ratiosSave      bool
)

func init() {
	ratiosCmd.Flags().Float64Var(&ratiosPrice, "price", 0, "Share price to value the ticker at; 0 uses the latest close from the database")
	ratiosCmd.Flags().BoolVar(&ratiosCalibrate, "calibrate", false, "Cross-check computed ratios against external providers")
	ratiosCmd.Flags().BoolVar(&ratiosSave, "save", false, "Persist the computed ratios to the database")

	rootCmd.AddCommand(ratiosCmd)
}

var ratiosCmd = &cobra.Command{
	Use:   "ratios <ticker>",
	Args:  cobra.ExactArgs(1),
	Short: "Compute the financial ratio set for a single ticker",
	Long: `Load the most recent fundamentals for a ticker, derive its financial
ratio set, and print the result as JSON. With --calibrate the computed values
are cross-checked against the configured external providers.`,
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
		common.SetupCache()
		ctx := context.Background()

		if err := database.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}

		var cal *calibrate.Calibrator
		if ratiosCalibrate {
			cal = calibrate.New(providers.FromConfig())
		}

		ticker := strings.ToUpper(args[0])
		result, err := refresh.Ticker(ctx, ratios.NewEngine(), cal, ticker, ratiosPrice, ratiosSave)
		if err != nil {
			log.Fatal().Err(err).Str("Ticker", ticker).Msg("could not compute ratios")
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal result")
		}
		fmt.Println(string(out))
	},
}
