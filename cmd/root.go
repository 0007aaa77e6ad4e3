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
	"fmt"
	"os"

	"github.com/market-atlas/ma-api/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Database
	viper.BindEnv("database.url", "DATABASE_URL")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	viper.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url"))

	// Provider credentials
	viper.BindEnv("fmp.apikey", "FMP_APIKEY")
	rootCmd.PersistentFlags().String("fmp-apikey", "", "Financial Modeling Prep API key")
	viper.BindPFlag("fmp.apikey", rootCmd.PersistentFlags().Lookup("fmp-apikey"))

	viper.BindEnv("finnhub.apikey", "FINNHUB_APIKEY")
	rootCmd.PersistentFlags().String("finnhub-apikey", "", "Finnhub API key")
	viper.BindPFlag("finnhub.apikey", rootCmd.PersistentFlags().Lookup("finnhub-apikey"))

	viper.BindEnv("alphavantage.apikey", "ALPHAVANTAGE_APIKEY")
	rootCmd.PersistentFlags().String("alphavantage-apikey", "", "Alpha Vantage API key")
	viper.BindPFlag("alphavantage.apikey", rootCmd.PersistentFlags().Lookup("alphavantage-apikey"))

	// Calibration policy
	viper.BindEnv("calibrate.tolerance", "MA_CALIBRATE_TOLERANCE")
	rootCmd.PersistentFlags().Float64("calibrate-tolerance", 0, "Relative difference below which the source mean replaces the computed value")
	viper.BindPFlag("calibrate.tolerance", rootCmd.PersistentFlags().Lookup("calibrate-tolerance"))

	viper.BindEnv("calibrate.blend_weight", "MA_CALIBRATE_BLEND_WEIGHT")
	rootCmd.PersistentFlags().Float64("calibrate-blend-weight", 0, "Weight kept on the computed value when it disagrees with the source mean")
	viper.BindPFlag("calibrate.blend_weight", rootCmd.PersistentFlags().Lookup("calibrate-blend-weight"))

	// Logging configuration
	viper.BindEnv("log.level", "MA_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.BindEnv("log.report_caller", "MA_LOG_REPORT_CALLER")
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	viper.BindPFlag("log.report_caller", rootCmd.PersistentFlags().Lookup("log-report-caller"))

	viper.BindEnv("log.output", "MA_LOG_OUTPUT")
	rootCmd.PersistentFlags().String("log-output", "stdout", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	viper.BindPFlag("log.output", rootCmd.PersistentFlags().Lookup("log-output"))

	viper.BindEnv("log.pretty", "MA_LOG_PRETTY")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "Print logs in human readable format")
	viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))

	// Cache
	viper.SetDefault("cache.local_size", 1000)
	viper.SetDefault("cache.ttl", 86400)
}

var rootCmd = &cobra.Command{
	Use:     "maapi",
	Version: common.CurrentVersion.String(),
	Short:   "Market Atlas computes and cross-validates financial ratios",
	Long: `Market Atlas derives fundamental financial ratios from statement data and
cross-validates them against independent financial-data providers.`,
}

// Execute runs the requested command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
