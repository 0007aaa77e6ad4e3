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
	"os"
	"os/signal"

	"github.com/go-co-op/gocron"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/market-atlas/ma-api/calibrate"
	"github.com/market-atlas/ma-api/common"
	"github.com/market-atlas/ma-api/database"
	"github.com/market-atlas/ma-api/middleware"
	"github.com/market-atlas/ma-api/observability/opentelemetry"
	"github.com/market-atlas/ma-api/providers"
	"github.com/market-atlas/ma-api/ratios"
	"github.com/market-atlas/ma-api/refresh"
	"github.com/market-atlas/ma-api/router"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	viper.BindEnv("server.port", "PORT")
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	viper.BindEnv("server.cors_origins", "MA_CORS_ORIGINS")
	serveCmd.Flags().String("cors-origins", "http://localhost:8080", "Comma separated list of allowed CORS origins")
	viper.BindPFlag("server.cors_origins", serveCmd.Flags().Lookup("cors-origins"))

	viper.BindEnv("refresh.schedule", "MA_REFRESH_SCHEDULE")
	serveCmd.Flags().String("refresh-schedule", "02:30", "Time of day (HH:MM, exchange timezone) to run the nightly batch refresh")
	viper.BindPFlag("refresh.schedule", serveCmd.Flags().Lookup("refresh-schedule"))

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ma-api server",
	Long:  `Run HTTP server that implements the Market Atlas ratio API`,
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
		common.SetupCache()
		ctx := context.Background()

		traceShutdown, err := opentelemetry.Setup()
		if err != nil {
			log.Error().Err(err).Msg("could not setup opentelemetry")
		} else {
			defer func() {
				if err := traceShutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down tracer")
				}
			}()
		}

		if err := database.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}

		app := fiber.New()

		// shutdown cleanly on interrupt
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt)
		go func() {
			sig := <-sigs
			fmt.Printf("Received signal: '%s'; shutting down...\n", sig.String())
			if err := app.Shutdown(); err != nil {
				log.Fatal().Err(err).Msg("error shutting down server")
			}
		}()

		corsConfig := cors.Config{
			AllowOrigins: viper.GetString("server.cors_origins"),
			AllowHeaders: "*",
			AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		}
		app.Use(cors.New(corsConfig))

		app.Use(middleware.NewLogger())

		router.SetupRoutes(app)

		// nightly batch refresh after the exchanges close
		scheduler := gocron.NewScheduler(common.GetTimezone())
		if _, err := scheduler.Every(1).Day().At(viper.GetString("refresh.schedule")).Do(func() {
			cal := calibrate.New(providers.FromConfig())
			if _, err := refresh.Batch(ctx, ratios.NewEngine(), cal, refresh.DefaultWorkers); err != nil {
				log.Error().Err(err).Msg("scheduled batch refresh failed")
			}
		}); err != nil {
			log.Error().Err(err).Msg("could not schedule batch refresh")
		}
		scheduler.StartAsync()

		if err := app.Listen(":" + viper.GetString("server.port")); err != nil {
			log.Fatal().Err(err).Msg("server exited with error")
		}
	},
}
