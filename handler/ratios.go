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

package handler

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/guregu/null/v6"
	"github.com/market-atlas/ma-api/calibrate"
	"github.com/market-atlas/ma-api/fundamentals"
	"github.com/market-atlas/ma-api/observability/opentelemetry"
	"github.com/market-atlas/ma-api/providers"
	"github.com/market-atlas/ma-api/ratios"
	"github.com/market-atlas/ma-api/refresh"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
)

var (
	calibratorOnce sync.Once
	calibrator     *calibrate.Calibrator
)

// getCalibrator lazily builds the shared calibrator; provider credentials are
// read from configuration once and reused for every request
func getCalibrator() *calibrate.Calibrator {
	calibratorOnce.Do(func() {
		calibrator = calibrate.New(providers.FromConfig())
	})
	return calibrator
}

type RatiosResponse struct {
	Ticker    string                `json:"ticker"`
	EventDate string                `json:"eventDate"`
	Ratios    map[string]null.Float `json:"ratios"`
}

// GetRatios returns the most recently stored ratio set for a ticker
func GetRatios(c *fiber.Ctx) error {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(c.UserContext(), "handler.GetRatios")
	defer span.End()
	span.SetAttributes(opentelemetry.SpanAttributesFromFiber(c)...)

	ticker := strings.ToUpper(c.Params("ticker"))

	vals, eventDate, err := fundamentals.LatestRatios(ctx, ticker)
	if err != nil {
		if errors.Is(err, fundamentals.ErrNotFound) {
			return fiber.ErrNotFound
		}
		log.Error().Err(err).Str("Ticker", ticker).Msg("could not load stored ratios")
		return fiber.ErrInternalServerError
	}

	return c.JSON(RatiosResponse{
		Ticker:    ticker,
		EventDate: eventDate.Format(time.DateOnly),
		Ratios:    vals,
	})
}

// RefreshRatios recomputes the ratio set for a ticker and persists it. The
// calibrate query parameter (default true) controls whether the computed set
// is cross-checked against external sources; price overrides the latest close
// from the database.
func RefreshRatios(c *fiber.Ctx) error {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(c.UserContext(), "handler.RefreshRatios")
	defer span.End()
	span.SetAttributes(opentelemetry.SpanAttributesFromFiber(c)...)

	ticker := strings.ToUpper(c.Params("ticker"))

	doCalibrate, err := strconv.ParseBool(c.Query("calibrate", "true"))
	if err != nil {
		log.Warn().Err(err).Str("Calibrate", c.Query("calibrate")).Msg("refresh called with invalid calibrate parameter")
		return fiber.ErrBadRequest
	}

	price := 0.0
	if priceStr := c.Query("price"); priceStr != "" {
		if price, err = strconv.ParseFloat(priceStr, 64); err != nil {
			log.Warn().Err(err).Str("Price", priceStr).Msg("refresh called with invalid price parameter")
			return fiber.ErrBadRequest
		}
	}

	var cal *calibrate.Calibrator
	if doCalibrate {
		cal = getCalibrator()
	}

	result, err := refresh.Ticker(ctx, ratios.NewEngine(), cal, ticker, price, true)
	if err != nil {
		switch {
		case errors.Is(err, fundamentals.ErrNotFound):
			return fiber.ErrNotFound
		case errors.Is(err, ratios.ErrInvalidPrice):
			return fiber.ErrBadRequest
		default:
			log.Error().Err(err).Str("Ticker", ticker).Msg("ratio refresh failed")
			return fiber.ErrInternalServerError
		}
	}

	return c.JSON(result)
}
