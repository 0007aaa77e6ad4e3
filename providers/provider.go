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

package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/market-atlas/ma-api/common"
	"github.com/market-atlas/ma-api/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Source is an independent financial-data API that can report ratio values
// for a ticker. Implementations return only the ratios the provider actually
// publishes, keyed by the engine's ratio vocabulary; absent ratios are simply
// missing from the map.
type Source interface {
	Name() string
	FetchRatios(ctx context.Context, ticker string) (map[string]float64, error)
}

var (
	ErrInvalidStatusCode = errors.New("HTTP request returned invalid status code")
	ErrNoData            = errors.New("no data returned")
)

const defaultTimeout = 15 * time.Second

func newHTTPClient() *http.Client {
	timeout := viper.GetDuration("provider.timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// FromConfig builds the list of sources that have credentials configured.
// Yahoo needs no API key and is always included.
func FromConfig() []Source {
	sources := []Source{NewYahoo()}

	if key := viper.GetString("fmp.apikey"); key != "" {
		sources = append(sources, NewFMP(key))
	} else {
		log.Warn().Msg("no FMP API key provided")
	}

	if key := viper.GetString("finnhub.apikey"); key != "" {
		sources = append(sources, NewFinnhub(key))
	} else {
		log.Warn().Msg("no finnhub API key provided")
	}

	if key := viper.GetString("alphavantage.apikey"); key != "" {
		sources = append(sources, NewAlphaVantage(key))
	} else {
		log.Warn().Msg("no alpha vantage API key provided")
	}

	return sources
}

// fetchURL performs a GET against a provider endpoint and returns the
// response body. redactedURL is the span/log-safe form of the URL with the
// API key stripped.
func fetchURL(ctx context.Context, client *http.Client, sourceName, url, redactedURL string) ([]byte, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, sourceName+".fetch")
	defer span.End()

	span.SetAttributes(
		attribute.KeyValue{
			Key:   "Url",
			Value: attribute.StringValue(redactedURL),
		},
	)

	subLog := log.With().Str("Source", sourceName).Str("Url", redactedURL).Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		span.RecordError(err)
		msg := "could not create http request"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Err(err).Msg(msg)
		return nil, err
	}
	req.Header.Set("User-Agent", "maapi/"+common.CurrentVersion.String())

	resp, err := client.Do(req)
	if err != nil {
		span.RecordError(err)
		msg := "provider http request failed"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Err(err).Msg(msg)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		span.SetAttributes(attribute.KeyValue{
			Key:   "StatusCode",
			Value: attribute.IntValue(resp.StatusCode),
		})
		msg := "provider returned invalid response code"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Int("HTTPResponseStatusCode", resp.StatusCode).Msg(msg)
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatusCode, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		msg := "could not read provider response body"
		span.SetStatus(codes.Error, msg)
		subLog.Error().Err(err).Msg(msg)
		return nil, err
	}

	return body, nil
}

// cachedRatios retrieves a previously fetched ratio map for source/ticker
func cachedRatios(sourceName, ticker string) (map[string]float64, bool) {
	raw, err := common.CacheGet(common.CacheKey("provider-ratios", sourceName, ticker))
	if err != nil {
		return nil, false
	}

	vals := make(map[string]float64)
	if err := json.Unmarshal(raw, &vals); err != nil {
		log.Warn().Err(err).Str("Source", sourceName).Str("Ticker", ticker).Msg("could not unmarshal cached ratios")
		return nil, false
	}
	return vals, true
}

// storeRatios caches a ratio map for source/ticker
func storeRatios(sourceName, ticker string, vals map[string]float64) {
	raw, err := json.Marshal(vals)
	if err != nil {
		log.Warn().Err(err).Str("Source", sourceName).Str("Ticker", ticker).Msg("could not marshal ratios for cache")
		return
	}
	if err := common.CacheSet(common.CacheKey("provider-ratios", sourceName, ticker), raw); err != nil {
		log.Warn().Err(err).Str("Source", sourceName).Str("Ticker", ticker).Msg("could not cache ratios")
	}
}

// setIfPresent copies a nullable provider field into the ratio map, applying
// the scale factor (providers disagree on whether margins are fractions or
// percentages)
func setIfPresent(vals map[string]float64, name string, v *float64, scale float64) {
	if v == nil {
		return
	}
	vals[name] = *v * scale
}
