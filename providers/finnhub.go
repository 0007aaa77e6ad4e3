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
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/market-atlas/ma-api/ratios"
	"github.com/rs/zerolog/log"
)

var finnhubAPI = "https://finnhub.io"

type finnhub struct {
	apikey string
	client *http.Client
}

type finnhubMetricResponse struct {
	Metric map[string]interface{} `json:"metric"`
}

// finnhubMetricMap translates finnhub metric keys to the ratio vocabulary;
// finnhub already reports returns, margins and growth as percentages
var finnhubMetricMap = map[string]string{
	"peTTM":                         ratios.PERatio,
	"pb":                            ratios.PBRatio,
	"psTTM":                         ratios.PSRatio,
	"roeTTM":                        ratios.ROE,
	"roaTTM":                        ratios.ROA,
	"roiTTM":                        ratios.ROIC,
	"grossMarginTTM":                ratios.GrossMargin,
	"operatingMarginTTM":            ratios.OperatingMargin,
	"netProfitMarginTTM":            ratios.NetMargin,
	"totalDebt/totalEquityQuarterly": ratios.DebtToEquity,
	"currentRatioQuarterly":         ratios.CurrentRatio,
	"quickRatioQuarterly":           ratios.QuickRatio,
	"netInterestCoverageTTM":        ratios.InterestCoverage,
	"assetTurnoverTTM":              ratios.AssetTurnover,
	"inventoryTurnoverTTM":          ratios.InventoryTurnover,
	"receivablesTurnoverTTM":        ratios.ReceivablesTurnover,
	"revenueGrowthTTMYoy":           ratios.RevenueGrowthYoY,
	"epsGrowthTTMYoy":               ratios.EarningsGrowthYoY,
}

// NewFinnhub creates a new Finnhub ratio source
func NewFinnhub(key string) *finnhub {
	return &finnhub{
		apikey: key,
		client: newHTTPClient(),
	}
}

func (f *finnhub) Name() string {
	return "finnhub"
}

func (f *finnhub) FetchRatios(ctx context.Context, ticker string) (map[string]float64, error) {
	if vals, ok := cachedRatios(f.Name(), ticker); ok {
		return vals, nil
	}

	redacted := fmt.Sprintf("%s/api/v1/stock/metric?symbol=%s&metric=all", finnhubAPI, ticker)
	url := fmt.Sprintf("%s&token=%s", redacted, f.apikey)

	body, err := fetchURL(ctx, f.client, f.Name(), url, redacted)
	if err != nil {
		return nil, err
	}

	jsonResp := finnhubMetricResponse{}
	if err := json.Unmarshal(body, &jsonResp); err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Bytes("Body", body).Msg("could not unmarshal finnhub json")
		return nil, err
	}

	if len(jsonResp.Metric) == 0 {
		return nil, ErrNoData
	}

	vals := make(map[string]float64)
	for metricKey, name := range finnhubMetricMap {
		// metric=all mixes numbers with strings and nulls; only numeric
		// entries are usable
		if v, ok := jsonResp.Metric[metricKey].(float64); ok {
			vals[name] = v
		}
	}

	storeRatios(f.Name(), ticker, vals)
	return vals, nil
}
