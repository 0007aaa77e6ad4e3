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
	"strconv"

	"github.com/goccy/go-json"
	"github.com/market-atlas/ma-api/ratios"
	"github.com/rs/zerolog/log"
)

var alphaVantageAPI = "https://www.alphavantage.co"

type alphaVantage struct {
	apikey string
	client *http.Client
}

// alphaVantageOverviewResponse mirrors the OVERVIEW function payload; Alpha
// Vantage serializes every number as a string and uses "None" or "-" for
// missing values
type alphaVantageOverviewResponse struct {
	Symbol                     string `json:"Symbol"`
	PERatio                    string `json:"PERatio"`
	PriceToBookRatio           string `json:"PriceToBookRatio"`
	PriceToSalesRatioTTM       string `json:"PriceToSalesRatioTTM"`
	EVToEBITDA                 string `json:"EVToEBITDA"`
	PEGRatio                   string `json:"PEGRatio"`
	ReturnOnEquityTTM          string `json:"ReturnOnEquityTTM"`
	ReturnOnAssetsTTM          string `json:"ReturnOnAssetsTTM"`
	ProfitMargin               string `json:"ProfitMargin"`
	OperatingMarginTTM         string `json:"OperatingMarginTTM"`
	QuarterlyRevenueGrowthYOY  string `json:"QuarterlyRevenueGrowthYOY"`
	QuarterlyEarningsGrowthYOY string `json:"QuarterlyEarningsGrowthYOY"`
	MarketCapitalization       string `json:"MarketCapitalization"`
}

// NewAlphaVantage creates a new Alpha Vantage ratio source
func NewAlphaVantage(key string) *alphaVantage {
	return &alphaVantage{
		apikey: key,
		client: newHTTPClient(),
	}
}

func (a *alphaVantage) Name() string {
	return "alphavantage"
}

// avFloat parses an Alpha Vantage numeric string; "None" and "-" mean absent
func avFloat(val string) *float64 {
	if val == "" || val == "None" || val == "-" {
		return nil
	}
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil
	}
	return &v
}

func (a *alphaVantage) FetchRatios(ctx context.Context, ticker string) (map[string]float64, error) {
	if vals, ok := cachedRatios(a.Name(), ticker); ok {
		return vals, nil
	}

	redacted := fmt.Sprintf("%s/query?function=OVERVIEW&symbol=%s", alphaVantageAPI, ticker)
	url := fmt.Sprintf("%s&apikey=%s", redacted, a.apikey)

	body, err := fetchURL(ctx, a.client, a.Name(), url, redacted)
	if err != nil {
		return nil, err
	}

	jsonResp := alphaVantageOverviewResponse{}
	if err := json.Unmarshal(body, &jsonResp); err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Bytes("Body", body).Msg("could not unmarshal alpha vantage json")
		return nil, err
	}

	if jsonResp.Symbol == "" {
		return nil, ErrNoData
	}

	vals := make(map[string]float64)

	setIfPresent(vals, ratios.PERatio, avFloat(jsonResp.PERatio), 1)
	setIfPresent(vals, ratios.PBRatio, avFloat(jsonResp.PriceToBookRatio), 1)
	setIfPresent(vals, ratios.PSRatio, avFloat(jsonResp.PriceToSalesRatioTTM), 1)
	setIfPresent(vals, ratios.EVToEBITDA, avFloat(jsonResp.EVToEBITDA), 1)
	setIfPresent(vals, ratios.PEGRatio, avFloat(jsonResp.PEGRatio), 1)

	// Alpha Vantage reports returns, margins and growth as fractions
	setIfPresent(vals, ratios.ROE, avFloat(jsonResp.ReturnOnEquityTTM), 100)
	setIfPresent(vals, ratios.ROA, avFloat(jsonResp.ReturnOnAssetsTTM), 100)
	setIfPresent(vals, ratios.NetMargin, avFloat(jsonResp.ProfitMargin), 100)
	setIfPresent(vals, ratios.OperatingMargin, avFloat(jsonResp.OperatingMarginTTM), 100)
	setIfPresent(vals, ratios.RevenueGrowthYoY, avFloat(jsonResp.QuarterlyRevenueGrowthYOY), 100)
	setIfPresent(vals, ratios.EarningsGrowthYoY, avFloat(jsonResp.QuarterlyEarningsGrowthYOY), 100)

	setIfPresent(vals, ratios.MarketCap, avFloat(jsonResp.MarketCapitalization), 1)

	storeRatios(a.Name(), ticker, vals)
	return vals, nil
}
