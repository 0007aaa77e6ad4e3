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

var yahooAPI = "https://query1.finance.yahoo.com"

type yahoo struct {
	client *http.Client
}

// yahooValue is Yahoo's {raw, fmt} number wrapper; only the raw value matters
type yahooValue struct {
	Raw *float64 `json:"raw"`
}

type yahooQuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				TrailingPE                   yahooValue `json:"trailingPE"`
				PriceToSalesTrailing12Months yahooValue `json:"priceToSalesTrailing12Months"`
				MarketCap                    yahooValue `json:"marketCap"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				PriceToBook        yahooValue `json:"priceToBook"`
				PegRatio           yahooValue `json:"pegRatio"`
				EnterpriseValue    yahooValue `json:"enterpriseValue"`
				EnterpriseToEbitda yahooValue `json:"enterpriseToEbitda"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				ReturnOnEquity   yahooValue `json:"returnOnEquity"`
				ReturnOnAssets   yahooValue `json:"returnOnAssets"`
				GrossMargins     yahooValue `json:"grossMargins"`
				OperatingMargins yahooValue `json:"operatingMargins"`
				ProfitMargins    yahooValue `json:"profitMargins"`
				DebtToEquity     yahooValue `json:"debtToEquity"`
				CurrentRatio     yahooValue `json:"currentRatio"`
				QuickRatio       yahooValue `json:"quickRatio"`
				RevenueGrowth    yahooValue `json:"revenueGrowth"`
				EarningsGrowth   yahooValue `json:"earningsGrowth"`
			} `json:"financialData"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"quoteSummary"`
}

// NewYahoo creates a new Yahoo Finance ratio source; the quoteSummary
// endpoint requires no API key
func NewYahoo() *yahoo {
	return &yahoo{
		client: newHTTPClient(),
	}
}

func (y *yahoo) Name() string {
	return "yahoo"
}

func (y *yahoo) FetchRatios(ctx context.Context, ticker string) (map[string]float64, error) {
	if vals, ok := cachedRatios(y.Name(), ticker); ok {
		return vals, nil
	}

	url := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=summaryDetail,defaultKeyStatistics,financialData", yahooAPI, ticker)

	body, err := fetchURL(ctx, y.client, y.Name(), url, url)
	if err != nil {
		return nil, err
	}

	jsonResp := yahooQuoteSummaryResponse{}
	if err := json.Unmarshal(body, &jsonResp); err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Bytes("Body", body).Msg("could not unmarshal yahoo json")
		return nil, err
	}

	if len(jsonResp.QuoteSummary.Result) == 0 {
		return nil, ErrNoData
	}

	r := jsonResp.QuoteSummary.Result[0]
	vals := make(map[string]float64)

	setIfPresent(vals, ratios.PERatio, r.SummaryDetail.TrailingPE.Raw, 1)
	setIfPresent(vals, ratios.PSRatio, r.SummaryDetail.PriceToSalesTrailing12Months.Raw, 1)
	setIfPresent(vals, ratios.MarketCap, r.SummaryDetail.MarketCap.Raw, 1)

	setIfPresent(vals, ratios.PBRatio, r.DefaultKeyStatistics.PriceToBook.Raw, 1)
	setIfPresent(vals, ratios.PEGRatio, r.DefaultKeyStatistics.PegRatio.Raw, 1)
	setIfPresent(vals, ratios.EnterpriseValue, r.DefaultKeyStatistics.EnterpriseValue.Raw, 1)
	setIfPresent(vals, ratios.EVToEBITDA, r.DefaultKeyStatistics.EnterpriseToEbitda.Raw, 1)

	// Yahoo reports returns, margins and growth as fractions but
	// debt-to-equity as a percentage
	setIfPresent(vals, ratios.ROE, r.FinancialData.ReturnOnEquity.Raw, 100)
	setIfPresent(vals, ratios.ROA, r.FinancialData.ReturnOnAssets.Raw, 100)
	setIfPresent(vals, ratios.GrossMargin, r.FinancialData.GrossMargins.Raw, 100)
	setIfPresent(vals, ratios.OperatingMargin, r.FinancialData.OperatingMargins.Raw, 100)
	setIfPresent(vals, ratios.NetMargin, r.FinancialData.ProfitMargins.Raw, 100)
	setIfPresent(vals, ratios.DebtToEquity, r.FinancialData.DebtToEquity.Raw, 0.01)
	setIfPresent(vals, ratios.CurrentRatio, r.FinancialData.CurrentRatio.Raw, 1)
	setIfPresent(vals, ratios.QuickRatio, r.FinancialData.QuickRatio.Raw, 1)
	setIfPresent(vals, ratios.RevenueGrowthYoY, r.FinancialData.RevenueGrowth.Raw, 100)
	setIfPresent(vals, ratios.EarningsGrowthYoY, r.FinancialData.EarningsGrowth.Raw, 100)

	storeRatios(y.Name(), ticker, vals)
	return vals, nil
}
