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

var fmpAPI = "https://financialmodelingprep.com"

type fmp struct {
	apikey string
	client *http.Client
}

// fmpRatiosResponse mirrors the /api/v3/ratios-ttm payload; fields the
// provider omits for a ticker come back nil
type fmpRatiosResponse struct {
	PERatioTTM                 *float64 `json:"peRatioTTM"`
	PriceToBookRatioTTM        *float64 `json:"priceToBookRatioTTM"`
	PriceToSalesRatioTTM       *float64 `json:"priceToSalesRatioTTM"`
	EnterpriseValueMultipleTTM *float64 `json:"enterpriseValueMultipleTTM"`
	PEGRatioTTM                *float64 `json:"pegRatioTTM"`
	ReturnOnEquityTTM          *float64 `json:"returnOnEquityTTM"`
	ReturnOnAssetsTTM          *float64 `json:"returnOnAssetsTTM"`
	ReturnOnCapitalEmployedTTM *float64 `json:"returnOnCapitalEmployedTTM"`
	GrossProfitMarginTTM       *float64 `json:"grossProfitMarginTTM"`
	OperatingProfitMarginTTM   *float64 `json:"operatingProfitMarginTTM"`
	NetProfitMarginTTM         *float64 `json:"netProfitMarginTTM"`
	DebtEquityRatioTTM         *float64 `json:"debtEquityRatioTTM"`
	CurrentRatioTTM            *float64 `json:"currentRatioTTM"`
	QuickRatioTTM              *float64 `json:"quickRatioTTM"`
	InterestCoverageTTM        *float64 `json:"interestCoverageTTM"`
	AssetTurnoverTTM           *float64 `json:"assetTurnoverTTM"`
	InventoryTurnoverTTM       *float64 `json:"inventoryTurnoverTTM"`
	ReceivablesTurnoverTTM     *float64 `json:"receivablesTurnoverTTM"`
	CashConversionCycleTTM     *float64 `json:"cashConversionCycleTTM"`
}

// NewFMP creates a new Financial Modeling Prep ratio source
func NewFMP(key string) *fmp {
	return &fmp{
		apikey: key,
		client: newHTTPClient(),
	}
}

func (f *fmp) Name() string {
	return "fmp"
}

func (f *fmp) FetchRatios(ctx context.Context, ticker string) (map[string]float64, error) {
	if vals, ok := cachedRatios(f.Name(), ticker); ok {
		return vals, nil
	}

	redacted := fmt.Sprintf("%s/api/v3/ratios-ttm/%s", fmpAPI, ticker)
	url := fmt.Sprintf("%s?apikey=%s", redacted, f.apikey)

	body, err := fetchURL(ctx, f.client, f.Name(), url, redacted)
	if err != nil {
		return nil, err
	}

	jsonResp := []fmpRatiosResponse{}
	if err := json.Unmarshal(body, &jsonResp); err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Bytes("Body", body).Msg("could not unmarshal fmp json")
		return nil, err
	}

	if len(jsonResp) == 0 {
		return nil, ErrNoData
	}

	r := jsonResp[0]
	vals := make(map[string]float64)

	setIfPresent(vals, ratios.PERatio, r.PERatioTTM, 1)
	setIfPresent(vals, ratios.PBRatio, r.PriceToBookRatioTTM, 1)
	setIfPresent(vals, ratios.PSRatio, r.PriceToSalesRatioTTM, 1)
	setIfPresent(vals, ratios.EVToEBITDA, r.EnterpriseValueMultipleTTM, 1)
	setIfPresent(vals, ratios.PEGRatio, r.PEGRatioTTM, 1)

	// FMP reports returns and margins as fractions
	setIfPresent(vals, ratios.ROE, r.ReturnOnEquityTTM, 100)
	setIfPresent(vals, ratios.ROA, r.ReturnOnAssetsTTM, 100)
	setIfPresent(vals, ratios.ROIC, r.ReturnOnCapitalEmployedTTM, 100)
	setIfPresent(vals, ratios.GrossMargin, r.GrossProfitMarginTTM, 100)
	setIfPresent(vals, ratios.OperatingMargin, r.OperatingProfitMarginTTM, 100)
	setIfPresent(vals, ratios.NetMargin, r.NetProfitMarginTTM, 100)

	setIfPresent(vals, ratios.DebtToEquity, r.DebtEquityRatioTTM, 1)
	setIfPresent(vals, ratios.CurrentRatio, r.CurrentRatioTTM, 1)
	setIfPresent(vals, ratios.QuickRatio, r.QuickRatioTTM, 1)
	setIfPresent(vals, ratios.InterestCoverage, r.InterestCoverageTTM, 1)
	setIfPresent(vals, ratios.AssetTurnover, r.AssetTurnoverTTM, 1)
	setIfPresent(vals, ratios.InventoryTurnover, r.InventoryTurnoverTTM, 1)
	setIfPresent(vals, ratios.ReceivablesTurnover, r.ReceivablesTurnoverTTM, 1)
	setIfPresent(vals, ratios.CashConversionCycle, r.CashConversionCycleTTM, 1)

	storeRatios(f.Name(), ticker, vals)
	return vals, nil
}
