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

// Package calibrate reconciles locally computed ratios against values
// reported by independent financial-data providers. When the local value and
// the provider consensus nearly agree, the externally verifiable number wins
// outright; when they diverge the local value is pulled toward consensus
// without being discarded, since disagreement often stems from timing
// differences (TTM vs. annual) rather than an error on either side.
package calibrate

import (
	"context"
	"math"
	"sort"

	"github.com/guregu/null/v6"
	"github.com/market-atlas/ma-api/observability/opentelemetry"
	"github.com/market-atlas/ma-api/providers"
	"github.com/market-atlas/ma-api/ratios"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultTolerance is the maximum relative difference from the source
	// mean at which the computed value is simply replaced by the mean
	DefaultTolerance = 0.05

	// DefaultBlendWeight is the weight kept on the computed value when it
	// disagrees with the source mean beyond the tolerance
	DefaultBlendWeight = 0.30
)

// Comparison records how one ratio compared against the external sources.
// It is built transiently during calibration and returned for diagnostics;
// nothing retains it afterwards.
type Comparison struct {
	Ratio      string             `json:"ratio"`
	Computed   float64            `json:"computed"`
	Sources    map[string]float64 `json:"sources"`
	Mean       float64            `json:"mean"`
	StdDev     float64            `json:"stdDev"`
	Closest    string             `json:"closest"`
	Calibrated float64            `json:"calibrated"`
}

// Calibrator cross-checks a RatioSet against a set of provider sources.
// Tolerance and BlendWeight are policy parameters, not laws; they default
// from configuration and can be adjusted per instance.
type Calibrator struct {
	Tolerance   float64
	BlendWeight float64

	sources []providers.Source
}

// New creates a calibrator over the given sources, taking the blending
// policy from configuration when set
func New(sources []providers.Source) *Calibrator {
	c := &Calibrator{
		Tolerance:   DefaultTolerance,
		BlendWeight: DefaultBlendWeight,
		sources:     sources,
	}

	if tol := viper.GetFloat64("calibrate.tolerance"); tol > 0 {
		c.Tolerance = tol
	}
	if weight := viper.GetFloat64("calibrate.blend_weight"); weight > 0 {
		c.BlendWeight = weight
	}

	return c
}

type sourceResult struct {
	Source string
	Vals   map[string]float64
	Err    error
}

func fetchWorker(ctx context.Context, result chan<- sourceResult, source providers.Source, ticker string) {
	vals, err := source.FetchRatios(ctx, ticker)
	result <- sourceResult{
		Source: source.Name(),
		Vals:   vals,
		Err:    err,
	}
}

// Run fetches every configured source concurrently and folds the consensus
// back into the computed set. A failing source only shrinks the comparison
// pool; it never fails the calibration, and ratios no source reports stay
// untouched.
func (c *Calibrator) Run(ctx context.Context, ticker string, computed ratios.RatioSet) (ratios.RatioSet, []Comparison) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "calibrate.Run")
	defer span.End()

	span.SetAttributes(attribute.KeyValue{
		Key:   "Ticker",
		Value: attribute.StringValue(ticker),
	})

	subLog := log.With().Str("Ticker", ticker).Logger()

	ch := make(chan sourceResult)
	for _, source := range c.sources {
		go fetchWorker(ctx, ch, source, ticker)
	}

	collected := make(map[string]map[string]float64, len(c.sources))
	for range c.sources {
		res := <-ch
		if res.Err != nil {
			// degraded accuracy, not degraded availability
			subLog.Warn().Err(res.Err).Str("Source", res.Source).Msg("source fetch failed; continuing without it")
			continue
		}
		collected[res.Source] = res.Vals
	}

	sourceNames := make([]string, 0, len(collected))
	for name := range collected {
		sourceNames = append(sourceNames, name)
	}
	sort.Strings(sourceNames)

	out := computed.Clone()
	comparisons := make([]Comparison, 0, len(computed))

	for _, ratio := range ratios.Names() {
		val := computed[ratio]
		if !val.Valid {
			continue
		}

		srcVals := make(map[string]float64)
		flat := make([]float64, 0, len(sourceNames))
		for _, name := range sourceNames {
			if v, ok := collected[name][ratio]; ok {
				srcVals[name] = v
				flat = append(flat, v)
			}
		}

		if len(flat) == 0 {
			continue
		}

		mean := stat.Mean(flat, nil)
		stdDev := 0.0
		if len(flat) > 1 {
			stdDev = stat.StdDev(flat, nil)
		}

		closest := ""
		closestDist := math.Inf(1)
		for _, name := range sourceNames {
			if v, ok := srcVals[name]; ok {
				if dist := math.Abs(v - mean); dist < closestDist {
					closestDist = dist
					closest = name
				}
			}
		}

		calibrated := c.blend(val.Float64, mean)
		out[ratio] = null.FloatFrom(calibrated)

		comparisons = append(comparisons, Comparison{
			Ratio:      ratio,
			Computed:   val.Float64,
			Sources:    srcVals,
			Mean:       mean,
			StdDev:     stdDev,
			Closest:    closest,
			Calibrated: calibrated,
		})
	}

	return out, comparisons
}

// blend applies the tolerance rule: near-agreement means the sources are
// measuring the same thing, so prefer the externally verifiable number;
// beyond the tolerance pull conservatively toward consensus
func (c *Calibrator) blend(computed, mean float64) float64 {
	// relative difference is undefined against a zero consensus
	if mean == 0 {
		return computed
	}

	if math.Abs(computed-mean)/math.Abs(mean) <= c.Tolerance {
		return mean
	}

	return c.BlendWeight*computed + (1-c.BlendWeight)*mean
}
