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

package ratios

import (
	"math"

	"github.com/guregu/null/v6"
)

// Round rounds v to the requested number of decimal places
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// Clean produces a storage-ready copy of the set: NaN and Inf entries become
// null and every remaining value is rounded to the engine's precision. Clean
// is total (every input key appears in the output) and idempotent.
func (e *Engine) Clean(set RatioSet) RatioSet {
	out := make(RatioSet, len(set))
	for name, val := range set {
		if !usable(val) {
			out[name] = nullFloat
			continue
		}
		out[name] = null.FloatFrom(Round(val.Float64, e.Precision))
	}
	return out
}
