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

package ratios_test

import (
	"math"

	"github.com/guregu/null/v6"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/market-atlas/ma-api/ratios"
)

var _ = Describe("Clean", func() {
	var eng *ratios.Engine

	BeforeEach(func() {
		eng = ratios.NewEngine()
	})

	DescribeTable("rounding",
		func(v float64, places int, expected float64) {
			Expect(ratios.Round(v, places)).Should(BeNumerically("==", expected))
		},
		Entry("When rounding down", 1.23454, 4, 1.2345),
		Entry("When rounding up", 1.23456, 4, 1.2346),
		Entry("When rounding a half", 1.25, 1, 1.3),
		Entry("When the value is negative", -1.23456, 4, -1.2346),
		Entry("When the value is already exact", 2.5, 4, 2.5),
		Entry("When rounding to high precision", 1.2345654, 6, 1.234565),
		Entry("When rounding to zero places", 2.5, 0, 3.0),
	)

	It("converts NaN and Inf entries to null", func() {
		set := ratios.NewRatioSet()
		set[ratios.PERatio] = null.FloatFrom(math.NaN())
		set[ratios.PBRatio] = null.FloatFrom(math.Inf(1))
		set[ratios.PSRatio] = null.FloatFrom(math.Inf(-1))
		set[ratios.ROE] = null.FloatFrom(12.345678)

		out := eng.Clean(set)
		Expect(out[ratios.PERatio].Valid).To(BeFalse())
		Expect(out[ratios.PBRatio].Valid).To(BeFalse())
		Expect(out[ratios.PSRatio].Valid).To(BeFalse())
		Expect(out[ratios.ROE].Float64).Should(BeNumerically("==", 12.3457))
	})

	It("is total over its input keys", func() {
		set := ratios.NewRatioSet()
		out := eng.Clean(set)
		Expect(out).To(HaveLen(len(set)))
		for name := range set {
			_, ok := out[name]
			Expect(ok).To(BeTrue(), "missing %s after clean", name)
		}
	})

	It("is idempotent", func() {
		set := ratios.NewRatioSet()
		set[ratios.PERatio] = null.FloatFrom(5.00004)
		set[ratios.ROE] = null.FloatFrom(math.NaN())

		once := eng.Clean(set)
		twice := eng.Clean(once)
		Expect(twice).To(Equal(once))
	})

	It("does not modify the input set", func() {
		set := ratios.NewRatioSet()
		set[ratios.PERatio] = null.FloatFrom(math.NaN())

		_ = eng.Clean(set)
		Expect(set[ratios.PERatio].Valid).To(BeTrue())
	})
})
