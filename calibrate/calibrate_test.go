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

package calibrate_test

import (
	"context"
	"errors"

	"github.com/guregu/null/v6"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/market-atlas/ma-api/calibrate"
	"github.com/market-atlas/ma-api/providers"
	"github.com/market-atlas/ma-api/ratios"
)

// fakeSource reports a fixed ratio map, or fails when err is set
type fakeSource struct {
	name string
	vals map[string]float64
	err  error
}

func (f *fakeSource) Name() string {
	return f.name
}

func (f *fakeSource) FetchRatios(_ context.Context, _ string) (map[string]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vals, nil
}

var _ = Describe("Calibrator", func() {
	var (
		ctx      context.Context
		computed ratios.RatioSet
	)

	BeforeEach(func() {
		ctx = context.Background()
		computed = ratios.NewRatioSet()
	})

	Describe("the tolerance rule", func() {
		It("adopts the consensus mean when values nearly agree", func() {
			computed[ratios.PERatio] = null.FloatFrom(19.0)

			cal := calibrate.New([]providers.Source{
				&fakeSource{name: "a", vals: map[string]float64{ratios.PERatio: 18.0}},
				&fakeSource{name: "b", vals: map[string]float64{ratios.PERatio: 22.0}},
			})

			// mean is 20; |19-20|/20 = 0.05, exactly at tolerance
			out, comparisons := cal.Run(ctx, "ACME", computed)
			Expect(out[ratios.PERatio].Float64).Should(BeNumerically("~", 20.0, 1e-9))
			Expect(comparisons).To(HaveLen(1))
			Expect(comparisons[0].Ratio).To(Equal(ratios.PERatio))
			Expect(comparisons[0].Mean).Should(BeNumerically("~", 20.0, 1e-9))
			Expect(comparisons[0].Closest).To(Equal("a"))
		})

		It("blends toward consensus when values disagree", func() {
			computed[ratios.PERatio] = null.FloatFrom(30.0)

			cal := calibrate.New([]providers.Source{
				&fakeSource{name: "a", vals: map[string]float64{ratios.PERatio: 20.0}},
			})

			// 0.3*30 + 0.7*20 = 23
			out, comparisons := cal.Run(ctx, "ACME", computed)
			Expect(out[ratios.PERatio].Float64).Should(BeNumerically("~", 23.0, 1e-9))
			Expect(comparisons[0].Calibrated).Should(BeNumerically("~", 23.0, 1e-9))
		})

		It("leaves the computed value alone against a zero consensus", func() {
			computed[ratios.RevenueGrowthYoY] = null.FloatFrom(5.0)

			cal := calibrate.New([]providers.Source{
				&fakeSource{name: "a", vals: map[string]float64{ratios.RevenueGrowthYoY: 0.0}},
			})

			out, _ := cal.Run(ctx, "ACME", computed)
			Expect(out[ratios.RevenueGrowthYoY].Float64).Should(BeNumerically("~", 5.0, 1e-9))
		})
	})

	Describe("source failures", func() {
		It("continues with the sources that succeed", func() {
			computed[ratios.PERatio] = null.FloatFrom(30.0)

			cal := calibrate.New([]providers.Source{
				&fakeSource{name: "a", err: errors.New("rate limited")},
				&fakeSource{name: "b", err: errors.New("timeout")},
				&fakeSource{name: "c", err: errors.New("bad gateway")},
				&fakeSource{name: "d", vals: map[string]float64{ratios.PERatio: 20.0}},
			})

			out, comparisons := cal.Run(ctx, "ACME", computed)
			Expect(out[ratios.PERatio].Float64).Should(BeNumerically("~", 23.0, 1e-9))
			Expect(comparisons[0].Sources).To(HaveLen(1))
		})

		It("leaves everything untouched when every source fails", func() {
			computed[ratios.PERatio] = null.FloatFrom(30.0)

			cal := calibrate.New([]providers.Source{
				&fakeSource{name: "a", err: errors.New("rate limited")},
			})

			out, comparisons := cal.Run(ctx, "ACME", computed)
			Expect(out[ratios.PERatio].Float64).Should(BeNumerically("~", 30.0, 1e-9))
			Expect(comparisons).To(BeEmpty())
		})
	})

	Describe("coverage", func() {
		It("skips ratios no source reports", func() {
			computed[ratios.PERatio] = null.FloatFrom(30.0)
			computed[ratios.GrahamNumber] = null.FloatFrom(94.87)

			cal := calibrate.New([]providers.Source{
				&fakeSource{name: "a", vals: map[string]float64{ratios.PERatio: 20.0}},
			})

			out, comparisons := cal.Run(ctx, "ACME", computed)
			Expect(out[ratios.GrahamNumber].Float64).Should(BeNumerically("~", 94.87, 1e-9))
			Expect(comparisons).To(HaveLen(1))
		})

		It("skips ratios the engine could not derive", func() {
			// pe_ratio is null locally even though a source reports it
			cal := calibrate.New([]providers.Source{
				&fakeSource{name: "a", vals: map[string]float64{ratios.PERatio: 20.0}},
			})

			out, comparisons := cal.Run(ctx, "ACME", computed)
			Expect(out[ratios.PERatio].Valid).To(BeFalse())
			Expect(comparisons).To(BeEmpty())
		})

		It("reports the standard deviation across sources", func() {
			computed[ratios.PERatio] = null.FloatFrom(30.0)

			cal := calibrate.New([]providers.Source{
				&fakeSource{name: "a", vals: map[string]float64{ratios.PERatio: 18.0}},
				&fakeSource{name: "b", vals: map[string]float64{ratios.PERatio: 22.0}},
			})

			_, comparisons := cal.Run(ctx, "ACME", computed)
			Expect(comparisons[0].StdDev).Should(BeNumerically("~", 2.8284, 1e-4))
		})
	})
})
