// Copyright 2024 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy
// of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/thediveo/spahead/app"
	"github.com/thediveo/spahead/ssr"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func counterValue(c prometheus.Counter) float64 {
	GinkgoHelper()
	var m dto.Metric
	Expect(c.Write(&m)).To(Succeed())
	return m.GetCounter().GetValue()
}

func histogramCount(h prometheus.Histogram) uint64 {
	GinkgoHelper()
	var m dto.Metric
	Expect(h.Write(&m)).To(Succeed())
	return m.GetHistogram().GetSampleCount()
}

var _ = Describe("metrics", func() {

	var m *Metrics

	BeforeEach(func() {
		m = New(WithRegistry(prometheus.NewRegistry()))
	})

	It("counts render outcomes", func() {
		render := m.Render(ssr.NewRenderer(app.Table(nil)).Render)
		for _, path := range []string{"/", "/about/Ada", "/home"} {
			_, _ = render(httptest.NewRequest(http.MethodGet, path, nil), nil)
		}
		Expect(counterValue(m.renders.WithLabelValues(OutcomeOK))).To(Equal(2.0))
		Expect(counterValue(m.renders.WithLabelValues(OutcomeResponse))).To(Equal(1.0))
		Expect(counterValue(m.renders.WithLabelValues(OutcomeError))).To(BeZero())
		Expect(histogramCount(m.renderDuration)).To(Equal(uint64(3)))
	})

	It("counts prefetch outcomes and chains observers", func() {
		var seen []string
		observe := m.Prefetched(func(path string, err error) { seen = append(seen, path) })
		observe("/about", nil)
		observe("/about/Ada", errors.New("gone"))
		Expect(counterValue(m.prefetches.WithLabelValues(OutcomeOK))).To(Equal(1.0))
		Expect(counterValue(m.prefetches.WithLabelValues(OutcomeError))).To(Equal(1.0))
		Expect(seen).To(Equal([]string{"/about", "/about/Ada"}))
		Expect(func() { m.Prefetched(nil)("/", nil) }).NotTo(Panic())
	})

	It("counts requests by status code and exposes the metrics", func() {
		h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/missing" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte("ok"))
		}))
		for _, path := range []string{"/", "/missing", "/"} {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
		}
		Expect(counterValue(m.requests.WithLabelValues("200"))).To(Equal(2.0))
		Expect(counterValue(m.requests.WithLabelValues("404"))).To(Equal(1.0))

		w := httptest.NewRecorder()
		m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`spahead_http_requests_total{code="404"} 1`))
	})

	It("writes textfiles", func() {
		m.Prefetched(nil)("/about", nil)
		textfile := filepath.Join(GinkgoT().TempDir(), "spahead.prom")
		Expect(m.WriteToTextfile(textfile)).To(Succeed())
		Expect(os.ReadFile(textfile)).To(
			ContainSubstring(`spahead_prefetch_total{outcome="ok"} 1`))

		Expect(m.WriteToTextfile(filepath.Join(textfile, "nope.prom"))).To(
			MatchError(ContainSubstring("cannot write metrics textfile")))
	})

	It("uses the configured namespace and buckets", func() {
		registry := prometheus.NewRegistry()
		m := New(WithRegistry(registry), WithNamespace("heads"), WithBuckets([]float64{0.5, 1}))
		render := m.Render(ssr.NewRenderer(app.Table(nil)).Render)
		_, _ = render(httptest.NewRequest(http.MethodGet, "/", nil), nil)

		families, err := registry.Gather()
		Expect(err).NotTo(HaveOccurred())
		var names []string
		for _, family := range families {
			names = append(names, family.GetName())
			if family.GetName() == "heads_render_duration_seconds" {
				buckets := family.GetMetric()[0].GetHistogram().GetBucket()
				Expect(buckets).To(HaveLen(2))
				Expect(buckets[0].GetUpperBound()).To(Equal(0.5))
				Expect(buckets[1].GetUpperBound()).To(Equal(1.0))
			}
		}
		Expect(names).To(ContainElements("heads_renders_total", "heads_render_duration_seconds"))
		Expect(names).NotTo(ContainElement(HavePrefix("spahead_")))
	})

})
