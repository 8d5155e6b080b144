// Copyright 2024 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package metrics instruments head rendering, prefetching, and HTTP requests
with Prometheus metrics.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thediveo/spahead"
	"github.com/thediveo/spahead/preload"
	"github.com/thediveo/spahead/prefetch"
	"github.com/thediveo/spahead/route"
	"github.com/thediveo/spahead/ssr"
)

// Render and prefetch outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeResponse = "response" // a route short-circuited with its own response.
	OutcomeError    = "error"
)

// Config configures the metrics.
type Config struct {
	// Namespace is the metrics namespace (default: "spahead").
	Namespace string

	// Buckets are the histogram buckets for render durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registerer registers the collectors.
	// Default: prometheus.DefaultRegisterer
	Registerer prometheus.Registerer

	// Gatherer gathers the metrics to expose.
	// Default: prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer
}

// Option configures the metrics.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry registers with and gathers from the specified registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registerer = registry
		c.Gatherer = registry
	}
}

// Metrics holds the Prometheus collectors.
type Metrics struct {
	gatherer       prometheus.Gatherer
	renders        *prometheus.CounterVec
	renderDuration prometheus.Histogram
	prefetches     *prometheus.CounterVec
	requests       *prometheus.CounterVec
}

// New creates and registers the collectors.
func New(opts ...Option) *Metrics {
	config := Config{
		Namespace:  "spahead",
		Buckets:    prometheus.DefBuckets,
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registerer)
	return &Metrics{
		gatherer: config.Gatherer,
		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "renders_total",
			Help:      "Total number of head renders by outcome",
		}, []string{"outcome"}),
		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "render_duration_seconds",
			Help:      "Head render duration in seconds",
			Buckets:   config.Buckets,
		}),
		prefetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "prefetch_total",
			Help:      "Total number of route prefetches by outcome",
		}, []string{"outcome"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by status code",
		}, []string{"code"}),
	}
}

// Render wraps the specified render function, counting its outcomes and
// observing its durations.
func (m *Metrics) Render(render spahead.RenderFunc) spahead.RenderFunc {
	return func(r *http.Request, manifest *preload.Manifest) (*ssr.Result, error) {
		start := time.Now()
		result, err := render(r, manifest)
		m.renderDuration.Observe(time.Since(start).Seconds())
		switch _, isResponse := route.AsResponse(err); {
		case err == nil:
			m.renders.WithLabelValues(OutcomeOK).Inc()
		case isResponse:
			m.renders.WithLabelValues(OutcomeResponse).Inc()
		default:
			m.renders.WithLabelValues(OutcomeError).Inc()
		}
		return result, err
	}
}

// Prefetched returns an observer counting prefetch outcomes, chaining to
// next unless nil.
func (m *Metrics) Prefetched(next prefetch.Observer) prefetch.Observer {
	return func(path string, err error) {
		if err != nil {
			m.prefetches.WithLabelValues(OutcomeError).Inc()
		} else {
			m.prefetches.WithLabelValues(OutcomeOK).Inc()
		}
		if next != nil {
			next(path, err)
		}
	}
}

// Middleware counts the requests passing through by their response status
// codes.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(strconv.Itoa(status)).Inc()
	})
}

// WriteToTextfile writes the gathered metrics in the text exposition format
// to the specified file, replacing it atomically.
func (m *Metrics) WriteToTextfile(filename string) error {
	return errors.Wrap(prometheus.WriteToTextfile(filename, m.gatherer),
		"cannot write metrics textfile")
}

// Handler returns the handler exposing the gathered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
