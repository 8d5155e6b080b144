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
Package server assembles the HTTP server: the SPA handler rendering heads, the
head API for client-side navigation, metrics, and in development the reload
websocket.
*/
package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/thediveo/spahead"
	"github.com/thediveo/spahead/app"
	"github.com/thediveo/spahead/internal/compress"
	"github.com/thediveo/spahead/internal/config"
	"github.com/thediveo/spahead/internal/devreload"
	"github.com/thediveo/spahead/internal/metrics"
	"github.com/thediveo/spahead/preload"
	"github.com/thediveo/spahead/route"
	"github.com/thediveo/spahead/ssr"
)

// HeadPath is the endpoint of the head API.
const HeadPath = "/__head"

// MetricsPath is the endpoint exposing the metrics.
const MetricsPath = "/metrics"

// Index is the name of the index document.
const Index = "index.html"

// ShutdownTimeout limits graceful shutdowns.
const ShutdownTimeout = 10 * time.Second

// Server serves the SPA with its server-rendered heads.
type Server struct {
	config   *config.Config
	table    *route.Table
	manifest *preload.Manifest
	metrics  *metrics.Metrics
	reload   *devreload.Broadcaster // development only.
	router   chi.Router
	http     *http.Server
}

type options struct {
	table    *route.Table
	registry *prometheus.Registry
	s3       preload.ObjectGetter
}

// Option configures a Server.
type Option func(*options)

// WithTable serves the specified route table instead of the demo routes.
func WithTable(table *route.Table) Option {
	return func(o *options) {
		o.table = table
	}
}

// WithRegistry registers the metrics with the specified registry instead of
// the default one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// WithS3 fetches S3-hosted manifests using the specified client.
func WithS3(api preload.ObjectGetter) Option {
	return func(o *options) {
		o.s3 = api
	}
}

// New returns a new Server for the specified configuration. In production
// mode it loads the asset manifest, failing if it cannot be loaded.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.table == nil {
		o.table = app.Table(nil)
	}
	s := &Server{
		config: cfg,
		table:  o.table,
	}

	root := cfg.Root
	if cfg.Production() {
		root = cfg.ClientDir()
		manifest, err := loadManifest(ctx, cfg, o.s3)
		if err != nil {
			return nil, err
		}
		s.manifest = manifest
		pfxlog.Logger().Infof("loaded asset manifest with %d components", manifest.Len())
	}
	if _, err := os.Stat(filepath.Join(root, Index)); err != nil {
		return nil, errors.Wrapf(err, "missing index document in %s", root)
	}

	renderer := ssr.NewRenderer(s.table)
	render := spahead.RenderFunc(renderer.Render)
	if cfg.Metrics {
		var mopts []metrics.Option
		if o.registry != nil {
			mopts = append(mopts, metrics.WithRegistry(o.registry))
		}
		s.metrics = metrics.New(mopts...)
		render = s.metrics.Render(render)
	}
	spaopts := []spahead.SPAHandlerOption{
		spahead.WithRenderer(render),
		spahead.WithManifest(s.manifest),
	}
	if !cfg.Production() {
		s.reload = devreload.NewBroadcaster()
		spaopts = append(spaopts, spahead.WithIndexRewriter(devreload.Inject))
	}
	spa := spahead.NewSPAHandler(os.DirFS(root), Index, spaopts...)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	if s.reload != nil {
		r.Handle(devreload.Path, s.reload)
	}
	r.Group(func(r chi.Router) {
		r.Use(compress.Middleware(compress.DefaultLevel))
		if s.metrics != nil {
			r.Handle(MetricsPath, s.metrics.Handler())
		}
		r.Method(http.MethodGet, HeadPath, ssr.NewHeadHandler(renderer))
		r.Handle("/*", spa)
	})
	s.router = r
	s.http = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          log.New(pfxlog.Logger().Writer(), "", 0),
	}
	return s, nil
}

// loadManifest loads the asset manifest from a file or S3. S3 clients
// default to anonymous access, as manifests are public anyway.
func loadManifest(ctx context.Context, cfg *config.Config, api preload.ObjectGetter) (*preload.Manifest, error) {
	src, err := preload.ParseURI(cfg.ManifestURI())
	if err != nil {
		return nil, err
	}
	if !src.IsS3() {
		return preload.Load(src.Path)
	}
	if api == nil {
		api = s3.New(s3.Options{
			Region:      cfg.Region,
			Credentials: aws.AnonymousCredentials{},
		})
	}
	return preload.LoadS3(ctx, api, src.Bucket, src.Key)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Table returns the served route table.
func (s *Server) Table() *route.Table { return s.table }

// Manifest returns the asset manifest; nil in development.
func (s *Server) Manifest() *preload.Manifest { return s.manifest }

// Serve serves on the specified listener until shut down.
func (s *Server) Serve(l net.Listener) error {
	logger := pfxlog.Logger().WithField("mode", s.config.Mode)
	logger.Infof("server running at http://%s", l.Addr())
	if s.config.Production() {
		logger.Infof("serving from '%s'", s.config.OutDir)
	}
	if err := s.http.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server failed")
	}
	return nil
}

// ListenAndServe listens on the configured address and serves until shut
// down.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return errors.Wrapf(err, "cannot listen on %s", s.config.Address())
	}
	return s.Serve(l)
}

// Watch reloads the connected browsers whenever files below the project
// root change, until ctx is done. It returns immediately in production.
func (s *Server) Watch(ctx context.Context) error {
	if s.reload == nil {
		return nil
	}
	return devreload.NewWatcher(s.config.Root).Run(ctx, s.reload.Changed)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()
	if s.reload != nil {
		s.reload.Close()
	}
	if err := s.http.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutdown failed")
	}
	pfxlog.Logger().Info("server shutdown complete")
	return nil
}

// RequestLogger logs each request with its status and duration.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		pfxlog.Logger().
			WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("status", ww.Status()).
			WithField("duration", time.Since(start)).
			WithField("request", middleware.GetReqID(r.Context())).
			Debugf("served")
	})
}
