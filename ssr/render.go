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

package ssr

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/thediveo/spahead/head"
	"github.com/thediveo/spahead/preload"
	"github.com/thediveo/spahead/route"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the OpenTelemetry tracer used for render spans.
const TracerName = "github.com/thediveo/spahead/ssr"

// Result is the outcome of rendering a request: the head markup and the
// preload links to splice into the SPA's index document.
type Result struct {
	HeadHTML     string
	PreloadLinks string
	Match        *route.Match   // nil if no route matched.
	Location     route.Location // location the head was resolved for.
}

// Renderer renders the heads of requests against a fixed route table.
type Renderer struct {
	table  *route.Table
	tracer trace.Tracer
}

// NewRenderer returns a Renderer for the specified route table.
func NewRenderer(table *route.Table) *Renderer {
	return &Renderer{
		table:  table,
		tracer: otel.Tracer(TracerName),
	}
}

// Table returns the route table of this renderer.
func (r *Renderer) Table() *route.Table { return r.table }

// Render matches the request against the route table and returns the head
// markup of the leaf route together with its preload links. Preload links
// are only generated when a manifest is passed in, that is, in production.
//
// When a guard of a matched route returns a *route.Response, Render returns
// this response unchanged as its error; use route.AsResponse to tell it
// apart from real failures. Render never returns partial results.
func (r *Renderer) Render(req *http.Request, manifest *preload.Manifest) (*Result, error) {
	ctx, span := r.tracer.Start(req.Context(), "ssr.Render",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("http.target", req.URL.EscapedPath())))
	defer span.End()

	// Params get unescaped by the matcher, so it must see the escaped path.
	match := r.table.Match(req.URL.EscapedPath())
	location := route.LocationFromURL(req.URL)
	if match != nil {
		location.Pathname = match.Location.Pathname
		match.Location = location
		for _, frame := range match.Frames {
			guard := frame.Descriptor.Guard
			if guard == nil {
				continue
			}
			if err := guard(req.WithContext(ctx), frame.Params); err != nil {
				if resp, ok := route.AsResponse(err); ok {
					span.SetAttributes(attribute.Int("ssr.response.status", resp.Status))
					return nil, resp
				}
				span.RecordError(err)
				span.SetStatus(codes.Error, "route guard failed")
				return nil, err
			}
		}
	}

	leaf := match.Leaf()
	if leaf != nil {
		span.SetAttributes(attribute.String("ssr.route", leaf.Pathname))
	}
	headHTML, err := head.Resolve(ctx, leaf, route.Context{
		URL:      AbsoluteURL(req),
		Location: location,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "head resolution failed")
		return nil, err
	}

	result := &Result{HeadHTML: headHTML, Match: match, Location: location}
	if manifest != nil && leaf != nil {
		result.PreloadLinks = preload.Links(manifest, leaf.Descriptor.ComponentID)
	}
	return result, nil
}

// AbsoluteURL returns the absolute URL of the specified request, taking the
// scheme from a proxy's X-Forwarded-Proto header or otherwise from whether
// the request came in over TLS.
func AbsoluteURL(req *http.Request) *url.URL {
	u := *req.URL
	if u.Scheme == "" {
		u.Scheme = "http"
		if req.TLS != nil {
			u.Scheme = "https"
		}
		if proto := req.Header.Get("X-Forwarded-Proto"); proto != "" {
			u.Scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
		}
	}
	if u.Host == "" {
		u.Host = req.Host
	}
	if u.Host == "" {
		u.Host = "localhost"
	}
	u.User = nil
	return &u
}
