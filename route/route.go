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

package route

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
)

// Params maps the names of bound path parameters to their (unescaped)
// values. A trailing splat segment is bound under the name "*".
type Params map[string]string

// Location describes the client-side location a match was made for.
type Location struct {
	Pathname string `json:"pathname" msgpack:"pathname"`
	Search   string `json:"search,omitempty" msgpack:"search,omitempty"`
	Hash     string `json:"hash,omitempty" msgpack:"hash,omitempty"`
}

// LocationFromURL returns the Location corresponding with the specified URL.
// Like a browser's location, its pathname stays escaped.
func LocationFromURL(u *url.URL) Location {
	loc := Location{Pathname: u.EscapedPath()}
	if u.RawQuery != "" {
		loc.Search = "?" + u.RawQuery
	}
	if u.Fragment != "" {
		loc.Hash = "#" + u.Fragment
	}
	return loc
}

// Context is handed to computed head functions in addition to the bound
// path parameters.
type Context struct {
	URL      *url.URL // absolute URL of the request.
	Location Location // location as resolved by the match.
}

// HeadFunc computes the head element of a route from its bound parameters
// and request context. HeadFuncs must be pure and must not block on I/O.
type HeadFunc func(params Params, ctx Context) (templ.Component, error)

// HeadKind tells which variant of a HeadSpec is populated.
type HeadKind int

const (
	HeadNone     HeadKind = iota // no head; resolvers fall back to a default.
	HeadStatic                   // a fixed element.
	HeadComputed                 // a HeadFunc.
)

func (k HeadKind) String() string {
	switch k {
	case HeadNone:
		return "none"
	case HeadStatic:
		return "static"
	case HeadComputed:
		return "computed"
	}
	return "HeadKind(" + strconv.Itoa(int(k)) + ")"
}

// HeadSpec is the head payload of a route handle: either absent, a static
// element, or a function computing the element per request. Use Static or
// Computed to create a populated HeadSpec; the zero value is "absent".
type HeadSpec struct {
	kind     HeadKind
	element  templ.Component
	computed HeadFunc
}

// Static returns a HeadSpec always rendering the specified element. A nil
// element results in an absent HeadSpec.
func Static(el templ.Component) HeadSpec {
	if el == nil {
		return HeadSpec{}
	}
	return HeadSpec{kind: HeadStatic, element: el}
}

// Computed returns a HeadSpec rendering the element returned by fn. A nil fn
// results in an absent HeadSpec.
func Computed(fn HeadFunc) HeadSpec {
	if fn == nil {
		return HeadSpec{}
	}
	return HeadSpec{kind: HeadComputed, computed: fn}
}

// Kind returns which variant is populated.
func (h HeadSpec) Kind() HeadKind { return h.kind }

// Element returns the static element, or nil if h isn't a static HeadSpec.
func (h HeadSpec) Element() templ.Component { return h.element }

// Func returns the head function, or nil if h isn't a computed HeadSpec.
func (h HeadSpec) Func() HeadFunc { return h.computed }

// PrefetchFunc warms whatever a route needs before the user navigates to it.
type PrefetchFunc func(ctx context.Context) error

// Handle carries the per-route head and prefetch capabilities.
type Handle struct {
	Head              HeadSpec
	PrefetchComponent PrefetchFunc
}

// GuardFunc gets called on the server for every matched route, from the
// root to the leaf, before any head is resolved. Returning a *Response
// short-circuits rendering; any other error fails the request.
type GuardFunc func(r *http.Request, params Params) error

// Descriptor describes a single route of a route table.
type Descriptor struct {
	// Path pattern, relative to the parent route unless starting with "/".
	// An empty path makes this a layout route that never matches on its own.
	Path string
	// Element is the client-side element; it is never rendered server-side.
	Element templ.Component
	// ComponentID keys the route's assets in the asset manifest.
	ComponentID string
	Handle      Handle
	Guard       GuardFunc
	Children    []Descriptor
}
