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

package head

import (
	"context"
	"strings"

	"github.com/a-h/templ"
	"github.com/pkg/errors"
	"github.com/thediveo/spahead/route"
)

// Default is the head rendered for unmatched requests and for routes without
// a head of their own, so that every page gets at least some SEO tags.
var Default templ.Component = SEO{
	Title:       "SPA Head Demo",
	Description: "A demo of server-rendered head metadata for a client-rendered single page application.",
}

// Resolve returns the head markup of the specified leaf frame, computing it
// if necessary from the frame's bound parameters and the request context. A
// nil leaf or an absent head resolve to Default.
//
// Errors returned from head functions are passed on to the caller; there is
// no fallback to Default in this case.
func Resolve(ctx context.Context, leaf *route.Frame, rc route.Context) (string, error) {
	if leaf == nil || leaf.Descriptor == nil {
		return Render(ctx, Default)
	}
	spec := leaf.Descriptor.Handle.Head
	var el templ.Component
	switch spec.Kind() {
	case route.HeadNone:
		el = Default
	case route.HeadStatic:
		el = spec.Element()
	case route.HeadComputed:
		var err error
		el, err = spec.Func()(leaf.Params, rc)
		if err != nil {
			return "", errors.Wrapf(err, "cannot compute head for %q", leaf.Pathname)
		}
		if el == nil {
			return "", errors.Errorf("head for %q computed to nothing", leaf.Pathname)
		}
	default:
		return "", errors.Errorf("unsupported head kind %d", spec.Kind())
	}
	return Render(ctx, el)
}

// Render serializes the specified element into a string.
func Render(ctx context.Context, el templ.Component) (string, error) {
	var sb strings.Builder
	if err := el.Render(ctx, &sb); err != nil {
		return "", errors.Wrap(err, "cannot render head")
	}
	return sb.String(), nil
}
