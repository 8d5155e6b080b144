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
Package app contains the demo SPA's route table: a home page and an about
page, the latter also available for a specific name.
*/
package app

import (
	"context"
	"io"
	"net/http"

	"github.com/a-h/templ"
	"github.com/thediveo/spahead/head"
	"github.com/thediveo/spahead/route"
)

// Component identifiers as keyed in the build's asset manifest.
const (
	HomePageID  = "home-page"
	AboutPageID = "about-page"
)

// Loader returns the prefetch function for the specified component
// identifier, or nil if the component cannot be prefetched.
type Loader func(componentID string) route.PrefetchFunc

// HomePage is the client-side home page element.
func HomePage() templ.Component {
	return placeholder("home")
}

// AboutPage is the client-side about page element.
func AboutPage() templ.Component {
	return placeholder("about")
}

// placeholder returns the client mount point for the named page.
func placeholder(name string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div data-page="`+templ.EscapeString(name)+`"></div>`)
		return err
	})
}

func aboutHead(params route.Params, _ route.Context) (templ.Component, error) {
	return head.SEO{
		Title:       "About " + params["name"],
		Description: "About page for " + params["name"],
	}, nil
}

// Routes returns the demo routes, wiring their prefetch capabilities using
// the specified loader, if any.
func Routes(load Loader) []route.Descriptor {
	prefetch := func(id string) route.PrefetchFunc {
		if load == nil {
			return nil
		}
		return load(id)
	}
	return []route.Descriptor{
		{
			Path: "",
			Children: []route.Descriptor{
				{
					Path:        "/",
					Element:     HomePage(),
					ComponentID: HomePageID,
					Handle: route.Handle{
						Head:              route.Static(head.SEO{Title: "Home", Description: "This is the home page"}),
						PrefetchComponent: prefetch(HomePageID),
					},
				},
				{
					Path:        "/about",
					Element:     AboutPage(),
					ComponentID: AboutPageID,
					Handle: route.Handle{
						Head:              route.Static(head.SEO{Title: "About", Description: "This is the about page"}),
						PrefetchComponent: prefetch(AboutPageID),
					},
				},
				{
					Path:        "/about/:name",
					Element:     AboutPage(),
					ComponentID: AboutPageID,
					Handle: route.Handle{
						Head:              route.Computed(aboutHead),
						PrefetchComponent: prefetch(AboutPageID),
					},
				},
				{
					Path: "/home",
					Guard: func(*http.Request, route.Params) error {
						return route.Redirect(http.StatusFound, "/")
					},
				},
			},
		},
	}
}

// Table returns the demo route table.
func Table(load Loader) *route.Table {
	return route.MustNewTable(Routes(load)...)
}
