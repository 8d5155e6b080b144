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

package prefetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/thediveo/spahead/app"
	"github.com/thediveo/spahead/preload"
	"github.com/thediveo/spahead/route"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("hover prefetching", func() {

	ctx := context.Background()

	var (
		calls   atomic.Int32
		fail    atomic.Bool
		release chan struct{}
		table   *route.Table
		set     *Set
	)

	BeforeEach(func() {
		calls.Store(0)
		fail.Store(false)
		release = nil
		table = app.Table(func(id string) route.PrefetchFunc {
			if id != app.AboutPageID {
				return nil
			}
			return func(context.Context) error {
				calls.Add(1)
				if release != nil {
					<-release
				}
				if fail.Load() {
					return errors.New("chunk load failed")
				}
				return nil
			}
		})
		set = NewSet()
	})

	It("prefetches a path only until it succeeded", func() {
		c := NewController(table, set)
		c.Hover(ctx, "/about/Ada")
		c.Wait()
		Expect(calls.Load()).To(Equal(int32(1)))
		Expect(set.Has("/about/Ada")).To(BeTrue())

		c.Hover(ctx, "/about/Ada")
		c.Wait()
		Expect(calls.Load()).To(Equal(int32(1)))

		c.Hover(ctx, "/about/Grace")
		c.Wait()
		Expect(calls.Load()).To(Equal(int32(2)))
		Expect(set.Paths()).To(Equal([]string{"/about/Ada", "/about/Grace"}))
	})

	It("records into a new set when none is given", func() {
		c := NewController(table, nil)
		Expect(func() { c.Hover(ctx, "/about/Ada") }).NotTo(Panic())
		c.Wait()
		Expect(c.Set().Paths()).To(Equal([]string{"/about/Ada"}))
		Expect(set.Paths()).To(BeEmpty())
	})

	It("tolerates duplicate prefetches while in flight", func() {
		release = make(chan struct{})
		c := NewController(table, set)
		c.Hover(ctx, "/about")
		c.Hover(ctx, "/about")
		close(release)
		c.Wait()
		Expect(calls.Load()).To(And(
			BeNumerically(">=", 1), BeNumerically("<=", 2)))
		Expect(set.Has("/about")).To(BeTrue())

		c.Hover(ctx, "/about")
		c.Wait()
		Expect(calls.Load()).To(BeNumerically("<=", 2))
	})

	It("retries failed prefetches on the next hover", func() {
		var mu sync.Mutex
		var outcomes []error
		c := NewController(table, set, WithObserver(func(path string, err error) {
			mu.Lock()
			defer mu.Unlock()
			outcomes = append(outcomes, err)
		}))
		fail.Store(true)
		c.Hover(ctx, "/about")
		c.Wait()
		Expect(set.Has("/about")).To(BeFalse())

		fail.Store(false)
		c.Hover(ctx, "/about")
		c.Wait()
		Expect(calls.Load()).To(Equal(int32(2)))
		Expect(set.Has("/about")).To(BeTrue())
		Expect(outcomes).To(HaveLen(2))
		Expect(outcomes[0]).To(HaveOccurred())
		Expect(outcomes[1]).NotTo(HaveOccurred())
	})

	DescribeTable("ignores targets without prefetchable routes",
		func(target any) {
			c := NewController(table, set)
			Expect(func() { c.Hover(ctx, target) }).NotTo(Panic())
			c.Wait()
			Expect(calls.Load()).To(BeZero())
			Expect(set.Paths()).To(BeEmpty())
		},
		Entry("unmatched path", "/nowhere"),
		Entry("route without prefetch", "/"),
		Entry("malformed target", 42),
		Entry("nil target", nil),
		Entry("nil location", (*route.Location)(nil)),
	)

	DescribeTable("normalizes link targets",
		func(target any, expected string, ok bool) {
			path, isPath := Path(target)
			Expect(isPath).To(Equal(ok))
			Expect(path).To(Equal(expected))
		},
		Entry("string", "/about", "/about", true),
		Entry("location", route.Location{Pathname: "/about", Search: "?x"}, "/about", true),
		Entry("location pointer", &route.Location{Pathname: "/about"}, "/about", true),
		Entry("URL", *Successful(url.Parse("/about/Ada?x=1")), "/about/Ada", true),
		Entry("URL pointer", Successful(url.Parse("http://a.b/about")), "/about", true),
		Entry("URL with escaped slash", *Successful(url.Parse("/about/a%2Fb")), "/about/a%2Fb", true),
		Entry("nil URL pointer", (*url.URL)(nil), "", false),
		Entry("integer", 42, "", false),
	)

	Context("asset loader", func() {

		var (
			srv    *httptest.Server
			hits   []string
			hitsMu sync.Mutex
		)

		BeforeEach(func() {
			hits = nil
			srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hitsMu.Lock()
				hits = append(hits, r.URL.Path)
				hitsMu.Unlock()
				if r.URL.Path == "/assets/missing.js" {
					http.NotFound(w, r)
					return
				}
				_, _ = w.Write([]byte("// asset"))
			}))
			DeferCleanup(srv.Close)
		})

		It("fetches all assets of a component in order", func() {
			m := preload.NewManifest(map[string][]string{
				app.AboutPageID: {"/assets/about.js", "/assets/about.css"},
			})
			base := Successful(url.Parse(srv.URL))
			load := AssetLoader(srv.Client(), base, m, app.AboutPageID)
			Expect(load(ctx)).To(Succeed())
			Expect(hits).To(Equal([]string{"/assets/about.js", "/assets/about.css"}))

			Expect(AssetLoader(nil, base, m, "unknown")(ctx)).To(Succeed())
			Expect(AssetLoader(nil, base, nil, app.AboutPageID)(ctx)).To(Succeed())
		})

		It("fails on unsuccessful asset fetches", func() {
			m := preload.NewManifest(map[string][]string{
				app.AboutPageID: {"/assets/missing.js", "/assets/about.css"},
			})
			load := AssetLoader(srv.Client(), Successful(url.Parse(srv.URL)), m, app.AboutPageID)
			Expect(load(ctx)).To(MatchError(ContainSubstring("404")))
			Expect(hits).To(Equal([]string{"/assets/missing.js"}))
		})

		It("drives a controller", func() {
			m := preload.NewManifest(map[string][]string{
				app.AboutPageID: {"/assets/about.js"},
			})
			base := Successful(url.Parse(srv.URL))
			t := app.Table(func(id string) route.PrefetchFunc {
				return AssetLoader(srv.Client(), base, m, id)
			})
			c := NewController(t, set)
			c.Hover(ctx, "/about/Ada")
			c.Wait()
			Expect(set.Has("/about/Ada")).To(BeTrue())
			Expect(hits).To(Equal([]string{"/assets/about.js"}))
		})

	})

})
