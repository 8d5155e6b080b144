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

package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/thediveo/spahead/internal/config"
	"github.com/thediveo/spahead/internal/server"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

func run(args ...string) (string, error) {
	GinkgoHelper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(path, contents string) {
	GinkgoHelper()
	Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
	Expect(os.WriteFile(path, []byte(contents), 0644)).To(Succeed())
}

var _ = Describe("spahead command", func() {

	It("prints its version", func() {
		Expect(run("version", "--short")).To(Equal("dev\n"))
		Expect(run("version")).To(ContainSubstring("Go version:"))
	})

	It("rejects invalid log levels", func() {
		Expect(run("--log-level", "chatty", "version")).Error().To(
			MatchError(ContainSubstring("invalid log level")))
	})

	It("refuses to serve invalid configurations", func() {
		Expect(run("serve", "--mode", "staging")).Error().To(
			MatchError(ContainSubstring("mode must be")))
		Expect(run("serve", "--config", filepath.Join(GinkgoT().TempDir(), "missing.yaml"))).Error().To(
			MatchError(ContainSubstring("cannot read configuration")))
	})

	It("lists routes", func() {
		out := Successful(run("routes"))
		lines := strings.Split(strings.TrimSpace(out), "\n")
		Expect(lines).To(HaveLen(5))
		Expect(lines[0]).To(MatchRegexp(`^PATH\s+HEAD\s+COMPONENT\s+PREFETCH\s+GUARD$`))
		Expect(lines[1]).To(MatchRegexp(`^/\s+static\s+home-page\s+yes\s+no$`))
		Expect(lines[3]).To(MatchRegexp(`^/about/:name\s+computed\s+about-page\s+yes\s+no$`))
		Expect(lines[4]).To(MatchRegexp(`^/home\s+none\s+-\s+no\s+yes$`))

		Expect(run("routes", "--ranked")).To(HavePrefix("/about/:name\n"))
	})

	Context("prefetching", func() {

		var srv *httptest.Server

		BeforeEach(func() {
			cfg := config.New()
			cfg.Mode = config.Production
			cfg.OutDir = GinkgoT().TempDir()
			writeFile(filepath.Join(cfg.ClientDir(), "index.html"),
				"<html><head><!--app-head--></head><body></body></html>")
			writeFile(filepath.Join(cfg.ClientDir(), "assets", "about.js"), "// about")
			writeFile(cfg.ManifestURI(), `{"about-page":["/assets/about.js"],"home-page":["http://127.0.0.1:1/missing.js"]}`)
			s := Successful(server.New(context.Background(), cfg, server.WithRegistry(prometheus.NewRegistry())))
			srv = httptest.NewServer(s)
			DeferCleanup(srv.Close)
		})

		It("prefetches from a running server", func() {
			out := Successful(run("prefetch", srv.URL, "/about", "/about/Ada", "/about", "/nowhere"))
			Expect(out).To(ContainSubstring("ok      /about\n"))
			Expect(out).To(ContainSubstring("ok      /about/Ada\n"))
			Expect(out).To(ContainSubstring("prefetched 2 of 4 paths"))
		})

		It("reports failed prefetches", func() {
			out := Successful(run("prefetch", srv.URL, "/"))
			Expect(out).To(ContainSubstring("failed  /:"))
			Expect(out).To(ContainSubstring("prefetched 0 of 1 paths"))
		})

		It("writes prefetch metrics", func() {
			textfile := filepath.Join(GinkgoT().TempDir(), "spahead.prom")
			Expect(run("prefetch", "--metrics-textfile", textfile, srv.URL, "/", "/about")).To(
				ContainSubstring("prefetched 1 of 2 paths"))
			metrics := string(Successful(os.ReadFile(textfile)))
			Expect(metrics).To(ContainSubstring(`spahead_prefetch_total{outcome="ok"} 1`))
			Expect(metrics).To(ContainSubstring(`spahead_prefetch_total{outcome="error"} 1`))
		})

		It("uses local manifests", func() {
			manifest := filepath.Join(GinkgoT().TempDir(), "manifest.json")
			writeFile(manifest, `{"about-page":["/assets/about.js"]}`)
			Expect(run("prefetch", "--manifest", manifest, srv.URL, "/about")).To(
				ContainSubstring("prefetched 1 of 1 paths"))
		})

		It("rejects invalid base URLs", func() {
			Expect(run("prefetch", "localhost", "/about")).Error().To(
				MatchError(ContainSubstring("invalid base URL")))
		})

	})

})
