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

package config

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		val, ok := vars[key]
		return val, ok
	}
}

var _ = Describe("configuration", func() {

	It("has sensible defaults", func() {
		cfg := New()
		Expect(cfg.Port).To(Equal(5173))
		Expect(cfg.Production()).To(BeFalse())
		Expect(cfg.Address()).To(Equal(":5173"))
		Expect(cfg.ClientDir()).To(Equal(filepath.Join("dist", "client")))
		Expect(cfg.ManifestURI()).To(Equal(filepath.Join("dist", "client", ".vite", "ssr-manifest.json")))
		Expect(cfg.Validate()).To(Succeed())
	})

	It("loads YAML files on top of the defaults", func() {
		path := filepath.Join(GinkgoT().TempDir(), "spahead.yaml")
		Expect(os.WriteFile(path, []byte(`
mode: production
host: 127.0.0.1
outDir: build
manifest: s3://assets/manifest.json
region: eu-central-1
`), 0644)).To(Succeed())
		cfg := Successful(LoadFile(path))
		Expect(cfg.Production()).To(BeTrue())
		Expect(cfg.Port).To(Equal(DefaultPort))
		Expect(cfg.Address()).To(Equal("127.0.0.1:5173"))
		Expect(cfg.ClientDir()).To(Equal(filepath.Join("build", "client")))
		Expect(cfg.ManifestURI()).To(Equal("s3://assets/manifest.json"))
		Expect(cfg.Region).To(Equal("eu-central-1"))
		Expect(cfg.LogLevel).To(Equal(DefaultLogLevel))
	})

	It("reports unreadable and malformed files", func() {
		Expect(LoadFile(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))).Error().
			To(MatchError(ContainSubstring("cannot read configuration")))
		path := filepath.Join(GinkgoT().TempDir(), "broken.yaml")
		Expect(os.WriteFile(path, []byte("port: [1, 2"), 0644)).To(Succeed())
		Expect(LoadFile(path)).Error().To(MatchError(ContainSubstring("cannot parse configuration")))
	})

	DescribeTable("applies the environment",
		func(vars map[string]string, mode string, port int) {
			cfg := New()
			Expect(cfg.ApplyEnv(env(vars))).To(Succeed())
			Expect(cfg.Mode).To(Equal(mode))
			Expect(cfg.Port).To(Equal(port))
		},
		Entry("nothing set", map[string]string{}, Development, DefaultPort),
		Entry("PORT", map[string]string{"PORT": "8080"}, Development, 8080),
		Entry("NODE_ENV production", map[string]string{"NODE_ENV": "production"}, Production, DefaultPort),
		Entry("NODE_ENV anything else", map[string]string{"NODE_ENV": "test"}, Development, DefaultPort),
		Entry("SPAHEAD_MODE wins", map[string]string{"NODE_ENV": "development", "SPAHEAD_MODE": "Production"},
			Production, DefaultPort),
	)

	It("rejects a malformed PORT", func() {
		Expect(New().ApplyEnv(env(map[string]string{"PORT": "http"}))).To(
			MatchError(ContainSubstring("invalid PORT")))
	})

	DescribeTable("validates",
		func(mutate func(*Config), expected string) {
			cfg := New()
			mutate(cfg)
			Expect(cfg.Validate()).To(MatchError(ContainSubstring(expected)))
		},
		Entry("mode", func(c *Config) { c.Mode = "staging" }, "mode must be"),
		Entry("port", func(c *Config) { c.Port = 70000 }, "port must be"),
		Entry("output directory", func(c *Config) { c.Mode = Production; c.OutDir = "" }, "output directory"),
	)

})
