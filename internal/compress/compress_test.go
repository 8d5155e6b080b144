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

package compress

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/andybalholm/brotli"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var shell = "<!DOCTYPE html><html><head><title>Home</title></head><body>" +
	strings.Repeat(`<div id="app"></div>`, 100) + "</body></html>"

var _ = Describe("compression", func() {

	h := Middleware(DefaultLevel)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, shell)
	}))

	serve := func(acceptEncoding string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if acceptEncoding != "" {
			r.Header.Set("Accept-Encoding", acceptEncoding)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	It("prefers brotli", func() {
		w := serve("gzip, deflate, br")
		Expect(w.Header().Get("Content-Encoding")).To(Equal("br"))
		Expect(w.Header().Get("Content-Length")).To(BeEmpty())
		Expect(string(Successful(io.ReadAll(brotli.NewReader(w.Body))))).To(Equal(shell))
	})

	It("falls back to gzip", func() {
		w := serve("gzip")
		Expect(w.Header().Get("Content-Encoding")).To(Equal("gzip"))
		Expect(string(Successful(io.ReadAll(Successful(gzip.NewReader(w.Body)))))).To(Equal(shell))
	})

	It("leaves responses alone for clients not accepting compression", func() {
		w := serve("")
		Expect(w.Header().Get("Content-Encoding")).To(BeEmpty())
		Expect(w.Body.String()).To(Equal(shell))
	})

})
