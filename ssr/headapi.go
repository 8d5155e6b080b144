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
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/michaelquigley/pfxlog"
	"github.com/thediveo/spahead/head"
	"github.com/thediveo/spahead/route"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackContentType is the content type of msgpack-encoded head snapshots.
const MsgpackContentType = "application/x-msgpack"

// HeadPayload is what the head API returns for a client-side navigation.
type HeadPayload struct {
	Path     string         `json:"path" msgpack:"path"`
	Location route.Location `json:"location" msgpack:"location"`
	Head     head.Snapshot  `json:"head" msgpack:"head"`
}

// HeadHandler serves the resolved head of the route at the "path" query
// parameter, so that clients can reconcile their document head after
// navigating without a full page load. Responses are JSON-encoded, unless
// the client accepts msgpack.
type HeadHandler struct {
	renderer *Renderer
}

// NewHeadHandler returns a new HeadHandler using the specified renderer.
func NewHeadHandler(renderer *Renderer) *HeadHandler {
	return &HeadHandler{renderer: renderer}
}

// ServeHTTP implements http.Handler.
func (h *HeadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := pfxlog.Logger()
	target := r.URL.Query().Get("path")
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		http.Error(w, "400 path must be an absolute path", http.StatusBadRequest)
		return
	}
	ref, err := url.Parse(target)
	if err != nil {
		http.Error(w, "400 malformed path", http.StatusBadRequest)
		return
	}
	navreq := r.Clone(r.Context())
	navreq.URL = r.URL.ResolveReference(ref)
	navreq.RequestURI = navreq.URL.RequestURI()

	result, err := h.renderer.Render(navreq, nil)
	if err != nil {
		if resp, ok := route.AsResponse(err); ok {
			resp.Write(w)
			return
		}
		log.WithField("path", target).Errorf("cannot render head: %v", err)
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	snap, err := head.Parse(result.HeadHTML)
	if err != nil {
		log.WithField("path", target).Errorf("cannot parse head: %v", err)
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	payload := HeadPayload{
		Path:     target,
		Location: result.Location,
		Head:     snap,
	}

	w.Header().Set("Cache-Control", "no-cache")
	if strings.Contains(r.Header.Get("Accept"), MsgpackContentType) {
		data, err := msgpack.Marshal(&payload)
		if err != nil {
			log.Errorf("cannot encode head payload: %v", err)
			http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", MsgpackContentType)
		_, _ = w.Write(data)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(&payload)
}
