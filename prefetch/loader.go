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

package prefetch

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/thediveo/spahead/preload"
	"github.com/thediveo/spahead/route"
)

// AssetLoader returns a prefetch function fetching all manifest assets of
// the specified component identifier from the server at base, so that they
// end up in the HTTP caches between client and server. Components without
// assets prefetch trivially.
func AssetLoader(client *http.Client, base *url.URL, manifest *preload.Manifest, id string) route.PrefetchFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) error {
		for _, asset := range manifest.Assets(id) {
			ref, err := url.Parse(asset)
			if err != nil {
				return errors.Wrapf(err, "invalid asset path %q", asset)
			}
			assetURL := base.ResolveReference(ref)
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL.String(), nil)
			if err != nil {
				return errors.Wrapf(err, "cannot prefetch %s", assetURL)
			}
			resp, err := client.Do(req)
			if err != nil {
				return errors.Wrapf(err, "cannot prefetch %s", assetURL)
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				return errors.Errorf("cannot prefetch %s: %s", assetURL, resp.Status)
			}
		}
		return nil
	}
}
