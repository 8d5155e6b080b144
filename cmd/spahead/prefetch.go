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

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/thediveo/spahead/app"
	"github.com/thediveo/spahead/internal/metrics"
	"github.com/thediveo/spahead/prefetch"
	"github.com/thediveo/spahead/preload"
	"github.com/thediveo/spahead/route"
)

// manifestPath is where the client build's asset manifest gets served from.
const manifestPath = "/.vite/ssr-manifest.json"

func prefetchCmd() *cobra.Command {
	var (
		manifestURI string
		region      string
		textfile    string
		timeout     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "prefetch <base-url> <path>...",
		Short: "Prefetch the code of routes from a running server",
		Long: `Prefetch the code of the routes for the specified paths from a running
server, as a browser does when hovering over links: the assets of each
matching route's component get fetched, so that they end up in the caches
between client and server. Each path gets prefetched at most once.

The asset manifest is fetched from the server unless specified otherwise.
The prefetch outcomes can be written as Prometheus metrics to a textfile,
such as for the node exporter's textfile collector.

Examples:
  spahead prefetch http://localhost:5173 /about /about/Ada
  spahead prefetch --manifest=dist/client/.vite/ssr-manifest.json http://localhost:5173 /about
  spahead prefetch --metrics-textfile=/var/lib/node_exporter/spahead.prom http://localhost:5173 /about`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			base, err := url.Parse(args[0])
			if err != nil || base.Scheme == "" || base.Host == "" {
				return errors.Errorf("invalid base URL %q", args[0])
			}
			client := &http.Client{}
			manifest, err := fetchManifest(ctx, client, base, manifestURI, region)
			if err != nil {
				return err
			}
			m := metrics.New(metrics.WithRegistry(prometheus.NewRegistry()))
			set, err := prefetchPaths(ctx, cmd.OutOrStdout(), m, client, base, manifest, args[1:])
			if err != nil {
				return err
			}
			if textfile != "" {
				if err := m.WriteToTextfile(textfile); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "prefetched %d of %d paths\n", len(set.Paths()), len(args)-1)
			return nil
		},
	}
	cmd.Flags().StringVar(&manifestURI, "manifest", "", "asset manifest file or s3://bucket/key (default from server)")
	cmd.Flags().StringVar(&region, "region", "", "AWS region of S3-hosted manifests")
	cmd.Flags().StringVar(&textfile, "metrics-textfile", "", "write prefetch metrics to this Prometheus textfile")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")
	return cmd
}

// prefetchPaths hovers over all paths, returning the set of successfully
// prefetched paths. Failed prefetches are reported, but not an error.
func prefetchPaths(ctx context.Context, out io.Writer, m *metrics.Metrics, client *http.Client, base *url.URL,
	manifest *preload.Manifest, paths []string,
) (*prefetch.Set, error) {
	table := app.Table(func(id string) route.PrefetchFunc {
		return prefetch.AssetLoader(client, base, manifest, id)
	})
	var mu sync.Mutex
	set := prefetch.NewSet()
	c := prefetch.NewController(table, set, prefetch.WithObserver(m.Prefetched(func(path string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			fmt.Fprintf(out, "failed  %s: %v\n", path, err)
			return
		}
		fmt.Fprintf(out, "ok      %s\n", path)
	})))
	for _, path := range paths {
		c.Hover(ctx, path)
	}
	c.Wait()
	return set, ctx.Err()
}

// fetchManifest loads the manifest from the specified location, or from the
// server if none.
func fetchManifest(ctx context.Context, client *http.Client, base *url.URL, uri, region string) (*preload.Manifest, error) {
	if uri != "" {
		src, err := preload.ParseURI(uri)
		if err != nil {
			return nil, err
		}
		if !src.IsS3() {
			return preload.Load(src.Path)
		}
		api := s3.New(s3.Options{Region: region, Credentials: aws.AnonymousCredentials{}})
		return preload.LoadS3(ctx, api, src.Bucket, src.Key)
	}
	manifestURL := base.ResolveReference(&url.URL{Path: manifestPath})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "cannot fetch asset manifest")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "cannot fetch asset manifest")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("cannot fetch asset manifest %s: %s", manifestURL, resp.Status)
	}
	return preload.Decode(resp.Body)
}
