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
	"path"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/thediveo/spahead/app"
	"github.com/thediveo/spahead/route"
)

func routesCmd() *cobra.Command {
	var ranked bool
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the served routes",
		Long: `List the served routes with their heads, components, prefetching and
guards, in declaration order; or only their patterns in matching order.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			table := app.Table(func(string) route.PrefetchFunc {
				return func(ctx context.Context) error { return nil }
			})
			if ranked {
				for _, pattern := range table.Patterns() {
					fmt.Fprintln(cmd.OutOrStdout(), pattern)
				}
				return
			}
			printRoutes(cmd.OutOrStdout(), table.Routes())
		},
	}
	cmd.Flags().BoolVar(&ranked, "ranked", false, "list patterns in matching order")
	return cmd
}

func printRoutes(out io.Writer, routes []route.Descriptor) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tHEAD\tCOMPONENT\tPREFETCH\tGUARD")
	var walk func(prefix string, routes []route.Descriptor)
	walk = func(prefix string, routes []route.Descriptor) {
		for _, r := range routes {
			full := prefix
			if r.Path != "" {
				full = path.Join("/", prefix, r.Path)
			}
			if r.Path != "" || len(r.Children) == 0 {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					full, r.Handle.Head.Kind(), orDash(r.ComponentID),
					yesNo(r.Handle.PrefetchComponent != nil), yesNo(r.Guard != nil))
			}
			walk(full, r.Children)
		}
	}
	walk("", routes)
	_ = tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
