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

// spahead serves a single page application with server-rendered heads.
package main

import (
	"fmt"
	"os"

	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string
	rootCmd := &cobra.Command{
		Use:   "spahead",
		Short: "Serve a single page application with server-rendered heads",
		Long: `spahead serves a client-rendered single page application, rendering
only the head of each route on the server: its title and meta tags, as well
as preload links for the route's code in production.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initLogging(logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level: trace, debug, info, warn, error (default from configuration)")
	rootCmd.AddCommand(
		serveCmd(),
		routesCmd(),
		prefetchCmd(),
		versionCmd(),
	)
	return rootCmd
}

// initLogging sets up logging at the specified level; an empty level keeps
// the default info level.
func initLogging(level string) error {
	lvl := logrus.InfoLevel
	if level != "" {
		var err error
		if lvl, err = logrus.ParseLevel(level); err != nil {
			return errors.Wrapf(err, "invalid log level %q", level)
		}
	}
	pfxlog.GlobalInit(lvl, pfxlog.DefaultOptions())
	return nil
}
