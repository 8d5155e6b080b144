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
	"os"
	"os/signal"
	"syscall"

	"github.com/michaelquigley/pfxlog"
	"github.com/spf13/cobra"
	"github.com/thediveo/spahead/internal/config"
	"github.com/thediveo/spahead/internal/server"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		flags      config.Config
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the application",
		Long: `Serve the application, either from the project directory in development,
or from the build output directory in production.

Settings are taken from the configuration file, if any, then from the PORT and
NODE_ENV (or SPAHEAD_MODE) environment variables, and finally from the flags.

Examples:
  spahead serve
  NODE_ENV=production spahead serve --out-dir=build
  spahead serve --mode=production --manifest=s3://artifacts/web/ssr-manifest.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			overrideConfig(cmd, cfg, &flags)
			if !cmd.Flags().Changed("log-level") && cfg.LogLevel != config.DefaultLogLevel {
				if err := initLogging(cfg.LogLevel); err != nil {
					return err
				}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	cmd.Flags().StringVar(&flags.Mode, "mode", "", "mode: development or production")
	cmd.Flags().StringVarP(&flags.Host, "host", "H", "", "host to bind to")
	cmd.Flags().IntVarP(&flags.Port, "port", "p", 0, "port to listen on")
	cmd.Flags().StringVar(&flags.Root, "root", "", "project directory served in development")
	cmd.Flags().StringVar(&flags.OutDir, "out-dir", "", "build output directory served in production")
	cmd.Flags().StringVar(&flags.Manifest, "manifest", "", "asset manifest file or s3://bucket/key")
	cmd.Flags().StringVar(&flags.Region, "region", "", "AWS region of S3-hosted manifests")
	cmd.Flags().BoolVar(&flags.Metrics, "metrics", true, "expose metrics")
	return cmd
}

// loadConfig returns the configuration from the defaults, the optional
// file, and the environment.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.New()
	if path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overrideConfig applies the flags explicitly set.
func overrideConfig(cmd *cobra.Command, cfg *config.Config, flags *config.Config) {
	changed := cmd.Flags().Changed
	if changed("mode") {
		cfg.Mode = flags.Mode
	}
	if changed("host") {
		cfg.Host = flags.Host
	}
	if changed("port") {
		cfg.Port = flags.Port
	}
	if changed("root") {
		cfg.Root = flags.Root
	}
	if changed("out-dir") {
		cfg.OutDir = flags.OutDir
	}
	if changed("manifest") {
		cfg.Manifest = flags.Manifest
	}
	if changed("region") {
		cfg.Region = flags.Region
	}
	if changed("metrics") {
		cfg.Metrics = flags.Metrics
	}
}

// serve runs the server until ctx is done.
func serve(ctx context.Context, cfg *config.Config) error {
	s, err := server.New(ctx, cfg)
	if err != nil {
		return err
	}
	go func() {
		if err := s.Watch(ctx); err != nil {
			pfxlog.Logger().Warnf("cannot reload browsers on changes: %v", err)
		}
	}()
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		pfxlog.Logger().Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}
