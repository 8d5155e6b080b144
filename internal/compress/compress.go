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

/*
Package compress provides the response compression middleware, preferring
brotli over gzip and deflate when clients accept it.
*/
package compress

import (
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultLevel is the default compression level.
const DefaultLevel = 5

// Types are the compressed content types.
var Types = []string{
	"text/html",
	"text/css",
	"text/plain",
	"text/javascript",
	"application/javascript",
	"application/json",
	"application/x-msgpack",
	"image/svg+xml",
}

// Middleware returns a middleware compressing responses of the Types at the
// specified level.
func Middleware(level int) func(http.Handler) http.Handler {
	c := middleware.NewCompressor(level, Types...)
	c.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	return c.Handler
}
