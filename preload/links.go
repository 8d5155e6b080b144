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

package preload

import (
	"strings"

	"github.com/a-h/templ"
)

// Links returns the preload link tags for the assets of the specified
// component identifier, in manifest order: module preloads for scripts and
// stylesheet links for CSS. Assets of any other kind are skipped. A nil
// manifest or an unknown component identifier result in an empty string.
func Links(m *Manifest, id string) string {
	if m == nil || id == "" {
		return ""
	}
	var sb strings.Builder
	for _, asset := range m.entries[id] {
		switch {
		case strings.HasSuffix(asset, ".js"):
			sb.WriteString(`<link rel="modulepreload" crossorigin href="` + templ.EscapeString(asset) + "\">\n")
		case strings.HasSuffix(asset, ".css"):
			sb.WriteString(`<link rel="stylesheet" href="` + templ.EscapeString(asset) + "\">\n")
		}
	}
	return sb.String()
}
