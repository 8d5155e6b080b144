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

package spahead

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/thediveo/spahead/head"
)

// HeadMarker is the placeholder comment inside the index document's head
// that gets replaced by the preload links followed by the route's head.
const HeadMarker = "<!--app-head-->"

// BodyMarker is the placeholder comment inside the index document's body.
// The application body is rendered client-side only, so the marker always
// gets replaced by nothing.
const BodyMarker = "<!--app-html-->"

// Splice returns the index document with the preload links and head markup
// spliced in. Index documents without a HeadMarker get their managed head
// tags reconciled instead, with the preload links prepended to the head.
func Splice(index, preloadLinks, headHTML string) (string, error) {
	if strings.Contains(index, HeadMarker) {
		index = strings.Replace(index, HeadMarker, preloadLinks+headHTML, 1)
		return strings.Replace(index, BodyMarker, "", 1), nil
	}
	index = strings.Replace(index, BodyMarker, "", 1)
	if preloadLinks == "" && headHTML == "" {
		return index, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(index))
	if err != nil {
		return "", errors.Wrap(err, "cannot parse index document")
	}
	if headHTML != "" {
		if err := head.Reconcile(doc, headHTML); err != nil {
			return "", err
		}
	}
	if preloadLinks != "" {
		doc.Find("head").First().PrependHtml(preloadLinks)
	}
	html, err := doc.Html()
	if err != nil {
		return "", errors.Wrap(err, "cannot render index document")
	}
	return html, nil
}
