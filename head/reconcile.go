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

package head

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// Snapshot is the parsed form of head markup: the document title and the
// meta and link tags, without their managed markers.
type Snapshot struct {
	Title string `json:"title" msgpack:"title"`
	Tags  []Tag  `json:"tags" msgpack:"tags"`
}

// Parse parses the specified head markup into a Snapshot. Elements other
// than title, meta, and link are skipped.
func Parse(markup string) (Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(
		strings.NewReader("<!DOCTYPE html><html><head>" + markup + "</head><body></body></html>"))
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "cannot parse head markup")
	}
	snap := Snapshot{
		Title: doc.Find("head > title").First().Text(),
		Tags:  []Tag{},
	}
	doc.Find("head > meta, head > link").Each(func(_ int, s *goquery.Selection) {
		tag := Tag{Name: goquery.NodeName(s)}
		for _, attr := range s.Nodes[0].Attr {
			if attr.Key == ManagedAttr {
				continue
			}
			tag.Attrs = append(tag.Attrs, Attr{Key: attr.Key, Val: attr.Val})
		}
		snap.Tags = append(snap.Tags, tag)
	})
	return snap, nil
}

// Reconcile updates the head of doc to the specified head markup: it
// removes all previously managed tags, sets the title, and then appends the
// new tags, marking each of them as managed. Reconciling the same markup
// again leaves doc unchanged.
func Reconcile(doc *goquery.Document, markup string) error {
	snap, err := Parse(markup)
	if err != nil {
		return err
	}
	head := doc.Find("head").First()
	if head.Length() == 0 {
		return errors.New("document lacks a head element")
	}
	head.Find(ManagedSelector).Remove()
	title := head.Find("title")
	if title.Length() == 0 {
		head.PrependHtml("<title></title>")
		title = head.Find("title")
	}
	title.First().SetText(snap.Title)
	for _, tag := range snap.Tags {
		head.AppendHtml(tag.HTML())
	}
	return nil
}
