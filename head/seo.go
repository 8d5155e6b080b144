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
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const (
	// ManagedAttr marks the head tags owned by this package.
	ManagedAttr = "data-managed-tag"
	// ManagedValue is the value of ManagedAttr.
	ManagedValue = "true"
	// ManagedSelector selects all managed tags of a document.
	ManagedSelector = "meta[" + ManagedAttr + "], link[" + ManagedAttr + "]"
)

const (
	defaultOGType      = "website"
	defaultTwitterCard = "summary_large_image"
)

// SEO is a head element rendering a title and the usual SEO meta tags. The
// Open Graph and Twitter titles and descriptions default to Title and
// Description.
type SEO struct {
	Title          string
	Description    string
	Keywords       string
	OGTitle        string
	OGDescription  string
	OGImage        string
	OGURL          string
	OGType         string // defaults to "website"
	TwitterCard    string // defaults to "summary_large_image"
	TwitterSite    string
	TwitterCreator string
	CanonicalURL   string
}

var _ templ.Component = SEO{}

// Attr is a single tag attribute.
type Attr struct {
	Key string `json:"key" msgpack:"key"`
	Val string `json:"val" msgpack:"val"`
}

// Tag is a meta or link head tag with its attributes in order.
type Tag struct {
	Name  string `json:"name" msgpack:"name"`
	Attrs []Attr `json:"attrs" msgpack:"attrs"`
}

// HTML returns the tag's markup, marked as managed.
func (t Tag) HTML() string {
	var sb strings.Builder
	sb.WriteString("<")
	sb.WriteString(t.Name)
	for _, attr := range t.Attrs {
		sb.WriteString(" ")
		sb.WriteString(attr.Key)
		sb.WriteString(`="`)
		sb.WriteString(templ.EscapeString(attr.Val))
		sb.WriteString(`"`)
	}
	sb.WriteString(" " + ManagedAttr + `="` + ManagedValue + `">`)
	return sb.String()
}

// Tags returns the meta and link tags of this SEO element, in their
// rendering order. Empty properties don't produce tags.
func (s SEO) Tags() []Tag {
	ogType := s.OGType
	if ogType == "" {
		ogType = defaultOGType
	}
	twitterCard := s.TwitterCard
	if twitterCard == "" {
		twitterCard = defaultTwitterCard
	}
	ogTitle := s.OGTitle
	if ogTitle == "" {
		ogTitle = s.Title
	}
	ogDescription := s.OGDescription
	if ogDescription == "" {
		ogDescription = s.Description
	}

	var tags []Tag
	meta := func(key, name, content string) {
		if content == "" {
			return
		}
		tags = append(tags, Tag{Name: "meta", Attrs: []Attr{{key, name}, {"content", content}}})
	}
	meta("name", "description", s.Description)
	meta("name", "keywords", s.Keywords)
	meta("property", "og:title", ogTitle)
	meta("property", "og:description", ogDescription)
	meta("property", "og:image", s.OGImage)
	meta("property", "og:url", s.OGURL)
	meta("property", "og:type", ogType)
	meta("name", "twitter:card", twitterCard)
	meta("name", "twitter:site", s.TwitterSite)
	meta("name", "twitter:creator", s.TwitterCreator)
	meta("name", "twitter:title", ogTitle)
	meta("name", "twitter:description", ogDescription)
	meta("name", "twitter:image", s.OGImage)
	if s.CanonicalURL != "" {
		tags = append(tags, Tag{Name: "link", Attrs: []Attr{{"rel", "canonical"}, {"href", s.CanonicalURL}}})
	}
	return tags
}

// Render renders the title followed by the managed tags.
func (s SEO) Render(ctx context.Context, w io.Writer) error {
	if _, err := io.WriteString(w, "<title>"+templ.EscapeString(s.Title)+"</title>"); err != nil {
		return err
	}
	for _, tag := range s.Tags() {
		if _, err := io.WriteString(w, tag.HTML()); err != nil {
			return err
		}
	}
	return nil
}
