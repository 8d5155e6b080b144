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

package route

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// segment scores used for ranking branches; more specific branches win.
const (
	staticSegmentValue = 10
	paramSegmentValue  = 3
	splatPenalty       = -2
)

// Table is an immutable, ranked route table. It is safe for concurrent use.
type Table struct {
	routes   []Descriptor
	branches []branch
}

// branch is a chain of descriptors from a root route down to a route that
// can be matched, together with the flattened path pattern.
type branch struct {
	chain   []*Descriptor
	ends    []int // number of pattern segments consumed after each chain element.
	pattern []string
	score   int
}

// Frame is a single matched route of a Match.
type Frame struct {
	Descriptor *Descriptor
	Params     Params
	Pathname   string // portion of the pathname matched up to this route.
}

// Match is the result of matching a pathname against a Table. Frames are
// ordered from the outermost route to the leaf.
type Match struct {
	Frames   []Frame
	Location Location
}

// Leaf returns the most specific frame, or nil when there is none.
func (m *Match) Leaf() *Frame {
	if m == nil || len(m.Frames) == 0 {
		return nil
	}
	return &m.Frames[len(m.Frames)-1]
}

// NewTable returns a new Table for the specified routes, or an error if any
// route has an invalid path pattern.
func NewTable(routes ...Descriptor) (*Table, error) {
	t := &Table{routes: append([]Descriptor(nil), routes...)}
	if err := t.flatten(t.routes, nil, nil, nil); err != nil {
		return nil, err
	}
	sort.SliceStable(t.branches, func(i, j int) bool {
		return t.branches[i].score > t.branches[j].score
	})
	return t, nil
}

// MustNewTable is like NewTable but panics on invalid route patterns.
func MustNewTable(routes ...Descriptor) *Table {
	t, err := NewTable(routes...)
	if err != nil {
		panic(err)
	}
	return t
}

// Routes returns the routes the table was built from.
func (t *Table) Routes() []Descriptor {
	return t.routes
}

// Patterns returns the full path patterns of all matchable routes, in
// ranking order.
func (t *Table) Patterns() []string {
	patterns := make([]string, 0, len(t.branches))
	for _, b := range t.branches {
		patterns = append(patterns, "/"+strings.Join(b.pattern, "/"))
	}
	return patterns
}

// flatten walks the route tree depth-first, adding children before their
// parent so that equally ranked children take precedence.
func (t *Table) flatten(routes []Descriptor, chain []*Descriptor, ends []int, pattern []string) error {
	for idx := range routes {
		desc := &routes[idx]
		segs := pattern
		if strings.HasPrefix(desc.Path, "/") {
			segs = nil
		}
		segs = append(append([]string{}, segs...), splitPattern(desc.Path)...)
		if err := validatePattern(segs); err != nil {
			return errors.Wrapf(err, "invalid route path %q", desc.Path)
		}
		subchain := append(append([]*Descriptor{}, chain...), desc)
		subends := append(append([]int{}, ends...), len(segs))
		if len(desc.Children) > 0 {
			if err := t.flatten(desc.Children, subchain, subends, segs); err != nil {
				return err
			}
		}
		if desc.Path == "" {
			continue
		}
		t.branches = append(t.branches, branch{
			chain:   subchain,
			ends:    subends,
			pattern: segs,
			score:   score(segs),
		})
	}
	return nil
}

// Match matches the specified pathname against the table and returns the
// first full match of the best ranked branch, or nil.
func (t *Table) Match(pathname string) *Match {
	if t == nil {
		return nil
	}
	pathname = normalizePathname(pathname)
	segments := splitPattern(pathname)
	for idx := range t.branches {
		b := &t.branches[idx]
		params, ok := b.match(segments)
		if !ok {
			continue
		}
		m := &Match{
			Frames:   make([]Frame, 0, len(b.chain)),
			Location: Location{Pathname: pathname},
		}
		for cidx, desc := range b.chain {
			end := b.ends[cidx]
			if end > len(segments) || cidx == len(b.chain)-1 {
				end = len(segments)
			}
			m.Frames = append(m.Frames, Frame{
				Descriptor: desc,
				Params:     params,
				Pathname:   "/" + strings.Join(segments[:end], "/"),
			})
		}
		return m
	}
	return nil
}

// match the pathname segments against this branch's pattern.
func (b *branch) match(segments []string) (Params, bool) {
	params := Params{}
	for idx, pseg := range b.pattern {
		if pseg == "*" {
			params["*"] = unescape(strings.Join(segments[idx:], "/"))
			return params, true
		}
		if idx >= len(segments) {
			return nil, false
		}
		if strings.HasPrefix(pseg, ":") {
			params[pseg[1:]] = unescape(segments[idx])
			continue
		}
		if !strings.EqualFold(pseg, segments[idx]) {
			return nil, false
		}
	}
	if len(segments) != len(b.pattern) {
		return nil, false
	}
	return params, true
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}

// normalizePathname cleans the pathname and drops any trailing slash.
func normalizePathname(pathname string) string {
	return path.Clean("/" + pathname)
}

func splitPattern(p string) []string {
	var segs []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

func validatePattern(segs []string) error {
	seen := map[string]bool{}
	for idx, seg := range segs {
		switch {
		case seg == "*":
			if idx != len(segs)-1 {
				return errors.New("splat must be the last segment")
			}
		case strings.Contains(seg, "*"):
			return errors.Errorf("malformed splat segment %q", seg)
		case strings.HasPrefix(seg, ":"):
			name := seg[1:]
			if name == "" {
				return errors.New("unnamed path parameter")
			}
			if seen[name] {
				return errors.Errorf("duplicate path parameter %q", name)
			}
			seen[name] = true
		}
	}
	return nil
}

func score(segs []string) int {
	s := len(segs)
	for _, seg := range segs {
		switch {
		case seg == "*":
			s += splatPenalty
		case strings.HasPrefix(seg, ":"):
			s += paramSegmentValue
		default:
			s += staticSegmentValue
		}
	}
	return s
}
