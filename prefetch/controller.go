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

package prefetch

import (
	"context"
	"net/url"
	"sort"
	"sync"

	"github.com/michaelquigley/pfxlog"
	"github.com/thediveo/spahead/route"
)

// Set is the set of paths already prefetched during a session. It only
// grows; it gets dropped together with the session.
type Set struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// NewSet returns a new, empty Set.
func NewSet() *Set {
	return &Set{paths: map[string]struct{}{}}
}

// Has returns true if the specified path has been prefetched.
func (s *Set) Has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.paths[path]
	return ok
}

// Add adds a path.
func (s *Set) Add(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[path] = struct{}{}
}

// Paths returns the prefetched paths in lexical order.
func (s *Set) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.paths))
	for path := range s.paths {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Observer gets notified about the outcome of each prefetch; err is nil on
// success.
type Observer func(path string, err error)

// Controller prefetches the code of routes when the user hovers over links
// to them. Each path is successfully prefetched at most once per Set.
//
// A Controller doesn't deduplicate prefetches still in flight: hovering the
// same link again before its prefetch has finished triggers another one. The
// prefetch functions thus need to be idempotent.
type Controller struct {
	table    *route.Table
	set      *Set
	observer Observer
	wg       sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithObserver sets an Observer to be notified of prefetch outcomes.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// NewController returns a Controller prefetching the routes of the
// specified table, recording successful prefetches in set. A nil set gets
// replaced by a new, empty one; see Set.
func NewController(table *route.Table, set *Set, opts ...Option) *Controller {
	if set == nil {
		set = NewSet()
	}
	c := &Controller{
		table: table,
		set:   set,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Hover is to be called when the pointer enters a link to the specified
// target. Targets are either path strings, route.Locations, or URLs; other
// targets are logged and ignored. Hover doesn't wait for the prefetch to
// finish.
func (c *Controller) Hover(ctx context.Context, target any) {
	log := pfxlog.Logger()
	path, ok := Path(target)
	if !ok {
		log.Warnf("prefetch link target of type %T is neither a path nor has a pathname", target)
		return
	}
	if c.set.Has(path) {
		return
	}
	leaf := c.table.Match(path).Leaf()
	if leaf == nil || leaf.Descriptor.Handle.PrefetchComponent == nil {
		return
	}
	prefetch := leaf.Descriptor.Handle.PrefetchComponent
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := prefetch(ctx)
		if err != nil {
			log.WithField("path", path).Warnf("failed to prefetch: %v", err)
		} else {
			c.set.Add(path)
			log.WithField("path", path).Debugf("prefetched")
		}
		if c.observer != nil {
			c.observer(path, err)
		}
	}()
}

// Set returns the set of successfully prefetched paths.
func (c *Controller) Set() *Set {
	return c.set
}

// Wait blocks until all prefetches started so far have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Path returns the escaped path of a link target, as the route table expects
// it.
func Path(target any) (string, bool) {
	switch t := target.(type) {
	case string:
		return t, true
	case route.Location:
		return t.Pathname, true
	case *route.Location:
		if t == nil {
			return "", false
		}
		return t.Pathname, true
	case url.URL:
		return t.EscapedPath(), true
	case *url.URL:
		if t == nil {
			return "", false
		}
		return t.EscapedPath(), true
	}
	return "", false
}
