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

package devreload

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
)

// DefaultIgnore lists the names of directories and files never watched.
var DefaultIgnore = []string{".git", "node_modules", "dist", ".vite"}

// DefaultDebounce is the default quiet period after the last change before
// notifying.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches directory trees for changed files.
type Watcher struct {
	roots    []string
	ignore   []string
	debounce time.Duration
}

// NewWatcher returns a Watcher for the specified directory trees.
func NewWatcher(roots ...string) *Watcher {
	return &Watcher{
		roots:    roots,
		ignore:   DefaultIgnore,
		debounce: DefaultDebounce,
	}
}

// WithDebounce sets the quiet period.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Run watches until ctx is done, calling onChange with the last changed file
// of each burst of changes. New directories get watched too.
func (w *Watcher) Run(ctx context.Context, onChange func(file string)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "cannot watch files")
	}
	defer func() { _ = fsw.Close() }()
	for _, root := range w.roots {
		if err := w.add(fsw, root); err != nil {
			return err
		}
	}

	log := pfxlog.Logger()
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	var last string
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			if event.Has(fsnotify.Create) {
				if err := w.add(fsw, event.Name); err != nil {
					log.Warnf("cannot watch %s: %v", event.Name, err)
				}
			}
			last = event.Name
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warnf("file watch error: %v", err)
		case <-timer.C:
			log.WithField("file", last).Debugf("changed")
			onChange(last)
		}
	}
}

// add watches the specified directory tree; plain files are skipped as
// their directories are watched already.
func (w *Watcher) add(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "cannot watch %s", path)
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return errors.Wrapf(err, "cannot watch %s", path)
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	base := filepath.Base(path)
	for _, name := range w.ignore {
		if base == name {
			return true
		}
	}
	return strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp")
}
