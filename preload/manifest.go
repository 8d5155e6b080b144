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
	"context"
	"encoding/json"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// Manifest maps component identifiers to the ordered lists of asset paths a
// production build emitted for them. A Manifest is read-only after loading
// and thus safe for concurrent use.
type Manifest struct {
	entries map[string][]string
}

// NewManifest returns a Manifest with a copy of the specified entries.
func NewManifest(entries map[string][]string) *Manifest {
	m := &Manifest{entries: make(map[string][]string, len(entries))}
	for id, assets := range entries {
		m.entries[id] = append([]string(nil), assets...)
	}
	return m
}

// Decode reads a JSON manifest of the form {"id": ["a.js", "a.css"]}.
func Decode(r io.Reader) (*Manifest, error) {
	var entries map[string][]string
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, errors.Wrap(err, "malformed asset manifest")
	}
	return &Manifest{entries: entries}, nil
}

// Load reads a JSON manifest file.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open asset manifest %q", path)
	}
	defer f.Close()
	return Decode(f)
}

// ObjectGetter is the part of the S3 client API needed to fetch manifests
// from a bucket.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// LoadS3 reads a JSON manifest object from an S3 bucket, such as when build
// artifacts are published to a bucket instead of being shipped with the
// server.
func LoadS3(ctx context.Context, api ObjectGetter, bucket, key string) (*Manifest, error) {
	out, err := api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot fetch asset manifest s3://%s/%s", bucket, key)
	}
	defer out.Body.Close()
	return Decode(out.Body)
}

// Source tells where to load a manifest from: either a file Path, or an S3
// Bucket and Key.
type Source struct {
	Path   string
	Bucket string
	Key    string
}

// IsS3 returns true if the manifest is to be loaded from an S3 bucket.
func (s Source) IsS3() bool { return s.Bucket != "" }

// ParseURI parses a manifest location, which is either an "s3://bucket/key"
// URI or a plain file path.
func ParseURI(uri string) (Source, error) {
	if !strings.HasPrefix(uri, "s3://") {
		if uri == "" {
			return Source{}, errors.New("empty asset manifest location")
		}
		return Source{Path: uri}, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return Source{}, errors.Wrapf(err, "invalid asset manifest location %q", uri)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return Source{}, errors.Errorf("asset manifest location %q lacks bucket or key", uri)
	}
	return Source{Bucket: u.Host, Key: key}, nil
}

// Assets returns a copy of the asset paths for the specified component
// identifier, or nil if unknown. It is safe to call on a nil Manifest.
func (m *Manifest) Assets(id string) []string {
	if m == nil {
		return nil
	}
	assets, ok := m.entries[id]
	if !ok {
		return nil
	}
	return append([]string(nil), assets...)
}

// Len returns the number of component identifiers in the manifest.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}
