// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package filesystem

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Entry is a single file or directory found by ListFiles.
type Entry struct {
	// Name is the path relative to the layer root, e.g. "views/home.yaml".
	Name string

	// Path is the resolved path of a file. It is empty for directories.
	Path string

	// Children holds the merged contents of a directory.
	Children Listing
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Path == ""
}

// Listing is a set of entries sorted by Name.
type Listing []Entry

// Flatten returns every file in the listing, and its sub listings,
// keyed by relative name.
func (l Listing) Flatten() map[string]string {
	m := make(map[string]string)
	l.flatten(m)
	return m
}

func (l Listing) flatten(m map[string]string) {
	for _, e := range l {
		if e.IsDir() {
			e.Children.flatten(m)
			continue
		}
		m[e.Name] = e.Path
	}
}

// ListFiles recursively finds every file under dir in the given layers,
// or in the configured layers when none are given. When the same relative
// name exists in several layers the first layer wins. Directories found
// in several layers have their contents merged. Hidden files and backup
// files ending in "~" are skipped.
//
//	// every view in every layer
//	views, err := c.ListFiles("views")
func (c *Cascade) ListFiles(dir string, layers ...string) (Listing, error) {
	if len(layers) == 0 {
		layers = c.Layers()
	}
	return c.listFiles(filepath.Clean(dir), layers)
}

func (c *Cascade) listFiles(dir string, layers []string) (Listing, error) {
	found := make(map[string]Entry)
	for _, layer := range layers {
		root := filepath.Join(layer, dir)
		if ok, _ := afero.IsDir(c.fs, root); !ok {
			continue
		}

		infos, err := afero.ReadDir(c.fs, root)
		if err != nil {
			return nil, err
		}

		for _, fi := range infos {
			name := fi.Name()
			if skipListing(name) {
				continue
			}

			key := filepath.Join(dir, name)
			if _, ok := found[key]; ok {
				continue
			}

			if !fi.IsDir() {
				found[key] = Entry{Name: key, Path: filepath.Join(root, name)}
				continue
			}

			// the recursion already searches every layer so a directory
			// only needs to be listed the first time it is seen
			children, err := c.listFiles(key, layers)
			if err != nil {
				return nil, err
			}
			if len(children) == 0 {
				continue
			}
			found[key] = Entry{Name: key, Children: children}
		}
	}

	l := make(Listing, 0, len(found))
	for _, e := range found {
		l = append(l, e)
	}
	sort.Slice(l, func(i, j int) bool {
		return l[i].Name < l[j].Name
	})
	return l, nil
}

func skipListing(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~")
}
