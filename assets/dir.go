// SPDX-License-Identifier: GPL-2.0-or-later

// Package assets provides a reference directory-backed implementation of
// the root decoder's Resolver (spec §4.6, §1's asset-resolver
// collaborator). It mirrors the teacher's filesystem package's single
// search-root idiom (UseGameDir) rather than its multi-path pak/vpk
// search order, since the decoder's Non-goals exclude packfile support.
package assets

import (
	"os"
	"path/filepath"
)

// DirResolver resolves paths against a single filesystem root.
type DirResolver struct {
	root string
}

// NewDirResolver returns a Resolver rooted at dir.
func NewDirResolver(dir string) *DirResolver {
	return &DirResolver{root: dir}
}

func (d *DirResolver) resolve(path string) string {
	return filepath.Join(d.root, filepath.FromSlash(path))
}

// Exists reports whether path exists under the resolver's root.
func (d *DirResolver) Exists(path string) bool {
	_, err := os.Stat(d.resolve(path))
	return err == nil
}

// Read returns the full contents of path, or ok=false if it doesn't
// exist or can't be read.
func (d *DirResolver) Read(path string) ([]byte, bool) {
	data, err := os.ReadFile(d.resolve(path))
	if err != nil {
		return nil, false
	}
	return data, true
}
