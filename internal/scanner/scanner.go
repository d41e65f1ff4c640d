// Package scanner walks the library root and reports the identity triple
// of every regular file beneath it.
package scanner

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ayase/picvault/internal/domain"
)

// Scanner lists file identity triples under a root directory. It has no
// side effects; callers are expected to validate the root exists.
type Scanner struct {
	root string
}

// New creates a Scanner for the given root directory.
func New(root string) *Scanner {
	return &Scanner{root: root}
}

// Scan returns the set of identity triples for all regular files under
// the root. Paths whose top-level segment starts with a dot (the state
// directory, editor droppings) are excluded. A missing or empty root
// yields an empty set.
func (s *Scanner) Scan() (map[domain.PathTriple]struct{}, error) {
	triples := make(map[domain.PathTriple]struct{})

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The root itself being absent is the caller's concern.
			if path == s.root {
				return nil
			}
			return err
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}

		top := topSegment(rel)
		if strings.HasPrefix(top, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		triples[TripleForRelPath(rel)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return triples, nil
}

// topSegment returns the first path segment of a relative path, in OS or
// slash notation.
func topSegment(rel string) string {
	rel = filepath.ToSlash(rel)
	if idx := strings.Index(rel, "/"); idx != -1 {
		return rel[:idx]
	}
	return rel
}

// TripleForRelPath splits a slash- or OS-separated relative path into an
// identity triple. The extension carries no leading dot; files directly
// under the root get folder ".".
func TripleForRelPath(rel string) domain.PathTriple {
	rel = filepath.ToSlash(rel)
	folder := "."
	name := rel
	if idx := strings.LastIndex(rel, "/"); idx != -1 {
		folder = rel[:idx]
		name = rel[idx+1:]
	}
	ext := ""
	if idx := strings.LastIndex(name, "."); idx > 0 {
		ext = name[idx+1:]
		name = name[:idx]
	}
	return domain.PathTriple{Folder: folder, Name: name, Extension: ext}
}
