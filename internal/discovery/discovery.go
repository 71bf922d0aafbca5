/*
Package discovery turns command-line arguments into the ordered list of input files.

Plain arguments pass through untouched. Arguments containing '*' or '?' are shell-style
wildcards, matched case-insensitively against the regular files below a root directory.
*/
package discovery

/*
ulpfilter — fast filter for url:login:pass credential lists in Go
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

// ErrNoInputs is returned when no argument resolves to an input path.
var ErrNoInputs = errors.New("no input files matched")

// IsWildcard reports whether token contains a '*' or '?' wildcard.
func IsWildcard(token string) bool {
	return strings.ContainsAny(token, "*?")
}

// ToRegexp converts a wildcard token into an anchored, case-insensitive expression:
// '*' matches any run of characters, '?' exactly one, everything else literally.
func ToRegexp(token string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.Grow(len(token)*2 + 8)
	b.WriteString("(?is)^")
	for _, r := range token {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

type candidate struct {
	path string // as handed to the pipeline
	rel  string // slash-separated, relative to root
	name string
}

// Expand resolves args against fs. Wildcards are matched against regular files found by
// walking root, in lexical order; a wildcard containing '/' is matched against the path
// relative to root, any other against the file name. Duplicates and paths listed in exclude
// are dropped. ErrNoInputs is returned when nothing is left.
func Expand(fs afero.Fs, root string, args []string, exclude []string) ([]string, error) {
	if root == "" {
		root = "."
	}
	skip := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		if e != "" {
			skip[pathKey(e)] = struct{}{}
		}
	}

	var (
		files  []candidate
		walked bool
		out    []string
		seen   = make(map[string]struct{})
	)
	add := func(path string) {
		clean := pathKey(path)
		if _, ok := skip[clean]; ok {
			return
		}
		if _, ok := seen[clean]; ok {
			return
		}
		seen[clean] = struct{}{}
		out = append(out, path)
	}

	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		if !IsWildcard(arg) {
			add(arg)
			continue
		}

		re, err := ToRegexp(filepath.ToSlash(arg))
		if err != nil {
			return nil, fmt.Errorf("wildcard %q: %w", arg, err)
		}
		if !walked {
			files, err = walk(fs, root)
			if err != nil {
				return nil, err
			}
			walked = true
		}
		byPath := strings.Contains(filepath.ToSlash(arg), "/")
		for _, c := range files {
			subject := c.name
			if byPath {
				subject = c.rel
			}
			if re.MatchString(subject) {
				add(c.path)
			}
		}
	}

	if len(out) == 0 {
		return nil, ErrNoInputs
	}
	return out, nil
}

// pathKey identifies a file independent of how it was spelled relative to root or the
// working directory.
func pathKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// walk lists regular files under root. Unreadable subdirectories are skipped.
func walk(fs afero.Fs, root string) ([]candidate, error) {
	var files []candidate
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		files = append(files, candidate{
			path: path,
			rel:  filepath.ToSlash(rel),
			name: info.Name(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}
