package config

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
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

// PatternSet is an unordered set of lowercase domain patterns.
type PatternSet map[string]struct{}

// NewPatternSet builds a set from already-normalised patterns. Intended for tests and
// programmatic construction; Load normalises patterns itself.
func NewPatternSet(patterns ...string) PatternSet {
	s := make(PatternSet, len(patterns))
	for _, p := range patterns {
		if p != "" {
			s[p] = struct{}{}
		}
	}
	return s
}

// Len returns the number of patterns; a nil set has length 0.
func (s PatternSet) Len() int { return len(s) }

// Sorted returns the patterns in lexical order.
func (s PatternSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// MarshalYAML renders the set as a sorted sequence.
func (s PatternSet) MarshalYAML() (interface{}, error) {
	return s.Sorted(), nil
}

// addList splits a comma-separated directive value, lowercases every token and inserts it.
// Returned strings describe tokens that do not look like domain names; they are still added.
func (s PatternSet) addList(key, value string, toASCII bool) []string {
	var warnings []string
	for _, token := range strings.Split(value, ",") {
		pattern := strings.ToLower(strings.TrimSpace(token))
		if pattern == "" {
			continue
		}
		if toASCII {
			converted, err := ToASCII(pattern)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %q cannot be converted to ASCII: %v", key, pattern, err))
			} else {
				pattern = converted
			}
		}
		if _, ok := dns.IsDomainName(pattern); !ok {
			warnings = append(warnings, fmt.Sprintf("%s: %q is not a valid domain name", key, pattern))
		}
		s[pattern] = struct{}{}
	}
	return warnings
}

// ToASCII converts an internationalised host to its lowercase punycode form. Pure ASCII input
// is returned unchanged without consulting the IDNA tables.
func ToASCII(host string) (string, error) {
	if isASCII(host) {
		return host, nil
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return host, err
	}
	return strings.ToLower(ascii), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
