/*
Package filter classifies single input lines: it splits a line into url, login and password
fields, applies the login shape checks and the domain allow/deny rules, and reshapes accepted
records into their output layout.
*/
package filter

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
	"strings"

	"github.com/x-stp/ulpfilter/internal/config"
)

// DomainMatches reports whether domain equals pattern or has pattern as a suffix at a label
// boundary. Both arguments must already be lowercase.
// "mail.example.com" matches "example.com" but not "xample.com".
func DomainMatches(domain, pattern string) bool {
	if domain == pattern {
		return true
	}
	if len(domain) <= len(pattern) {
		return false
	}
	return strings.HasSuffix(domain, pattern) && domain[len(domain)-len(pattern)-1] == '.'
}

// CheckDomain applies a deny set and then an allow set to domain. Any deny match rejects.
// An empty allow set accepts everything the deny set let through.
func CheckDomain(domain string, remove, contain config.PatternSet) bool {
	for pattern := range remove {
		if DomainMatches(domain, pattern) {
			return false
		}
	}
	if len(contain) == 0 {
		return true
	}
	for pattern := range contain {
		if DomainMatches(domain, pattern) {
			return true
		}
	}
	return false
}
