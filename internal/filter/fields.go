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
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{6,}$`)
	// Host between an optional http(s) scheme and the first '/', ':' or end of string.
	urlHostPattern = regexp.MustCompile(`^(?i:https?://)?([^/:]+)`)
)

// trimSet matches what counts as surrounding whitespace in a field, including the '\r' left
// behind by CRLF input.
const trimSet = " \t\r\n"

// IsValidEmail reports whether s has the shape local@label(.label)+.tld with a 2+ letter TLD.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsPhoneNumber reports whether s is an optional '+' followed by six or more digits.
func IsPhoneNumber(s string) bool {
	return phonePattern.MatchString(s)
}

// EmailDomain returns the lowercased part after the last '@', or "" when there is none.
func EmailDomain(login string) string {
	at := strings.LastIndexByte(login, '@')
	if at < 0 {
		return ""
	}
	return strings.ToLower(login[at+1:])
}

// URLDomain returns the lowercased host of a URL-like field, or "" when none can be found.
func URLDomain(url string) string {
	m := urlHostPattern.FindStringSubmatch(url)
	if len(m) < 2 {
		return ""
	}
	return strings.ToLower(m[1])
}

func trimField(s string) string {
	return strings.Trim(s, trimSet)
}
