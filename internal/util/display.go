package util

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
	"unicode"
	"unicode/utf8"
)

// DisplayPath makes a file path safe for a single status line: control characters become
// underscores, and paths longer than maxRunes keep their tail behind a leading "...".
// Performance is not critical for this display utility.
func DisplayPath(input string, maxRunes int) string {
	replaced := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return '_'
		}
		return r
	}, input)

	if maxRunes <= 0 || utf8.RuneCountInString(replaced) <= maxRunes {
		return replaced
	}
	const ellipsis = "..."
	if maxRunes <= len(ellipsis) {
		return ellipsis[:maxRunes]
	}
	runes := []rune(replaced)
	return ellipsis + string(runes[len(runes)-(maxRunes-len(ellipsis)):])
}
