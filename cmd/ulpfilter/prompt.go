package main

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
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var errEmptyPattern = errors.New("no file or pattern entered")

// promptPattern asks for a single path or wildcard pattern on in.
func promptPattern(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter a file path or wildcard pattern (e.g. *.txt or dumps/*combo*.txt): ")
	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read pattern: %w", err)
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errEmptyPattern
	}
	return input, nil
}
