/*
Package core runs the filter pipeline: one producer and a pool of workers per input file,
feeding a single writer that lives for the whole run.
*/
package core

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
)

// customError is an error type that includes a fatal flag.
// Fatal errors end the whole run; the rest only abort the file being processed.
type customError struct {
	message string // The error message.
	fatal   bool   // True if the run cannot continue.
	err     error  // Wrapped cause, may be nil.
}

// NewError creates a new customError with the given message and fatal status.
func NewError(msg string, fatal bool) error {
	return &customError{
		message: msg,
		fatal:   fatal,
	}
}

// WrapError annotates err with a formatted message and a fatal status. errors.Is and
// errors.As see through it to err.
func WrapError(err error, fatal bool, format string, args ...any) error {
	return &customError{
		message: fmt.Sprintf(format, args...),
		fatal:   fatal,
		err:     err,
	}
}

// Error implements the standard Go `error` interface.
func (e *customError) Error() string {
	if e.err == nil {
		return e.message
	}
	return e.message + ": " + e.err.Error()
}

// Unwrap returns the wrapped cause.
func (e *customError) Unwrap() error { return e.err }

// IsFatal returns true if the error is designated as fatal.
func (e *customError) IsFatal() bool {
	return e.fatal
}

// IsFatal reports whether any customError in err's chain is marked fatal.
// Errors of any other type are not fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var ce *customError
	for errors.As(err, &ce) {
		if ce.fatal {
			return true
		}
		if ce.err == nil {
			return false
		}
		err = ce.err
	}
	return false
}

var (
	// ErrInputOpen marks an input file that exists but cannot be opened or read.
	ErrInputOpen = errors.New("cannot open input file")
	// ErrOutputOpen marks an output file that cannot be created or truncated.
	ErrOutputOpen = errors.New("cannot open output file")
	// ErrInterrupted is returned by Run when its context is cancelled before all files are done.
	ErrInterrupted = errors.New("run interrupted")
)
