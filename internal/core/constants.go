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
	"time"
)

const (
	// DefaultBatchSize is the number of lines a worker pops from the input queue at once.
	DefaultBatchSize = 100

	// WriterBatchSize is the number of records the writer drains per wake-up.
	WriterBatchSize = 512

	// ReaderBufferSize is the bufio size used when streaming an input file.
	ReaderBufferSize = 1 << 20 // 1MB

	// CancelCheckLines is how many lines the producer reads between context checks.
	CancelCheckLines = 4096

	// MaxWorkers caps the worker pool regardless of settings.
	MaxWorkers = 2048

	// RejectLogBurst and RejectLogInterval bound the debug log of rejected lines.
	RejectLogBurst    = 20
	RejectLogInterval = time.Second
)
