//go:build !linux
// +build !linux

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

// CPU affinity is only implemented on Linux; elsewhere workers float freely.

package core

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var pinWarning sync.Once

func pinWorker(log logrus.FieldLogger, workerID, cpuID int) {
	pinWarning.Do(func() {
		log.Warn("CPU pinning is not supported on this platform; workers are not pinned")
	})
}
