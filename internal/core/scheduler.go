//go:build linux
// +build linux

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

package core

import (
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// pinWorker binds the calling goroutine's OS thread to cpuID. The goroutine stays locked to
// the thread until it exits, at which point the runtime discards the thread along with its
// affinity mask. Failure is logged and otherwise ignored.
func pinWorker(log logrus.FieldLogger, workerID, cpuID int) {
	runtime.LockOSThread()

	var cpuSet unix.CPUSet
	cpuSet.Zero()
	cpuSet.Set(cpuID)

	tid := unix.Gettid()
	if err := unix.SchedSetaffinity(tid, &cpuSet); err != nil {
		log.WithFields(logrus.Fields{
			"worker": workerID,
			"cpu":    cpuID,
			"tid":    tid,
		}).WithError(err).Warn("Failed to set CPU affinity")
		return
	}
	log.WithFields(logrus.Fields{"worker": workerID, "cpu": cpuID}).Debug("Worker pinned")
}
